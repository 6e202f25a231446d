package mergecfg

import "strings"

// SplitTopLevel splits a rule line on commas that sit at parenthesis depth
// zero outside quoted spans, so logic-rule payloads like
// AND,((IN-PORT,10001),(DOMAIN,x)),POLICY keep their nested fields intact.
//
// A backslash escapes the following character unconditionally. Single and
// double quotes toggle independently: a quote of one kind is plain text
// inside a span of the other kind. An unmatched ")" leaves the depth at zero
// rather than failing. Fields are trimmed; the result always has at least
// one field.
func SplitTopLevel(line string) []string {
	var parts []string
	var buf strings.Builder
	depth := 0
	inSingle := false
	inDouble := false
	escaped := false

	for _, ch := range line {
		if escaped {
			buf.WriteRune(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			buf.WriteRune(ch)
			escaped = true
			continue
		}
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			buf.WriteRune(ch)
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			buf.WriteRune(ch)
			continue
		}
		if !inSingle && !inDouble {
			switch ch {
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					parts = append(parts, strings.TrimSpace(buf.String()))
					buf.Reset()
					continue
				}
			}
		}
		buf.WriteRune(ch)
	}
	parts = append(parts, strings.TrimSpace(buf.String()))
	return parts
}
