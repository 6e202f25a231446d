package mergecfg

import "strings"

// RewriteRuleLine rewrites one routing rule line against a namespace's
// identifier maps: the RULE-SET reference (when the referenced key belongs to
// this namespace) and the policy target (when it names one of this
// namespace's groups or proxies). Anything unrecognized is left untouched —
// it may be a builtin or defined outside this namespace. Lines with fewer
// than two fields pass through unchanged.
func RewriteRuleLine(line string, maps Maps) string {
	parts := SplitTopLevel(line)
	if len(parts) < 2 {
		return line
	}

	if parts[0] == ruleSetTag && len(parts) >= 3 {
		if mapped, ok := maps.RuleSets[parts[1]]; ok {
			parts[1] = mapped
		}
	}

	policyIdx := len(parts) - 1
	if parts[policyIdx] == noResolveToken && len(parts) >= 3 {
		policyIdx--
	}

	policy := parts[policyIdx]
	if mapped, ok := maps.Groups[policy]; ok {
		parts[policyIdx] = mapped
	} else if mapped, ok := maps.Proxies[policy]; ok {
		parts[policyIdx] = mapped
	}

	return strings.Join(parts, ",")
}
