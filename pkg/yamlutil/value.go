package yamlutil

import "strings"

// CoerceString converts a value to string when it is already a string.
func CoerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

// AsMap returns v as a string-keyed mapping when it is one.
func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsSlice returns v as a sequence when it is one.
func AsSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// StringItems collects the non-empty string items of a sequence value.
// Non-string items are skipped.
func StringItems(v any) []string {
	items, ok := AsSlice(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// EnsureMap returns doc[key] as a mapping, creating it when absent.
// The second result is false when the key exists with a non-mapping value.
func EnsureMap(doc map[string]any, key string) (map[string]any, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		m := map[string]any{}
		doc[key] = m
		return m, true
	}
	m, ok := AsMap(v)
	return m, ok
}

// EnsureSlice returns doc[key] as a sequence, creating it when absent.
// The second result is false when the key exists with a non-sequence value.
func EnsureSlice(doc map[string]any, key string) ([]any, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		doc[key] = []any{}
		return nil, true
	}
	s, ok := AsSlice(v)
	return s, ok
}

// CloneTree deep-copies a decoded YAML tree of mappings, sequences and scalars.
// Scalars are returned as-is.
func CloneTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = CloneTree(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneTree(item)
		}
		return out
	default:
		return v
	}
}
