package mergecfg

import "strings"

// Builtin policy targets understood by mihomo. These are never namespaced.
var builtins = map[string]bool{
	"DIRECT": true,
	"REJECT": true,
	"PASS":   true,
	"GLOBAL": true,
	"DNS":    true,
}

// Placeholder tokens some snippets use inside `use` lists to mean "this
// source's own provider". Recognized verbatim.
var providerPlaceholders = map[string]bool{
	"PROVIDER":     true,
	"__PROVIDER__": true,
	"{PROVIDER}":   true,
	"{provider}":   true,
	"${PROVIDER}":  true,
}

const (
	ruleSetTag     = "RULE-SET"
	matchTag       = "MATCH"
	noResolveToken = "no-resolve"

	// AllNamespace scopes the synthesized global selection tree.
	AllNamespace = "ALL"

	defaultSuffix = "默认"
	directSuffix  = "直连"
	rejectSuffix  = "拦截"
)

// DefaultGroupName returns the per-namespace default group name, "<ns>/默认".
func DefaultGroupName(ns string) string {
	return ns + "/" + defaultSuffix
}

// AllDefaultGroup, AllDirectGroup and AllRejectGroup name the three groups of
// the global selection tree.
func AllDefaultGroup() string { return AllNamespace + "/" + defaultSuffix }
func AllDirectGroup() string  { return AllNamespace + "/" + directSuffix }
func AllRejectGroup() string  { return AllNamespace + "/" + rejectSuffix }

// SanitizeNamespace normalizes a user-supplied namespace: surrounding space
// is trimmed and "/" is replaced with "_" so the namespace cannot collide
// with the "<ns>/<name>" separator. An empty result is rejected.
func SanitizeNamespace(ns string) (string, error) {
	ns = strings.ReplaceAll(strings.TrimSpace(ns), "/", "_")
	if ns == "" {
		return "", errEmptyNamespace
	}
	return ns, nil
}
