package mergecfg

import (
	"fmt"
	"strings"

	"github.com/geezhu/clash-subscription-merge/pkg/ruleset"
	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

// Source is one configuration fragment to merge: a namespace, the listener
// port bound to it, the subscription URL ("local" marks a local-only
// snippet), and the parsed snippet document.
type Source struct {
	Namespace string
	Port      int
	URL       string
	Document  map[string]any
}

// Local reports whether the source is a local snippet without a backing
// proxy provider.
func (s Source) Local() bool {
	return strings.EqualFold(strings.TrimSpace(s.URL), "local")
}

// Options configures a Merger.
type Options struct {
	// ListenAddr is the address every per-namespace listener binds.
	ListenAddr string
	// KeepOriginalRules keeps each snippet's own groups and rules. When
	// false, every namespace instead gets an ACL4SSR rule bucket over its
	// default/direct/reject trio.
	KeepOriginalRules bool
}

// Merger accumulates the merged output document. Sources are added one at a
// time; Finalize builds the global ALL selection tree and returns the
// document. A Merger is not safe for concurrent use and is not meant to be —
// processing is strictly sequential.
type Merger struct {
	doc      map[string]any
	opts     Options
	defaults []string
}

// NewMerger starts a merge over a base document (nil for an empty one).
// Required top-level buckets are created when absent; existing base content
// is never overwritten here.
func NewMerger(base map[string]any, opts Options) *Merger {
	doc := base
	if doc == nil {
		doc = map[string]any{}
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = "127.0.0.1"
	}

	setDefault(doc, "mode", "rule")
	setDefault(doc, "proxy-providers", map[string]any{})
	setDefault(doc, "rule-providers", map[string]any{})
	setDefault(doc, "proxies", []any{})
	setDefault(doc, "proxy-groups", []any{})
	setDefault(doc, "listeners", []any{})
	setDefault(doc, "sub-rules", map[string]any{})
	setDefault(doc, "rules", []any{"MATCH,DIRECT"})

	return &Merger{doc: doc, opts: opts}
}

func setDefault(doc map[string]any, key string, v any) {
	if _, ok := doc[key]; !ok || doc[key] == nil {
		doc[key] = v
	}
}

// AddSource processes one namespace to completion: provider registration or
// local proxy import, the namespace default group, group and rule rewriting
// (or the ACL4SSR bucket), and the listener binding the source port to the
// namespace's rule bucket.
func (m *Merger) AddSource(src Source) error {
	ns, err := SanitizeNamespace(src.Namespace)
	if err != nil {
		return err
	}
	doc := src.Document
	if doc == nil {
		return &StructuralError{Namespace: ns, Section: "document", Reason: "must be a mapping"}
	}
	if err := validateSnippet(ns, doc); err != nil {
		return err
	}

	maps := BuildMaps(doc, ns)
	rawNames := RawGroupNames(doc)
	local := src.Local()

	if !local {
		if err := m.registerProvider(ns, src.URL); err != nil {
			return err
		}
	}

	var localNames []string
	if local {
		localNames, err = m.importLocalProxies(ns, doc, maps)
		if err != nil {
			return err
		}
	}

	defaultGroup, err := ensureNamespaceDefault(m.doc, ns, local, localNames)
	if err != nil {
		return err
	}
	m.defaults = append(m.defaults, defaultGroup)

	var bucketKey string
	if m.opts.KeepOriginalRules {
		bucketKey, err = m.mergeSnippet(ns, doc, maps, rawNames, local, defaultGroup)
	} else {
		bucketKey, err = m.installACL4SSRBucket(ns, defaultGroup)
	}
	if err != nil {
		return err
	}

	return m.appendListener(ns, src.Port, bucketKey)
}

// validateSnippet checks the required structure of one source document.
// Everything else is handled by the total rewrite policy.
func validateSnippet(ns string, doc map[string]any) error {
	groups, ok := yamlutil.AsSlice(doc["proxy-groups"])
	if !ok || len(groups) == 0 {
		return &StructuralError{Namespace: ns, Section: "proxy-groups", Reason: "must be a non-empty sequence"}
	}
	if v, ok := doc["rules"]; ok && v != nil {
		if _, ok := yamlutil.AsSlice(v); !ok {
			return &StructuralError{Namespace: ns, Section: "rules", Reason: "must be a sequence"}
		}
	}
	if v, ok := doc["rule-providers"]; ok && v != nil {
		if _, ok := yamlutil.AsMap(v); !ok {
			return &StructuralError{Namespace: ns, Section: "rule-providers", Reason: "must be a mapping"}
		}
	}
	return nil
}

func (m *Merger) registerProvider(ns, url string) error {
	providers, ok := yamlutil.EnsureMap(m.doc, "proxy-providers")
	if !ok {
		return &StructuralError{Section: "proxy-providers", Reason: "must be a mapping"}
	}
	if _, exists := providers[ns]; exists {
		return &IdentityConflictError{Namespace: ns}
	}
	providers[ns] = map[string]any{
		"type":     "http",
		"url":      strings.TrimSpace(url),
		"path":     "./proxy_providers/" + ns + ".yaml",
		"interval": 3600,
		"health-check": map[string]any{
			"enable":          true,
			"url":             "https://www.gstatic.com/generate_204",
			"interval":        300,
			"lazy":            true,
			"expected-status": 204,
		},
		// The prefix makes every provider-supplied node name arrive already
		// namespaced, matching the rewritten filters.
		"override": map[string]any{"additional-prefix": ns + "/"},
	}
	return nil
}

// importLocalProxies copies a local snippet's proxies into the output with
// namespaced names and returns the new names.
func (m *Merger) importLocalProxies(ns string, doc map[string]any, maps Maps) ([]string, error) {
	items, ok := yamlutil.AsSlice(doc["proxies"])
	if !ok {
		return nil, nil
	}
	merged, ok := yamlutil.EnsureSlice(m.doc, "proxies")
	if !ok {
		return nil, &StructuralError{Section: "proxies", Reason: "must be a sequence"}
	}

	var names []string
	for _, item := range items {
		p, ok := yamlutil.AsMap(item)
		if !ok {
			continue
		}
		name := yamlutil.CoerceString(p["name"])
		if name == "" {
			continue
		}
		newName, ok := maps.Proxies[name]
		if !ok {
			newName = ns + "/" + name
		}
		cp, _ := yamlutil.AsMap(yamlutil.CloneTree(p))
		cp["name"] = newName
		merged = append(merged, cp)
		names = append(names, newName)
	}
	m.doc["proxies"] = merged
	return names, nil
}

// mergeSnippet rewrites and appends the snippet's groups, rules and rule
// providers, and returns the namespace's rule bucket key.
func (m *Merger) mergeSnippet(ns string, doc map[string]any, maps Maps, rawNames map[string]bool, local bool, defaultGroup string) (string, error) {
	merged, err := groupsBucket(m.doc)
	if err != nil {
		return "", err
	}
	rw := GroupRewrite{
		Namespace:    ns,
		Maps:         maps,
		HasPool:      !local,
		RawNames:     rawNames,
		DefaultGroup: defaultGroup,
	}
	snippetGroups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	for _, item := range snippetGroups {
		g, ok := yamlutil.AsMap(item)
		if !ok {
			continue
		}
		merged = append(merged, RewriteGroup(g, rw))
	}
	m.doc["proxy-groups"] = merged

	ruleItems, _ := yamlutil.AsSlice(doc["rules"])
	rules := make([]any, 0, len(ruleItems)+1)
	hasMatch := false
	for _, item := range ruleItems {
		line, ok := item.(string)
		if !ok {
			line = fmt.Sprintf("%v", item)
		}
		rewritten := RewriteRuleLine(line, maps)
		if strings.HasPrefix(strings.TrimSpace(rewritten), matchTag+",") {
			hasMatch = true
		}
		rules = append(rules, rewritten)
	}
	if !hasMatch {
		if local {
			rules = append(rules, matchTag+",DIRECT")
		} else {
			rules = append(rules, matchTag+","+defaultGroup)
		}
	}

	bucketKey := "rules_" + ns
	subRules, ok := yamlutil.EnsureMap(m.doc, "sub-rules")
	if !ok {
		return "", &StructuralError{Section: "sub-rules", Reason: "must be a mapping"}
	}
	subRules[bucketKey] = rules

	if err := m.mergeRuleProviders(doc, maps); err != nil {
		return "", err
	}
	return bucketKey, nil
}

// mergeRuleProviders copies the snippet's rule providers under their
// namespaced keys, keeping every key in the output document globally unique.
func (m *Merger) mergeRuleProviders(doc map[string]any, maps Maps) error {
	rps, ok := yamlutil.AsMap(doc["rule-providers"])
	if !ok {
		return nil
	}
	merged, ok := yamlutil.EnsureMap(m.doc, "rule-providers")
	if !ok {
		return &StructuralError{Section: "rule-providers", Reason: "must be a mapping"}
	}
	for k, v := range rps {
		key, ok := maps.RuleSets[k]
		if !ok {
			key = k
		}
		merged[key] = yamlutil.CloneTree(v)
	}
	return nil
}

// installACL4SSRBucket replaces the snippet's own rules with the ACL4SSR list
// over the namespace trio and returns the bucket key.
func (m *Merger) installACL4SSRBucket(ns, defaultGroup string) (string, error) {
	rps, ok := yamlutil.EnsureMap(m.doc, "rule-providers")
	if !ok {
		return "", &StructuralError{Section: "rule-providers", Reason: "must be a mapping"}
	}
	ruleset.Inject(rps)

	directGroup, rejectGroup, err := ensureNamespaceACLGroups(m.doc, ns, defaultGroup)
	if err != nil {
		return "", err
	}

	bucketKey := "acl4ssr_" + ns
	subRules, ok := yamlutil.EnsureMap(m.doc, "sub-rules")
	if !ok {
		return "", &StructuralError{Section: "sub-rules", Reason: "must be a mapping"}
	}
	lines := ruleset.Rules(defaultGroup, directGroup, rejectGroup)
	rules := make([]any, len(lines))
	for i, line := range lines {
		rules[i] = line
	}
	subRules[bucketKey] = rules
	return bucketKey, nil
}

func (m *Merger) appendListener(ns string, port int, bucketKey string) error {
	listeners, ok := yamlutil.EnsureSlice(m.doc, "listeners")
	if !ok {
		return &StructuralError{Section: "listeners", Reason: "must be a sequence"}
	}
	m.doc["listeners"] = append(listeners, map[string]any{
		"name":   "in-" + ns,
		"type":   "mixed",
		"listen": m.opts.ListenAddr,
		"port":   port,
		"udp":    true,
		"rule":   bucketKey,
	})
	return nil
}

// Finalize builds the global ALL selection tree from the accumulated
// namespace defaults, installs the ACL4SSR providers and the default-port
// rules over it, and returns the merged document.
func (m *Merger) Finalize() (map[string]any, error) {
	allDefault, err := ensureAllDefault(m.doc, m.defaults)
	if err != nil {
		return nil, err
	}
	allDirect, allReject, err := ensureAllACLGroups(m.doc)
	if err != nil {
		return nil, err
	}

	rps, ok := yamlutil.EnsureMap(m.doc, "rule-providers")
	if !ok {
		return nil, &StructuralError{Section: "rule-providers", Reason: "must be a mapping"}
	}
	ruleset.Inject(rps)

	lines := ruleset.Rules(allDefault, allDirect, allReject)
	rules := make([]any, len(lines))
	for i, line := range lines {
		rules[i] = line
	}
	m.doc["rules"] = rules

	return m.doc, nil
}

// Document exposes the accumulated document, mainly for inspection in tests
// and diagnostics. The value is the live accumulator, not a copy.
func (m *Merger) Document() map[string]any {
	return m.doc
}
