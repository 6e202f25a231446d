package mergecfg

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

func remoteSnippet() map[string]any {
	return map[string]any{
		"proxy-groups": []any{
			map[string]any{"name": "Pick", "type": "select", "proxies": []any{"NodeX", "NodeY", "DIRECT"}},
			map[string]any{"name": "Top", "type": "select", "proxies": []any{"NodeZ", "Pick"}},
		},
		"rules": []any{
			"RULE-SET,MyList,Pick",
			"DOMAIN,example.com,Pick,no-resolve",
		},
		"rule-providers": map[string]any{
			"MyList": map[string]any{"type": "http", "behavior": "classical"},
		},
	}
}

func localSnippet() map[string]any {
	return map[string]any{
		"proxies": []any{
			map[string]any{"name": "LocalNode", "type": "ss", "server": "10.0.0.1"},
		},
		"proxy-groups": []any{
			map[string]any{"name": "Mix", "type": "select", "proxies": []any{"LocalNode", "DIRECT"}},
		},
		"rules": []any{
			"MATCH,Mix",
		},
	}
}

func TestMerger_RemoteSource(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	err := m.AddSource(Source{Namespace: "A", Port: 10001, URL: "https://sub.example.com/a", Document: remoteSnippet()})
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	doc := m.Document()

	providers, _ := yamlutil.AsMap(doc["proxy-providers"])
	p, _ := yamlutil.AsMap(providers["A"])
	if p == nil {
		t.Fatalf("provider A not registered: %v", providers)
	}
	override, _ := yamlutil.AsMap(p["override"])
	if override["additional-prefix"] != "A/" {
		t.Fatalf("override=%v", override)
	}

	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	pick := findGroup(groups, "A/Pick")
	if pick == nil || pick["filter"] != "^(?:A/NodeX|A/NodeY)$" {
		t.Fatalf("leaf group=%v", pick)
	}
	top := findGroup(groups, "A/Top")
	if !reflect.DeepEqual(top["proxies"], []any{"A/Pick"}) || !reflect.DeepEqual(top["use"], []any{"A"}) {
		t.Fatalf("composite group=%v", top)
	}

	subRules, _ := yamlutil.AsMap(doc["sub-rules"])
	rules, _ := yamlutil.AsSlice(subRules["rules_A"])
	want := []any{
		"RULE-SET,A__MyList,A/Pick",
		"DOMAIN,example.com,A/Pick,no-resolve",
		"MATCH,A/默认",
	}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("rules_A=%v", rules)
	}

	rps, _ := yamlutil.AsMap(doc["rule-providers"])
	if _, ok := rps["A__MyList"]; !ok {
		t.Fatalf("namespaced rule provider missing: %v", rps)
	}

	listeners, _ := yamlutil.AsSlice(doc["listeners"])
	if len(listeners) != 1 {
		t.Fatalf("listeners=%v", listeners)
	}
	lst, _ := yamlutil.AsMap(listeners[0])
	if lst["name"] != "in-A" || lst["port"] != 10001 || lst["rule"] != "rules_A" {
		t.Fatalf("listener=%v", lst)
	}
}

func TestMerger_LocalSource(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: "L", Port: 10002, URL: "local", Document: localSnippet()}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	doc := m.Document()

	// No provider for local sources.
	providers, _ := yamlutil.AsMap(doc["proxy-providers"])
	if _, ok := providers["L"]; ok {
		t.Fatalf("local source must not register a provider")
	}

	proxies, _ := yamlutil.AsSlice(doc["proxies"])
	if len(proxies) != 1 {
		t.Fatalf("proxies=%v", proxies)
	}
	p, _ := yamlutil.AsMap(proxies[0])
	if p["name"] != "L/LocalNode" || p["server"] != "10.0.0.1" {
		t.Fatalf("imported proxy=%v", p)
	}

	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	def := findGroup(groups, "L/默认")
	if !reflect.DeepEqual(def["proxies"], []any{"L/LocalNode", "DIRECT"}) {
		t.Fatalf("local default=%v", def)
	}
	mix := findGroup(groups, "L/Mix")
	if !reflect.DeepEqual(mix["proxies"], []any{"L/LocalNode", "DIRECT"}) {
		t.Fatalf("local group=%v", mix)
	}

	subRules, _ := yamlutil.AsMap(doc["sub-rules"])
	rules, _ := yamlutil.AsSlice(subRules["rules_L"])
	if !reflect.DeepEqual(rules, []any{"MATCH,L/Mix"}) {
		t.Fatalf("rules_L=%v", rules)
	}
}

func TestMerger_NamespaceConflict(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("first AddSource: %v", err)
	}
	err := m.AddSource(Source{Namespace: "A", Port: 2, URL: "https://x/b", Document: remoteSnippet()})
	var conflict *IdentityConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected IdentityConflictError, got %v", err)
	}
}

func TestMerger_NamespaceSanitized(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: " a/b ", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	providers, _ := yamlutil.AsMap(m.Document()["proxy-providers"])
	if _, ok := providers["a_b"]; !ok {
		t.Fatalf("sanitized namespace missing: %v", providers)
	}

	if err := m.AddSource(Source{Namespace: "  ", Port: 2, URL: "local", Document: localSnippet()}); err == nil {
		t.Fatalf("expected empty namespace error")
	}
}

func TestMerger_StructuralErrors(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})

	var structural *StructuralError
	err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "local", Document: map[string]any{}})
	if !errors.As(err, &structural) || structural.Section != "proxy-groups" {
		t.Fatalf("expected proxy-groups structural error, got %v", err)
	}

	bad := remoteSnippet()
	bad["rules"] = "MATCH,DIRECT"
	err = m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: bad})
	if !errors.As(err, &structural) || structural.Section != "rules" {
		t.Fatalf("expected rules structural error, got %v", err)
	}

	bad = remoteSnippet()
	bad["rule-providers"] = []any{"nope"}
	err = m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: bad})
	if !errors.As(err, &structural) || structural.Section != "rule-providers" {
		t.Fatalf("expected rule-providers structural error, got %v", err)
	}
}

func TestMerger_FinalizeBuildsAllTree(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("AddSource A: %v", err)
	}
	if err := m.AddSource(Source{Namespace: "L", Port: 2, URL: "local", Document: localSnippet()}); err != nil {
		t.Fatalf("AddSource L: %v", err)
	}
	doc, err := m.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	all := findGroup(groups, "ALL/默认")
	if !reflect.DeepEqual(all["proxies"], []any{"A/默认", "L/默认", "DIRECT"}) {
		t.Fatalf("ALL default=%v", all)
	}
	direct := findGroup(groups, "ALL/直连")
	if !reflect.DeepEqual(direct["proxies"], []any{"DIRECT", "ALL/默认"}) {
		t.Fatalf("ALL direct=%v", direct)
	}
	reject := findGroup(groups, "ALL/拦截")
	if !reflect.DeepEqual(reject["proxies"], []any{"REJECT", "DIRECT"}) {
		t.Fatalf("ALL reject=%v", reject)
	}

	rules, _ := yamlutil.AsSlice(doc["rules"])
	if len(rules) == 0 {
		t.Fatalf("default-port rules missing")
	}
	if rules[len(rules)-1] != "MATCH,ALL/默认" {
		t.Fatalf("last rule=%v", rules[len(rules)-1])
	}
	rps, _ := yamlutil.AsMap(doc["rule-providers"])
	if _, ok := rps["BanAD"]; !ok {
		t.Fatalf("catalogue providers missing: %v", rps)
	}
}

func TestMerger_FinalizePreservesUserAllGroups(t *testing.T) {
	base := map[string]any{
		"proxy-groups": []any{
			map[string]any{"name": "ALL/直连", "type": "select", "proxies": []any{"UserExtra"}},
		},
	}
	m := NewMerger(base, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	doc, err := m.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	direct := findGroup(groups, "ALL/直连")
	if !reflect.DeepEqual(direct["proxies"], []any{"DIRECT", "ALL/默认", "UserExtra"}) {
		t.Fatalf("extras lost: %v", direct["proxies"])
	}
}

func TestMerger_ACL4SSRMode(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: false})
	if err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	doc := m.Document()

	subRules, _ := yamlutil.AsMap(doc["sub-rules"])
	rules, _ := yamlutil.AsSlice(subRules["acl4ssr_A"])
	if len(rules) == 0 {
		t.Fatalf("acl4ssr bucket missing: %v", subRules)
	}
	if rules[len(rules)-1] != "MATCH,A/默认" {
		t.Fatalf("last rule=%v", rules[len(rules)-1])
	}

	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	for _, name := range []string{"A/默认", "A/直连", "A/拦截"} {
		if findGroup(groups, name) == nil {
			t.Fatalf("group %q missing", name)
		}
	}
	// Snippet's own groups are not merged in this mode.
	if findGroup(groups, "A/Pick") != nil {
		t.Fatalf("snippet group merged in ACL4SSR mode")
	}

	listeners, _ := yamlutil.AsSlice(doc["listeners"])
	lst, _ := yamlutil.AsMap(listeners[0])
	if lst["rule"] != "acl4ssr_A" {
		t.Fatalf("listener=%v", lst)
	}
}

func TestMerger_NoCrossNamespaceNodeLeakage(t *testing.T) {
	m := NewMerger(nil, Options{KeepOriginalRules: true})
	if err := m.AddSource(Source{Namespace: "A", Port: 1, URL: "https://x/a", Document: remoteSnippet()}); err != nil {
		t.Fatalf("AddSource A: %v", err)
	}
	second := map[string]any{
		"proxy-groups": []any{
			map[string]any{"name": "Entry", "type": "select", "proxies": []any{"NodeB1", "Inner", "DIRECT"}},
			map[string]any{"name": "Inner", "type": "select", "proxies": []any{"NodeB2"}},
		},
	}
	if err := m.AddSource(Source{Namespace: "B", Port: 2, URL: "https://x/b", Document: second}); err != nil {
		t.Fatalf("AddSource B: %v", err)
	}
	doc, err := m.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	for _, item := range groups {
		g, _ := yamlutil.AsMap(item)
		if g == nil {
			continue
		}
		members, ok := yamlutil.AsSlice(g["proxies"])
		if !ok {
			continue
		}
		// A leaf group's remaining members are builtins only; composite
		// members are builtins or namespaced references. Either way no bare
		// node name may remain.
		if _, isLeaf := g["filter"]; isLeaf {
			continue
		}
		for _, member := range members {
			s, ok := member.(string)
			if !ok {
				continue
			}
			if builtins[s] {
				continue
			}
			if !strings.Contains(s, "/") {
				t.Fatalf("group %v leaks bare node name %q", g["name"], s)
			}
		}
	}
}
