package mergecfg

import (
	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

// Maps holds one namespace's identifier rewrites: raw group names, raw local
// proxy names and raw rule-provider keys to their namespaced forms.
type Maps struct {
	Groups   map[string]string // raw group name -> "<ns>/<name>"
	Proxies  map[string]string // raw proxy name -> "<ns>/<name>" (local sources only)
	RuleSets map[string]string // raw rule-provider key -> "<ns>__<key>"
}

// BuildMaps derives the identifier mapping for one namespace from its source
// document. Entries without a usable string name are skipped; duplicate raw
// names within one document resolve last-write-wins. This is a best-effort
// lookup table, not a uniqueness check.
func BuildMaps(doc map[string]any, ns string) Maps {
	m := Maps{
		Groups:   map[string]string{},
		Proxies:  map[string]string{},
		RuleSets: map[string]string{},
	}

	if groups, ok := yamlutil.AsSlice(doc["proxy-groups"]); ok {
		for _, item := range groups {
			g, ok := yamlutil.AsMap(item)
			if !ok {
				continue
			}
			if name := yamlutil.CoerceString(g["name"]); name != "" {
				m.Groups[name] = ns + "/" + name
			}
		}
	}

	if proxies, ok := yamlutil.AsSlice(doc["proxies"]); ok {
		for _, item := range proxies {
			p, ok := yamlutil.AsMap(item)
			if !ok {
				continue
			}
			if name := yamlutil.CoerceString(p["name"]); name != "" {
				m.Proxies[name] = ns + "/" + name
			}
		}
	}

	if rps, ok := yamlutil.AsMap(doc["rule-providers"]); ok {
		for k := range rps {
			m.RuleSets[k] = ns + "__" + k
		}
	}

	return m
}

// RawGroupNames collects the raw group names declared by one source document.
func RawGroupNames(doc map[string]any) map[string]bool {
	names := map[string]bool{}
	groups, ok := yamlutil.AsSlice(doc["proxy-groups"])
	if !ok {
		return names
	}
	for _, item := range groups {
		g, ok := yamlutil.AsMap(item)
		if !ok {
			continue
		}
		if name := yamlutil.CoerceString(g["name"]); name != "" {
			names[name] = true
		}
	}
	return names
}
