// Package ruleset carries the built-in ACL4SSR rule-set catalogue and the
// rule lists built over it. mihomo fetches the referenced lists itself; this
// package only emits the rule-provider entries and RULE-SET lines.
package ruleset

import (
	"fmt"
	"strings"
)

const (
	repoBaseURL     = "https://raw.githubusercontent.com/ACL4SSR/ACL4SSR/master"
	localStoreDir   = "./rules/providers"
	refreshInterval = 86400
)

// Entry is one catalogue rule set: its provider key and its path inside the
// ACL4SSR repository.
type Entry struct {
	Name string
	Path string
}

// Catalog lists the ACL4SSR rule sets in rule order.
var Catalog = []Entry{
	{Name: "LocalAreaNetwork", Path: "Clash/LocalAreaNetwork.list"},
	{Name: "BanAD", Path: "Clash/BanAD.list"},
	{Name: "BanProgramAD", Path: "Clash/BanProgramAD.list"},
	{Name: "GoogleCN", Path: "Clash/GoogleCN.list"},
	{Name: "SteamCN", Path: "Clash/Ruleset/SteamCN.list"},
	{Name: "Telegram", Path: "Clash/Telegram.list"},
	{Name: "ProxyMedia", Path: "Clash/ProxyMedia.list"},
	{Name: "ProxyLite", Path: "Clash/ProxyLite.list"},
	{Name: "ChinaDomain", Path: "Clash/ChinaDomain.list"},
	{Name: "ChinaCompanyIp", Path: "Clash/ChinaCompanyIp.list"},
}

// Inject adds the catalogue entries to a rule-providers mapping. Existing
// keys are never overwritten, so user overrides survive repeated injection.
func Inject(ruleProviders map[string]any) {
	for _, e := range Catalog {
		if _, ok := ruleProviders[e.Name]; ok {
			continue
		}
		ruleProviders[e.Name] = map[string]any{
			"type":     "http",
			"behavior": "classical",
			"format":   "text",
			"url":      repoBaseURL + "/" + e.Path,
			"path":     fmt.Sprintf("%s/%s.list", strings.TrimRight(localStoreDir, "/"), e.Name),
			"interval": refreshInterval,
		}
	}
}

// Rules builds the ACL4SSR rule list over a default/direct/reject group trio.
func Rules(defaultGroup, directGroup, rejectGroup string) []string {
	return []string{
		"RULE-SET,LocalAreaNetwork," + directGroup,
		"RULE-SET,BanAD," + rejectGroup,
		"RULE-SET,BanProgramAD," + rejectGroup,
		"RULE-SET,GoogleCN," + directGroup,
		"RULE-SET,SteamCN," + directGroup,
		"RULE-SET,Telegram," + defaultGroup,
		"RULE-SET,ProxyMedia," + defaultGroup,
		"RULE-SET,ProxyLite," + defaultGroup,
		"RULE-SET,ChinaDomain," + directGroup,
		"RULE-SET,ChinaCompanyIp," + directGroup,
		"GEOIP,CN," + directGroup,
		"MATCH," + defaultGroup,
	}
}
