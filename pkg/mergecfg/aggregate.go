package mergecfg

import (
	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

// groupsBucket returns the output document's proxy-groups sequence, creating
// it when absent.
func groupsBucket(doc map[string]any) ([]any, error) {
	groups, ok := yamlutil.EnsureSlice(doc, "proxy-groups")
	if !ok {
		return nil, &StructuralError{Section: "proxy-groups", Reason: "must be a sequence"}
	}
	return groups, nil
}

// findGroup returns the group with the given name, or nil.
func findGroup(groups []any, name string) map[string]any {
	for _, item := range groups {
		g, ok := yamlutil.AsMap(item)
		if !ok {
			continue
		}
		if yamlutil.CoerceString(g["name"]) == name {
			return g
		}
	}
	return nil
}

// upsertSelectGroup creates or updates a select group so that the required
// members sit de-duplicated at the front while pre-existing extra members are
// preserved after them. Existing groups are updated in place, never renamed.
// Applying the same required list twice is a no-op.
func upsertSelectGroup(doc map[string]any, name string, requiredFront []string) error {
	groups, err := groupsBucket(doc)
	if err != nil {
		return err
	}

	g := findGroup(groups, name)
	if g == nil {
		members := make([]any, 0, len(requiredFront))
		seen := map[string]bool{}
		for _, x := range requiredFront {
			if !seen[x] {
				members = append(members, x)
				seen[x] = true
			}
		}
		doc["proxy-groups"] = append(groups, map[string]any{
			"name":    name,
			"type":    "select",
			"proxies": members,
		})
		return nil
	}

	g["type"] = "select"
	existing, _ := yamlutil.AsSlice(g["proxies"])

	seen := map[string]bool{}
	members := make([]any, 0, len(requiredFront)+len(existing))
	for _, x := range requiredFront {
		if !seen[x] {
			members = append(members, x)
			seen[x] = true
		}
	}
	for _, item := range existing {
		x, ok := item.(string)
		if !ok || seen[x] {
			continue
		}
		members = append(members, x)
		seen[x] = true
	}
	g["proxies"] = members
	return nil
}

// ensureNamespaceDefault creates the per-namespace default group "<ns>/默认"
// unless a group of that exact name already exists, in which case the
// existing group is returned untouched so a snippet's own default (or a user
// customization) is never clobbered.
//
// Remote namespaces select from their pool (use [ns]); local ones enumerate
// the imported node names plus DIRECT.
func ensureNamespaceDefault(doc map[string]any, ns string, local bool, localProxyNames []string) (string, error) {
	name := DefaultGroupName(ns)
	groups, err := groupsBucket(doc)
	if err != nil {
		return "", err
	}
	if findGroup(groups, name) != nil {
		return name, nil
	}

	if !local {
		doc["proxy-groups"] = append(groups, map[string]any{
			"name": name,
			"type": "select",
			"use":  []any{ns},
		})
		return name, nil
	}

	members := make([]any, 0, len(localProxyNames)+1)
	for _, p := range localProxyNames {
		if p != "" {
			members = append(members, p)
		}
	}
	members = append(members, "DIRECT")
	doc["proxy-groups"] = append(groups, map[string]any{
		"name":    name,
		"type":    "select",
		"proxies": members,
	})
	return name, nil
}

// ensureNamespaceACLGroups upserts the per-namespace direct and reject groups
// used by ACL4SSR mode. The namespace default group must already exist.
func ensureNamespaceACLGroups(doc map[string]any, ns, defaultGroup string) (directGroup, rejectGroup string, err error) {
	groups, err := groupsBucket(doc)
	if err != nil {
		return "", "", err
	}
	if findGroup(groups, defaultGroup) == nil {
		return "", "", &MissingPrerequisiteError{Group: defaultGroup}
	}

	directGroup = ns + "/" + directSuffix
	rejectGroup = ns + "/" + rejectSuffix
	if err := upsertSelectGroup(doc, directGroup, []string{"DIRECT", defaultGroup}); err != nil {
		return "", "", err
	}
	if err := upsertSelectGroup(doc, rejectGroup, []string{"REJECT", "DIRECT"}); err != nil {
		return "", "", err
	}
	return directGroup, rejectGroup, nil
}

// ensureAllDefault creates the ALL default group aggregating every
// namespace's default group, in order, de-duplicated, with a trailing DIRECT.
// An existing ALL default group is kept as-is.
func ensureAllDefault(doc map[string]any, defaultGroups []string) (string, error) {
	name := AllDefaultGroup()
	groups, err := groupsBucket(doc)
	if err != nil {
		return "", err
	}
	if findGroup(groups, name) != nil {
		return name, nil
	}

	seen := map[string]bool{}
	members := make([]any, 0, len(defaultGroups)+1)
	for _, g := range defaultGroups {
		if g == "" || seen[g] {
			continue
		}
		members = append(members, g)
		seen[g] = true
	}
	if !seen["DIRECT"] {
		members = append(members, "DIRECT")
	}

	doc["proxy-groups"] = append(groups, map[string]any{
		"name":    name,
		"type":    "select",
		"proxies": members,
	})
	return name, nil
}

// ensureAllACLGroups upserts the ALL-level direct and reject groups. The ALL
// default group must already exist; running this first is a call-ordering
// bug, not a data problem.
func ensureAllACLGroups(doc map[string]any) (directGroup, rejectGroup string, err error) {
	groups, err := groupsBucket(doc)
	if err != nil {
		return "", "", err
	}
	if findGroup(groups, AllDefaultGroup()) == nil {
		return "", "", &MissingPrerequisiteError{Group: AllDefaultGroup()}
	}

	directGroup = AllDirectGroup()
	rejectGroup = AllRejectGroup()
	if err := upsertSelectGroup(doc, directGroup, []string{"DIRECT", AllDefaultGroup()}); err != nil {
		return "", "", err
	}
	if err := upsertSelectGroup(doc, rejectGroup, []string{"REJECT", "DIRECT"}); err != nil {
		return "", "", err
	}
	return directGroup, rejectGroup, nil
}
