package mergecfg

import (
	"regexp"
	"strings"

	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

// GroupRewrite carries the per-namespace context needed to rewrite one group.
type GroupRewrite struct {
	Namespace string
	Maps      Maps
	// HasPool is true for remote sources, whose nodes come from a registered
	// proxy provider named after the namespace.
	HasPool bool
	// RawNames is the set of group names declared in the same source document.
	RawNames map[string]bool
	// DefaultGroup is the namespace default group name, "<ns>/默认". Composite
	// groups left without any member fall back to it.
	DefaultGroup string
}

// IsLeafGroup reports whether a group selects concrete nodes rather than
// other groups: none of its member strings may equal another group name
// declared in the same source document. Groups without a member sequence are
// vacuously leaf.
func IsLeafGroup(group map[string]any, rawNames map[string]bool) bool {
	members, ok := yamlutil.AsSlice(group["proxies"])
	if !ok {
		return true
	}
	for _, item := range members {
		if s, ok := item.(string); ok && rawNames[s] {
			return false
		}
	}
	return true
}

// ExactMatchFilter compiles node names into a regular expression matching
// exactly those names and nothing else. An empty set compiles to "^$".
func ExactMatchFilter(names []string) string {
	if len(names) == 0 {
		return "^$"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return "^(?:" + strings.Join(quoted, "|") + ")$"
}

// RewriteGroup rewrites one proxy group into its namespaced form. The input
// group is not modified.
//
// With a backing pool (remote source):
//   - leaf groups become pool selections: use [ns] plus an exact-match filter
//     compiled from their node names; builtin members stay as members
//   - composite groups keep builtin and group-reference members only; any
//     dropped token binds the pool, and a group left empty falls back to the
//     namespace default group
//
// Without a pool (local source), known names are rewritten and everything
// else passes through verbatim, since local snippets may reference groups
// that exist outside this document.
func RewriteGroup(group map[string]any, rw GroupRewrite) map[string]any {
	out, _ := yamlutil.AsMap(yamlutil.CloneTree(group))
	if out == nil {
		return map[string]any{}
	}

	if name := yamlutil.CoerceString(out["name"]); name != "" {
		if mapped, ok := rw.Maps.Groups[name]; ok {
			out["name"] = mapped
		}
	}

	members, hasMembers := yamlutil.AsSlice(out["proxies"])

	if use, ok := yamlutil.AsSlice(out["use"]); ok {
		rewritten := make([]any, len(use))
		for i, u := range use {
			if s, ok := u.(string); ok && providerPlaceholders[s] {
				rewritten[i] = rw.Namespace
				continue
			}
			rewritten[i] = u
		}
		out["use"] = rewritten
	}

	if !rw.HasPool {
		rewriteLocalMembers(out, members, rw)
		return out
	}

	if IsLeafGroup(group, rw.RawNames) {
		rewriteLeafMembers(out, members, hasMembers, rw)
		return out
	}
	rewriteCompositeMembers(out, members, rw)
	return out
}

// rewriteLocalMembers maps known group and proxy names; unknown tokens stay
// untouched because they may name globally pre-existing targets.
func rewriteLocalMembers(out map[string]any, members []any, rw GroupRewrite) {
	if len(members) == 0 {
		return
	}
	rewritten := make([]any, 0, len(members))
	for _, item := range members {
		s, ok := item.(string)
		if !ok {
			rewritten = append(rewritten, item)
			continue
		}
		switch classifyMember(s, rw.RawNames) {
		case memberBuiltin:
			rewritten = append(rewritten, s)
		case memberGroupRef:
			rewritten = append(rewritten, rw.Maps.Groups[s])
		default:
			if mapped, ok := rw.Maps.Proxies[s]; ok {
				rewritten = append(rewritten, mapped)
			} else {
				rewritten = append(rewritten, s)
			}
		}
	}
	out["proxies"] = rewritten
}

// rewriteLeafMembers turns an enumerated node list into pool + exact filter
// so provider refreshes propagate without re-merging.
func rewriteLeafMembers(out map[string]any, members []any, hasMembers bool, rw GroupRewrite) {
	if !hasMembers || len(members) == 0 {
		// Pure pool selection. An existing filter keeps narrowing it.
		out["use"] = []any{rw.Namespace}
		delete(out, "proxies")
		return
	}

	var nodes []string
	var kept []any
	for _, item := range members {
		s, ok := item.(string)
		if !ok {
			continue
		}
		switch classifyMember(s, rw.RawNames) {
		case memberBuiltin:
			kept = append(kept, s)
		case memberGroupRef:
			// Leaf classification makes this unreachable, but the rewrite
			// policy is total: treat it as a reference anyway.
			if mapped, ok := rw.Maps.Groups[s]; ok {
				kept = append(kept, mapped)
			} else {
				kept = append(kept, s)
			}
		case memberPoolRef:
			// The pool binding below already covers it.
		case memberNode:
			if !strings.HasPrefix(s, rw.Namespace+"/") {
				s = rw.Namespace + "/" + s
			}
			nodes = append(nodes, s)
		}
	}

	out["use"] = []any{rw.Namespace}
	out["filter"] = ExactMatchFilter(nodes)
	if len(kept) > 0 {
		out["proxies"] = kept
	} else {
		delete(out, "proxies")
	}
}

// rewriteCompositeMembers keeps builtins and group references only. Node
// names must not leak across namespaces, so they are dropped and replaced by
// a pool binding; a group left with nothing selects the namespace default.
func rewriteCompositeMembers(out map[string]any, members []any, rw GroupRewrite) {
	var kept []any
	droppedAny := false
	for _, item := range members {
		s, ok := item.(string)
		if !ok {
			continue
		}
		switch classifyMember(s, rw.RawNames) {
		case memberBuiltin:
			kept = append(kept, s)
		case memberGroupRef:
			if mapped, ok := rw.Maps.Groups[s]; ok {
				kept = append(kept, mapped)
			} else {
				kept = append(kept, s)
			}
		default:
			droppedAny = true
		}
	}

	if droppedAny {
		out["use"] = []any{rw.Namespace}
	}
	if len(kept) == 0 {
		kept = []any{rw.DefaultGroup}
	}
	out["proxies"] = kept

	// Filters are a leaf concept.
	delete(out, "filter")
	delete(out, "exclude-filter")
}
