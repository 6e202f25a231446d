// Package mergecfg merges several mihomo/Clash configuration fragments into
// one document without name collisions.
//
// Each fragment is owned by a namespace. The engine rewrites group, proxy and
// rule-provider identifiers into namespaced forms ("<ns>/<name>" for groups
// and proxies, "<ns>__<key>" for rule providers), classifies proxy groups as
// leaf or composite and rewrites their member lists accordingly, rewrites
// routing rule lines token by token, and finally aggregates every namespace's
// default group into a global ALL selection tree.
//
// # Public API surface
//
//   - Source, Maps, BuildMaps
//   - SplitTopLevel
//   - RawGroupNames, IsLeafGroup, RewriteGroup, GroupRewrite
//   - RewriteRuleLine, ExactMatchFilter
//   - Merger: NewMerger, (*Merger).AddSource, (*Merger).Finalize
//   - DefaultGroupName, SanitizeNamespace
//
// # Processing model
//
// The engine is purely synchronous. A Merger accumulates the output document
// value; each AddSource call processes one namespace to completion before the
// next, and Finalize runs the global aggregation. Malformed but structurally
// valid input (unknown member tokens, short rule lines, dangling parentheses)
// is handled by a total rewrite policy and never fails; only missing or
// ill-typed required structure aborts the merge (see errors.go).
package mergecfg
