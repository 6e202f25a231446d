package mergecfg

// memberKind classifies one raw member token of a proxy group. The closed set
// keeps the rewrite branching in group.go a function of this classification
// plus the group's leaf/composite status.
type memberKind int

const (
	// memberBuiltin is one of the fixed routing targets (DIRECT, REJECT, ...).
	memberBuiltin memberKind = iota
	// memberGroupRef names another group declared in the same source document.
	memberGroupRef
	// memberPoolRef is a provider placeholder standing for the source's own
	// node pool.
	memberPoolRef
	// memberNode is anything else: treated as a concrete egress node name.
	memberNode
)

// classifyMember classifies a raw member token against the set of raw group
// names declared in the same source document. Builtin status wins over an
// accidental group of the same name; snippets cannot redefine DIRECT.
func classifyMember(token string, rawNames map[string]bool) memberKind {
	switch {
	case builtins[token]:
		return memberBuiltin
	case rawNames[token]:
		return memberGroupRef
	case providerPlaceholders[token]:
		return memberPoolRef
	default:
		return memberNode
	}
}
