package chunk

import "strings"

// NodeNormalizer is a per-language strategy that keeps the walker itself
// language-agnostic. Normalize may remap a node's reported type and extend
// its span over a matching sibling body (forward declaration vs
// implementation); ShouldForceChunk promotes declaration-like call
// expressions that only a language-specific heuristic can recognize.
type NodeNormalizer interface {
	// Normalize returns the canonical type for the node, the node whose
	// end terminates the chunk span (usually n itself), and any sibling
	// nodes consumed by the merge that the walker must not re-visit.
	Normalize(n *Node, siblings []*Node, index int, source []byte) (typ string, end *Node, consumed []*Node)

	// ShouldForceChunk reports whether a node that would not otherwise
	// match any rule should still become a chunk, and under which type.
	ShouldForceChunk(n *Node, source []byte) (string, bool)
}

// identityNormalizer is the default when no language strategy is mapped.
type identityNormalizer struct{}

func (identityNormalizer) Normalize(n *Node, _ []*Node, _ int, _ []byte) (string, *Node, []*Node) {
	return n.Type, n, nil
}

func (identityNormalizer) ShouldForceChunk(*Node, []byte) (string, bool) {
	return "", false
}

// languageNormalizer is a data-driven normalizer: a signature→body sibling
// merge table, a canonical-type remap, and a callee allowlist for forced
// chunks.
type languageNormalizer struct {
	// bodyForSignature maps a signature node type to the sibling node type
	// holding its implementation. When the next non-trivial sibling
	// matches, the chunk span extends over it.
	bodyForSignature map[string]string

	// canonicalType remaps reported node types to the canonical
	// declaration kind.
	canonicalType map[string]string

	// callTypes are the node types inspected for forced chunks.
	callTypes map[string]struct{}

	// forceCallees maps a callee identifier to the chunk type the call is
	// promoted to.
	forceCallees map[string]string
}

func (l *languageNormalizer) Normalize(n *Node, siblings []*Node, index int, source []byte) (string, *Node, []*Node) {
	typ := n.Type
	if ct, ok := l.canonicalType[typ]; ok {
		typ = ct
	}

	bodyType, ok := l.bodyForSignature[n.Type]
	if !ok {
		return typ, n, nil
	}

	// Locate the matching sibling body after the signature.
	for i := index + 1; i < len(siblings); i++ {
		sib := siblings[i]
		if sib.StartByte == sib.EndByte {
			continue
		}
		if sib.Type != bodyType {
			break
		}
		if declaredName(n, source) != declaredName(sib, source) {
			break
		}
		if ct, ok := l.canonicalType[bodyType]; ok {
			return ct, sib, []*Node{sib}
		}
		return bodyType, sib, []*Node{sib}
	}
	return typ, n, nil
}

func (l *languageNormalizer) ShouldForceChunk(n *Node, source []byte) (string, bool) {
	if _, ok := l.callTypes[n.Type]; !ok {
		return "", false
	}
	callee := calleeName(n, source)
	if callee == "" {
		return "", false
	}
	typ, ok := l.forceCallees[callee]
	return typ, ok
}

// calleeName extracts the trailing identifier of a call's callee, so both
// "namedtuple(...)" and "collections.namedtuple(...)" resolve to
// "namedtuple".
func calleeName(n *Node, source []byte) string {
	if len(n.Children) == 0 {
		return ""
	}
	callee := n.Children[0]
	switch callee.Type {
	case "identifier", "attribute", "member_expression", "selector_expression":
		text := callee.Content(source)
		if i := strings.LastIndexAny(text, "."); i >= 0 {
			text = text[i+1:]
		}
		return text
	}
	return ""
}

// nameNodeTypes are the node types checked, in order, when extracting a
// declaration's name for the parent-context path.
var nameNodeTypes = []string{
	"identifier",
	"name",
	"field_identifier",
	"type_identifier",
	"property_identifier",
	"type_spec",
}

// declaredName extracts a best-effort name for a declaration node. Empty
// when the node carries no obvious identifier.
func declaredName(n *Node, source []byte) string {
	for _, t := range nameNodeTypes {
		if child := n.FindChildByType(t); child != nil {
			if t == "type_spec" {
				return declaredName(child, source)
			}
			return child.Content(source)
		}
	}
	return ""
}

// defaultNormalizers wires the built-in per-language strategies. TypeScript
// merges overload/ambient signatures into their implementations; Python
// and JavaScript promote well-known declaration-like calls.
func defaultNormalizers() map[string]NodeNormalizer {
	ts := &languageNormalizer{
		bodyForSignature: map[string]string{
			"function_signature": "function_declaration",
		},
		callTypes: map[string]struct{}{
			"call_expression": {},
		},
		forceCallees: map[string]string{
			"describe": "test_suite",
			"it":       "test_case",
			"test":     "test_case",
		},
	}

	py := &languageNormalizer{
		callTypes: map[string]struct{}{
			"call": {},
		},
		forceCallees: map[string]string{
			"namedtuple": "class_definition",
			"TypedDict":  "class_definition",
		},
	}

	return map[string]NodeNormalizer{
		"typescript": ts,
		"tsx":        ts,
		"javascript": ts,
		"python":     py,
	}
}
