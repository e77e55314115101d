package chunk

// Tree is a parsed syntax tree. The engine treats trees as externally
// owned: it references nodes but never mutates them.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is a node in the syntax tree.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// Span returns the node's byte span.
func (n *Node) Span() Span {
	return Span{Start: n.StartByte, End: n.EndByte}
}

// Content returns the source content covered by the node.
func (n *Node) Content(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType finds the first direct child with the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType finds all direct children with the given type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Type == nodeType {
			result = append(result, child)
		}
	}
	return result
}

// Walk traverses the subtree depth-first, pre-order, calling fn for each
// node. Returning false from fn prunes the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// CountNodes returns the total node count and the count of parser
// error-recovery nodes in the subtree. The ratio drives the fallback
// decision between the AST and window paths.
func (n *Node) CountNodes() (total, errors int) {
	n.Walk(func(node *Node) bool {
		total++
		if node.Type == "ERROR" || node.Type == "MISSING" {
			errors++
		}
		return true
	})
	return total, errors
}

// ErrorRatio returns the fraction of error-recovery nodes in the tree.
func (t *Tree) ErrorRatio() float64 {
	if t == nil || t.Root == nil {
		return 1.0
	}
	total, errs := t.Root.CountNodes()
	if total == 0 {
		return 1.0
	}
	return float64(errs) / float64(total)
}
