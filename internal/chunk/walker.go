package chunk

import "fmt"

// DefaultMaxWalkDepth bounds traversal. Past the bound the walker degrades
// to a partial result instead of exhausting memory on pathological trees.
const DefaultMaxWalkDepth = 512

// Walker turns a syntax tree into an ordered chunk list plus a hierarchy
// index. It is a pure function of (tree, registry, normalizers): no shared
// mutable state, safe to invoke concurrently across files.
type Walker struct {
	registry    *Registry
	normalizers map[string]NodeNormalizer
	maxDepth    int
}

// NewWalker creates a walker with the built-in normalizer strategies and
// the default depth bound.
func NewWalker(registry *Registry) *Walker {
	return &Walker{
		registry:    registry,
		normalizers: defaultNormalizers(),
		maxDepth:    DefaultMaxWalkDepth,
	}
}

// SetMaxDepth overrides the traversal depth bound. Values below 1 are
// ignored.
func (w *Walker) SetMaxDepth(depth int) {
	if depth >= 1 {
		w.maxDepth = depth
	}
}

// WalkResult is the walker's output for one file.
type WalkResult struct {
	Chunks   []*Chunk
	Warnings []Warning

	// nodes maps chunk IDs back to the tree nodes they came from, so the
	// splitter can reuse syntactic child boundaries. Never exposed to
	// consumers; the public contract is IDs only.
	nodes map[string]*Node
}

// NodeFor returns the tree node behind a chunk, when the chunk came from
// the AST path.
func (r *WalkResult) NodeFor(id string) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// walkFrame is one entry of the explicit traversal stack.
type walkFrame struct {
	node     *Node
	siblings []*Node // the node's sibling list, for normalizer lookahead
	index    int     // position of node within siblings
	parent   *Node   // syntactic parent
	chunkIdx int     // index into result.Chunks of nearest enclosing chunk, -1 at top
	path     string  // accumulated lexical nesting path
	depth    int
}

// Walk produces the ordered chunk list for a tree. Output is deterministic
// pre-order; re-running on the same (tree, config) yields an identical
// list. Malformed or error-recovery nodes are traversed like any other
// node; rules simply won't match them.
func (w *Walker) Walk(tree *Tree, fileID string) *WalkResult {
	res := &WalkResult{nodes: make(map[string]*Node)}
	if tree == nil || tree.Root == nil {
		res.Warnings = append(res.Warnings, warnf(WarnExtraction, "empty tree for %s", fileID))
		return res
	}

	norm := w.normalizerFor(tree.Language)
	seen := make(map[Span]struct{})
	consumed := make(map[*Node]struct{})
	depthWarned := false

	stack := []walkFrame{{
		node:     tree.Root,
		siblings: []*Node{tree.Root},
		index:    0,
		chunkIdx: -1,
	}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node

		if _, ok := consumed[n]; ok {
			continue
		}
		// Zero-width nodes carry no content; skip entirely.
		if n.StartByte >= n.EndByte {
			continue
		}
		if f.depth > w.maxDepth {
			if !depthWarned {
				depthWarned = true
				res.Warnings = append(res.Warnings, warnf(WarnDepth,
					"traversal depth exceeded %d in %s; result is partial", w.maxDepth, fileID))
			}
			continue
		}

		parentType := ""
		if f.parent != nil {
			parentType = f.parent.Type
		}

		typ, endNode, merged := norm.Normalize(n, f.siblings, f.index, tree.Source)
		for _, m := range merged {
			consumed[m] = struct{}{}
		}

		d := w.registry.Resolve(tree.Language, typ, parentType)
		if d.Ignored {
			// Nodes inside an ignored region are skipped even if they
			// would otherwise match.
			continue
		}

		if !d.IsChunk {
			if forcedType, force := norm.ShouldForceChunk(n, tree.Source); force {
				typ = forcedType
				d = Decision{IsChunk: true, IncludeChildren: true}
			}
		}

		chunkIdx := f.chunkIdx
		childPath := f.path
		descend := true

		if d.IsChunk {
			span := Span{Start: n.StartByte, End: endNode.EndByte}
			if _, dup := seen[span]; !dup {
				seen[span] = struct{}{}
				c := w.emit(tree, fileID, n, endNode, typ, f.path, f.chunkIdx, d, res)
				chunkIdx = len(res.Chunks) - 1
				if name := declaredName(n, tree.Source); name != "" {
					childPath = joinPath(f.path, name)
				}
				res.nodes[c.ID] = n
			}
			// Nested declarations must still be extracted below a chunk;
			// only an explicit rule can stop descent.
			if d.Rule != nil {
				descend = d.Rule.IncludeChildren
			}
		}

		if !descend {
			continue
		}
		// Push children in reverse so the left-most child pops first,
		// preserving pre-order.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				node:     n.Children[i],
				siblings: n.Children,
				index:    i,
				parent:   n,
				chunkIdx: chunkIdx,
				path:     childPath,
				depth:    f.depth + 1,
			})
		}
	}

	return res
}

func (w *Walker) normalizerFor(language string) NodeNormalizer {
	if n, ok := w.normalizers[language]; ok {
		return n
	}
	return identityNormalizer{}
}

// emit appends a chunk for the (possibly extended) node span and links it
// into the hierarchy.
func (w *Walker) emit(tree *Tree, fileID string, n, endNode *Node, typ, path string, parentIdx int, d Decision, res *WalkResult) *Chunk {
	span := Span{Start: n.StartByte, End: endNode.EndByte}
	content := string(tree.Source[span.Start:span.End])

	c := &Chunk{
		ID:            chunkID(fileID, span, content),
		FileID:        fileID,
		Language:      tree.Language,
		Type:          typ,
		StartByte:     span.Start,
		EndByte:       span.End,
		StartLine:     int(n.StartPoint.Row) + 1,
		EndLine:       int(endNode.EndPoint.Row) + 1,
		Content:       content,
		ParentContext: path,
		Metadata:      copyMetadata(d.Metadata),
	}

	if parentIdx >= 0 {
		parent := res.Chunks[parentIdx]
		c.ParentID = parent.ID
		parent.ChildIDs = append(parent.ChildIDs, c.ID)
	}

	res.Chunks = append(res.Chunks, c)
	return c
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return fmt.Sprintf("%s.%s", path, name)
}
