package chunk

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// TreeProvider is the boundary to the external parser subsystem. The core
// never calls a grammar directly; the fallback policy probes availability
// and requests a parse through this interface.
type TreeProvider interface {
	// Supports reports whether a parser exists for the language.
	Supports(language string) bool

	// Parse produces a syntax tree for the source. The call is a blocking
	// leaf dependency; timeouts are the caller's responsibility via ctx.
	Parse(ctx context.Context, source []byte, language string) (*Tree, error)
}

// Parser wraps tree-sitter as the default TreeProvider.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a tree-sitter backed parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Supports reports whether a grammar is wired for the language.
func (p *Parser) Supports(language string) bool {
	_, ok := SitterLanguage(language)
	return ok
}

// Parse parses source code and converts the tree-sitter tree into the
// engine-owned node structure.
func (p *Parser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := SitterLanguage(language)
	if !ok {
		return nil, NewError(ErrCodeUnknownLang, fmt.Sprintf("unsupported language: %s", language), nil)
	}

	p.parser.SetLanguage(tsLang)

	tsTree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, NewError(ErrCodeParseFailed, "failed to parse source", err)
	}
	if tsTree == nil {
		return nil, NewError(ErrCodeParseFailed, "failed to parse source: nil tree", nil)
	}

	return &Tree{
		Root:     convertNode(tsTree.RootNode()),
		Source:   source,
		Language: language,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// convertNode copies a tree-sitter node into the engine-owned Node type.
func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		Children: make([]*Node, 0, int(tsNode.ChildCount())),
	}

	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := tsNode.Child(int(i)); child != nil {
			node.Children = append(node.Children, convertNode(child))
		}
	}

	return node
}
