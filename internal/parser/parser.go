package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Module is the source model of one parsed file: the raw syntax tree plus
// the scope tree built from it. It owns both for the duration of one file's
// analysis; Close releases the tree.
type Module struct {
	Path   string
	Source []byte
	Root   *Scope

	// TypeOnlySpans covers TYPE_CHECKING-guarded blocks; references inside
	// carry no runtime cost and are excluded from pattern counting.
	TypeOnlySpans []Span

	scopes map[uint]*Scope // keyed by defining node start byte
	tree   *sitter.Tree
}

func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
		m.tree = nil
	}
}

// RootNode returns the syntax root for downstream walkers.
func (m *Module) RootNode() *sitter.Node {
	return m.tree.RootNode()
}

// ScopeAt returns the scope introduced by the definition node starting at
// the given byte offset.
func (m *Module) ScopeAt(start uint) *Scope {
	return m.scopes[start]
}

// IsTypeOnly reports whether a byte offset falls inside a
// TYPE_CHECKING-guarded region.
func (m *Module) IsTypeOnly(offset uint) bool {
	for _, s := range m.TypeOnlySpans {
		if s.Contains(offset) {
			return true
		}
	}
	return false
}

// Text returns the source text of a node.
func (m *Module) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(m.Source[node.StartByte():node.EndByte()])
}

// Parse builds the source model for one file. It is a pure function of the
// input text: no I/O, no shared state. Syntactically invalid input yields a
// *ParseError carrying the first offending line.
func Parse(path string, source []byte) (*Module, error) {
	p := sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(pythonLanguage); err != nil {
		return nil, fmt.Errorf("set python language: %w", err)
	}

	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, &ParseError{Path: path, Line: 1, Msg: "parser produced no tree"}
	}

	root := tree.RootNode()
	if root.HasError() {
		line, msg := firstSyntaxError(root)
		tree.Close()
		return nil, &ParseError{Path: path, Line: line, Msg: msg}
	}

	mod := &Module{
		Path:   path,
		Source: source,
		scopes: make(map[uint]*Scope),
		tree:   tree,
	}
	mod.Root = buildScopes(mod, root)
	return mod, nil
}

func firstSyntaxError(node *sitter.Node) (int, string) {
	if node.IsError() {
		return int(node.StartPosition().Row) + 1, "invalid syntax"
	}
	if node.IsMissing() {
		return int(node.StartPosition().Row) + 1, fmt.Sprintf("missing %q", node.Kind())
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstSyntaxError(child)
		}
	}
	return int(node.StartPosition().Row) + 1, "invalid syntax"
}
