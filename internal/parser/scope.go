package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Scope is one lexical region: the module, a function body, or a class
// body. The tree mirrors lexical nesting; parent links are non-owning and
// used only for name lookup.
type Scope struct {
	Kind     ScopeKind
	Name     string
	Line     int
	Parent   *Scope
	Children []*Scope
	Bindings map[string]*Binding

	// TypeOnly marks scopes defined inside a TYPE_CHECKING guard.
	TypeOnly bool

	// Globals holds names declared with `global`/`nonlocal`, which skip
	// local resolution.
	Globals map[string]bool

	// Methods lists method names for class scopes, in source order.
	Methods []string

	// BodyStart is the byte offset of the first non-docstring statement in
	// the scope body: the insertion point for cache aliases and relocated
	// imports. BodyIndent is its column.
	BodyStart  uint
	BodyIndent int

	node *sitter.Node
}

func newScope(kind ScopeKind, name string, parent *Scope, node *sitter.Node) *Scope {
	s := &Scope{
		Kind:     kind,
		Name:     name,
		Parent:   parent,
		Bindings: make(map[string]*Binding),
		Globals:  make(map[string]bool),
		node:     node,
	}
	if node != nil {
		s.Line = int(node.StartPosition().Row) + 1
	}
	if parent != nil {
		s.TypeOnly = parent.TypeOnly
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Node returns the syntax node that introduced the scope. It is only valid
// while the owning Module is alive.
func (s *Scope) Node() *sitter.Node { return s.node }

// Bind records a name in the scope. The first binding of a name wins its
// kind; later assignments only bump the assignment count.
func (s *Scope) Bind(b *Binding) *Binding {
	if existing, ok := s.Bindings[b.Name]; ok {
		existing.AssignCount += b.AssignCount
		return existing
	}
	s.Bindings[b.Name] = b
	return b
}

// Lookup resolves a name against this scope and its ancestors, innermost
// first. Per Python scoping rules, class scopes are skipped when resolution
// starts inside a nested function body. Returns the scope holding the
// binding, or nil when the name is unbound (builtin or dynamic).
func (s *Scope) Lookup(name string) (*Binding, *Scope) {
	cur := s
	origin := s
	for cur != nil {
		if cur.Kind == ScopeClass && origin != cur {
			cur = cur.Parent
			continue
		}
		if cur.Globals[name] && cur.Kind != ScopeModule {
			cur = moduleOf(cur)
			continue
		}
		if b, ok := cur.Bindings[name]; ok {
			return b, cur
		}
		cur = cur.Parent
	}
	return nil, nil
}

// EnclosingFunction walks up to the nearest function scope, returning nil
// for module- or class-level positions.
func (s *Scope) EnclosingFunction() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == ScopeFunction {
			return cur
		}
	}
	return nil
}

// Module returns the root scope.
func (s *Scope) Module() *Scope { return moduleOf(s) }

func moduleOf(s *Scope) *Scope {
	cur := s
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// QualName renders a dotted display name, e.g. "Class.method".
func (s *Scope) QualName() string {
	if s.Kind == ScopeModule {
		return "<module>"
	}
	name := s.Name
	for cur := s.Parent; cur != nil && cur.Kind != ScopeModule; cur = cur.Parent {
		name = cur.Name + "." + name
	}
	return name
}

// Walk visits the scope and all descendants depth-first in source order.
func (s *Scope) Walk(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}
