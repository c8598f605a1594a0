package parser

import "fmt"

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start uint
	End   uint
}

func (s Span) Overlaps(o Span) bool {
	if s.Start == s.End {
		// Pure insertion points conflict only with replacements covering them.
		return s.Start > o.Start && s.Start < o.End
	}
	if o.Start == o.End {
		return o.Start > s.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether byte offset b falls inside the span.
func (s Span) Contains(b uint) bool {
	return b >= s.Start && b < s.End
}

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	default:
		return "unknown"
	}
}

type BindKind int

const (
	BindLocal BindKind = iota
	BindParam
	BindImportModule
	BindImportSymbol
	BindFunction
	BindClass
	BindConst
)

func (k BindKind) String() string {
	switch k {
	case BindLocal:
		return "local"
	case BindParam:
		return "parameter"
	case BindImportModule:
		return "imported-module"
	case BindImportSymbol:
		return "imported-symbol"
	case BindFunction:
		return "function"
	case BindClass:
		return "class"
	case BindConst:
		return "constant"
	default:
		return "unknown"
	}
}

// IsImport reports whether the binding was established by an import
// statement.
func (k BindKind) IsImport() bool {
	return k == BindImportModule || k == BindImportSymbol
}

// Binding is one bound name in a scope, with enough statement metadata for
// the rewrite planner to relocate imports and judge constants.
type Binding struct {
	Name string
	Kind BindKind
	Line int

	// TypeOnly marks bindings established inside a TYPE_CHECKING guard.
	TypeOnly bool

	// Import metadata.
	Module     string // source module, e.g. "trezor.crypto" for `from trezor.crypto import sha256`
	OrigName   string // original symbol name before any `as` alias
	Stmt       Span   // full import statement span, including trailing newline
	SoleTarget bool   // statement binds only this name

	// Assignment metadata for module-level constants.
	AssignCount int
	ConstCall   bool // value is a const(...) call
	IntLiteral  bool // value is a plain integer literal
}

// ImportSource renders the statement that re-imports this binding, used
// when an import is moved into a function body.
func (b *Binding) ImportSource() string {
	switch b.Kind {
	case BindImportModule:
		if b.OrigName != "" && b.OrigName != b.Name {
			return fmt.Sprintf("import %s as %s", b.Module, b.Name)
		}
		return fmt.Sprintf("import %s", b.Module)
	case BindImportSymbol:
		if b.OrigName != "" && b.OrigName != b.Name {
			return fmt.Sprintf("from %s import %s as %s", b.Module, b.OrigName, b.Name)
		}
		return fmt.Sprintf("from %s import %s", b.Module, b.Name)
	default:
		return ""
	}
}

// ParseError reports syntactically invalid source. It is fatal for the file
// it belongs to and never aborts other files' analysis.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}
