// Package classifier resolves collected references to symbols and detects
// size-reduction candidates. Each pattern rule lives in its own file;
// adding a pattern kind means one rule file plus one cost-model entry.
package classifier

import (
	"fmt"
	"sort"

	"upysize/internal/collector"
	"upysize/internal/config"
	"upysize/internal/parser"
)

type PatternKind string

const (
	PatternRepeatedGlobal  PatternKind = "repeated-global-access"
	PatternAttributeChain  PatternKind = "repeated-attribute-chain"
	PatternLocalImport     PatternKind = "single-use-local-import"
	PatternKeywordCall     PatternKind = "keyword-call-candidate"
	PatternDictDispatch    PatternKind = "dict-dispatch-candidate"
	PatternDataTuple       PatternKind = "data-tuple-candidate"
	PatternTypeOnlyImport  PatternKind = "type-only-import"
	PatternUnderscoreConst PatternKind = "underscore-constant"
	PatternMissingConst    PatternKind = "missing-const"
	PatternSingleCallFunc  PatternKind = "single-call-function"
	PatternModuleAttrCache PatternKind = "module-attr-cache"
)

func AllPatterns() []PatternKind {
	return []PatternKind{
		PatternRepeatedGlobal,
		PatternAttributeChain,
		PatternLocalImport,
		PatternKeywordCall,
		PatternDictDispatch,
		PatternDataTuple,
		PatternTypeOnlyImport,
		PatternUnderscoreConst,
		PatternMissingConst,
		PatternSingleCallFunc,
		PatternModuleAttrCache,
	}
}

type SymbolKind int

const (
	SymbolModuleGlobal SymbolKind = iota
	SymbolImportedModule
	SymbolImportedSymbol
	SymbolLocal
	SymbolParameter
	SymbolExternal
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolModuleGlobal:
		return "module-global"
	case SymbolImportedModule:
		return "imported-module"
	case SymbolImportedSymbol:
		return "imported-symbol"
	case SymbolLocal:
		return "local"
	case SymbolParameter:
		return "parameter"
	default:
		return "external"
	}
}

// Global reports whether loading the symbol costs a global lookup.
func (k SymbolKind) Global() bool {
	switch k {
	case SymbolModuleGlobal, SymbolImportedModule, SymbolImportedSymbol:
		return true
	default:
		return false
	}
}

// Symbol is a resolved named binding. Binding is nil for external symbols
// (builtins, dynamically bound names).
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Binding *parser.Binding
	Scope   *parser.Scope
}

// Candidate is a detected, not-yet-ranked size-reduction opportunity.
type Candidate struct {
	Kind    PatternKind
	Scope   *parser.Scope
	Refs    []collector.Reference
	Display string
	Line    int
	Count   int

	// Cost-model inputs.
	ChainDepth int
	RootGlobal bool

	// Safe candidates get a mechanical rewrite plan; advisory ones are
	// reported for manual review only.
	Safe  bool
	Notes []string

	// Rewrite ingredients for the planner.
	Alias      string
	ChainExpr  string
	InsertText string
	RemoveSpan *parser.Span
}

const (
	WarnUnresolvedSymbol = "unresolved-symbol"
	WarnConflictingEdit  = "conflicting-edit"
)

type Warning struct {
	Kind string
	Msg  string
	Line int
}

type Classifier struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify runs every enabled pattern rule over one module's references.
// No detection failure is fatal: unrecognized constructs are simply not
// classified. Output is ordered by source line for deterministic ranking.
func (c *Classifier) Classify(mod *parser.Module, res *collector.Result) ([]Candidate, []Warning) {
	var cands []Candidate
	var warnings []Warning

	run := func(kind PatternKind, rule func(*parser.Module, *collector.Result) []Candidate) []Candidate {
		if !c.cfg.PatternEnabled(string(kind)) {
			return nil
		}
		return rule(mod, res)
	}

	cands = append(cands, run(PatternRepeatedGlobal, c.repeatedGlobals)...)

	chainCands := run(PatternAttributeChain, c.attributeChains)
	cands = append(cands, chainCands...)

	cands = append(cands, run(PatternLocalImport, c.localImports)...)
	cands = append(cands, run(PatternKeywordCall, c.keywordCalls)...)
	cands = append(cands, run(PatternDictDispatch, c.dictDispatches)...)
	cands = append(cands, run(PatternDataTuple, c.dataTupleClasses)...)
	cands = append(cands, run(PatternTypeOnlyImport, c.typeOnlyImports)...)
	cands = append(cands, run(PatternUnderscoreConst, c.underscoreConstants)...)
	cands = append(cands, run(PatternMissingConst, c.missingConsts)...)
	cands = append(cands, run(PatternSingleCallFunc, c.singleCallFunctions)...)

	if c.cfg.PatternEnabled(string(PatternModuleAttrCache)) {
		cands = append(cands, c.moduleAttrCaches(mod, res, chainCands)...)
	}

	warnings = append(warnings, unresolvedChainRoots(mod, res)...)

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Line != cands[j].Line {
			return cands[i].Line < cands[j].Line
		}
		if cands[i].Kind != cands[j].Kind {
			return cands[i].Kind < cands[j].Kind
		}
		return cands[i].Display < cands[j].Display
	})
	return cands, warnings
}

// resolve walks the enclosing-scope chain, innermost first; the first
// matching binding wins (lexical shadowing). Unresolvable roots are
// external: counted, never rewritten.
func resolve(scope *parser.Scope, name string) Symbol {
	binding, owner := scope.Lookup(name)
	if binding == nil {
		return Symbol{Name: name, Kind: SymbolExternal}
	}

	sym := Symbol{Name: name, Binding: binding, Scope: owner}
	switch {
	case owner.Kind == parser.ScopeModule && binding.Kind == parser.BindImportModule:
		sym.Kind = SymbolImportedModule
	case owner.Kind == parser.ScopeModule && binding.Kind == parser.BindImportSymbol:
		sym.Kind = SymbolImportedSymbol
	case owner.Kind == parser.ScopeModule:
		sym.Kind = SymbolModuleGlobal
	case binding.Kind == parser.BindParam:
		sym.Kind = SymbolParameter
	default:
		sym.Kind = SymbolLocal
	}
	return sym
}

// countable reports whether a reference participates in usage counting:
// import targets are binding sites and type-only references carry no
// runtime cost.
func countable(ref collector.Reference) bool {
	return !ref.TypeOnly && ref.Role != collector.RoleImportTarget
}

// aliasFree reports whether a name can be introduced in the scope without
// colliding with an existing binding or reference.
func aliasFree(scope *parser.Scope, res *collector.Result, name string) bool {
	if _, ok := scope.Bindings[name]; ok {
		return false
	}
	if b, _ := scope.Lookup(name); b != nil {
		return false
	}
	for _, ref := range res.Refs {
		if ref.Scope == scope && ref.Root == name {
			return false
		}
	}
	return true
}

func unresolvedChainRoots(mod *parser.Module, res *collector.Result) []Warning {
	seen := make(map[string]bool)
	var warnings []Warning
	for _, ref := range res.Refs {
		if !countable(ref) || len(ref.Path) == 0 {
			continue
		}
		if resolve(ref.Scope, ref.Root).Kind != SymbolExternal {
			continue
		}
		if isBuiltin(ref.Root) || seen[ref.Root] {
			continue
		}
		seen[ref.Root] = true
		warnings = append(warnings, Warning{
			Kind: WarnUnresolvedSymbol,
			Msg:  fmt.Sprintf("cannot trace %q to a binding; counted as external, excluded from rewrites", ref.Root),
			Line: ref.Line,
		})
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Line < warnings[j].Line })
	return warnings
}
