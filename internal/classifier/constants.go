package classifier

import (
	"fmt"
	"sort"
	"strings"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// underscoreConstants finds module-level `const(...)` names lacking the
// underscore prefix. Without it the compiler keeps the name in the module
// dict alongside the folded value.
func (c *Classifier) underscoreConstants(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, name := range sortedBindingNames(mod.Root) {
		b := mod.Root.Bindings[name]
		if b.Kind != parser.BindConst || !b.ConstCall || b.TypeOnly {
			continue
		}
		if strings.HasPrefix(name, "_") {
			continue
		}
		uses := 0
		for _, ref := range res.Refs {
			if ref.Root == name && countable(ref) {
				uses++
			}
		}
		cands = append(cands, Candidate{
			Kind:    PatternUnderscoreConst,
			Scope:   mod.Root,
			Display: name,
			Line:    b.Line,
			Count:   uses,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("const %s keeps its name in the module dict; rename to _%s if it is module-private", name, name),
			},
		})
	}
	return cands
}

// missingConsts finds module-level integer assignments that are never
// reassigned and could be wrapped in `const(...)` for compile-time
// folding.
func (c *Classifier) missingConsts(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, name := range sortedBindingNames(mod.Root) {
		b := mod.Root.Bindings[name]
		if b.Kind != parser.BindLocal || !b.IntLiteral || b.TypeOnly {
			continue
		}
		if totalWrites(mod, res, name) > 1 {
			continue
		}
		cands = append(cands, Candidate{
			Kind:    PatternMissingConst,
			Scope:   mod.Root,
			Display: name,
			Line:    b.Line,
			Count:   1,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("%s is a module-level integer assigned once; wrap it in const()", name),
			},
		})
	}
	return cands
}

// totalWrites counts stores to a module-level name across the whole file,
// including writes through `global` declarations in nested scopes.
func totalWrites(mod *parser.Module, res *collector.Result, name string) int {
	writes := mod.Root.Bindings[name].AssignCount
	mod.Root.Walk(func(s *parser.Scope) {
		if s != mod.Root && s.Globals[name] {
			writes += res.NameWrites[s][name]
		}
	})
	return writes
}

func sortedBindingNames(s *parser.Scope) []string {
	names := make([]string, 0, len(s.Bindings))
	for name := range s.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
