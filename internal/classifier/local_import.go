package classifier

import (
	"fmt"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// localImports finds module-level imports whose runtime uses all sit in
// one function. Moving the import into that function drops the name from
// the module dict and shortens the qualname the interpreter stores.
func (c *Classifier) localImports(mod *parser.Module, res *collector.Result) []Candidate {
	module := mod.Root

	var cands []Candidate
	for _, name := range sortedBindingNames(module) {
		b := module.Bindings[name]
		if !b.Kind.IsImport() || b.TypeOnly {
			continue
		}

		var funcRefs []collector.Reference
		var owner *parser.Scope
		usedElsewhere := false
		typeHintUses := 0

		for _, ref := range res.Refs {
			if ref.Root != name || ref.Role == collector.RoleImportTarget {
				continue
			}
			if got, _ := ref.Scope.Lookup(name); got != b {
				continue // shadowed by a nearer binding
			}
			if ref.TypeOnly {
				typeHintUses++
				continue
			}
			fn := ref.Scope.EnclosingFunction()
			if fn == nil {
				usedElsewhere = true
				break
			}
			// Nested functions inherit the moved import only when it
			// lands in their outermost enclosing function.
			for p := fn.Parent.EnclosingFunction(); p != nil; p = p.Parent.EnclosingFunction() {
				fn = p
			}
			if owner == nil {
				owner = fn
			} else if owner != fn {
				usedElsewhere = true
				break
			}
			funcRefs = append(funcRefs, ref)
		}
		if usedElsewhere || owner == nil {
			continue
		}

		stmt := b.Stmt
		cand := Candidate{
			Kind:       PatternLocalImport,
			Scope:      owner,
			Refs:       funcRefs,
			Display:    name,
			Line:       owner.Line,
			Count:      len(funcRefs),
			Safe:       b.SoleTarget,
			InsertText: b.ImportSource(),
			RemoveSpan: &stmt,
		}
		if !b.SoleTarget {
			cand.Notes = append(cand.Notes, fmt.Sprintf("%s shares its import statement with other names; split it manually", name))
		}
		if typeHintUses > 0 {
			cand.Safe = false
			cand.Notes = append(cand.Notes, fmt.Sprintf("%s is also used in type hints; keep a TYPE_CHECKING import", name))
		}
		cands = append(cands, cand)
	}
	return cands
}
