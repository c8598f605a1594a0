package classifier

import (
	"fmt"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// typeOnlyImports finds unconditional imports referenced only from type
// hints. Guarding them with TYPE_CHECKING removes the import at runtime
// entirely. Advisory: the guard block has to exist or be created.
func (c *Classifier) typeOnlyImports(mod *parser.Module, res *collector.Result) []Candidate {
	module := mod.Root

	var cands []Candidate
	for _, name := range sortedBindingNames(module) {
		b := module.Bindings[name]
		if !b.Kind.IsImport() || b.TypeOnly {
			continue
		}
		typeUses, runtimeUses := 0, 0
		for _, ref := range res.Refs {
			if ref.Root != name || ref.Role == collector.RoleImportTarget {
				continue
			}
			if got, _ := ref.Scope.Lookup(name); got != b {
				continue
			}
			if ref.TypeOnly {
				typeUses++
			} else {
				runtimeUses++
			}
		}
		if runtimeUses > 0 || typeUses == 0 {
			continue
		}
		cands = append(cands, Candidate{
			Kind:    PatternTypeOnlyImport,
			Scope:   module,
			Display: name,
			Line:    b.Line,
			Count:   typeUses,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("%s is only used in type hints; move the import under `if TYPE_CHECKING:`", name),
			},
		})
	}
	return cands
}
