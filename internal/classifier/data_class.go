package classifier

import (
	"fmt"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// dataTupleClasses flags top-level classes whose only method is __init__.
// Such classes exist purely to carry fields; a tuple or plain dict is
// cheaper than the class object, its dict, and the bound constructor.
func (c *Classifier) dataTupleClasses(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, child := range mod.Root.Children {
		if child.Kind != parser.ScopeClass || child.TypeOnly {
			continue
		}
		if len(child.Methods) != 1 || child.Methods[0] != "__init__" {
			continue
		}
		cands = append(cands, Candidate{
			Kind:    PatternDataTuple,
			Scope:   child,
			Display: child.Name,
			Line:    child.Line,
			Count:   1,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("class %s only defines __init__; consider a tuple or dict", child.Name),
			},
		})
	}
	return cands
}
