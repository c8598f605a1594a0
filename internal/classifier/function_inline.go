package classifier

import (
	"fmt"
	"slices"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// singleCallFunctions finds module-level functions called exactly once in
// the file. Inlining the body removes the function object, its qualname,
// and the call frame setup. Names in the no_inline list are exempt
// (entry points, interrupt handlers, API surface).
func (c *Classifier) singleCallFunctions(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, name := range sortedBindingNames(mod.Root) {
		b := mod.Root.Bindings[name]
		if b.Kind != parser.BindFunction || b.TypeOnly {
			continue
		}
		if res.Calls[name] != 1 {
			continue
		}
		if slices.Contains(c.cfg.Analysis.NoInline, name) {
			continue
		}
		// References beyond the single call (stored, passed around,
		// decorated) rule out inlining.
		uses := 0
		for _, ref := range res.Refs {
			if ref.Root == name && countable(ref) && len(ref.Path) == 0 {
				uses++
			}
		}
		if uses != 1 {
			continue
		}
		cands = append(cands, Candidate{
			Kind:    PatternSingleCallFunc,
			Scope:   mod.Root,
			Display: name,
			Line:    b.Line,
			Count:   1,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("%s is called exactly once; inlining it saves the function object", name),
			},
		})
	}
	return cands
}
