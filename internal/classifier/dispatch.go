package classifier

import (
	"fmt"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// dictDispatches flags if/elif ladders that compare one subject against
// constants and assign a single target per branch. A dict lookup encodes
// the same mapping in data instead of bytecode.
func (c *Classifier) dictDispatches(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, d := range res.Dispatches {
		cands = append(cands, Candidate{
			Kind:    PatternDictDispatch,
			Scope:   d.Scope,
			Display: fmt.Sprintf("%s -> %s", d.Subject, d.Target),
			Line:    d.Line,
			Count:   d.Branches,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("%d-branch if/elif ladder on %s assigns %s; a dict lookup is smaller", d.Branches, d.Subject, d.Target),
			},
		})
	}
	return cands
}
