package classifier

import (
	"fmt"
	"strings"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// keywordCalls flags keyword arguments in calls to locally defined
// callables. Each keyword key is interned and costs bytecode the
// positional form avoids. Advisory only: reordering arguments needs a
// matching signature change.
func (c *Classifier) keywordCalls(mod *parser.Module, res *collector.Result) []Candidate {
	var cands []Candidate
	for _, kc := range res.KeywordCalls {
		if strings.Contains(kc.Callee, ".") {
			continue // methods and foreign callables keep their own API
		}
		sym := resolve(kc.Scope, kc.Callee)
		if sym.Binding == nil {
			continue
		}
		if sym.Binding.Kind != parser.BindFunction && sym.Binding.Kind != parser.BindClass {
			continue
		}
		cands = append(cands, Candidate{
			Kind:    PatternKeywordCall,
			Scope:   kc.Scope,
			Display: kc.Callee,
			Line:    kc.Line,
			Count:   kc.Kwargs,
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("call to %s passes %d keyword argument(s); positional form avoids interning the keys", kc.Callee, kc.Kwargs),
			},
		})
	}
	return cands
}
