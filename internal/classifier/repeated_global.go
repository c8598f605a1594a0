package classifier

import (
	"fmt"
	"sort"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// repeatedGlobals finds names with a global lookup cost that a function
// reads at least min_occurrences times. Caching the name in a local
// replaces each global load with a local one.
func (c *Classifier) repeatedGlobals(mod *parser.Module, res *collector.Result) []Candidate {
	type key struct {
		scope *parser.Scope
		name  string
	}
	groups := make(map[key][]collector.Reference)

	for _, ref := range res.Refs {
		if !countable(ref) {
			continue
		}
		if ref.Scope.Kind != parser.ScopeFunction {
			continue
		}
		sym := resolve(ref.Scope, ref.Root)
		if !sym.Kind.Global() {
			continue
		}
		if sym.Binding != nil && sym.Binding.TypeOnly {
			continue
		}
		k := key{ref.Scope, ref.Root}
		groups[k] = append(groups[k], ref)
	}

	var cands []Candidate
	for k, refs := range groups {
		if len(refs) < c.cfg.Analysis.MinOccurrences {
			continue
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].RootSpan.Start < refs[j].RootSpan.Start })

		cand := Candidate{
			Kind:       PatternRepeatedGlobal,
			Scope:      k.scope,
			Refs:       refs,
			Display:    k.name,
			Line:       refs[0].Line,
			Count:      len(refs),
			RootGlobal: true,
			Safe:       true,
			Alias:      "_" + k.name,
			ChainExpr:  k.name,
		}
		if res.WrittenIn(k.scope, k.name) {
			// A write makes the name local to the scope; resolve
			// already filters that, but global-declared names can
			// still slip through.
			cand.Safe = false
			cand.Notes = append(cand.Notes, fmt.Sprintf("%s is assigned in this scope", k.name))
		}
		if !aliasFree(k.scope, res, cand.Alias) {
			cand.Safe = false
			cand.Notes = append(cand.Notes, fmt.Sprintf("alias %s is already in use", cand.Alias))
		}
		cands = append(cands, cand)
	}
	return cands
}
