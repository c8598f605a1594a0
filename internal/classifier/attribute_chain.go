package classifier

import (
	"fmt"
	"sort"
	"strings"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// attributeChains finds maximal attribute chains repeated within one
// function scope. Distinct full chains are distinct candidates: obj.a.b
// and obj.a.c never merge. Chains rooted at unresolvable names are
// counted by the collector but never proposed here.
func (c *Classifier) attributeChains(mod *parser.Module, res *collector.Result) []Candidate {
	type key struct {
		scope *parser.Scope
		chain string
	}
	groups := make(map[key][]collector.Reference)

	for _, ref := range res.Refs {
		if !countable(ref) || len(ref.Path) == 0 {
			continue
		}
		if ref.Scope.Kind != parser.ScopeFunction {
			continue
		}
		k := key{ref.Scope, ref.Chain()}
		groups[k] = append(groups[k], ref)
	}

	var cands []Candidate
	for k, refs := range groups {
		if len(refs) < c.cfg.Analysis.MinOccurrences {
			continue
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].ChainSpan.Start < refs[j].ChainSpan.Start })

		sym := resolve(k.scope, refs[0].Root)
		if sym.Kind == SymbolExternal {
			continue
		}

		parts := strings.Split(k.chain, ".")
		cand := Candidate{
			Kind:       PatternAttributeChain,
			Scope:      k.scope,
			Refs:       refs,
			Display:    k.chain,
			Line:       refs[0].Line,
			Count:      len(refs),
			ChainDepth: len(parts) - 1,
			RootGlobal: sym.Kind.Global(),
			Safe:       true,
			ChainExpr:  k.chain,
		}
		if res.WrittenIn(k.scope, refs[0].Root) {
			cand.Safe = false
			cand.Notes = append(cand.Notes, fmt.Sprintf("%s is reassigned in this scope", refs[0].Root))
		}
		if res.ChainWrittenIn(k.scope, k.chain) {
			cand.Safe = false
			cand.Notes = append(cand.Notes, fmt.Sprintf("%s or a prefix of it is assigned to in this scope", k.chain))
		}

		alias := parts[len(parts)-1]
		if !aliasFree(k.scope, res, alias) {
			alias = "_" + alias
			if !aliasFree(k.scope, res, alias) {
				cand.Safe = false
				cand.Notes = append(cand.Notes, fmt.Sprintf("no free alias name for %s", k.chain))
			}
		}
		cand.Alias = alias
		cands = append(cands, cand)
	}
	return cands
}
