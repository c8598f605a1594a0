package classifier

import (
	"fmt"
	"sort"

	"upysize/internal/collector"
	"upysize/internal/parser"
)

// moduleAttrCaches finds attribute chains rooted at imports that repeat
// across the whole file. A module-level cached alias pays one store and
// saves an attribute load per use. Chains already proposed for a per-scope
// cache are skipped so each chain yields at most one suggestion.
func (c *Classifier) moduleAttrCaches(mod *parser.Module, res *collector.Result, scoped []Candidate) []Candidate {
	covered := make(map[string]bool, len(scoped))
	for _, cand := range scoped {
		covered[cand.Display] = true
	}

	groups := make(map[string][]collector.Reference)
	for _, ref := range res.Refs {
		if !countable(ref) || len(ref.Path) == 0 {
			continue
		}
		sym := resolve(ref.Scope, ref.Root)
		if sym.Kind != SymbolImportedModule && sym.Kind != SymbolImportedSymbol {
			continue
		}
		chain := ref.Chain()
		if covered[chain] {
			continue
		}
		groups[chain] = append(groups[chain], ref)
	}

	chains := make([]string, 0, len(groups))
	for chain := range groups {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	var cands []Candidate
	for _, chain := range chains {
		refs := groups[chain]
		if len(refs) < c.cfg.Analysis.MinOccurrences {
			continue
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].ChainSpan.Start < refs[j].ChainSpan.Start })
		cands = append(cands, Candidate{
			Kind:    PatternModuleAttrCache,
			Scope:   mod.Root,
			Refs:    refs,
			Display: chain,
			Line:    refs[0].Line,
			Count:   len(refs),
			Safe:    false,
			Notes: []string{
				fmt.Sprintf("%s is loaded %d times across the file; a module-level alias saves a lookup per use", chain, len(refs)),
			},
		})
	}
	return cands
}
