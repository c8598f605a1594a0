// Package planner turns classified candidates into ranked suggestions and
// builds byte-exact rewrite plans for the safe ones.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"upysize/internal/classifier"
	"upysize/internal/cost"
	"upysize/internal/parser"
)

// Edit replaces one byte span with new text. A zero-width span is a pure
// insertion. Seq lays out insertions that share an offset, smallest
// first, so a moved import always lands above an alias that reads it.
type Edit struct {
	Span parser.Span `json:"span"`
	Text string      `json:"text"`
	Seq  int         `json:"seq,omitempty"`
}

const (
	seqImport = iota
	seqAlias
)

// Plan is the ordered edit list for one suggestion. Edits inside a plan
// never overlap each other.
type Plan struct {
	Edits []Edit `json:"edits"`
}

// Suggestion is one ranked finding. Plan is nil for advisory suggestions.
type Suggestion struct {
	File        string                 `json:"file"`
	Line        int                    `json:"line"`
	Kind        classifier.PatternKind `json:"kind"`
	Symbol      string                 `json:"symbol"`
	Scope       string                 `json:"scope"`
	Description string                 `json:"description"`
	SavedBytes  int                    `json:"saved_bytes"`
	Safe        bool                   `json:"safe"`
	Notes       []string               `json:"notes,omitempty"`
	Plan        *Plan                  `json:"plan,omitempty"`
}

type Planner struct {
	costs cost.Table
}

func New(costs cost.Table) *Planner {
	return &Planner{costs: costs}
}

// Build estimates, plans, ranks, and de-conflicts one file's candidates.
// Caching candidates below break-even are dropped; flat advisories always
// survive. When two safe plans claim overlapping spans the higher-ranked
// one keeps its plan and the loser is demoted to advisory.
func (p *Planner) Build(path string, cands []classifier.Candidate) ([]Suggestion, []classifier.Warning) {
	var suggestions []Suggestion
	for _, cand := range cands {
		saved := p.costs.Estimate(cand)
		if saved <= 0 && cost.CachingPattern(cand.Kind) {
			continue
		}

		sug := Suggestion{
			File:        path,
			Line:        cand.Line,
			Kind:        cand.Kind,
			Symbol:      cand.Display,
			Scope:       cand.Scope.QualName(),
			Description: describe(cand),
			SavedBytes:  saved,
			Safe:        cand.Safe,
			Notes:       cand.Notes,
		}
		if cand.Safe {
			sug.Plan = plan(cand)
		}
		suggestions = append(suggestions, sug)
	}

	rank(suggestions)

	warnings := resolveConflicts(suggestions)
	return suggestions, warnings
}

// rank orders by estimated savings, largest first; ties break by line then
// kind so output is stable across runs.
func rank(sugs []Suggestion) {
	sort.SliceStable(sugs, func(i, j int) bool {
		if sugs[i].SavedBytes != sugs[j].SavedBytes {
			return sugs[i].SavedBytes > sugs[j].SavedBytes
		}
		if sugs[i].Line != sugs[j].Line {
			return sugs[i].Line < sugs[j].Line
		}
		return sugs[i].Kind < sugs[j].Kind
	})
}

// resolveConflicts walks suggestions in rank order; each plan claims its
// spans and later plans touching a claimed span lose their plan.
func resolveConflicts(sugs []Suggestion) []classifier.Warning {
	var claimed []parser.Span
	var warnings []classifier.Warning

	for i := range sugs {
		if sugs[i].Plan == nil {
			continue
		}
		conflict := false
	edits:
		for _, e := range sugs[i].Plan.Edits {
			for _, c := range claimed {
				if e.Span.Overlaps(c) {
					conflict = true
					break edits
				}
			}
		}
		if conflict {
			sugs[i].Plan = nil
			sugs[i].Safe = false
			sugs[i].Notes = append(sugs[i].Notes, "rewrite overlaps a higher-ranked suggestion; apply manually")
			warnings = append(warnings, classifier.Warning{
				Kind: classifier.WarnConflictingEdit,
				Msg:  fmt.Sprintf("%s for %s overlaps a higher-ranked rewrite", sugs[i].Kind, sugs[i].Symbol),
				Line: sugs[i].Line,
			})
			continue
		}
		for _, e := range sugs[i].Plan.Edits {
			claimed = append(claimed, e.Span)
		}
	}
	return warnings
}

// plan builds the edit list for one safe candidate. Returns nil for kinds
// with no mechanical rewrite.
func plan(cand classifier.Candidate) *Plan {
	switch cand.Kind {
	case classifier.PatternRepeatedGlobal:
		edits := []Edit{insertAt(cand.Scope, cand.Alias+" = "+cand.ChainExpr, seqAlias)}
		for _, ref := range cand.Refs {
			edits = append(edits, Edit{Span: ref.RootSpan, Text: cand.Alias})
		}
		return &Plan{Edits: edits}

	case classifier.PatternAttributeChain:
		edits := []Edit{insertAt(cand.Scope, cand.Alias+" = "+cand.ChainExpr, seqAlias)}
		for _, ref := range cand.Refs {
			edits = append(edits, Edit{Span: ref.ChainSpan, Text: cand.Alias})
		}
		return &Plan{Edits: edits}

	case classifier.PatternLocalImport:
		if cand.RemoveSpan == nil || cand.InsertText == "" {
			return nil
		}
		return &Plan{Edits: []Edit{
			{Span: *cand.RemoveSpan, Text: ""},
			insertAt(cand.Scope, cand.InsertText, seqImport),
		}}

	default:
		return nil
	}
}

// insertAt builds a statement insertion at the scope's first-statement
// position. The inserted line ends with the body indent so the displaced
// statement keeps its column.
func insertAt(scope *parser.Scope, stmt string, seq int) Edit {
	return Edit{
		Span: parser.Span{Start: scope.BodyStart, End: scope.BodyStart},
		Text: stmt + "\n" + strings.Repeat(" ", scope.BodyIndent),
		Seq:  seq,
	}
}

func describe(cand classifier.Candidate) string {
	switch cand.Kind {
	case classifier.PatternRepeatedGlobal:
		return fmt.Sprintf("%s is looked up %d times in %s; cache it in a local", cand.Display, cand.Count, cand.Scope.QualName())
	case classifier.PatternAttributeChain:
		return fmt.Sprintf("%s is loaded %d times in %s; cache it in a local", cand.Display, cand.Count, cand.Scope.QualName())
	case classifier.PatternLocalImport:
		return fmt.Sprintf("import %s is only used in %s; move it into the function", cand.Display, cand.Scope.QualName())
	case classifier.PatternKeywordCall:
		return fmt.Sprintf("call to %s uses %d keyword argument(s)", cand.Display, cand.Count)
	case classifier.PatternDictDispatch:
		return fmt.Sprintf("if/elif ladder %s could be a dict lookup", cand.Display)
	case classifier.PatternDataTuple:
		return fmt.Sprintf("class %s only carries data", cand.Display)
	case classifier.PatternTypeOnlyImport:
		return fmt.Sprintf("import %s is type-hint only", cand.Display)
	case classifier.PatternUnderscoreConst:
		return fmt.Sprintf("const %s keeps its name in the module dict", cand.Display)
	case classifier.PatternMissingConst:
		return fmt.Sprintf("%s could be a const()", cand.Display)
	case classifier.PatternSingleCallFunc:
		return fmt.Sprintf("%s is called exactly once", cand.Display)
	case classifier.PatternModuleAttrCache:
		return fmt.Sprintf("%s is loaded %d times across the file", cand.Display, cand.Count)
	default:
		return string(cand.Kind)
	}
}
