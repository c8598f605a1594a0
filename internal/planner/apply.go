package planner

import (
	"sort"

	"upysize/internal/errors"
)

// Merge combines the plans of all safe suggestions into one edit list.
// Conflict resolution already guarantees the spans are disjoint; Merge
// re-checks and fails loudly rather than corrupt a file.
func Merge(sugs []Suggestion) (*Plan, error) {
	var edits []Edit
	for _, s := range sugs {
		if s.Plan == nil {
			continue
		}
		edits = append(edits, s.Plan.Edits...)
	}
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if edits[i].Span.Overlaps(edits[j].Span) {
				return nil, errors.New(errors.CodeConflict, "merged rewrite plan has overlapping edits")
			}
		}
	}
	if len(edits) == 0 {
		return &Plan{}, nil
	}
	return &Plan{Edits: edits}, nil
}

// Apply executes a plan against the source it was computed from. Edits are
// applied back to front so earlier spans stay valid. Insertions at one
// offset apply highest Seq first; each later application lands above the
// previous one, so the smallest Seq ends up first in the output. Applying
// a plan and re-analyzing the output must not re-propose the same rewrites.
func Apply(src []byte, plan *Plan) ([]byte, error) {
	if plan == nil || len(plan.Edits) == 0 {
		return src, nil
	}
	edits := make([]Edit, len(plan.Edits))
	copy(edits, plan.Edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Span.Start != edits[j].Span.Start {
			return edits[i].Span.Start > edits[j].Span.Start
		}
		if edits[i].Span.End != edits[j].Span.End {
			return edits[i].Span.End > edits[j].Span.End
		}
		return edits[i].Seq > edits[j].Seq
	})

	out := make([]byte, len(src))
	copy(out, src)
	for _, e := range edits {
		if e.Span.End > uint(len(out)) || e.Span.Start > e.Span.End {
			return nil, errors.New(errors.CodeValidationError, "edit span out of range")
		}
		var buf []byte
		buf = append(buf, out[:e.Span.Start]...)
		buf = append(buf, e.Text...)
		buf = append(buf, out[e.Span.End:]...)
		out = buf
	}
	return out, nil
}
