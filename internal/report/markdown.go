package report

import (
	"fmt"
	"strings"

	"upysize/internal/engine"
)

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(outcomes []engine.Outcome) (string, error) {
	var b strings.Builder

	b.WriteString("# Size report\n\n")
	b.WriteString("| File | Line | Pattern | Symbol | Saved (B) | Auto |\n")
	b.WriteString("|------|------|---------|--------|-----------|------|\n")

	total := 0
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		for _, s := range o.Report.Suggestions {
			auto := ""
			if s.Safe {
				auto = "yes"
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %s | `%s` | %d | %s |\n",
				s.File, s.Line, s.Kind, s.Symbol, s.SavedBytes, auto))
			total += s.SavedBytes
		}
	}

	b.WriteString(fmt.Sprintf("\nEstimated total savings: **~%d bytes**\n", total))

	var failures []engine.Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, o)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Skipped files\n\n")
		for _, o := range failures {
			b.WriteString(fmt.Sprintf("- `%s`: %v\n", o.Path, o.Err))
		}
	}
	return b.String(), nil
}
