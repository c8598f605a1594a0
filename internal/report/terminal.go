// Package report renders analysis outcomes: a terminal summary plus
// markdown, SARIF, and TSV generators for files and CI.
package report

import (
	"fmt"
	"strings"

	"upysize/internal/engine"
)

// TerminalReporter renders the human-readable run summary.
type TerminalReporter struct {
	verbose bool
}

func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{verbose: verbose}
}

func (t *TerminalReporter) Generate(outcomes []engine.Outcome) (string, error) {
	var b strings.Builder

	files, failed, total, saved := 0, 0, 0, 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			b.WriteString(fmt.Sprintf("✗ %s: %v\n", o.Path, o.Err))
			continue
		}
		files++
		total += len(o.Report.Suggestions)
		saved += o.Report.SavedBytes

		if len(o.Report.Suggestions) == 0 {
			if t.verbose {
				b.WriteString(fmt.Sprintf("✓ %s: no findings\n", o.Path))
			}
			continue
		}
		b.WriteString(fmt.Sprintf("%s (%d suggestions, ~%d bytes)\n",
			o.Path, len(o.Report.Suggestions), o.Report.SavedBytes))
		for _, s := range o.Report.Suggestions {
			marker := "~"
			if s.Safe {
				marker = "+"
			}
			b.WriteString(fmt.Sprintf("  %s L%-4d %-26s %4d B  %s\n",
				marker, s.Line, s.Kind, s.SavedBytes, s.Description))
			if t.verbose {
				for _, note := range s.Notes {
					b.WriteString(fmt.Sprintf("           note: %s\n", note))
				}
			}
		}
		if t.verbose {
			for _, w := range o.Report.Warnings {
				b.WriteString(fmt.Sprintf("  ! L%-4d %s: %s\n", w.Line, w.Kind, w.Msg))
			}
		}
	}

	b.WriteString(fmt.Sprintf("\n%d file(s) analyzed, %d failed, %d suggestion(s), ~%d byte(s) estimated savings\n",
		files, failed, total, saved))
	return b.String(), nil
}
