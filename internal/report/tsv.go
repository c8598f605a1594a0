package report

import (
	"fmt"
	"strings"

	"upysize/internal/engine"
)

type TSVGenerator struct{}

func NewTSVGenerator() *TSVGenerator {
	return &TSVGenerator{}
}

func (t *TSVGenerator) Generate(outcomes []engine.Outcome) (string, error) {
	var buf strings.Builder

	buf.WriteString("File\tLine\tPattern\tSymbol\tScope\tSavedBytes\tSafe\n")
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		for _, s := range o.Report.Suggestions {
			buf.WriteString(fmt.Sprintf("%s\t%d\t%s\t%s\t%s\t%d\t%t\n",
				s.File, s.Line, s.Kind, s.Symbol, s.Scope, s.SavedBytes, s.Safe))
		}
	}

	return buf.String(), nil
}
