package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"upysize/internal/classifier"
	"upysize/internal/engine"
)

// SARIF 2.1.0 output for CI annotation. Each pattern kind becomes one
// rule; safe suggestions report as "note", advisories as "warning" since
// they need a human decision.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type SARIFGenerator struct {
	toolVersion string
}

func NewSARIFGenerator(toolVersion string) *SARIFGenerator {
	return &SARIFGenerator{toolVersion: toolVersion}
}

func (g *SARIFGenerator) Generate(outcomes []engine.Outcome) (string, error) {
	results := make([]sarifResult, 0)
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		for _, s := range o.Report.Suggestions {
			level := "warning"
			if s.Safe {
				level = "note"
			}
			results = append(results, sarifResult{
				RuleID:  ruleID(s.Kind),
				Level:   level,
				Message: sarifMessage{Text: s.Description},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{URI: s.File},
						Region:           sarifRegion{StartLine: s.Line},
					},
				}},
			})
		}
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "upysize", Version: g.toolVersion, Rules: allRules()}},
			Results: results,
		}},
	}

	raw, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw) + "\n", nil
}

func allRules() []sarifRule {
	kinds := classifier.AllPatterns()
	rules := make([]sarifRule, 0, len(kinds))
	for _, kind := range kinds {
		rules = append(rules, sarifRule{ID: ruleID(kind), Name: string(kind)})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// ruleID assigns stable UPYxxx identifiers by the pattern's position in
// the canonical kind list.
func ruleID(kind classifier.PatternKind) string {
	for i, k := range classifier.AllPatterns() {
		if k == kind {
			return fmt.Sprintf("UPY%03d", i+1)
		}
	}
	return "UPY000"
}
