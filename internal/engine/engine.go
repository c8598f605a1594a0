// Package engine orchestrates the per-file pipeline: parse, collect,
// classify, estimate, plan. Analysis of one file is pure: same bytes in,
// same report out, no shared state between files.
package engine

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	"upysize/internal/classifier"
	"upysize/internal/collector"
	"upysize/internal/config"
	"upysize/internal/cost"
	"upysize/internal/observability"
	"upysize/internal/parser"
	"upysize/internal/planner"
)

// Hash is the content hash used to key cached reports.
func Hash(src []byte) uint64 {
	return xxhash.Sum64(src)
}

// FileReport is the analysis result for one source file.
type FileReport struct {
	Path        string               `json:"path"`
	Hash        uint64               `json:"hash"`
	Suggestions []planner.Suggestion `json:"suggestions"`
	Warnings    []classifier.Warning `json:"warnings,omitempty"`
	SavedBytes  int                  `json:"saved_bytes"`
	Duration    time.Duration        `json:"duration_ns"`
}

type Engine struct {
	cfg        *config.Config
	classifier *classifier.Classifier
	planner    *planner.Planner
}

func New(cfg *config.Config) *Engine {
	costs := cost.Default().Apply(cfg.Costs)
	return &Engine{
		cfg:        cfg,
		classifier: classifier.New(cfg),
		planner:    planner.New(costs),
	}
}

// Analyze runs the full pipeline over one file's bytes. A syntax error is
// returned as *parser.ParseError and poisons only this file.
func (e *Engine) Analyze(ctx context.Context, path string, src []byte) (*FileReport, error) {
	_, span := observability.Tracer.Start(ctx, "analyze")
	span.SetAttributes(attribute.String("file", path))
	defer span.End()

	started := time.Now()

	parseStart := time.Now()
	mod, err := parser.Parse(path, src)
	observability.ParseSeconds.Observe(time.Since(parseStart).Seconds())
	if err != nil {
		observability.FilesTotal.WithLabelValues("parse_error").Inc()
		return nil, err
	}
	defer mod.Close()

	refs := collector.Collect(mod)
	cands, warnings := e.classifier.Classify(mod, refs)
	suggestions, conflicts := e.planner.Build(path, cands)
	warnings = append(warnings, conflicts...)

	report := &FileReport{
		Path:        path,
		Hash:        xxhash.Sum64(src),
		Suggestions: suggestions,
		Warnings:    warnings,
		Duration:    time.Since(started),
	}
	for _, s := range suggestions {
		report.SavedBytes += s.SavedBytes
		observability.SuggestionsTotal.WithLabelValues(string(s.Kind)).Inc()
		if s.SavedBytes > 0 {
			observability.SavedBytesTotal.Add(float64(s.SavedBytes))
		}
	}
	observability.AnalysisSeconds.Observe(report.Duration.Seconds())
	observability.FilesTotal.WithLabelValues("ok").Inc()
	return report, nil
}
