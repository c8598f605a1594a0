// # cmd/upysize/app.go
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"

	"upysize/internal/cache"
	"upysize/internal/config"
	"upysize/internal/engine"
	"upysize/internal/observability"
	"upysize/internal/planner"
	"upysize/internal/report"
	"upysize/internal/util"
	"upysize/internal/watcher"
)

type App struct {
	Config  *config.Config
	Engine  *engine.Engine
	Verbose bool

	store      *cache.Store
	fsWatcher  *watcher.Watcher
	limiter    *util.Limiter
	teaProgram *tea.Program

	// Latest outcomes keyed by path, merged incrementally in watch mode.
	latestMu sync.Mutex
	latest   map[string]engine.Outcome
}

func NewApp(cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Engine: engine.New(cfg),
		latest: make(map[string]engine.Outcome),
	}

	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	return a, nil
}

func (a *App) Close() {
	if a.fsWatcher != nil {
		a.fsWatcher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// Scan discovers python sources under the configured paths and analyzes
// them, serving unchanged files from the cache.
func (a *App) Scan(ctx context.Context) ([]engine.Outcome, error) {
	files, err := a.discover()
	if err != nil {
		return nil, err
	}
	slog.Debug("scan", "files", len(files))

	outcomes := a.analyze(ctx, files)
	a.latestMu.Lock()
	for _, o := range outcomes {
		a.latest[o.Path] = o
	}
	a.latestMu.Unlock()
	return outcomes, nil
}

// analyze splits paths into cache hits and misses, runs the engine over
// the misses, and stitches results back into input order.
func (a *App) analyze(ctx context.Context, paths []string) []engine.Outcome {
	outcomes := make([]engine.Outcome, len(paths))

	var missPaths []string
	var missIdx []int
	for i, path := range paths {
		if report, ok := a.cachedReport(path); ok {
			observability.CacheHitsTotal.WithLabelValues("hit").Inc()
			outcomes[i] = engine.Outcome{Path: path, Report: report}
			continue
		}
		observability.CacheHitsTotal.WithLabelValues("miss").Inc()
		missPaths = append(missPaths, path)
		missIdx = append(missIdx, i)
	}

	for j, o := range a.Engine.RunAll(ctx, missPaths) {
		outcomes[missIdx[j]] = o
		if o.Report != nil && a.store != nil {
			if err := a.store.Put(o.Report); err != nil {
				slog.Warn("cache write failed", "path", o.Path, "error", err)
			}
		}
	}
	return outcomes
}

func (a *App) cachedReport(path string) (*engine.FileReport, bool) {
	if a.store == nil {
		return nil, false
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return a.store.Get(path, engine.Hash(src))
}

func (a *App) discover() ([]string, error) {
	dirGlobs, err := compileGlobs(a.Config.Exclude.Dirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(a.Config.Exclude.Files)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, root := range a.Config.Paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if filepath.Ext(path) != ".py" {
				return nil
			}
			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// ApplyFixes merges each file's safe plans and rewrites the file in
// place. Invalidated cache entries are refreshed on the following scan.
func (a *App) ApplyFixes(ctx context.Context, outcomes []engine.Outcome) error {
	for _, o := range outcomes {
		if o.Report == nil {
			continue
		}
		plan, err := planner.Merge(o.Report.Suggestions)
		if err != nil {
			return fmt.Errorf("%s: %w", o.Path, err)
		}
		if len(plan.Edits) == 0 {
			continue
		}

		src, err := os.ReadFile(o.Path)
		if err != nil {
			return err
		}
		if engine.Hash(src) != o.Report.Hash {
			slog.Warn("file changed since analysis, skipping rewrite", "path", o.Path)
			continue
		}

		rewritten, err := planner.Apply(src, plan)
		if err != nil {
			return fmt.Errorf("%s: %w", o.Path, err)
		}
		if err := os.WriteFile(o.Path, rewritten, 0644); err != nil {
			return err
		}
		slog.Info("applied rewrites", "path", o.Path, "edits", len(plan.Edits))
	}
	return nil
}

func (a *App) GenerateOutputs(outcomes []engine.Outcome) error {
	type target struct {
		path     string
		generate func([]engine.Outcome) (string, error)
	}
	targets := []target{}
	if a.Config.Output.Markdown != "" {
		targets = append(targets, target{a.Config.Output.Markdown, report.NewMarkdownGenerator().Generate})
	}
	if a.Config.Output.SARIF != "" {
		targets = append(targets, target{a.Config.Output.SARIF, report.NewSARIFGenerator(VERSION).Generate})
	}
	if a.Config.Output.TSV != "" {
		targets = append(targets, target{a.Config.Output.TSV, report.NewTSVGenerator().Generate})
	}

	for _, t := range targets {
		content, err := t.generate(outcomes)
		if err != nil {
			return err
		}
		if err := os.WriteFile(t.path, []byte(content), 0644); err != nil {
			return err
		}
		slog.Debug("wrote report", "path", t.path)
	}
	return nil
}

func (a *App) PrintSummary(outcomes []engine.Outcome) {
	out, err := report.NewTerminalReporter(a.Verbose).Generate(outcomes)
	if err != nil {
		slog.Error("failed to render summary", "error", err)
		return
	}
	fmt.Print(out)
}

// ExitCode is non-zero only when a file could not be analyzed; findings
// alone never fail the run.
func (a *App) ExitCode(outcomes []engine.Outcome) int {
	for _, o := range outcomes {
		if o.Err != nil {
			return 1
		}
	}
	return 0
}

// StartWatcher re-analyzes changed files, rate-limited so editor save
// storms cannot starve the machine.
func (a *App) StartWatcher(ctx context.Context) error {
	a.limiter = util.NewLimiter(a.Config.Watch.MaxReanalysesPerSecond, 1)

	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) { a.onChange(ctx, paths) },
	)
	if err != nil {
		return err
	}
	a.fsWatcher = w
	return w.Watch(a.Config.Paths)
}

func (a *App) onChange(ctx context.Context, paths []string) {
	if err := a.limiter.Wait(ctx, 1); err != nil {
		return
	}

	var live []string
	a.latestMu.Lock()
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			delete(a.latest, path)
			if a.store != nil {
				if err := a.store.Forget(path); err != nil {
					slog.Debug("cache evict failed", "path", path, "error", err)
				}
			}
			continue
		}
		live = append(live, path)
	}
	a.latestMu.Unlock()

	outcomes := a.analyze(ctx, live)
	a.latestMu.Lock()
	for _, o := range outcomes {
		a.latest[o.Path] = o
	}
	a.latestMu.Unlock()

	all := a.snapshot()
	if a.teaProgram != nil {
		a.teaProgram.Send(outcomesMsg{outcomes: all})
	} else {
		a.PrintSummary(all)
	}
}

// snapshot renders the merged watch-mode state in stable path order.
func (a *App) snapshot() []engine.Outcome {
	a.latestMu.Lock()
	defer a.latestMu.Unlock()

	paths := make([]string, 0, len(a.latest))
	for path := range a.latest {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	outcomes := make([]engine.Outcome, 0, len(paths))
	for _, path := range paths {
		outcomes = append(outcomes, a.latest[path])
	}
	return outcomes
}
