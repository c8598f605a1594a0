package engine

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"upysize/internal/errors"
)

// Outcome pairs one input file with its report or error. Err is set for
// unreadable or syntactically invalid files; other files are unaffected.
type Outcome struct {
	Path   string
	Report *FileReport
	Err    error
}

// RunAll analyzes files concurrently with a bounded worker pool and
// returns outcomes in input order regardless of completion order.
func (e *Engine) RunAll(ctx context.Context, paths []string) []Outcome {
	workers := e.cfg.Analysis.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	outcomes := make([]Outcome, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = e.analyzeFile(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			outcomes[i] = Outcome{Path: paths[i], Err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (e *Engine) analyzeFile(ctx context.Context, path string) Outcome {
	src, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("read failed", "file", path, "error", err)
		wrapped := errors.Wrap(err, errors.CodeNotFound, "read source file")
		return Outcome{Path: path, Err: errors.AddContext(wrapped, errors.CtxPath, path)}
	}
	report, err := e.Analyze(ctx, path, src)
	if err != nil {
		return Outcome{Path: path, Err: err}
	}
	return Outcome{Path: path, Report: report}
}
