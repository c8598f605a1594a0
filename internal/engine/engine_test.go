package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"upysize/internal/classifier"
	"upysize/internal/config"
	"upysize/internal/errors"
	"upysize/internal/parser"
	"upysize/internal/planner"
)

func analyze(t *testing.T, cfg *config.Config, src string) *FileReport {
	t.Helper()
	report, err := New(cfg).Analyze(context.Background(), "test.py", []byte(src))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return report
}

func suggestionsOf(report *FileReport, kind classifier.PatternKind) []planner.Suggestion {
	var out []planner.Suggestion
	for _, s := range report.Suggestions {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func TestAnalyze_ChainCachedWithPlan(t *testing.T) {
	src := `from trezor import wire

def f():
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`
	report := analyze(t, config.Default(), src)

	got := suggestionsOf(report, classifier.PatternAttributeChain)
	if len(got) != 1 {
		t.Fatalf("expected exactly one suggestion for wire.DataError, got %d", len(got))
	}
	s := got[0]
	if s.SavedBytes != 13 {
		t.Errorf("expected 13 byte estimate, got %d", s.SavedBytes)
	}
	if s.Plan == nil || !s.Safe {
		t.Fatal("expected a safe rewrite plan")
	}

	out, err := planner.Apply([]byte(src), s.Plan)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !strings.Contains(string(out), "DataError = wire.DataError") {
		t.Errorf("plan should bind the alias, got:\n%s", out)
	}
}

func TestAnalyze_BelowThresholdSilent(t *testing.T) {
	src := `from trezor import wire

def f():
    raise wire.DataError(wire.DataError, wire.DataError)
`
	report := analyze(t, config.Default(), src)

	if len(suggestionsOf(report, classifier.PatternAttributeChain)) != 0 {
		t.Error("three occurrences are below the default threshold of four")
	}
}

func TestAnalyze_SavingsGrowWithCount(t *testing.T) {
	base := `from trezor import wire

def f():
`
	prev := 0
	for k := 4; k <= 8; k++ {
		src := base + "    x = " + strings.Repeat("wire.DataError + ", k-1) + "wire.DataError\n"
		report := analyze(t, config.Default(), src)
		got := suggestionsOf(report, classifier.PatternAttributeChain)
		if len(got) != 1 {
			t.Fatalf("k=%d: expected 1 suggestion, got %d", k, len(got))
		}
		if got[0].SavedBytes <= prev {
			t.Fatalf("k=%d: savings %d not greater than %d", k, got[0].SavedBytes, prev)
		}
		prev = got[0].SavedBytes
	}
}

func TestAnalyze_TypeCheckingExcluded(t *testing.T) {
	src := `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from trezor.messages import Success

def f(a: Success, b: Success, c: Success, d: Success) -> None:
    pass
`
	report := analyze(t, config.Default(), src)

	for _, s := range report.Suggestions {
		if s.Symbol == "Success" && s.Kind != classifier.PatternTypeOnlyImport {
			t.Errorf("type-only uses must not feed caching patterns: %+v", s)
		}
	}
}

func TestAnalyze_ImportUsedByOneFunction(t *testing.T) {
	one := `from trezor.crypto import sha256

def digest(data):
    return sha256(data)
`
	report := analyze(t, config.Default(), one)
	got := suggestionsOf(report, classifier.PatternLocalImport)
	if len(got) != 1 || !got[0].Safe {
		t.Fatalf("expected a safe local-import suggestion, got %+v", got)
	}

	two := one + `
def verify(data):
    return sha256(data)
`
	report2 := analyze(t, config.Default(), two)
	if len(suggestionsOf(report2, classifier.PatternLocalImport)) != 0 {
		t.Error("an import used by two functions must not be flagged")
	}
}

func TestAnalyze_ParseErrorReported(t *testing.T) {
	_, err := New(config.Default()).Analyze(context.Background(), "bad.py", []byte("def f(:\n"))
	if err == nil {
		t.Fatal("expected an error for invalid source")
	}
	if _, ok := err.(*parser.ParseError); !ok {
		t.Errorf("expected *parser.ParseError, got %T", err)
	}
}

func TestAnalyze_Pure(t *testing.T) {
	src := `import utime

def loop():
    utime(1)
    utime(2)
    utime(3)
    utime(4)
`
	e := New(config.Default())
	a, err := e.Analyze(context.Background(), "test.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Analyze(context.Background(), "test.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != b.Hash || len(a.Suggestions) != len(b.Suggestions) || a.SavedBytes != b.SavedBytes {
		t.Error("same bytes must produce the same report")
	}
}

func TestRunAll_InputOrderAndIsolation(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "def broken(:\n",
		"c.py": "y = 2\n",
	})

	cfg := config.Default()
	cfg.Analysis.Workers = 2
	outcomes := New(cfg).RunAll(context.Background(), paths)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for i, path := range paths {
		if outcomes[i].Path != path {
			t.Errorf("outcome %d out of order: %s", i, outcomes[i].Path)
		}
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("valid files must not be poisoned by a bad sibling")
	}
	if outcomes[1].Err == nil {
		t.Error("the invalid file must report its parse error")
	}
}

func TestRunAll_UnreadableFileCarriesPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.py")
	outcomes := New(config.Default()).RunAll(context.Background(), []string{missing})

	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("expected one failed outcome, got %+v", outcomes)
	}
	if !errors.IsCode(outcomes[0].Err, errors.CodeNotFound) {
		t.Errorf("expected a not-found error, got %v", outcomes[0].Err)
	}
	if !strings.Contains(outcomes[0].Err.Error(), missing) {
		t.Errorf("error should name the file: %v", outcomes[0].Err)
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}
