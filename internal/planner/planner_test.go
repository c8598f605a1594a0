package planner

import (
	"strings"
	"testing"

	"upysize/internal/classifier"
	"upysize/internal/collector"
	"upysize/internal/config"
	"upysize/internal/cost"
	"upysize/internal/errors"
	"upysize/internal/parser"
)

func build(t *testing.T, cfg *config.Config, src string) ([]Suggestion, []classifier.Warning) {
	t.Helper()
	mod, err := parser.Parse("test.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	t.Cleanup(mod.Close)
	cands, _ := classifier.New(cfg).Classify(mod, collector.Collect(mod))
	return New(cost.Default().Apply(cfg.Costs)).Build("test.py", cands)
}

func applyAll(t *testing.T, src string, sugs []Suggestion) string {
	t.Helper()
	plan, err := Merge(sugs)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	out, err := Apply([]byte(src), plan)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return string(out)
}

func TestBuild_RankedBySavings(t *testing.T) {
	src := `import utime
from trezor import wire

def f():
    utime(1)
    utime(2)
    utime(3)
    utime(4)

def g():
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`
	sugs, _ := build(t, config.Default(), src)

	if len(sugs) < 2 {
		t.Fatalf("expected at least 2 suggestions, got %d", len(sugs))
	}
	for i := 1; i < len(sugs); i++ {
		if sugs[i].SavedBytes > sugs[i-1].SavedBytes {
			t.Fatalf("suggestions out of order: %d before %d", sugs[i-1].SavedBytes, sugs[i].SavedBytes)
		}
	}
	if sugs[0].Kind != classifier.PatternAttributeChain {
		t.Errorf("the chain rewrite saves the most and should rank first, got %s", sugs[0].Kind)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	src := `import utime

def f():
    utime(1)
    utime(2)
    utime(3)
    utime(4)
`
	first, _ := build(t, config.Default(), src)
	for range 5 {
		again, _ := build(t, config.Default(), src)
		if len(again) != len(first) {
			t.Fatal("suggestion count changed between runs")
		}
		for i := range first {
			if first[i].Kind != again[i].Kind || first[i].Line != again[i].Line || first[i].SavedBytes != again[i].SavedBytes {
				t.Fatalf("run differs at index %d: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
}

func TestBuild_DropsBelowBreakEven(t *testing.T) {
	src := `import utime

def f():
    utime(1)
    utime(2)
`
	cfg := config.Default()
	cfg.Analysis.MinOccurrences = 2
	sugs, _ := build(t, cfg, src)

	for _, s := range sugs {
		if s.Kind == classifier.PatternRepeatedGlobal {
			t.Errorf("non-positive estimates must be dropped, got %+v", s)
		}
	}
}

func TestBuild_AdvisoriesSurviveZeroEstimate(t *testing.T) {
	src := `class Point:
    def __init__(self, x):
        self.x = x
`
	sugs, _ := build(t, config.Default(), src)

	found := false
	for _, s := range sugs {
		if s.Kind == classifier.PatternDataTuple {
			found = true
			if s.Plan != nil {
				t.Error("advisory suggestions must not carry a plan")
			}
		}
	}
	if !found {
		t.Error("flat advisories must survive a zero estimate")
	}
}

func TestApply_RepeatedGlobalRewrite(t *testing.T) {
	src := `import utime

def loop():
    utime(1)
    utime(2)
    utime(3)
    utime(4)
`
	cfg := config.Default()
	cfg.Analysis.EnabledPatterns = []string{string(classifier.PatternRepeatedGlobal)}
	sugs, _ := build(t, cfg, src)

	out := applyAll(t, src, sugs)
	if !strings.Contains(out, "_utime = utime\n    _utime(1)") {
		t.Fatalf("expected alias line inserted at body start, got:\n%s", out)
	}
	if strings.Count(out, "_utime(") != 4 {
		t.Errorf("all four reads should use the alias, got:\n%s", out)
	}

	// Re-analysis of the rewritten source proposes nothing new: the alias
	// itself is a local.
	again, _ := build(t, cfg, out)
	for _, s := range again {
		if s.Kind == classifier.PatternRepeatedGlobal {
			t.Errorf("rewrite must be idempotent, re-proposed: %+v", s)
		}
	}
}

func TestApply_AttributeChainRewrite(t *testing.T) {
	src := `from trezor import wire

def f():
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`
	cfg := config.Default()
	cfg.Analysis.EnabledPatterns = []string{string(classifier.PatternAttributeChain)}
	sugs, _ := build(t, cfg, src)

	out := applyAll(t, src, sugs)
	if !strings.Contains(out, "DataError = wire.DataError\n") {
		t.Fatalf("expected cache line, got:\n%s", out)
	}
	if !strings.Contains(out, "raise DataError(DataError, DataError, DataError)") {
		t.Fatalf("expected chain uses replaced, got:\n%s", out)
	}
}

func TestApply_LocalImportMove(t *testing.T) {
	src := `from trezor.crypto import sha256

def hash_it(data):
    return sha256(data)
`
	cfg := config.Default()
	cfg.Analysis.EnabledPatterns = []string{string(classifier.PatternLocalImport)}
	sugs, _ := build(t, cfg, src)

	out := applyAll(t, src, sugs)
	if strings.Contains(out, "from trezor.crypto import sha256\n\ndef") {
		t.Fatalf("module-level import should be removed, got:\n%s", out)
	}
	if !strings.Contains(out, "def hash_it(data):\n    from trezor.crypto import sha256\n    return sha256(data)") {
		t.Fatalf("import should land at the function body start, got:\n%s", out)
	}
}

func TestBuild_ConflictDemotesLowerRank(t *testing.T) {
	src := `from trezor import wire

def f():
    wire
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`
	sugs, warnings := build(t, config.Default(), src)

	var chain, global *Suggestion
	for i := range sugs {
		switch sugs[i].Kind {
		case classifier.PatternAttributeChain:
			chain = &sugs[i]
		case classifier.PatternRepeatedGlobal:
			global = &sugs[i]
		}
	}
	if chain == nil || global == nil {
		t.Fatalf("expected both candidates, got %+v", sugs)
	}
	if chain.Plan == nil || !chain.Safe {
		t.Error("the higher-ranked chain rewrite should keep its plan")
	}
	if global.Plan != nil || global.Safe {
		t.Error("the overlapping lower-ranked rewrite must be demoted to advisory")
	}

	found := false
	for _, w := range warnings {
		if w.Kind == classifier.WarnConflictingEdit {
			found = true
		}
	}
	if !found {
		t.Error("expected a conflicting-edit warning")
	}

	// The surviving plans must still merge and apply cleanly.
	out := applyAll(t, src, sugs)
	if !strings.Contains(out, "DataError = wire.DataError") {
		t.Errorf("winner's rewrite should apply, got:\n%s", out)
	}
}

func TestApply_ImportLandsAboveAliasReadingIt(t *testing.T) {
	// The moved import must end up above any cache alias inserted at the
	// same body offset, whichever of the two rewrites ranks higher.
	cases := []struct {
		name       string
		src        string
		importStmt string
		alias      string
	}{
		{
			name: "import outranks alias",
			src: `from trezor.crypto import sha256

def digest(data):
    h = sha256(data)
    h = sha256(h)
    h = sha256(h)
    return sha256(h)
`,
			importStmt: "from trezor.crypto import sha256",
			alias:      "_sha256 = sha256",
		},
		{
			name: "alias outranks import",
			src: `from trezor import wire

def fail(x):
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`,
			importStmt: "from trezor import wire",
			alias:      "DataError = wire.DataError",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sugs, _ := build(t, config.Default(), tc.src)
			out := applyAll(t, tc.src, sugs)

			importIdx := strings.Index(out, tc.importStmt)
			aliasIdx := strings.Index(out, tc.alias)
			if importIdx < 0 || aliasIdx < 0 {
				t.Fatalf("expected both rewrites to apply, got:\n%s", out)
			}
			if aliasIdx < importIdx {
				t.Fatalf("alias reads a name the import binds, so it must come second:\n%s", out)
			}
		})
	}
}

func TestApply_EmptyPlan(t *testing.T) {
	src := "x = 1\n"
	out, err := Apply([]byte(src), &Plan{})
	if err != nil || string(out) != src {
		t.Errorf("empty plan must be a no-op, got %q err %v", out, err)
	}
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	_, err := Apply([]byte("x"), &Plan{Edits: []Edit{{Span: parser.Span{Start: 0, End: 99}, Text: ""}}})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Errorf("expected a validation error for an out-of-range span, got %v", err)
	}
}

func TestMerge_RejectsOverlappingEdits(t *testing.T) {
	overlapping := []Suggestion{
		{Plan: &Plan{Edits: []Edit{{Span: parser.Span{Start: 0, End: 10}, Text: "a"}}}},
		{Plan: &Plan{Edits: []Edit{{Span: parser.Span{Start: 5, End: 15}, Text: "b"}}}},
	}
	_, err := Merge(overlapping)
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Errorf("expected a conflict error for overlapping plans, got %v", err)
	}
}
