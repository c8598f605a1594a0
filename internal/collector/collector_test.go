package collector

import (
	"testing"

	"upysize/internal/parser"
)

func collect(t *testing.T, src string) (*parser.Module, *Result) {
	t.Helper()
	mod, err := parser.Parse("test.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	t.Cleanup(mod.Close)
	return mod, Collect(mod)
}

func refsFor(res *Result, chain string) []Reference {
	var out []Reference
	for _, r := range res.Refs {
		if r.Chain() == chain {
			out = append(out, r)
		}
	}
	return out
}

func TestCollect_MaximalChains(t *testing.T) {
	src := `import trezor

def f():
    return trezor.wire.DataError
`
	_, res := collect(t, src)

	refs := refsFor(res, "trezor.wire.DataError")
	if len(refs) != 1 {
		t.Fatalf("expected exactly 1 maximal chain reference, got %d", len(refs))
	}
	if refs[0].Root != "trezor" || len(refs[0].Path) != 2 {
		t.Errorf("unexpected chain shape: root=%s path=%v", refs[0].Root, refs[0].Path)
	}
	// Sub-chains must not be emitted separately.
	if got := refsFor(res, "trezor.wire"); len(got) != 0 {
		t.Errorf("sub-chain trezor.wire should not appear, got %d refs", len(got))
	}
	for _, ref := range refsFor(res, "trezor") {
		if ref.Role != RoleImportTarget {
			t.Errorf("bare root should not appear for a chained use: %+v", ref)
		}
	}
}

func TestCollect_DistinctChainsStayDistinct(t *testing.T) {
	src := `def f(obj):
    x = obj.a.b
    y = obj.a.c
`
	_, res := collect(t, src)

	if len(refsFor(res, "obj.a.b")) != 1 || len(refsFor(res, "obj.a.c")) != 1 {
		t.Error("obj.a.b and obj.a.c must be separate references")
	}
}

func TestCollect_WritesAreNotReads(t *testing.T) {
	src := `def f():
    x = 1
    x = 2
    return x
`
	mod, res := collect(t, src)
	fn := mod.Root.Children[0]

	if got := len(refsFor(res, "x")); got != 1 {
		t.Errorf("only the read of x should be a reference, got %d", got)
	}
	if res.NameWrites[fn]["x"] != 2 {
		t.Errorf("expected 2 writes of x, got %d", res.NameWrites[fn]["x"])
	}
}

func TestCollect_AttributeWrites(t *testing.T) {
	src := `def f(obj):
    obj.a.b = 1
    return obj.a.b.c
`
	mod, res := collect(t, src)
	fn := mod.Root.Children[0]

	if !res.ChainWrittenIn(fn, "obj.a.b") {
		t.Error("obj.a.b is assigned and must be reported written")
	}
	if !res.ChainWrittenIn(fn, "obj.a.b.c") {
		t.Error("a prefix write must poison the longer chain")
	}
	if res.ChainWrittenIn(fn, "obj.a") {
		t.Error("writing obj.a.b must not poison the shorter prefix obj.a")
	}
}

func TestCollect_SubscriptTargetStillReads(t *testing.T) {
	src := `def f(buf, i):
    buf[i] = 0
`
	_, res := collect(t, src)

	if len(refsFor(res, "buf")) != 1 {
		t.Error("subscript assignment should read the container")
	}
	if len(refsFor(res, "i")) != 1 {
		t.Error("subscript assignment should read the index")
	}
}

func TestCollect_KeywordCalls(t *testing.T) {
	src := `def build(a=0, b=0):
    pass

def f():
    build(a=1, b=2)
    build(1, 2)
`
	_, res := collect(t, src)

	if len(res.KeywordCalls) != 1 {
		t.Fatalf("expected 1 keyword call, got %d", len(res.KeywordCalls))
	}
	kc := res.KeywordCalls[0]
	if kc.Callee != "build" || kc.Kwargs != 2 {
		t.Errorf("unexpected keyword call: %+v", kc)
	}
	if res.Calls["build"] != 2 {
		t.Errorf("expected 2 calls of build, got %d", res.Calls["build"])
	}
}

func TestCollect_KeywordKeyIsNotARead(t *testing.T) {
	src := `def f(fn, color):
    fn(color=color)
`
	_, res := collect(t, src)

	if got := len(refsFor(res, "color")); got != 1 {
		t.Errorf("only the keyword value should read color, got %d refs", got)
	}
}

func TestCollect_TypeOnlyRegions(t *testing.T) {
	src := `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from trezor.messages import Success

def f(msg: Success) -> Success:
    return msg
`
	_, res := collect(t, src)

	for _, ref := range refsFor(res, "Success") {
		if !ref.TypeOnly {
			t.Errorf("reference to Success at line %d should be type-only", ref.Line)
		}
	}
}

func TestCollect_Dispatch(t *testing.T) {
	src := `def f(kind):
    if kind == "a":
        out = 1
    elif kind == "b":
        out = 2
    elif kind == "c":
        out = 3
    else:
        out = 0
    return out
`
	_, res := collect(t, src)

	if len(res.Dispatches) != 1 {
		t.Fatalf("expected 1 dispatch chain, got %d", len(res.Dispatches))
	}
	d := res.Dispatches[0]
	if d.Subject != "kind" || d.Target != "out" || d.Branches != 3 {
		t.Errorf("unexpected dispatch: %+v", d)
	}
}

func TestCollect_DispatchRejectsMixedTargets(t *testing.T) {
	src := `def f(kind):
    if kind == "a":
        out = 1
    elif kind == "b":
        other = 2
`
	_, res := collect(t, src)

	if len(res.Dispatches) != 0 {
		t.Error("branches assigning different targets must not form a dispatch chain")
	}
}

func TestCollect_DynamicRootsAreSkipped(t *testing.T) {
	src := `def f(items):
    return items[0].value
`
	_, res := collect(t, src)

	for _, ref := range res.Refs {
		if len(ref.Path) > 0 {
			t.Errorf("subscript-rooted chain should not produce a chain ref: %+v", ref)
		}
	}
	if len(refsFor(res, "items")) != 1 {
		t.Error("the dynamic root expression should still read items")
	}
}

func TestCollect_ImportTargetsAreTagged(t *testing.T) {
	src := "import ujson\n"
	_, res := collect(t, src)

	refs := refsFor(res, "ujson")
	if len(refs) != 1 || refs[0].Role != RoleImportTarget {
		t.Fatalf("import target should be tagged, got %+v", refs)
	}
}
