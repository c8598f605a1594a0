package cache

import (
	"path/filepath"
	"testing"

	"upysize/internal/engine"
	"upysize/internal/planner"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := openStore(t)

	report := &engine.FileReport{
		Path: "boot.py",
		Hash: 42,
		Suggestions: []planner.Suggestion{{
			File:       "boot.py",
			Line:       3,
			Kind:       "repeated-global-access",
			Symbol:     "utime",
			SavedBytes: 4,
			Safe:       true,
		}},
		SavedBytes: 4,
	}
	if err := s.Put(report); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := s.Get("boot.py", 42)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.SavedBytes != 4 || len(got.Suggestions) != 1 {
		t.Errorf("cached report mangled: %+v", got)
	}
	if got.Suggestions[0].Symbol != "utime" {
		t.Errorf("suggestion mangled: %+v", got.Suggestions[0])
	}
}

func TestGet_HashMismatchIsMiss(t *testing.T) {
	s := openStore(t)

	if err := s.Put(&engine.FileReport{Path: "boot.py", Hash: 1}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("boot.py", 2); ok {
		t.Error("a changed hash must miss")
	}
}

func TestGet_UnknownPathIsMiss(t *testing.T) {
	s := openStore(t)
	if _, ok := s.Get("never-seen.py", 1); ok {
		t.Error("an unknown path must miss")
	}
}

func TestPut_Upserts(t *testing.T) {
	s := openStore(t)

	if err := s.Put(&engine.FileReport{Path: "boot.py", Hash: 1, SavedBytes: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(&engine.FileReport{Path: "boot.py", Hash: 2, SavedBytes: 9}); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get("boot.py", 2)
	if !ok || got.SavedBytes != 9 {
		t.Errorf("expected the newer entry, got %+v ok=%t", got, ok)
	}
	if _, ok := s.Get("boot.py", 1); ok {
		t.Error("the older hash must no longer hit")
	}
}

func TestForget(t *testing.T) {
	s := openStore(t)

	if err := s.Put(&engine.FileReport{Path: "gone.py", Hash: 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.Forget("gone.py"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("gone.py", 7); ok {
		t.Error("forgotten paths must miss")
	}
}
