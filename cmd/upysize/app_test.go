// # cmd/upysize/app_test.go
package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upysize/internal/config"
)

const fixtureSource = `from trezor import wire

def handle():
    raise wire.DataError(wire.DataError, wire.DataError, wire.DataError)
`

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestApp_ScanAndOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "boot.py"), []byte(fixtureSource), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "skipme.txt"), []byte("not python"), 0644))

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Cache.Path = filepath.Join(tmpDir, "cache.db")
	cfg.Output = config.Output{
		Markdown: filepath.Join(tmpDir, "report.md"),
		SARIF:    filepath.Join(tmpDir, "report.sarif"),
		TSV:      filepath.Join(tmpDir, "report.tsv"),
	}

	app := newTestApp(t, cfg)

	outcomes, err := app.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1, "only python sources are analyzed")
	require.NoError(t, outcomes[0].Err)
	assert.NotEmpty(t, outcomes[0].Report.Suggestions)
	assert.Equal(t, 0, app.ExitCode(outcomes))

	require.NoError(t, app.GenerateOutputs(outcomes))
	for _, path := range []string{cfg.Output.Markdown, cfg.Output.SARIF, cfg.Output.TSV} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "report %s was not generated", path)
	}

	md, err := os.ReadFile(cfg.Output.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "wire.DataError")
}

func TestApp_CacheHitOnSecondScan(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "boot.py")
	require.NoError(t, os.WriteFile(src, []byte(fixtureSource), 0644))

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Cache.Path = filepath.Join(tmpDir, "cache.db")

	app := newTestApp(t, cfg)

	first, err := app.Scan(context.Background())
	require.NoError(t, err)
	second, err := app.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].Report.Hash, second[0].Report.Hash)
	assert.Equal(t, len(first[0].Report.Suggestions), len(second[0].Report.Suggestions))
}

func TestApp_ApplyFixes(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "boot.py")
	require.NoError(t, os.WriteFile(src, []byte(fixtureSource), 0644))

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Cache.Path = ""

	app := newTestApp(t, cfg)

	outcomes, err := app.Scan(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.ApplyFixes(context.Background(), outcomes))

	rewritten, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), "DataError = wire.DataError")

	// The rewritten file must still analyze cleanly and not re-propose
	// the applied rewrites.
	again, err := app.Scan(context.Background())
	require.NoError(t, err)
	require.NoError(t, again[0].Err)
	for _, s := range again[0].Report.Suggestions {
		assert.Nil(t, s.Plan, "no safe rewrites should remain after fixing: %+v", s)
	}
}

func TestApp_ExitCodeOnParseFailure(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "bad.py"), []byte("def broken(:\n"), 0644))

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Cache.Path = ""

	app := newTestApp(t, cfg)

	outcomes, err := app.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, 1, app.ExitCode(outcomes))
}

func TestApp_DiscoverHonorsExcludes(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "__pycache__"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "__pycache__", "boot.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test_boot.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "boot.py"), []byte("x = 1\n"), 0644))

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Cache.Path = ""

	app := newTestApp(t, cfg)

	files, err := app.discover()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(tmpDir, "boot.py"), files[0])
}
