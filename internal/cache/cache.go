// Package cache persists per-file analysis results keyed by content hash,
// so unchanged files skip re-analysis across runs and watch iterations.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"upysize/internal/engine"
	"upysize/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS file_results (
	path       TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	report     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

type Store struct {
	db    *sql.DB
	runID string
}

// Open creates or opens the cache database and starts a new run. The
// busy timeout covers concurrent watch-mode writers on the same cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open cache database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "create cache schema")
	}

	s := &Store{db: db, runID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, s.runID, time.Now().UTC()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "record cache run")
	}
	return s, nil
}

// Get returns the cached report for path when the stored hash matches the
// current content hash. A decode failure is treated as a miss: the entry
// gets overwritten on the next Put.
func (s *Store) Get(path string, hash uint64) (*engine.FileReport, bool) {
	var storedHash string
	var raw []byte
	err := s.db.QueryRow(
		`SELECT hash, report FROM file_results WHERE path = ?`, path,
	).Scan(&storedHash, &raw)
	if err != nil {
		return nil, false
	}
	if storedHash != hashKey(hash) {
		return nil, false
	}
	var report engine.FileReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// Put upserts one file's report under the current run.
func (s *Store) Put(report *engine.FileReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode cached report")
	}
	_, err = s.db.Exec(`
		INSERT INTO file_results (path, hash, run_id, report, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			run_id = excluded.run_id,
			report = excluded.report,
			updated_at = excluded.updated_at`,
		report.Path, hashKey(report.Hash), s.runID, raw, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "store cached report")
	}
	return nil
}

// Forget drops one path, used when a watched file is deleted.
func (s *Store) Forget(path string) error {
	_, err := s.db.Exec(`DELETE FROM file_results WHERE path = ?`, path)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "evict cached report")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// hashKey renders the content hash as fixed-width hex; sqlite INTEGER
// cannot hold the full uint64 range.
func hashKey(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
