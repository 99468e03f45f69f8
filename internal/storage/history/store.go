// Package history keeps a local record of seeding runs in its own SQLite
// file. The target database only ever receives station and train rows.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"railseed/internal/seed"
)

// ErrNotFound is returned when no run matches the requested id.
var ErrNotFound = errors.New("run not found")

// Store persists run reports.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the history file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite has a single writer.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Close closes the history file.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS seed_runs (
			run_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			stations_json TEXT NOT NULL DEFAULT '{}',
			trains_json TEXT NOT NULL DEFAULT '{}',
			error TEXT NOT NULL DEFAULT '',
			rolled_back INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seed_runs_started ON seed_runs(started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a finished run. Recording the same run twice keeps the
// latest copy.
func (s *Store) Record(ctx context.Context, r *seed.Report) error {
	stations, err := json.Marshal(r.Stations)
	if err != nil {
		return err
	}
	trains, err := json.Marshal(r.Trains)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO seed_runs
		 (run_id, status, started_at, duration_ns, stations_json, trains_json, error, rolled_back)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Status, r.StartedAt.UnixNano(), int64(r.Duration),
		string(stations), string(trains), r.Error, r.RolledBack,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

const selectRuns = `SELECT run_id, status, started_at, duration_ns, stations_json, trains_json, error, rolled_back
	FROM seed_runs`

// List returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*seed.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx,
		selectRuns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*seed.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, runID string) (*seed.Report, error) {
	r, err := scanReport(s.conn.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return r, err
}

// Latest returns the most recent run, or ErrNotFound when there is none.
func (s *Store) Latest(ctx context.Context) (*seed.Report, error) {
	reports, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*seed.Report, error) {
	var (
		r                seed.Report
		startedAt, dur   int64
		stations, trains string
	)
	if err := row.Scan(&r.RunID, &r.Status, &startedAt, &dur, &stations, &trains, &r.Error, &r.RolledBack); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, startedAt)
	r.Duration = time.Duration(dur)
	if err := json.Unmarshal([]byte(stations), &r.Stations); err != nil {
		return nil, fmt.Errorf("decode stations report: %w", err)
	}
	if err := json.Unmarshal([]byte(trains), &r.Trains); err != nil {
		return nil, fmt.Errorf("decode trains report: %w", err)
	}
	return &r, nil
}
