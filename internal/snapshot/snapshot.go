// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snapshot persists comparison verdicts in SQLite so repeat
// lookups and the refresh pipeline can serve the last known verdict
// without refetching sources.
// Implements: prd105-snapshots (R1-R4);
//
//	docs/ARCHITECTURE § Snapshot Store.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/versusly/compare-engine/pkg/types"
)

// ErrNotFound reports that no stored verdict matches the lookup key
// within the allowed age.
var ErrNotFound = errors.New("snapshot: no verdict found")

// Store manages the verdict snapshot SQLite database.
type Store struct {
	db     *sql.DB
	maxAge time.Duration

	now func() time.Time
}

// Record is one stored verdict with its raw per-source results.
type Record struct {
	Verdict   types.ComparisonVerdict
	Results   []types.SourceResult
	StoredAt  time.Time
	Timeframe types.Timeframe
	Geo       string
}

// Open opens or creates the snapshot database at cfg.DBPath, creating
// parent directories and the schema as needed.
func Open(cfg types.SnapshotConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("snapshot: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	s := &Store{db: db, maxAge: maxAge, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS verdicts (
			key TEXT PRIMARY KEY,
			term_a TEXT NOT NULL,
			term_b TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			geo TEXT NOT NULL,
			verdict TEXT NOT NULL,
			results TEXT NOT NULL,
			stored_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_stored_at ON verdicts(stored_at)`,
		`CREATE TABLE IF NOT EXISTS refresh_meta (
			key TEXT PRIMARY KEY,
			refreshed_at TEXT NOT NULL,
			refresh_type TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Key builds the canonical lookup key for a stored verdict.
func Key(termA, termB string, tf types.Timeframe, geo string) string {
	return termA + "|" + termB + "|" + string(tf) + "|" + geo
}

// Save upserts the verdict for its comparison key. The previous row is
// replaced whole; last writer wins.
func (s *Store) Save(ctx context.Context, tf types.Timeframe, geo string, v *types.ComparisonVerdict, results []types.SourceResult) error {
	verdictJSON, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	key := Key(v.TermA.Term, v.TermB.Term, tf, geo)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verdicts (key, term_a, term_b, timeframe, geo, verdict, results, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			verdict=excluded.verdict, results=excluded.results,
			stored_at=excluded.stored_at`,
		key, v.TermA.Term, v.TermB.Term, string(tf), geo,
		string(verdictJSON), string(resultsJSON),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting verdict: %w", err)
	}
	return nil
}

// Latest returns the stored verdict for the key, or ErrNotFound when
// no row exists or the stored row is older than the store's max age.
func (s *Store) Latest(ctx context.Context, termA, termB string, tf types.Timeframe, geo string) (*Record, error) {
	var (
		verdictJSON, resultsJSON, storedAt string
		rowTf, rowGeo                      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT verdict, results, stored_at, timeframe, geo FROM verdicts WHERE key = ?`,
		Key(termA, termB, tf, geo),
	).Scan(&verdictJSON, &resultsJSON, &storedAt, &rowTf, &rowGeo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying verdict: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, storedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing stored_at: %w", err)
	}
	if s.now().Sub(ts) > s.maxAge {
		return nil, ErrNotFound
	}

	rec := &Record{StoredAt: ts, Timeframe: types.Timeframe(rowTf), Geo: rowGeo}
	if err := json.Unmarshal([]byte(verdictJSON), &rec.Verdict); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return rec, nil
}

// Pair identifies one stored comparison.
type Pair struct {
	TermA, TermB string
	Timeframe    types.Timeframe
	Geo          string
	StoredAt     time.Time
}

// Pairs lists every stored comparison, newest first. Used by the
// refresh-all path to enumerate rebuild targets.
func (s *Store) Pairs(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term_a, term_b, timeframe, geo, stored_at FROM verdicts ORDER BY stored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	defer rows.Close()

	var out []Pair
	for rows.Next() {
		var p Pair
		var tf, storedAt string
		if err := rows.Scan(&p.TermA, &p.TermB, &tf, &p.Geo, &storedAt); err != nil {
			return nil, fmt.Errorf("scanning verdict row: %w", err)
		}
		p.Timeframe = types.Timeframe(tf)
		if p.StoredAt, err = time.Parse(time.RFC3339Nano, storedAt); err != nil {
			return nil, fmt.Errorf("parsing stored_at: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Prune deletes rows older than the store's max age and returns the
// number removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verdicts WHERE stored_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning verdicts: %w", err)
	}
	return res.RowsAffected()
}

// MarkRefreshed records that a refresh of the given type settled for
// the key, for the sources/status surfaces.
func (s *Store) MarkRefreshed(ctx context.Context, key string, rt types.RefreshType) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_meta (key, refreshed_at, refresh_type) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			refreshed_at=excluded.refreshed_at, refresh_type=excluded.refresh_type`,
		key, s.now().UTC().Format(time.RFC3339Nano), string(rt))
	if err != nil {
		return fmt.Errorf("recording refresh: %w", err)
	}
	return nil
}

// LastRefreshed reports when the key last settled a refresh, or the
// zero time when it never has.
func (s *Store) LastRefreshed(ctx context.Context, key string) (time.Time, types.RefreshType, error) {
	var at, rt string
	err := s.db.QueryRowContext(ctx,
		`SELECT refreshed_at, refresh_type FROM refresh_meta WHERE key = ?`, key,
	).Scan(&at, &rt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, "", nil
	}
	if err != nil {
		return time.Time{}, "", fmt.Errorf("querying refresh meta: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parsing refreshed_at: %w", err)
	}
	return ts, types.RefreshType(rt), nil
}
