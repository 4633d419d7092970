// Package store persists analysis reports keyed by request fingerprint.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"newsanalyst/internal/model"
)

// ErrNotFound is returned when no report exists for a fingerprint.
var ErrNotFound = errors.New("report not found")

// Store is the persistence contract consumed by the orchestrator.
type Store interface {
	Put(ctx context.Context, report *model.AnalysisReport) error
	Get(ctx context.Context, fingerprint string) (*model.AnalysisReport, error)
	Close() error
}

// SQLiteStore keeps reports in a single-table sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	fingerprint TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	report      TEXT NOT NULL,
	computed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_url ON reports(url);
`

// Open opens (and migrates) the report database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put upserts a report under its fingerprint. Reports are write-once per
// fingerprint in practice; the upsert keeps re-analysis after TTL expiry
// from failing on the primary key.
func (s *SQLiteStore) Put(ctx context.Context, report *model.AnalysisReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (fingerprint, url, report, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			report = excluded.report,
			computed_at = excluded.computed_at`,
		report.Fingerprint(), report.Article.URL, string(payload), report.ComputedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	return nil
}

// Get loads the report stored under a fingerprint.
func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (*model.AnalysisReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE fingerprint = ?`, fingerprint).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	var report model.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
