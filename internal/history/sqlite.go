package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathan/autoapply/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS applications (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	job_key         TEXT NOT NULL,
	job_url         TEXT NOT NULL,
	platform        TEXT NOT NULL,
	status          TEXT NOT NULL,
	success         INTEGER NOT NULL DEFAULT 0,
	confirmation_id TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	fields_filled   INTEGER NOT NULL DEFAULT 0,
	total_fields    INTEGER NOT NULL DEFAULT 0,
	session_id      TEXT NOT NULL DEFAULT '',
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_job_key_idx ON applications (job_key);`

// SQLiteStore keeps history in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// one writer; concurrent batch workers queue on the pool
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Applied(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM applications WHERE job_key = ? AND success = 1`,
		Key(url),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check history for %s: %w", url, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Record(ctx context.Context, result types.ApplicationResult) error {
	e := entryFrom(result, time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (job_key, job_url, platform, status, success, confirmation_id,
		                           error, fields_filled, total_fields, session_id, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Key(e.JobURL), e.JobURL, string(e.Platform), string(e.Status), e.Success, e.ConfirmationID,
		e.Error, e.FieldsFilled, e.TotalFields, e.SessionID, e.Duration.Milliseconds(), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record application for %s: %w", e.JobURL, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_url, platform, status, success, confirmation_id, error,
		        fields_filled, total_fields, session_id, duration_ms, created_at
		 FROM applications ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			platform   string
			status     string
			durationMS int64
			created    int64
		)
		if err := rows.Scan(&e.ID, &e.JobURL, &platform, &status, &e.Success, &e.ConfirmationID, &e.Error,
			&e.FieldsFilled, &e.TotalFields, &e.SessionID, &durationMS, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Platform = types.Platform(platform)
		e.Status = types.Status(status)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
