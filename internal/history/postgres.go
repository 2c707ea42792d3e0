package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/autoapply/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS applications (
	id              BIGSERIAL PRIMARY KEY,
	job_key         TEXT NOT NULL,
	job_url         TEXT NOT NULL,
	platform        TEXT NOT NULL,
	status          TEXT NOT NULL,
	success         BOOLEAN NOT NULL DEFAULT FALSE,
	confirmation_id TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	fields_filled   INTEGER NOT NULL DEFAULT 0,
	total_fields    INTEGER NOT NULL DEFAULT 0,
	session_id      TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS applications_job_key_idx ON applications (job_key);`

// PostgresStore keeps history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and creates the table.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Applied(ctx context.Context, url string) (bool, error) {
	var applied bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE job_key = $1 AND success)`,
		Key(url),
	).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("failed to check history for %s: %w", url, err)
	}
	return applied, nil
}

func (s *PostgresStore) Record(ctx context.Context, result types.ApplicationResult) error {
	e := entryFrom(result, time.Now())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO applications (job_key, job_url, platform, status, success, confirmation_id,
		                           error, fields_filled, total_fields, session_id, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		Key(e.JobURL), e.JobURL, string(e.Platform), string(e.Status), e.Success, e.ConfirmationID,
		e.Error, e.FieldsFilled, e.TotalFields, e.SessionID, e.Duration.Milliseconds(), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record application for %s: %w", e.JobURL, err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_url, platform, status, success, confirmation_id, error,
		        fields_filled, total_fields, session_id, duration_ms, created_at
		 FROM applications ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e          Entry
			platform   string
			status     string
			durationMS int64
		)
		err := row.Scan(&e.ID, &e.JobURL, &platform, &status, &e.Success, &e.ConfirmationID, &e.Error,
			&e.FieldsFilled, &e.TotalFields, &e.SessionID, &durationMS, &e.CreatedAt)
		e.Platform = types.Platform(platform)
		e.Status = types.Status(status)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return entries, nil
}
