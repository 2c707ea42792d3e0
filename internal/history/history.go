// Package history records application attempts so the same job is not
// applied to twice.
package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/autoapply/internal/types"
)

// Entry is one recorded application attempt.
type Entry struct {
	ID             int64          `json:"id"`
	JobURL         string         `json:"job_url"`
	Platform       types.Platform `json:"platform"`
	Status         types.Status   `json:"status"`
	Success        bool           `json:"success"`
	ConfirmationID string         `json:"confirmation_id,omitempty"`
	Error          string         `json:"error,omitempty"`
	FieldsFilled   int            `json:"fields_filled"`
	TotalFields    int            `json:"total_fields"`
	SessionID      string         `json:"session_id,omitempty"`
	Duration       time.Duration  `json:"duration_ns"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store persists entries.
type Store interface {
	// Applied reports whether a verified submission to url was recorded.
	Applied(ctx context.Context, url string) (bool, error)
	Record(ctx context.Context, result types.ApplicationResult) error
	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open connects to the store named by dsn: postgres:// or postgresql:// URLs
// use PostgreSQL, sqlite:// URLs and bare file paths use SQLite.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, fmt.Errorf("history DSN is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := ConnectPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "sqlite://"):
		return nil, fmt.Errorf("unsupported history DSN scheme: %s", dsn)
	}
	s, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

var trackingParams = map[string]bool{
	"ref": true, "source": true, "src": true, "gh_src": true, "lever-source": true,
	"trk": true, "trackingid": true, "refid": true,
}

// Key normalizes a job URL for duplicate detection: scheme and host are
// lowercased, the fragment, tracking parameters and any trailing slash are
// dropped, and the remaining query is sorted.
func Key(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func entryFrom(result types.ApplicationResult, at time.Time) Entry {
	return Entry{
		JobURL:         result.JobURL,
		Platform:       result.Platform,
		Status:         result.Status,
		Success:        result.Success,
		ConfirmationID: result.ConfirmationID,
		Error:          result.Error,
		FieldsFilled:   result.FieldsFilled,
		TotalFields:    result.TotalFields,
		SessionID:      result.SessionID,
		Duration:       result.Duration,
		CreatedAt:      at.UTC(),
	}
}
