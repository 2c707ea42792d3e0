package browser

import (
	"context"
	"sync"

	"github.com/jonathan/autoapply/internal/types"
)

// Session is one acquired browser page, owned by a single application attempt.
type Session struct {
	ID       string
	Platform types.Platform
	Page     Page

	release func() error
	once    sync.Once
	err     error
}

// NewSession wraps page; release runs once when the session is closed.
func NewSession(id string, platform types.Platform, page Page, release func() error) *Session {
	return &Session{ID: id, Platform: platform, Page: page, release: release}
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}

// Provider hands out sessions.
type Provider interface {
	Acquire(ctx context.Context, platform types.Platform) (*Session, error)
	Close() error
}
