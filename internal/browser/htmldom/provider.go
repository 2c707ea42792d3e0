package htmldom

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

// Factory builds the page handed to a new session.
type Factory func(platform types.Platform) (*Page, error)

// Provider is a browser.Provider backed by in-memory pages.
type Provider struct {
	factory Factory

	mu       sync.Mutex
	acquired int
	released int
}

// NewProvider creates a provider that builds pages with factory.
func NewProvider(factory Factory) *Provider {
	return &Provider{factory: factory}
}

// StaticProvider always hands out the same page.
func StaticProvider(page *Page) *Provider {
	return NewProvider(func(types.Platform) (*Page, error) { return page, nil })
}

func (p *Provider) Acquire(ctx context.Context, platform types.Platform) (*browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := p.factory(platform)
	if err != nil {
		return nil, fmt.Errorf("failed to build page: %w", err)
	}
	p.mu.Lock()
	p.acquired++
	p.mu.Unlock()

	return browser.NewSession(uuid.NewString(), platform, page, func() error {
		p.mu.Lock()
		p.released++
		p.mu.Unlock()
		return nil
	}), nil
}

func (p *Provider) Close() error {
	return nil
}

// Counts returns how many sessions were acquired and released.
func (p *Provider) Counts() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}
