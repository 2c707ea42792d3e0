package captcha

import (
	"context"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
)

// Passive waits for the hosting browser environment to clear the challenge
// on its own, polling for the markers to disappear.
type Passive struct {
	Interval time.Duration
}

// NewPassive creates a passive wait strategy polling at interval.
func NewPassive(interval time.Duration) *Passive {
	return &Passive{Interval: interval}
}

func (p *Passive) Name() string { return "passive" }

func (p *Passive) Attempt(ctx context.Context, page browser.Page, timeout time.Duration) (Outcome, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		present, err := Present(ctx, page)
		if err != nil {
			return Unsolved, err
		}
		if !present {
			return Solved, nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return Unsolved, nil
		}
		select {
		case <-ctx.Done():
			return Unsolved, ctx.Err()
		case <-ticker.C:
		}
	}
}
