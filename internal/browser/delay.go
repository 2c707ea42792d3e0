package browser

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay is a randomized pause range used to pace interactions.
// The zero value does not wait.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Duration picks a value in [Min, Max].
func (d Delay) Duration() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)+1))
}

// Wait sleeps for a random duration in range, returning early on cancellation.
func (d Delay) Wait(ctx context.Context) error {
	dur := d.Duration()
	if dur <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
