// Package router dispatches job URLs to the handler for their platform and
// runs batches of applications with bounded concurrency.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/autoapply/internal/handlers"
	"github.com/jonathan/autoapply/internal/platform"
	"github.com/jonathan/autoapply/internal/types"
)

// Defaults for a Router.
const (
	DefaultTimeout      = 5 * time.Minute
	DefaultConcurrency  = 5
	DefaultMaxRedirects = 1
)

// History remembers past applications so a job is not applied to twice.
type History interface {
	Applied(ctx context.Context, url string) (bool, error)
	Record(ctx context.Context, result types.ApplicationResult) error
}

// Stats counts finished applications.
type Stats struct {
	types.BatchReport
	Active int `json:"active"`
}

// Router owns the ordered handler list.
type Router struct {
	handlers     []handlers.Handler
	generic      handlers.Handler
	classifier   *platform.Classifier
	history      History
	closers      []io.Closer
	timeout      time.Duration
	concurrency  int
	maxRedirects int
	verbose      bool

	mu    sync.Mutex
	stats Stats
}

// Option configures a Router.
type Option func(*Router)

// WithClassifier replaces the platform classifier built from the handlers.
func WithClassifier(c *platform.Classifier) Option {
	return func(r *Router) { r.classifier = c }
}

// WithHistory enables duplicate detection and result recording.
func WithHistory(h History) Option {
	return func(r *Router) { r.history = h }
}

// WithTimeout bounds each application. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// WithConcurrency sets the default batch concurrency.
func WithConcurrency(n int) Option {
	return func(r *Router) { r.concurrency = n }
}

// WithMaxRedirects sets how many redirect hops Apply follows.
func WithMaxRedirects(n int) Option {
	return func(r *Router) { r.maxRedirects = n }
}

// WithCloser registers a resource released by Cleanup, typically the
// session provider shared by the handlers.
func WithCloser(c io.Closer) Option {
	return func(r *Router) { r.closers = append(r.closers, c) }
}

// WithVerbose enables logging.
func WithVerbose(v bool) Option {
	return func(r *Router) { r.verbose = v }
}

// New creates a Router. Handlers are consulted in order; generic takes every
// URL none of them claims.
func New(hs []handlers.Handler, generic handlers.Handler, opts ...Option) *Router {
	r := &Router{
		handlers:     hs,
		generic:      generic,
		timeout:      DefaultTimeout,
		concurrency:  DefaultConcurrency,
		maxRedirects: DefaultMaxRedirects,
		stats:        newStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.classifier == nil {
		matchers := make([]platform.Matcher, 0, len(hs))
		for _, h := range hs {
			matchers = append(matchers, h)
		}
		r.classifier = platform.New(matchers, platform.WithVerbose(r.verbose))
	}
	return r
}

func newStats() Stats {
	return Stats{BatchReport: types.BatchReport{
		ByStatus:   make(map[types.Status]int),
		ByPlatform: make(map[types.Platform]int),
	}}
}

// DetectPlatform classifies url without applying.
func (r *Router) DetectPlatform(ctx context.Context, url string) types.Platform {
	return r.classifier.Detect(ctx, url)
}

// Handler returns the handler Apply would use for url.
func (r *Router) Handler(ctx context.Context, url string) handlers.Handler {
	for _, h := range r.handlers {
		if h.CanHandle(url) {
			return h
		}
	}
	if p := r.classifier.Detect(ctx, url); p != types.PlatformUnknown {
		for _, h := range r.handlers {
			if h.Platform() == p {
				return h
			}
		}
	}
	return r.generic
}

// Apply applies to one job. Redirects to another URL are followed up to
// the configured number of hops; stats count the job once, by its final
// result.
func (r *Router) Apply(ctx context.Context, url string) types.ApplicationResult {
	result := r.apply(ctx, url, 0)
	r.count(result)
	return result
}

func (r *Router) apply(ctx context.Context, url string, hop int) types.ApplicationResult {
	if r.history != nil {
		applied, err := r.history.Applied(ctx, url)
		if err != nil {
			log.Printf("[ROUTER] History lookup failed for %s: %v", url, err)
		} else if applied {
			result := types.ApplicationResult{
				Platform: r.DetectPlatform(ctx, url),
				JobID:    url,
				JobURL:   url,
				Status:   types.StatusDuplicate,
				Error:    "already applied",
			}
			return result
		}
	}

	h := r.Handler(ctx, url)
	if r.verbose {
		log.Printf("[ROUTER] %s -> %s", url, h.Platform())
	}
	result := r.run(ctx, h, url)
	if r.history != nil {
		if err := r.history.Record(ctx, result); err != nil {
			log.Printf("[ROUTER] Failed to record result for %s: %v", url, err)
		}
	}

	if result.Status == types.StatusRedirect && result.RedirectURL != "" &&
		result.RedirectURL != url && hop < r.maxRedirects && ctx.Err() == nil {
		log.Printf("[ROUTER] Following redirect %s -> %s", url, result.RedirectURL)
		return r.apply(ctx, result.RedirectURL, hop+1)
	}
	return result
}

// run bounds one handler invocation. On timeout the handler keeps the
// cancelled context and releases its session on its own way out.
func (r *Router) run(ctx context.Context, h handlers.Handler, url string) types.ApplicationResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.active(1)
	done := make(chan types.ApplicationResult, 1)
	go func() {
		var result types.ApplicationResult
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[ROUTER] Handler %s panicked on %s: %v", h.Platform(), url, rec)
				result = failed(h.Platform(), url, types.StatusException, fmt.Sprint(rec))
			}
			r.active(-1)
			done <- result
		}()
		result = h.Apply(ctx, url)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		select {
		case result := <-done:
			return result
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("[ROUTER] Application to %s timed out", url)
			return failed(h.Platform(), url, types.StatusTimeout, "application timed out")
		}
		return failed(h.Platform(), url, types.StatusError, "application cancelled")
	}
}

func failed(p types.Platform, url string, status types.Status, msg string) types.ApplicationResult {
	return types.ApplicationResult{Platform: p, JobID: url, JobURL: url, Status: status, Error: msg}
}

// ApplyBatch applies to every URL with at most concurrency applications in
// flight. results[i] belongs to urls[i]; one job's failure never aborts the
// others. Jobs not started before ctx is done are reported as cancelled.
func (r *Router) ApplyBatch(ctx context.Context, urls []string, concurrency int) []types.ApplicationResult {
	if concurrency <= 0 {
		concurrency = r.concurrency
	}
	results := make([]types.ApplicationResult, len(urls))
	started := make([]bool, len(urls))

	sem := semaphore.NewWeighted(int64(concurrency))
	g, gCtx := errgroup.WithContext(ctx)
	for i, url := range urls {
		if gCtx.Err() != nil {
			break
		}
		if err := sem.Acquire(gCtx, 1); err != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("[ROUTER] Batch item %d (%s) panicked: %v", i, url, rec)
					results[i] = failed(types.PlatformUnknown, url, types.StatusException, fmt.Sprint(rec))
					r.count(results[i])
				}
			}()
			results[i] = r.Apply(gCtx, url)
			return nil
		})
	}
	_ = g.Wait()

	for i, url := range urls {
		if !started[i] {
			results[i] = failed(types.PlatformUnknown, url, types.StatusError, "batch cancelled before start")
			r.count(results[i])
		}
	}
	if r.verbose {
		report := types.Summarize(results)
		log.Printf("[ROUTER] Batch finished: %d/%d submitted", report.Succeeded, report.Total)
	}
	return results
}

func (r *Router) count(result types.ApplicationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Total++
	if result.Success {
		r.stats.Succeeded++
	}
	r.stats.ByStatus[result.Status]++
	r.stats.ByPlatform[result.Platform]++
}

func (r *Router) active(delta int) {
	r.mu.Lock()
	r.stats.Active += delta
	r.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stats
	out.ByStatus = make(map[types.Status]int, len(r.stats.ByStatus))
	for k, v := range r.stats.ByStatus {
		out.ByStatus[k] = v
	}
	out.ByPlatform = make(map[types.Platform]int, len(r.stats.ByPlatform))
	for k, v := range r.stats.ByPlatform {
		out.ByPlatform[k] = v
	}
	return out
}

// Cleanup releases every registered resource.
func (r *Router) Cleanup() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
