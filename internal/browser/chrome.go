package browser

import (
	"context"
	"log"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jonathan/autoapply/internal/types"
)

// ChromeOptions configures the headless Chrome provider.
type ChromeOptions struct {
	Headless       bool
	RemoteURL      string // DevTools websocket of an already running browser
	UserAgent      string
	AcceptLanguage string // locale ATS pages render in; confirmation phrases are English
	WindowWidth    int
	WindowHeight   int
	RateLimit      rate.Limit // session launches per second
	Burst          int
	Verbose        bool
}

// DefaultAcceptLanguage is sent when ChromeOptions.AcceptLanguage is empty.
const DefaultAcceptLanguage = "en-US,en;q=0.9"

// ChromeProvider launches one browser context per session.
type ChromeProvider struct {
	opts    ChromeOptions
	limiter *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewChromeProvider creates a provider. Chrome is not started until Acquire.
func NewChromeProvider(opts ChromeOptions) *ChromeProvider {
	limit := opts.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &ChromeProvider{
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		sessions: make(map[string]*Session),
	}
}

// Acquire starts a browser tab for platform.
func (p *ChromeProvider) Acquire(ctx context.Context, platform types.Platform) (*Session, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &Error{Op: "acquire", Message: "rate limiter wait aborted", Cause: err}
	}

	allocCtx, allocCancel := p.allocator()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	lang := p.opts.AcceptLanguage
	if lang == "" {
		lang = DefaultAcceptLanguage
	}

	// The first Run launches the browser.
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}),
	); err != nil {
		tabCancel()
		allocCancel()
		return nil, &Error{Op: "acquire", Message: "failed to start browser", Cause: err}
	}

	id := uuid.NewString()
	page := &chromePage{ctx: tabCtx}
	session := NewSession(id, platform, page, func() error {
		tabCancel()
		allocCancel()
		p.forget(id)
		if p.opts.Verbose {
			log.Printf("[BROWSER] Released session %s", id)
		}
		return nil
	})

	p.mu.Lock()
	p.sessions[id] = session
	p.mu.Unlock()

	if p.opts.Verbose {
		log.Printf("[BROWSER] Acquired session %s for %s", id, platform)
	}
	return session, nil
}

// Active returns the number of sessions not yet closed.
func (p *ChromeProvider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Close releases every open session.
func (p *ChromeProvider) Close() error {
	p.mu.Lock()
	open := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		open = append(open, s)
	}
	p.mu.Unlock()

	for _, s := range open {
		_ = s.Close()
	}
	return nil
}

func (p *ChromeProvider) forget(id string) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
}

func (p *ChromeProvider) allocator() (context.Context, context.CancelFunc) {
	if p.opts.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), p.opts.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if p.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.opts.UserAgent))
	}
	if p.opts.WindowWidth > 0 && p.opts.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(p.opts.WindowWidth, p.opts.WindowHeight))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}
