// Package handlers drives job applications on specific applicant tracking
// systems and on unrecognized forms.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/fieldmap"
	"github.com/jonathan/autoapply/internal/types"
	"github.com/jonathan/autoapply/internal/verify"
)

// Handler applies to jobs on one platform. Apply never returns an error:
// every outcome, including panics and timeouts, is an ApplicationResult.
type Handler interface {
	Platform() types.Platform
	CanHandle(url string) bool
	Apply(ctx context.Context, url string) types.ApplicationResult
}

// CaptchaSolver is the challenge capability handlers depend on.
type CaptchaSolver interface {
	Present(ctx context.Context, page browser.Page) bool
	Solve(ctx context.Context, page browser.Page, timeout time.Duration) bool
}

// ScreenshotSink stores diagnostic captures.
type ScreenshotSink interface {
	Save(ctx context.Context, name string, data []byte) error
}

// DirSink writes captures into a directory.
type DirSink struct {
	Dir string
}

// Save writes data as name plus an extension sniffed from the content.
func (s DirSink) Save(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	ext := ".bin"
	switch ct := http.DetectContentType(data); {
	case strings.HasPrefix(ct, "image/png"):
		ext = ".png"
	case strings.HasPrefix(ct, "text/html"):
		ext = ".html"
	}
	return os.WriteFile(filepath.Join(s.Dir, name+ext), data, 0o644)
}

// Timing paces the flow.
type Timing struct {
	Settle browser.Delay
	Submit browser.Delay
}

// DefaultTiming waits 2-3s after navigation and clicks and 3-5s after submit.
func DefaultTiming() Timing {
	return Timing{
		Settle: browser.Delay{Min: 2 * time.Second, Max: 3 * time.Second},
		Submit: browser.Delay{Min: 3 * time.Second, Max: 5 * time.Second},
	}
}

// DefaultMaxSteps bounds multi-step forms.
const DefaultMaxSteps = 8

// DefaultCaptchaTimeout bounds one CAPTCHA cascade.
const DefaultCaptchaTimeout = 3 * time.Minute

// Deps are the collaborators every handler shares.
type Deps struct {
	Sessions       browser.Provider
	Profile        *types.UserProfile
	Captcha        CaptchaSolver
	Verifier       *verify.Verifier
	Mapper         fieldmap.Options
	Timing         Timing
	MaxSteps       int
	CaptchaTimeout time.Duration
	Screenshots    ScreenshotSink
	Verbose        bool
}

func (d Deps) withDefaults() Deps {
	if d.Verifier == nil {
		d.Verifier = verify.New(verify.WithVerbose(d.Verbose))
	}
	if d.MaxSteps <= 0 {
		d.MaxSteps = DefaultMaxSteps
	}
	if d.CaptchaTimeout <= 0 {
		d.CaptchaTimeout = DefaultCaptchaTimeout
	}
	return d
}

// Default returns handlers for every supported platform in dispatch order.
func Default(deps Deps) []Handler {
	profiles := Profiles()
	out := make([]Handler, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, NewPlatformHandler(p, deps))
	}
	return out
}

// attempt holds the per-application state shared by the flows.
type attempt struct {
	deps    Deps
	session *browser.Session
	page    browser.Page
	mapper  *fieldmap.Mapper
	result  types.ApplicationResult

	// solvedURL is the page on which a challenge was last solved. Solvers
	// inject a token but leave the widget in place.
	solvedURL string
}

func (a *attempt) finish(status types.Status, msg string) types.ApplicationResult {
	a.result.Status = status
	a.result.Success = false
	if msg != "" {
		a.result.Error = msg
	}
	return a.result
}

// run acquires a session, invokes fn and converts every exit path into a
// result. The session is released on all paths.
func run(ctx context.Context, deps Deps, platform types.Platform, url string, fn func(ctx context.Context, a *attempt) types.ApplicationResult) (result types.ApplicationResult) {
	started := time.Now()
	result = types.ApplicationResult{Platform: platform, JobID: url, JobURL: url}
	defer func() {
		result.Duration = time.Since(started)
	}()

	session, err := deps.Sessions.Acquire(ctx, platform)
	if err != nil {
		result.Status = types.StatusError
		result.Error = "failed to acquire browser session: " + err.Error()
		return result
	}
	result.SessionID = session.ID
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("[HANDLER] Failed to release session %s: %v", session.ID, err)
		}
	}()

	a := &attempt{
		deps:    deps,
		session: session,
		page:    session.Page,
		mapper:  fieldmap.New(session.Page, deps.Profile, deps.Mapper),
		result:  result,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[HANDLER] Recovered panic on %s: %v", url, r)
			result = a.result
			result.Success = false
			result.Status = types.StatusException
			result.Error = fmt.Sprint(r)
		}
	}()

	result = fn(ctx, a)
	if result.Status == "" {
		result.Status = types.StatusError
	}
	return result
}

// failure converts an automation error into a terminal result.
func (a *attempt) failure(ctx context.Context, err error) types.ApplicationResult {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return a.finish(types.StatusTimeout, "application timed out")
		}
		return a.finish(types.StatusError, "application cancelled")
	}
	return a.finish(types.StatusException, err.Error())
}

// clearCaptcha runs the solver when a challenge is visible. It reports
// false when the attempt must stop.
func (a *attempt) clearCaptcha(ctx context.Context, extra []string) (bool, error) {
	if a.captchaSolvedHere(ctx) {
		return true, nil
	}
	present := false
	if a.deps.Captcha != nil {
		present = a.deps.Captcha.Present(ctx, a.page)
	}
	if !present && len(extra) > 0 {
		var err error
		present, err = browser.Exists(ctx, a.page, extra)
		if err != nil {
			return false, err
		}
	}
	if !present {
		return true, nil
	}
	log.Printf("[HANDLER] CAPTCHA detected on %s", a.result.JobURL)
	if a.deps.Captcha == nil {
		return false, nil
	}
	if !a.deps.Captcha.Solve(ctx, a.page, a.deps.CaptchaTimeout) {
		return false, nil
	}
	if u, err := a.page.URL(ctx); err == nil {
		a.solvedURL = u
	}
	return true, nil
}

// captchaSolvedHere reports whether the current page already had its
// challenge solved during this attempt.
func (a *attempt) captchaSolvedHere(ctx context.Context) bool {
	if a.solvedURL == "" {
		return false
	}
	u, err := a.page.URL(ctx)
	return err == nil && u == a.solvedURL
}

// verifySubmit turns the verifier verdict into the terminal result.
func (a *attempt) verifySubmit(ctx context.Context, preSubmitURL string, indicators []string) types.ApplicationResult {
	verdict := a.deps.Verifier.Verify(ctx, a.page, preSubmitURL, indicators...)
	if !verdict.Success {
		return a.finish(types.StatusUnverified, verdict.Error)
	}
	a.result.Success = true
	a.result.Status = types.StatusSubmitted
	a.result.ConfirmationID = verdict.ConfirmationID
	a.result.Error = ""
	return a.result
}

func (a *attempt) screenshot(ctx context.Context, label string) {
	if a.deps.Screenshots == nil {
		return
	}
	data, err := a.page.Screenshot(ctx)
	if err != nil {
		log.Printf("[HANDLER] Screenshot failed: %v", err)
		return
	}
	name := fmt.Sprintf("%s-%s-%s", a.result.Platform, a.session.ID, label)
	if err := a.deps.Screenshots.Save(ctx, name, data); err != nil {
		log.Printf("[HANDLER] Failed to save screenshot %s: %v", name, err)
	}
}
