package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
)

// Solver exchanges a challenge for a response token.
type Solver interface {
	Name() string
	Solve(ctx context.Context, ch Challenge) (string, error)
}

// SolverStrategy adapts a remote Solver to the cascade: detect, solve,
// then inject the token into the page.
type SolverStrategy struct {
	solver Solver
}

// NewSolverStrategy wraps solver as a cascade stage.
func NewSolverStrategy(solver Solver) *SolverStrategy {
	return &SolverStrategy{solver: solver}
}

func (s *SolverStrategy) Name() string { return s.solver.Name() }

func (s *SolverStrategy) Attempt(ctx context.Context, page browser.Page, timeout time.Duration) (Outcome, error) {
	ch, err := Detect(ctx, page)
	if errors.Is(err, ErrNoCaptcha) {
		return Skipped, nil
	}
	if err != nil {
		return Unsolved, err
	}

	solveCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	token, err := s.solver.Solve(solveCtx, ch)
	if err != nil {
		return Unsolved, err
	}
	if err := Inject(ctx, page, ch, token); err != nil {
		return Unsolved, err
	}
	return Solved, nil
}

var responseFields = map[Kind][]string{
	KindRecaptchaV2: {`#g-recaptcha-response`, `textarea[name="g-recaptcha-response"]`},
	KindRecaptchaV3: {`#g-recaptcha-response`, `textarea[name="g-recaptcha-response"]`},
	KindHCaptcha:    {`textarea[name="h-captcha-response"]`, `textarea[name="g-recaptcha-response"]`},
}

const injectScript = `(function(token) {
  var n = 0;
  document.querySelectorAll('#g-recaptcha-response, textarea[name="g-recaptcha-response"], textarea[name="h-captcha-response"]').forEach(function(el) {
    el.value = token;
    el.innerHTML = token;
    n++;
  });
  var holder = document.querySelector('[data-callback]');
  var cb = holder && holder.getAttribute('data-callback');
  if (cb && typeof window[cb] === 'function') {
    try { window[cb](token); } catch (e) {}
  }
  return n;
})(%s)`

// Inject writes token into the page's response fields and fires the
// widget callback when the page can run script. Response fields are
// normally hidden, so they are filled without a visibility check.
func Inject(ctx context.Context, page browser.Page, ch Challenge, token string) error {
	if ev, ok := page.(browser.Evaluator); ok {
		quoted, err := json.Marshal(token)
		if err != nil {
			return err
		}
		var filled int
		if err := ev.Evaluate(ctx, fmt.Sprintf(injectScript, quoted), &filled); err != nil {
			return &browser.Error{Op: "inject", Message: "token injection failed", Cause: err}
		}
		if filled == 0 {
			return &browser.Error{Op: "inject", Message: "no response field on page"}
		}
		return nil
	}

	filled := 0
	for _, sel := range responseFields[ch.Kind] {
		elements, err := page.Query(ctx, sel)
		if err != nil {
			return err
		}
		for _, el := range elements {
			if err := el.Fill(ctx, token); err != nil {
				if errors.Is(err, browser.ErrDetached) {
					continue
				}
				return &browser.Error{Op: "inject", Selector: sel, Message: "token injection failed", Cause: err}
			}
			filled++
		}
	}
	if filled == 0 {
		return &browser.Error{Op: "inject", Message: "no response field on page"}
	}
	return nil
}
