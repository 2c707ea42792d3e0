package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/platform"
	"github.com/jonathan/autoapply/internal/types"
)

// PlatformHandler drives one ATS or job board from its Profile.
type PlatformHandler struct {
	profile Profile
	deps    Deps
}

// NewPlatformHandler creates a handler for profile.
func NewPlatformHandler(profile Profile, deps Deps) *PlatformHandler {
	return &PlatformHandler{profile: profile, deps: deps.withDefaults()}
}

func (h *PlatformHandler) Platform() types.Platform { return h.profile.Platform }

func (h *PlatformHandler) CanHandle(url string) bool {
	return platform.MatchURL(url, h.profile.URLPatterns)
}

// Profile returns the selector table the handler uses.
func (h *PlatformHandler) Profile() Profile { return h.profile }

func (h *PlatformHandler) Apply(ctx context.Context, url string) types.ApplicationResult {
	return run(ctx, h.deps, h.profile.Platform, url, func(ctx context.Context, a *attempt) types.ApplicationResult {
		return h.apply(ctx, a, url)
	})
}

func (h *PlatformHandler) apply(ctx context.Context, a *attempt, url string) types.ApplicationResult {
	prof := h.profile
	if h.deps.Verbose {
		log.Printf("[HANDLER] %s: navigating to %s", prof.Platform, url)
	}
	if err := a.page.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return a.failure(ctx, err)
		}
		return a.finish(types.StatusError, "navigation failed: "+err.Error())
	}
	if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
		return a.failure(ctx, err)
	}

	ok, err := a.clearCaptcha(ctx, prof.Captcha)
	if err != nil {
		return a.failure(ctx, err)
	}
	if !ok {
		return a.finish(types.StatusCaptchaBlocked, "captcha not solved")
	}

	if prof.DelegateMarker != "" && prof.Delegate != nil {
		html, err := a.page.HTML(ctx)
		if err != nil {
			return a.failure(ctx, err)
		}
		if strings.Contains(strings.ToLower(html), prof.DelegateMarker) {
			log.Printf("[HANDLER] %s page embeds %s, delegating", prof.Platform, prof.Delegate.Platform)
			prof = *prof.Delegate
			a.result.Platform = prof.Platform
		}
	}

	if prof.Flow == FlowJobBoard {
		return h.jobBoard(ctx, a, prof)
	}
	return h.openForm(ctx, a, prof)
}

// openForm moves from INITIAL to the first form step.
func (h *PlatformHandler) openForm(ctx context.Context, a *attempt, prof Profile) types.ApplicationResult {
	ready, err := browser.Exists(ctx, a.page, prof.FormReady)
	if err != nil {
		return a.failure(ctx, err)
	}
	if !ready {
		matched, clicked, err := browser.ClickFirst(ctx, a.page, prof.Apply)
		if err != nil {
			return a.failure(ctx, err)
		}
		if !clicked {
			if wall, err := browser.Exists(ctx, a.page, prof.Login); err == nil && wall {
				return a.finish(types.StatusLoginRequired, "login required before applying")
			}
			return a.finish(types.StatusNoApplyButton, "no apply button found")
		}
		if h.deps.Verbose {
			log.Printf("[HANDLER] %s: clicked apply (%s)", prof.Platform, matched)
		}
		if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
			return a.failure(ctx, err)
		}
	}
	return h.steps(ctx, a, prof)
}

// jobBoard resolves a listing into an external hand-off or an in-board form.
func (h *PlatformHandler) jobBoard(ctx context.Context, a *attempt, prof Profile) types.ApplicationResult {
	el, _, found, err := browser.FindFirst(ctx, a.page, prof.ExternalApply)
	if err != nil {
		return a.failure(ctx, err)
	}
	if found {
		href, ok, err := el.Attribute(ctx, "href")
		if err == nil && ok && strings.HasPrefix(href, "http") {
			a.result.RedirectURL = href
			return a.finish(types.StatusRedirect, "")
		}
		before, _ := a.page.URL(ctx)
		if err := el.Click(ctx); err != nil {
			return a.failure(ctx, err)
		}
		if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
			return a.failure(ctx, err)
		}
		after, err := a.page.URL(ctx)
		if err == nil && after != before {
			a.result.RedirectURL = after
			return a.finish(types.StatusRedirect, "")
		}
	}

	el, matched, found, err := browser.FindFirst(ctx, a.page, prof.EasyApply)
	if err != nil {
		return a.failure(ctx, err)
	}
	if found {
		if prof.ManualEasyApply {
			return a.finish(types.StatusManualRequired, "in-board easy apply needs a manual application")
		}
		if err := el.Click(ctx); err != nil {
			return a.failure(ctx, err)
		}
		if h.deps.Verbose {
			log.Printf("[HANDLER] %s: opened easy apply (%s)", prof.Platform, matched)
		}
		if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
			return a.failure(ctx, err)
		}
		return h.steps(ctx, a, prof)
	}

	if wall, err := browser.Exists(ctx, a.page, prof.Login); err == nil && wall {
		return a.finish(types.StatusLoginRequired, "login required before applying")
	}
	return a.finish(types.StatusNoApplyButton, "no apply option found on listing")
}

// steps runs FORM_STEP(n) until a terminal state.
func (h *PlatformHandler) steps(ctx context.Context, a *attempt, prof Profile) types.ApplicationResult {
	var (
		lastURL    string
		sawButton  bool
		guestTried bool
		form       = newFormState()
	)

	for step := 1; ; step++ {
		obs := Observation{Step: step, MaxSteps: h.deps.MaxSteps}
		if step <= h.deps.MaxSteps {
			a.result.Steps = step

			if !guestTried {
				guestTried = true
				clicked, err := h.clickGuest(ctx, a, prof)
				if err != nil {
					return a.failure(ctx, err)
				}
				if clicked {
					continue
				}
			}

			var err error
			if obs.Captcha, err = a.captchaVisible(ctx, prof.Captcha); err != nil {
				return a.failure(ctx, err)
			}
			if obs.Login, err = browser.Exists(ctx, a.page, prof.Login); err != nil {
				return a.failure(ctx, err)
			}
			if obs.Success, err = browser.Exists(ctx, a.page, prof.Success); err != nil {
				return a.failure(ctx, err)
			}
		}

		switch action := DecideGuards(obs); action {
		case ActionExhausted:
			if !sawButton {
				return a.finish(types.StatusNoSubmitButton, "no submit, review or next button found")
			}
			return a.finish(types.StatusMaxStepsExceeded, "exceeded "+strconv.Itoa(h.deps.MaxSteps)+" form steps")
		case ActionSolveCaptcha:
			ok, err := a.clearCaptcha(ctx, prof.Captcha)
			if err != nil {
				return a.failure(ctx, err)
			}
			if !ok {
				return a.finish(types.StatusCaptchaBlocked, "captcha not solved")
			}
			continue
		case ActionLoginRequired:
			return a.finish(types.StatusLoginRequired, "login wall reached during application")
		case ActionVerify:
			if !sawButton {
				return a.finish(types.StatusError, "confirmation shown before anything was submitted")
			}
			return a.verifySubmit(ctx, lastURL, prof.Success)
		}

		if err := a.fillStep(ctx, form); err != nil {
			return a.failure(ctx, err)
		}

		var err error
		if obs.Submit, err = browser.Exists(ctx, a.page, prof.Submit); err != nil {
			return a.failure(ctx, err)
		}
		if obs.Review, err = browser.Exists(ctx, a.page, prof.Review); err != nil {
			return a.failure(ctx, err)
		}
		if obs.Next, err = browser.Exists(ctx, a.page, prof.Next); err != nil {
			return a.failure(ctx, err)
		}

		action := Decide(obs)
		if h.deps.Verbose {
			log.Printf("[HANDLER] %s step %d: %s", prof.Platform, step, action)
		}
		switch action {
		case ActionSubmit:
			sawButton = true
			preSubmitURL, err := a.page.URL(ctx)
			if err != nil {
				return a.failure(ctx, err)
			}
			if _, _, err := browser.ClickFirst(ctx, a.page, prof.Submit); err != nil {
				return a.failure(ctx, err)
			}
			if err := h.deps.Timing.Submit.Wait(ctx); err != nil {
				return a.failure(ctx, err)
			}
			return a.verifySubmit(ctx, preSubmitURL, prof.Success)

		case ActionReview, ActionNext:
			sawButton = true
			buttons := prof.Next
			if action == ActionReview {
				buttons = prof.Review
			}
			if lastURL, err = a.page.URL(ctx); err != nil {
				return a.failure(ctx, err)
			}
			if _, _, err := browser.ClickFirst(ctx, a.page, buttons); err != nil {
				return a.failure(ctx, err)
			}
			if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
				return a.failure(ctx, err)
			}

		case ActionStuck:
			log.Printf("[HANDLER] %s step %d: no navigation button found", prof.Platform, step)
			a.screenshot(ctx, "step"+strconv.Itoa(step))
			if err := h.deps.Timing.Settle.Wait(ctx); err != nil {
				return a.failure(ctx, err)
			}
		}
	}
}

func (h *PlatformHandler) clickGuest(ctx context.Context, a *attempt, prof Profile) (bool, error) {
	if len(prof.Guest) == 0 {
		return false, nil
	}
	matched, clicked, err := browser.ClickFirst(ctx, a.page, prof.Guest)
	if err != nil || !clicked {
		return false, err
	}
	log.Printf("[HANDLER] %s: continuing as guest (%s)", prof.Platform, matched)
	return true, h.deps.Timing.Settle.Wait(ctx)
}

func (a *attempt) captchaVisible(ctx context.Context, extra []string) (bool, error) {
	if a.captchaSolvedHere(ctx) {
		return false, nil
	}
	if a.deps.Captcha != nil && a.deps.Captcha.Present(ctx, a.page) {
		return true, nil
	}
	return browser.Exists(ctx, a.page, extra)
}
