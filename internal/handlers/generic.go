package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

// Safety gate thresholds for unrecognized forms.
const (
	ConfidentAbove    = 0.7
	MinConfidentRatio = 0.7
)

// GenericSubmit locates a submit control on an unrecognized form.
var GenericSubmit = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button:has-text("Submit")`,
	`button:has-text("Apply")`,
	`input[value="Submit"]`,
	`input[value="Apply"]`,
}

// GenericHandler fills any form it is given, but only when the mapper is
// confident about the fields that matter.
type GenericHandler struct {
	deps Deps
}

// NewGeneric creates the fallback handler.
func NewGeneric(deps Deps) *GenericHandler {
	return &GenericHandler{deps: deps.withDefaults()}
}

func (g *GenericHandler) Platform() types.Platform { return types.PlatformUnknown }

func (g *GenericHandler) CanHandle(string) bool { return true }

func (g *GenericHandler) Apply(ctx context.Context, url string) types.ApplicationResult {
	return run(ctx, g.deps, types.PlatformUnknown, url, func(ctx context.Context, a *attempt) types.ApplicationResult {
		return g.apply(ctx, a, url)
	})
}

// SafetyGate reports whether enough required fields are confidently mapped
// to risk a submission. Forms without required fields pass.
func SafetyGate(mappings []types.FieldMapping) (ok bool, confident, required int) {
	for _, m := range mappings {
		if !m.Required {
			continue
		}
		required++
		if m.Confidence > ConfidentAbove {
			confident++
		}
	}
	if required == 0 {
		return true, 0, 0
	}
	return float64(confident)/float64(required) >= MinConfidentRatio, confident, required
}

func (g *GenericHandler) apply(ctx context.Context, a *attempt, url string) types.ApplicationResult {
	if err := a.page.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return a.failure(ctx, err)
		}
		return a.finish(types.StatusError, "navigation failed: "+err.Error())
	}
	if err := g.deps.Timing.Settle.Wait(ctx); err != nil {
		return a.failure(ctx, err)
	}

	ok, err := a.clearCaptcha(ctx, nil)
	if err != nil {
		return a.failure(ctx, err)
	}
	if !ok {
		return a.finish(types.StatusCaptchaBlocked, "captcha not solved")
	}

	mappings, err := a.mapper.Analyze(ctx)
	if err != nil {
		return a.failure(ctx, err)
	}
	a.result.TotalFields = len(mappings)

	pass, confident, required := SafetyGate(mappings)
	if !pass {
		log.Printf("[HANDLER] Generic form on %s: only %d/%d required fields confident", url, confident, required)
		return a.finish(types.StatusLowConfidence, fmt.Sprintf("only %d/%d required fields confident", confident, required))
	}

	filled, err := a.mapper.FillAll(ctx, mappings, g.deps.Mapper.MinConfidence)
	a.result.FieldsFilled = filled
	if err != nil {
		return a.failure(ctx, err)
	}

	preSubmitURL, err := a.page.URL(ctx)
	if err != nil {
		return a.failure(ctx, err)
	}
	matched, clicked, err := browser.ClickFirst(ctx, a.page, GenericSubmit)
	if err != nil {
		return a.failure(ctx, err)
	}
	if !clicked {
		a.screenshot(ctx, "no-submit")
		return a.finish(types.StatusNoSubmitButton, "no submit button found")
	}
	if g.deps.Verbose {
		log.Printf("[HANDLER] Generic form submitted via %s (%d/%d fields)", matched, filled, len(mappings))
	}
	if err := g.deps.Timing.Submit.Wait(ctx); err != nil {
		return a.failure(ctx, err)
	}
	return a.verifySubmit(ctx, preSubmitURL, nil)
}
