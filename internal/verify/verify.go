// Package verify decides whether a clicked submit actually produced a
// completed application.
package verify

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/jonathan/autoapply/internal/browser"
)

// ConfirmedMarker is reported when success is certain but no id was shown.
const ConfirmedMarker = "confirmed"

// DefaultSuccessPhrases indicate a completed submission.
var DefaultSuccessPhrases = []string{
	"thank you for your application",
	"thank you for applying",
	"thanks for applying",
	"application submitted",
	"application received",
	"application has been submitted",
	"application has been received",
	"your application has been received",
	"successfully submitted",
	"successfully applied",
	"we have received",
	"we've received your application",
	"you have applied",
	"you applied",
	"confirmation",
	"next steps",
}

// DefaultErrorSelectors locate visible validation or server errors.
var DefaultErrorSelectors = []string{
	`[role="alert"]`,
	`.error`,
	`.error-message`,
	`.field-error`,
	`.flash-error`,
	`.alert-danger`,
	`[aria-invalid="true"]`,
}

var formSelectors = []string{`form`}

var confirmationRe = regexp.MustCompile(`(?i)confirmation\s*(?:#|number|no\.?|id|code)?\s*[:#]?\s*#?\s*([a-z0-9][a-z0-9-]{4,19})\b`)

// Result is the verdict on one submission.
type Result struct {
	Success        bool   `json:"success"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Verifier inspects the page after a submit click.
type Verifier struct {
	phrases        []string
	errorSelectors []string
	verbose        bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPhrases adds success phrases.
func WithPhrases(phrases ...string) Option {
	return func(v *Verifier) {
		for _, p := range phrases {
			v.phrases = append(v.phrases, strings.ToLower(p))
		}
	}
}

// WithVerbose enables logging.
func WithVerbose(verbose bool) Option {
	return func(v *Verifier) { v.verbose = verbose }
}

// New creates a Verifier with the default phrase and error tables.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		phrases:        append([]string(nil), DefaultSuccessPhrases...),
		errorSelectors: DefaultErrorSelectors,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify judges the page after submission. preSubmitURL is the URL the form
// was on when submit was clicked. indicators are platform-specific success
// selectors that count as a positive signal alongside the phrase scan.
func (v *Verifier) Verify(ctx context.Context, page browser.Page, preSubmitURL string, indicators ...string) Result {
	current, err := page.URL(ctx)
	if err != nil {
		return Result{Error: "could not read page URL: " + err.Error()}
	}

	text, err := page.Text(ctx)
	if err != nil {
		return Result{Error: "could not read page text: " + err.Error()}
	}
	lower := strings.ToLower(text)

	if current == preSubmitURL {
		formVisible, err := browser.Exists(ctx, page, formSelectors)
		if err != nil {
			return Result{Error: "could not inspect page: " + err.Error()}
		}
		if formVisible {
			return Result{Error: "page did not advance after submit"}
		}
	}

	positive := v.hasPhrase(lower)
	if !positive && len(indicators) > 0 {
		positive, err = browser.Exists(ctx, page, indicators)
		if err != nil {
			return Result{Error: "could not inspect page: " + err.Error()}
		}
	}
	if !positive {
		return Result{Error: "no confirmation found after submit"}
	}

	if msg, ok := v.visibleError(ctx, page); ok {
		if v.verbose {
			log.Printf("[VERIFY] Error message present after submit: %s", msg)
		}
		return Result{Error: "submission error: " + msg}
	}

	id := ExtractConfirmationID(text)
	if v.verbose {
		log.Printf("[VERIFY] Submission confirmed (id=%s)", id)
	}
	return Result{Success: true, ConfirmationID: id}
}

func (v *Verifier) hasPhrase(lower string) bool {
	for _, p := range v.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// visibleError returns the text of the first visible error element that has
// any. Empty live regions are skipped.
func (v *Verifier) visibleError(ctx context.Context, page browser.Page) (string, bool) {
	elements, err := browser.FindAll(ctx, page, v.errorSelectors)
	if err != nil {
		return "", false
	}
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true
		}
	}
	return "", false
}

// ExtractConfirmationID pulls a confirmation code out of page text, or
// returns ConfirmedMarker when none is present. Codes must contain a digit.
func ExtractConfirmationID(text string) string {
	for _, m := range confirmationRe.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			return strings.ToUpper(m[1])
		}
	}
	return ConfirmedMarker
}
