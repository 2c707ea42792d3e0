// Package captcha detects CAPTCHA challenges on application pages and
// resolves them through an ordered cascade of strategies.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/autoapply/internal/browser"
)

// ErrNoCaptcha is returned by Detect when the page carries no solvable challenge.
var ErrNoCaptcha = errors.New("no captcha challenge on page")

// Kind identifies a challenge family.
type Kind string

const (
	KindRecaptchaV2 Kind = "recaptcha_v2"
	KindRecaptchaV3 Kind = "recaptcha_v3"
	KindHCaptcha    Kind = "hcaptcha"
)

// Challenge describes a detected CAPTCHA.
type Challenge struct {
	Kind    Kind   `json:"kind"`
	SiteKey string `json:"site_key"`
	PageURL string `json:"page_url"`
}

// Markers are the DOM signatures of a visible, blocking challenge.
var Markers = []string{
	`iframe[src*="recaptcha"]`,
	`iframe[src*="hcaptcha"]`,
	`iframe[src*="captcha"]`,
	`.g-recaptcha`,
	`.h-captcha`,
	`[data-sitekey]`,
	`.captcha`,
	`#captcha`,
}

// SolverError reports a failure from a remote solving service.
type SolverError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *SolverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *SolverError) Unwrap() error {
	return e.Cause
}

// Present reports whether a visible challenge marker is on the page.
func Present(ctx context.Context, page browser.Page) (bool, error) {
	return browser.Exists(ctx, page, Markers)
}

// Detect reads the challenge type and site key from the page DOM.
func Detect(ctx context.Context, page browser.Page) (Challenge, error) {
	pageURL, err := page.URL(ctx)
	if err != nil {
		return Challenge{}, err
	}

	probes := []struct {
		selector string
		kind     Kind
	}{
		{`.h-captcha[data-sitekey]`, KindHCaptcha},
		{`.g-recaptcha[data-sitekey]`, KindRecaptchaV2},
		{`[data-sitekey]`, KindRecaptchaV3},
	}
	for _, probe := range probes {
		key, err := firstAttr(ctx, page, probe.selector, "data-sitekey")
		if err != nil {
			return Challenge{}, err
		}
		if key != "" {
			return Challenge{Kind: probe.kind, SiteKey: key, PageURL: pageURL}, nil
		}
	}

	frames := []struct {
		selector string
		param    string
		kind     Kind
	}{
		{`iframe[src*="recaptcha/api2"]`, "k", KindRecaptchaV2},
		{`iframe[src*="hcaptcha.com"]`, "sitekey", KindHCaptcha},
	}
	for _, frame := range frames {
		src, err := firstAttr(ctx, page, frame.selector, "src")
		if err != nil {
			return Challenge{}, err
		}
		if key := queryParam(src, frame.param); key != "" {
			return Challenge{Kind: frame.kind, SiteKey: key, PageURL: pageURL}, nil
		}
	}

	return Challenge{}, ErrNoCaptcha
}

func firstAttr(ctx context.Context, page browser.Page, selector, name string) (string, error) {
	elements, err := page.Query(ctx, selector)
	if err != nil {
		return "", err
	}
	for _, el := range elements {
		value, ok, err := el.Attribute(ctx, name)
		if errors.Is(err, browser.ErrDetached) {
			continue
		}
		if err != nil {
			return "", err
		}
		if ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", nil
}

func queryParam(src, name string) string {
	if src == "" {
		return ""
	}
	parsed, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if v := parsed.Query().Get(name); v != "" {
		return v
	}
	// hCaptcha puts its parameters in the fragment.
	fragment, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return ""
	}
	return fragment.Get(name)
}
