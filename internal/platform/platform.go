// Package platform identifies which applicant tracking system serves a job URL.
package platform

import (
	"context"
	"log"
	"strings"

	"github.com/jonathan/autoapply/internal/fetch"
	"github.com/jonathan/autoapply/internal/types"
)

// Matcher claims URLs for one platform.
type Matcher interface {
	Platform() types.Platform
	CanHandle(url string) bool
}

// Fingerprint lists page-content markers that identify a platform.
type Fingerprint struct {
	Platform types.Platform
	Markers  []string
}

// DefaultFingerprints is checked in order against the lowercased page body.
var DefaultFingerprints = []Fingerprint{
	{Platform: types.PlatformWorkday, Markers: []string{"myworkdayjobs", "workday"}},
	{Platform: types.PlatformTaleo, Markers: []string{"taleo"}},
	{Platform: types.PlatformICIMS, Markers: []string{"icims"}},
	{Platform: types.PlatformSuccessFactors, Markers: []string{"successfactors", "sapsf", "jobs.sap.com"}},
	{Platform: types.PlatformADP, Markers: []string{"workforcenow", "recruiting.adp.com", "adp.com"}},
	{Platform: types.PlatformGreenhouse, Markers: []string{"greenhouse"}},
	{Platform: types.PlatformLever, Markers: []string{"lever.co"}},
}

// FetchFunc returns the body of url.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Classifier resolves the platform of a URL, first from the URL itself and
// then from the content of the page.
type Classifier struct {
	matchers     []Matcher
	fingerprints []Fingerprint
	fetch        FetchFunc
	verbose      bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFetcher replaces the HTTP fetch used for content fingerprinting.
func WithFetcher(f FetchFunc) Option {
	return func(c *Classifier) { c.fetch = f }
}

// WithFingerprints replaces the content fingerprint table.
func WithFingerprints(fps []Fingerprint) Option {
	return func(c *Classifier) { c.fingerprints = fps }
}

// WithVerbose enables logging.
func WithVerbose(v bool) Option {
	return func(c *Classifier) { c.verbose = v }
}

// New creates a Classifier consulting matchers in order.
func New(matchers []Matcher, opts ...Option) *Classifier {
	c := &Classifier{
		matchers:     matchers,
		fingerprints: DefaultFingerprints,
		fetch:        httpFetch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func httpFetch(ctx context.Context, url string) (string, error) {
	result, err := fetch.URL(ctx, url, fetch.DefaultOptions())
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// DetectURL returns the platform of the first matcher claiming url.
func (c *Classifier) DetectURL(url string) (types.Platform, bool) {
	for _, m := range c.matchers {
		if m.CanHandle(url) {
			return m.Platform(), true
		}
	}
	return types.PlatformUnknown, false
}

// Detect returns the platform for url. Network failures yield
// PlatformUnknown rather than an error.
func (c *Classifier) Detect(ctx context.Context, url string) types.Platform {
	if p, ok := c.DetectURL(url); ok {
		return p
	}
	if c.fetch == nil {
		return types.PlatformUnknown
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		if c.verbose {
			log.Printf("[ROUTER] Content detection failed for %s: %v", url, err)
		}
		return types.PlatformUnknown
	}

	p := c.Fingerprint(body)
	if c.verbose {
		log.Printf("[ROUTER] Content fingerprint for %s: %s", url, p)
	}
	return p
}

// Fingerprint identifies a platform from page content.
func (c *Classifier) Fingerprint(body string) types.Platform {
	lower := strings.ToLower(body)
	for _, fp := range c.fingerprints {
		for _, marker := range fp.Markers {
			if strings.Contains(lower, marker) {
				return fp.Platform
			}
		}
	}
	return types.PlatformUnknown
}

// MatchURL reports whether url contains any of patterns, case-insensitively.
func MatchURL(url string, patterns []string) bool {
	lower := strings.ToLower(url)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
