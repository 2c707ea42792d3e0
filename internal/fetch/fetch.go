// Package fetch provides plain HTTP page retrieval used for platform
// fingerprinting and job-page summaries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 4 << 20

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	MaxTries   uint
	RetryDelay time.Duration
	Client     *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		UserAgent:  DefaultUserAgent,
		MaxTries:   3,
		RetryDelay: time.Second,
	}
}

// URL retrieves a page, retrying throttling and server errors with
// exponential backoff. Any final status other than 200 is an error; the
// Result is still returned so callers can inspect it.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	var last *Result
	operation := func() (*Result, error) {
		result, err := get(ctx, client, urlStr, opts)
		if err != nil {
			return nil, err
		}
		last = result
		if retryableStatus(result.StatusCode) {
			return nil, fmt.Errorf("HTTP status %d", result.StatusCode)
		}
		return result, nil
	}

	bo := backoff.NewExponentialBackOff()
	if opts.RetryDelay > 0 {
		bo.InitialInterval = opts.RetryDelay
	}
	bo.MaxInterval = 10 * time.Second

	tries := opts.MaxTries
	if tries == 0 {
		tries = 1
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		if last != nil {
			return last, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", last.StatusCode)}
		}
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}

	if result.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", result.StatusCode),
		}
	}
	return result, nil
}

func get(ctx context.Context, client *http.Client, urlStr string, opts *Options) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Summary is the human-facing gist of a job page.
type Summary struct {
	Title string
	Text  string
}

// Summarize extracts the page title and main text, truncated to maxText runes.
func Summarize(html string, maxText int) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .cookie-banner, .popup").Remove()

	title := cleanWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = cleanWhitespace(doc.Find("h1").First().Text())
	}

	var content *goquery.Selection
	for _, selector := range []string{"main", "article", ".job-description", "#job-description", ".content", "#content"} {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	text := cleanWhitespace(content.Text())
	if r := []rune(text); maxText > 0 && len(r) > maxText {
		text = string(r[:maxText]) + "..."
	}
	return Summary{Title: title, Text: text}, nil
}

func cleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
