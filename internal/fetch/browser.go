package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the minimum extracted text length to consider HTTP fetch successful.
// If content is shorter, we should fall back to browser rendering.
const MinContentLength = 500

// DefaultRenderTimeout bounds one browser render.
const DefaultRenderTimeout = 30 * time.Second

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely a JavaScript-rendered SPA.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// RenderFunc returns the HTML of url after scripts have run.
type RenderFunc func(ctx context.Context, url string) (string, error)

// Renderer returns a RenderFunc backed by a throwaway headless Chrome.
func Renderer(timeout time.Duration, verbose bool) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		return WithBrowser(ctx, url, timeout, verbose)
	}
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, verbose bool) (string, error) {
	if verbose {
		log.Printf("[BROWSER] Rendering %s for platform detection", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// ATS embeds inject their iframes and scripts after load
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	if verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}
	return html, nil
}

// HTML fetches url over HTTP. When the response carries too little text to
// be a server-rendered page and render is non-nil, the page is rendered in a
// browser instead.
func HTML(ctx context.Context, url string, opts *Options, render RenderFunc) (string, error) {
	result, err := URL(ctx, url, opts)
	if err != nil {
		if render == nil {
			return "", err
		}
		// Bot walls often answer 403 to plain clients but serve a browser.
		if html, rerr := render(ctx, url); rerr == nil {
			return html, nil
		}
		return "", err
	}
	if render == nil {
		return result.HTML, nil
	}

	summary, err := Summarize(result.HTML, 0)
	if err != nil || !ShouldUseBrowser(summary.Text) {
		return result.HTML, nil
	}
	html, err := render(ctx, url)
	if err != nil {
		return "", fmt.Errorf("page has no server-rendered content and rendering failed: %w", err)
	}
	return html, nil
}
