// Package htmldom implements browser.Page over a static HTML document held in
// memory. Form state lives in the document itself, and navigation is
// simulated through registered routes and click hooks.
package htmldom

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jonathan/autoapply/internal/browser"
)

// ClickHook runs after an element matching its selector is clicked.
type ClickHook func(p *Page) error

type hook struct {
	matcher cascadia.Selector
	fn      ClickHook
}

// Page is an in-memory browser.Page.
type Page struct {
	mu          sync.Mutex
	url         string
	doc         *goquery.Document
	gen         int
	routes      map[string]string
	hooks       []hook
	screenshots int
	navigations []string
}

// New parses markup as the document loaded at pageURL.
func New(pageURL, markup string) (*Page, error) {
	p := &Page{routes: make(map[string]string)}
	if err := p.Load(pageURL, markup); err != nil {
		return nil, err
	}
	return p, nil
}

// MustNew is New for fixtures; it panics on malformed input.
func MustNew(pageURL, markup string) *Page {
	p, err := New(pageURL, markup)
	if err != nil {
		panic(err)
	}
	return p
}

// Route registers markup served when Navigate targets routeURL.
func (p *Page) Route(routeURL, markup string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[routeURL] = markup
	return p
}

// OnClick registers fn to run after any element matching selector is clicked.
func (p *Page) OnClick(selector string, fn ClickHook) error {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("invalid hook selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook{matcher: sel, fn: fn})
	return nil
}

// GoTo registers a click hook that loads the route at target.
func (p *Page) GoTo(selector, target string) error {
	return p.OnClick(selector, func(pg *Page) error {
		return pg.Navigate(context.Background(), target)
	})
}

// Load replaces the document, invalidating every outstanding element.
func (p *Page) Load(pageURL, markup string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return &browser.Error{Op: "load", Message: pageURL, Cause: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = pageURL
	p.doc = doc
	p.gen++
	return nil
}

// Screenshots returns how many screenshots were taken.
func (p *Page) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenshots
}

// Navigations returns the URLs passed to Navigate, in order.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Value returns the current value of the first element matching css.
func (p *Page) Value(css string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(css).First()
	if goquery.NodeName(sel) == "textarea" || isEditable(sel) {
		return sel.Text()
	}
	if goquery.NodeName(sel) == "select" {
		v, _ := selectedOption(sel).Attr("value")
		return v
	}
	v, _ := sel.Attr("value")
	return v
}

// IsChecked reports the checked state of the first element matching css.
func (p *Page) IsChecked(css string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.doc.Find(css).First().Attr("checked")
	return ok
}

// Files returns the files attached to the first file input matching css.
func (p *Page) Files(css string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.doc.Find(css).First().Attr(filesAttr)
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, "\n")
}

func (p *Page) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, target)
	markup, ok := p.routes[target]
	p.mu.Unlock()
	if !ok {
		return &browser.Error{Op: "navigate", Message: target, Cause: fmt.Errorf("no route registered")}
	}
	return p.Load(target, markup)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, ctx.Err()
}

func (p *Page) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed := browser.ParseSelector(selector)
	matcher, err := cascadia.Compile(parsed.CSS)
	if err != nil {
		return nil, &browser.Error{Op: "query", Selector: selector, Message: "invalid selector", Cause: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []browser.Element
	p.doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		if parsed.Text != "" {
			candidate := visibleText(s)
			if v, ok := s.Attr("value"); ok && candidate == "" {
				candidate = v
			}
			if !parsed.MatchesText(candidate) {
				return
			}
		}
		out = append(out, &element{page: p, node: s.Nodes[0], gen: p.gen})
	})
	return out, nil
}

func (p *Page) Text(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return visibleText(p.doc.Find("body")), ctx.Err()
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, err := p.doc.Html()
	if err != nil {
		return "", &browser.Error{Op: "html", Message: "render failed", Cause: err}
	}
	return out, ctx.Err()
}

// Screenshot returns the current markup in place of an image.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshots++
	out, err := p.doc.Html()
	if err != nil {
		return nil, &browser.Error{Op: "screenshot", Message: "render failed", Cause: err}
	}
	return []byte(out), ctx.Err()
}

// runHooks must be called without holding p.mu.
func (p *Page) runHooks(node *html.Node) error {
	p.mu.Lock()
	var matched []ClickHook
	for _, h := range p.hooks {
		if h.matcher.Match(node) {
			matched = append(matched, h.fn)
		}
	}
	var follow string
	if len(matched) == 0 && node.Data == "a" {
		href := attr(node, "href")
		if target := p.resolve(href); target != "" {
			if _, ok := p.routes[target]; ok {
				follow = target
			}
		}
	}
	p.mu.Unlock()

	for _, fn := range matched {
		if err := fn(p); err != nil {
			return err
		}
	}
	if follow != "" {
		return p.Navigate(context.Background(), follow)
	}
	return nil
}

func (p *Page) resolve(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base, err := url.Parse(p.url)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
