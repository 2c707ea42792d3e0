package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

const refAttr = "data-autoapply-ref"

// chromePage drives a chromedp tab. Matched elements are tagged with a ref
// attribute so later operations can address them by selector.
type chromePage struct {
	ctx context.Context
}

// run executes actions on the tab, aborting when either the tab or ctx ends.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &Error{Op: "navigate", Message: url, Cause: err}
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", &Error{Op: "url", Message: "failed to read location", Cause: err}
	}
	return loc, nil
}

const queryScript = `(function(css, text) {
	const norm = s => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
	const out = [];
	document.querySelectorAll(css).forEach(el => {
		if (text) {
			const t = norm(el.innerText || el.value || el.textContent);
			if (!t.includes(text)) return;
		}
		let ref = el.getAttribute('%[1]s');
		if (!ref) {
			window.__autoapplyRef = (window.__autoapplyRef || 0) + 1;
			ref = 'r' + window.__autoapplyRef;
			el.setAttribute('%[1]s', ref);
		}
		out.push(ref);
	});
	return out;
})(%[2]s, %[3]s)`

func (p *chromePage) Query(ctx context.Context, selector string) ([]Element, error) {
	sel := ParseSelector(selector)
	css, _ := json.Marshal(sel.CSS)
	text, _ := json.Marshal(sel.Text)

	var refs []string
	script := fmt.Sprintf(queryScript, refAttr, css, text)
	if err := p.run(ctx, chromedp.Evaluate(script, &refs)); err != nil {
		return nil, &Error{Op: "query", Selector: selector, Message: "query failed", Cause: err}
	}

	elements := make([]Element, 0, len(refs))
	for _, ref := range refs {
		elements = append(elements, &chromeElement{page: p, ref: ref})
	}
	return elements, nil
}

func (p *chromePage) Text(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text)); err != nil {
		return "", &Error{Op: "text", Message: "failed to read page text", Cause: err}
	}
	return text, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &Error{Op: "html", Message: "failed to read page html", Cause: err}
	}
	return html, nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, &Error{Op: "screenshot", Message: "capture failed", Cause: err}
	}
	return buf, nil
}

func (p *chromePage) Evaluate(ctx context.Context, script string, out any) error {
	if err := p.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return &Error{Op: "evaluate", Message: "script failed", Cause: err}
	}
	return nil
}

type chromeElement struct {
	page *chromePage
	ref  string
}

func (e *chromeElement) selector() string {
	return fmt.Sprintf(`[%s="%s"]`, refAttr, e.ref)
}

type refResult struct {
	Detached bool            `json:"detached"`
	Value    json.RawMessage `json:"value"`
}

// eval runs body with `el` bound to the element and decodes its return value.
func (e *chromeElement) eval(ctx context.Context, op, body string, out any) error {
	sel, _ := json.Marshal(e.selector())
	script := fmt.Sprintf(`(function() {
	const el = document.querySelector(%s);
	if (!el) return {detached: true, value: null};
	const value = (function(el) { %s })(el);
	return {detached: false, value: value === undefined ? null : value};
})()`, sel, body)

	var res refResult
	if err := e.page.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return &Error{Op: op, Selector: e.ref, Message: "script failed", Cause: err}
	}
	if res.Detached {
		return ErrDetached
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return &Error{Op: op, Selector: e.ref, Message: "bad script result", Cause: err}
	}
	return nil
}

const describeScript = `
	const text = n => (n && n.innerText ? n.innerText : '').trim();
	const attr = n => (el.getAttribute(n) || '');
	let label = '';
	if (el.id) {
		const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
		if (l) label = text(l);
	}
	if (!label) { const w = el.closest('label'); if (w) label = text(w); }
	if (!label && attr('aria-labelledby')) {
		label = attr('aria-labelledby').split(/\s+/).map(id => text(document.getElementById(id))).join(' ').trim();
	}
	let around = '';
	let p = el.parentElement;
	for (let i = 0; i < 2 && p; i++) { around += ' ' + (p.innerText || ''); p = p.parentElement; }
	return {
		tag: el.tagName.toLowerCase(),
		type: attr('type').toLowerCase(),
		name: attr('name'),
		id: el.id || '',
		placeholder: attr('placeholder'),
		ariaLabel: attr('aria-label'),
		autocomplete: attr('autocomplete'),
		role: attr('role'),
		required: !!el.required || attr('aria-required') === 'true',
		contentEditable: !!el.isContentEditable,
		classes: Array.from(el.classList || []),
		labelText: label,
		surroundingText: around.trim().slice(0, 500),
		dataAutomationId: attr('data-automation-id'),
		dataTestId: attr('data-testid'),
		dataQa: attr('data-qa'),
		dataField: attr('data-field'),
	};`

func (e *chromeElement) Describe(ctx context.Context) (ElementInfo, error) {
	var info ElementInfo
	err := e.eval(ctx, "describe", describeScript, &info)
	return info, err
}

func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.eval(ctx, "visible", `
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none') return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`, &visible)
	return visible, err
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.eval(ctx, "text", `return (el.innerText || el.value || '').trim();`, &text)
	return text, err
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		OK    bool   `json:"ok"`
		Value string `json:"value"`
	}
	n, _ := json.Marshal(name)
	body := fmt.Sprintf(`return {ok: el.hasAttribute(%[1]s), value: el.getAttribute(%[1]s) || ''};`, n)
	if err := e.eval(ctx, "attribute", body, &res); err != nil {
		return "", false, err
	}
	return res.Value, res.OK, nil
}

func (e *chromeElement) Fill(ctx context.Context, value string) error {
	var editable bool
	v, _ := json.Marshal(value)
	body := fmt.Sprintf(`
	if (el.isContentEditable) {
		el.innerText = %s;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	}
	el.focus();
	el.value = '';
	el.dispatchEvent(new Event('input', {bubbles: true}));
	return false;`, v)
	if err := e.eval(ctx, "fill", body, &editable); err != nil {
		return err
	}
	if editable || value == "" {
		return nil
	}
	if err := e.page.run(ctx, chromedp.SendKeys(e.selector(), value, chromedp.ByQuery)); err != nil {
		return &Error{Op: "fill", Selector: e.ref, Message: "typing failed", Cause: err}
	}
	return e.eval(ctx, "fill", `el.dispatchEvent(new Event('change', {bubbles: true})); return true;`, nil)
}

func (e *chromeElement) Click(ctx context.Context) error {
	var ok bool
	if err := e.eval(ctx, "click", `el.scrollIntoView({block: 'center'}); return true;`, &ok); err != nil {
		return err
	}
	if err := e.page.run(ctx, chromedp.Click(e.selector(), chromedp.ByQuery)); err != nil {
		return &Error{Op: "click", Selector: e.ref, Message: "click failed", Cause: err}
	}
	return nil
}

func (e *chromeElement) SelectOption(ctx context.Context, by SelectBy, option string) error {
	o, _ := json.Marshal(strings.TrimSpace(option))
	match := `(opt.text || '').trim().toLowerCase() === want.toLowerCase()`
	if by == SelectByValue {
		match = `opt.value === want`
	}
	body := fmt.Sprintf(`
	if (el.tagName.toLowerCase() !== 'select') return 'unsupported';
	const want = %s;
	for (const opt of el.options) {
		if (%s) {
			el.value = opt.value;
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return 'ok';
		}
	}
	return 'missing';`, o, match)

	var res string
	if err := e.eval(ctx, "select", body, &res); err != nil {
		return err
	}
	switch res {
	case "ok":
		return nil
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrOptionNotFound
	}
}

func (e *chromeElement) SetFiles(ctx context.Context, paths ...string) error {
	if err := e.page.run(ctx, chromedp.SetUploadFiles(e.selector(), paths, chromedp.ByQuery)); err != nil {
		return &Error{Op: "upload", Selector: e.ref, Message: "setting files failed", Cause: err}
	}
	return nil
}

func (e *chromeElement) Checked(ctx context.Context) (bool, error) {
	var checked bool
	err := e.eval(ctx, "checked", `return !!el.checked;`, &checked)
	return checked, err
}

func (e *chromeElement) SetChecked(ctx context.Context, checked bool) error {
	current, err := e.Checked(ctx)
	if err != nil {
		return err
	}
	if current == checked {
		return nil
	}
	return e.Click(ctx)
}
