package htmldom

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jonathan/autoapply/internal/browser"
)

const (
	filesAttr        = "data-files"
	surroundingLimit = 500
)

type element struct {
	page *Page
	node *html.Node
	gen  int
}

// locked runs fn with the page lock held, failing if the document was replaced.
func (e *element) locked(ctx context.Context, fn func(s *goquery.Selection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.gen != e.page.gen {
		return browser.ErrDetached
	}
	return fn(e.page.doc.FindNodes(e.node))
}

func (e *element) Describe(ctx context.Context) (browser.ElementInfo, error) {
	var info browser.ElementInfo
	err := e.locked(ctx, func(s *goquery.Selection) error {
		get := func(name string) string {
			v, _ := s.Attr(name)
			return v
		}
		info = browser.ElementInfo{
			Tag:              e.node.Data,
			Type:             strings.ToLower(get("type")),
			Name:             get("name"),
			ID:               get("id"),
			Placeholder:      get("placeholder"),
			AriaLabel:        get("aria-label"),
			AutoComplete:     get("autocomplete"),
			Role:             get("role"),
			Required:         hasAttr(e.node, "required") || get("aria-required") == "true",
			ContentEditable:  isEditable(s),
			Classes:          strings.Fields(get("class")),
			LabelText:        e.page.labelFor(s),
			SurroundingText:  surrounding(e.node),
			DataAutomationID: get("data-automation-id"),
			DataTestID:       get("data-testid"),
			DataQA:           get("data-qa"),
			DataField:        get("data-field"),
		}
		return nil
	})
	return info, err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.locked(ctx, func(_ *goquery.Selection) error {
		visible = isVisible(e.node)
		return nil
	})
	return visible, err
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.locked(ctx, func(s *goquery.Selection) error {
		text = strings.TrimSpace(visibleText(s))
		if text == "" {
			text, _ = s.Attr("value")
		}
		return nil
	})
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.locked(ctx, func(s *goquery.Selection) error {
		value, ok = s.Attr(name)
		return nil
	})
	return value, ok, err
}

func (e *element) Fill(ctx context.Context, value string) error {
	return e.locked(ctx, func(s *goquery.Selection) error {
		switch {
		case e.node.Data == "textarea" || isEditable(s):
			s.SetText(value)
		case e.node.Data == "input":
			switch inputType(e.node) {
			case "checkbox", "radio", "file", "submit", "button", "hidden":
				return browser.ErrUnsupported
			}
			s.SetAttr("value", value)
		default:
			return browser.ErrUnsupported
		}
		return nil
	})
}

func (e *element) Click(ctx context.Context) error {
	err := e.locked(ctx, func(s *goquery.Selection) error {
		if e.node.Data != "input" {
			return nil
		}
		switch inputType(e.node) {
		case "checkbox":
			if hasAttr(e.node, "checked") {
				s.RemoveAttr("checked")
			} else {
				s.SetAttr("checked", "checked")
			}
		case "radio":
			e.page.checkRadio(s)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.page.runHooks(e.node)
}

func (e *element) SelectOption(ctx context.Context, by browser.SelectBy, option string) error {
	return e.locked(ctx, func(s *goquery.Selection) error {
		if e.node.Data != "select" {
			return browser.ErrUnsupported
		}
		want := strings.TrimSpace(option)
		var match *goquery.Selection
		s.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
			var hit bool
			if by == browser.SelectByValue {
				v, _ := opt.Attr("value")
				hit = v == want
			} else {
				hit = strings.EqualFold(strings.TrimSpace(opt.Text()), want)
			}
			if hit {
				match = opt
			}
			return !hit
		})
		if match == nil {
			return browser.ErrOptionNotFound
		}
		s.Find("option").RemoveAttr("selected")
		match.SetAttr("selected", "selected")
		return nil
	})
}

func (e *element) SetFiles(ctx context.Context, paths ...string) error {
	return e.locked(ctx, func(s *goquery.Selection) error {
		if e.node.Data != "input" || inputType(e.node) != "file" {
			return browser.ErrUnsupported
		}
		s.SetAttr(filesAttr, strings.Join(paths, "\n"))
		return nil
	})
}

func (e *element) Checked(ctx context.Context) (bool, error) {
	var checked bool
	err := e.locked(ctx, func(_ *goquery.Selection) error {
		checked = hasAttr(e.node, "checked")
		return nil
	})
	return checked, err
}

func (e *element) SetChecked(ctx context.Context, checked bool) error {
	current, err := e.Checked(ctx)
	if err != nil {
		return err
	}
	if current == checked {
		return nil
	}
	if t := inputType(e.node); t != "checkbox" && t != "radio" {
		return browser.ErrUnsupported
	}
	return e.Click(ctx)
}

// checkRadio checks s and clears other radios sharing its name.
func (p *Page) checkRadio(s *goquery.Selection) {
	name, _ := s.Attr("name")
	if name != "" {
		p.doc.Find(`input[type="radio"]`).Each(func(_ int, other *goquery.Selection) {
			if n, _ := other.Attr("name"); n == name {
				other.RemoveAttr("checked")
			}
		})
	}
	s.SetAttr("checked", "checked")
}

// labelFor resolves the human-readable label of a form control.
func (p *Page) labelFor(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		var label string
		p.doc.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
			if f, _ := l.Attr("for"); f == id {
				label = visibleText(l)
				return false
			}
			return true
		})
		if label != "" {
			return label
		}
	}
	if wrap := s.Closest("label"); wrap.Length() > 0 {
		return visibleText(wrap)
	}
	if ids, ok := s.Attr("aria-labelledby"); ok {
		var parts []string
		for _, id := range strings.Fields(ids) {
			p.doc.Find("[id]").EachWithBreak(func(_ int, n *goquery.Selection) bool {
				if v, _ := n.Attr("id"); v == id {
					parts = append(parts, visibleText(n))
					return false
				}
				return true
			})
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// surrounding concatenates the text of the parent and grandparent.
func surrounding(n *html.Node) string {
	var parts []string
	parent := n.Parent
	for i := 0; i < 2 && parent != nil && parent.Type == html.ElementNode; i++ {
		parts = append(parts, collectText(parent))
		parent = parent.Parent
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if r := []rune(text); len(r) > surroundingLimit {
		text = string(r[:surroundingLimit])
	}
	return text
}

func visibleText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		parts = append(parts, collectText(n))
	}
	return strings.Join(parts, " ")
}

// collectText gathers visible text under n with whitespace collapsed.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hiddenNode(n) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isVisible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && hiddenNode(cur) {
			return false
		}
	}
	return true
}

func hiddenNode(n *html.Node) bool {
	switch n.Data {
	case "head", "script", "style", "template", "noscript", "title":
		return true
	}
	if hasAttr(n, "hidden") {
		return true
	}
	if n.Data == "input" && inputType(n) == "hidden" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func isEditable(s *goquery.Selection) bool {
	v, ok := s.Attr("contenteditable")
	return ok && (v == "" || strings.EqualFold(v, "true"))
}

func selectedOption(s *goquery.Selection) *goquery.Selection {
	if opt := s.Find("option[selected]").First(); opt.Length() > 0 {
		return opt
	}
	return s.Find("option").First()
}

func inputType(n *html.Node) string {
	t := strings.ToLower(attr(n, "type"))
	if t == "" {
		return "text"
	}
	return t
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}
