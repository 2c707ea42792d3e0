package browser

import (
	"context"
	"errors"
)

// FindFirst returns the first visible element matching any selector, trying
// selectors in order. A missing element is reported through found, not err;
// err is reserved for automation failures.
func FindFirst(ctx context.Context, page Page, selectors []string) (el Element, matched string, found bool, err error) {
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return nil, "", false, err
		}
		elements, err := page.Query(ctx, sel)
		if err != nil {
			return nil, "", false, err
		}
		for _, candidate := range elements {
			visible, err := candidate.Visible(ctx)
			if errors.Is(err, ErrDetached) {
				continue
			}
			if err != nil {
				return nil, "", false, err
			}
			if visible {
				return candidate, sel, true, nil
			}
		}
	}
	return nil, "", false, nil
}

// FindAll returns every visible element matching any selector, in selector
// order. An element matched by several selectors appears once per match.
func FindAll(ctx context.Context, page Page, selectors []string) ([]Element, error) {
	var out []Element
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elements, err := page.Query(ctx, sel)
		if err != nil {
			return nil, err
		}
		for _, candidate := range elements {
			visible, err := candidate.Visible(ctx)
			if errors.Is(err, ErrDetached) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if visible {
				out = append(out, candidate)
			}
		}
	}
	return out, nil
}

// Exists reports whether any selector matches a visible element.
func Exists(ctx context.Context, page Page, selectors []string) (bool, error) {
	_, _, found, err := FindFirst(ctx, page, selectors)
	return found, err
}

// ClickFirst clicks the first visible element matching any selector.
func ClickFirst(ctx context.Context, page Page, selectors []string) (string, bool, error) {
	el, matched, found, err := FindFirst(ctx, page, selectors)
	if err != nil || !found {
		return "", false, err
	}
	if err := el.Click(ctx); err != nil {
		return matched, false, &Error{Op: "click", Selector: matched, Message: "click failed", Cause: err}
	}
	return matched, true, nil
}
