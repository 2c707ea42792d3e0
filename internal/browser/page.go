// Package browser defines the page capability the application flows drive
// and provides a headless Chrome backend for it.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrDetached is returned when an element no longer belongs to the live document.
var ErrDetached = errors.New("element detached from document")

// ErrUnsupported is returned when an element does not support the requested operation.
var ErrUnsupported = errors.New("operation not supported by element")

// ErrOptionNotFound is returned when a select has no option matching the request.
var ErrOptionNotFound = errors.New("select option not found")

// Error represents an automation failure against a page or element.
type Error struct {
	Op       string
	Selector string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Selector != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Selector, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s %s: %s", e.Op, e.Selector, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Page is a live document that can be navigated, queried and inspected.
// Selectors are CSS with an optional trailing :has-text("...") filter.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Element, error)
	Text(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Evaluator is implemented by pages that can run script in the document.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, out any) error
}

// SelectBy chooses how SelectOption matches an option.
type SelectBy int

const (
	// SelectByLabel matches the visible option text.
	SelectByLabel SelectBy = iota
	// SelectByValue matches the option's value attribute.
	SelectByValue
)

// Element is a handle to one node of a Page.
type Element interface {
	Describe(ctx context.Context) (ElementInfo, error)
	Visible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Fill(ctx context.Context, value string) error
	Click(ctx context.Context) error
	SelectOption(ctx context.Context, by SelectBy, option string) error
	SetFiles(ctx context.Context, paths ...string) error
	Checked(ctx context.Context) (bool, error)
	SetChecked(ctx context.Context, checked bool) error
}

// ElementInfo holds the raw signals extracted from a form element.
type ElementInfo struct {
	Tag              string   `json:"tag"`
	Type             string   `json:"type"`
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	Placeholder      string   `json:"placeholder"`
	AriaLabel        string   `json:"ariaLabel"`
	AutoComplete     string   `json:"autocomplete"`
	Role             string   `json:"role"`
	Required         bool     `json:"required"`
	ContentEditable  bool     `json:"contentEditable"`
	Classes          []string `json:"classes"`
	LabelText        string   `json:"labelText"`
	SurroundingText  string   `json:"surroundingText"`
	DataAutomationID string   `json:"dataAutomationId"`
	DataTestID       string   `json:"dataTestId"`
	DataQA           string   `json:"dataQa"`
	DataField        string   `json:"dataField"`
}
