package handlers

import (
	"context"
	"log"

	"github.com/jonathan/autoapply/internal/types"
)

// formState remembers what earlier steps already handled so revisited
// pages are not filled twice. Fields that were skipped or failed stay
// eligible and are tried again when the step is re-observed.
type formState struct {
	uploaded bool
	counted  map[string]bool
	filled   map[string]bool
}

func newFormState() *formState {
	return &formState{counted: make(map[string]bool), filled: make(map[string]bool)}
}

func fieldKey(pageURL, selector string) string {
	return pageURL + "\x00" + selector
}

// fillStep fills the current step: resume upload first (once per
// application), then contact details, then screening questions.
func (a *attempt) fillStep(ctx context.Context, form *formState) error {
	mappings, err := a.mapper.Analyze(ctx)
	if err != nil {
		return err
	}
	pageURL, err := a.page.URL(ctx)
	if err != nil {
		return err
	}

	var uploads, contact, screening []types.FieldMapping
	for _, m := range mappings {
		key := fieldKey(pageURL, m.Selector)
		if form.filled[key] {
			continue
		}
		if !form.counted[key] {
			form.counted[key] = true
			a.result.TotalFields++
		}

		switch {
		case m.Strategy == types.StrategyUpload && m.FieldType == types.FieldResume:
			if !form.uploaded {
				uploads = append(uploads, m)
			}
		case m.FieldType.IsContact():
			contact = append(contact, m)
		default:
			screening = append(screening, m)
		}
	}

	minConfidence := a.deps.Mapper.MinConfidence
	for i, group := range [][]types.FieldMapping{uploads, contact, screening} {
		if len(group) == 0 {
			continue
		}
		done, err := a.mapper.FillEach(ctx, group, minConfidence)
		for _, m := range done {
			form.filled[fieldKey(pageURL, m.Selector)] = true
		}
		a.result.FieldsFilled += len(done)
		if err != nil {
			return err
		}
		if i == 0 && len(done) > 0 {
			form.uploaded = true
		}
	}
	if a.deps.Verbose {
		log.Printf("[HANDLER] Filled %d/%d fields so far", a.result.FieldsFilled, a.result.TotalFields)
	}
	return nil
}
