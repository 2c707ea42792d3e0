package fieldmap

import (
	"context"
	"errors"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

// TextGenerator writes free text for open-ended fields.
type TextGenerator interface {
	CoverLetter(ctx context.Context, profile *types.UserProfile) (string, error)
	Answer(ctx context.Context, profile *types.UserProfile, question string) (string, error)
}

// InteractiveSelector matches every element the mapper considers.
const InteractiveSelector = `input:not([type="hidden"]), select, textarea, [role="combobox"], [role="listbox"], [contenteditable="true"]`

var buttonInputTypes = map[string]bool{"submit": true, "button": true, "reset": true, "image": true}

// Options tunes analysis and filling.
type Options struct {
	MinConfidence float64
	FieldDelay    browser.Delay
	UploadSettle  time.Duration
	Generator     TextGenerator
	Policy        AnswerPolicy
	Verbose       bool
}

// DefaultOptions returns human-paced filling with the default answer policy.
func DefaultOptions() Options {
	return Options{
		MinConfidence: 0.4,
		FieldDelay:    browser.Delay{Min: 800 * time.Millisecond, Max: 2500 * time.Millisecond},
		UploadSettle:  2 * time.Second,
		Policy:        DefaultAnswerPolicy(),
	}
}

// Mapper analyzes and fills the forms of one page for one profile.
type Mapper struct {
	page       browser.Page
	profile    *types.UserProfile
	classifier *Classifier
	opts       Options
}

// New creates a Mapper.
func New(page browser.Page, profile *types.UserProfile, opts Options) *Mapper {
	if opts.Policy.Decline == "" {
		opts.Policy = DefaultAnswerPolicy()
	}
	return &Mapper{page: page, profile: profile, classifier: NewClassifier(), opts: opts}
}

// Analyze discovers, classifies and scores every visible form element and
// returns the mappings ordered by (required, confidence) descending.
func (m *Mapper) Analyze(ctx context.Context) ([]types.FieldMapping, error) {
	elements, err := m.page.Query(ctx, InteractiveSelector)
	if err != nil {
		return nil, err
	}

	var mappings []types.FieldMapping
	for _, el := range elements {
		mapping, ok, err := m.analyzeElement(ctx, el)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if m.opts.Verbose {
				log.Printf("[MAPPER] Skipping element: %v", err)
			}
			continue
		}
		if ok {
			mappings = append(mappings, mapping)
		}
	}

	prioritize(mappings)
	if m.opts.Verbose {
		log.Printf("[MAPPER] Found %d fillable fields", len(mappings))
	}
	return mappings, nil
}

func (m *Mapper) analyzeElement(ctx context.Context, el browser.Element) (types.FieldMapping, bool, error) {
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return types.FieldMapping{}, false, err
	}
	info, err := el.Describe(ctx)
	if err != nil {
		return types.FieldMapping{}, false, err
	}
	if info.Tag == "input" && buttonInputTypes[info.Type] {
		return types.FieldMapping{}, false, nil
	}

	fieldType := m.classifier.Classify(info)
	if fieldType == types.FieldUnknown {
		return types.FieldMapping{}, false, nil
	}

	strategy := strategyFor(info, fieldType)
	selector := BuildSelector(info)
	question := QuestionText(info)
	policyQuestion := question

	if strategy == types.StrategyRadio || strategy == types.StrategyCheckbox {
		// The label of a choice input is the option; the question sits around it.
		policyQuestion = info.SurroundingText
		if info.ID == "" && info.Name != "" {
			if v, ok, err := el.Attribute(ctx, "value"); err == nil && ok && v != "" {
				selector += attrSelector("", "value", v)
			}
		}
	}

	return types.FieldMapping{
		Selector:     selector,
		FieldType:    fieldType,
		Confidence:   Score(info, fieldType),
		Value:        m.opts.Policy.Value(m.profile, fieldType, policyQuestion),
		Strategy:     strategy,
		Required:     info.Required,
		QuestionText: question,
	}, true, nil
}

func strategyFor(info browser.ElementInfo, ft types.FieldType) types.FillStrategy {
	switch {
	case info.Tag == "select" || info.Role == "combobox" || info.Role == "listbox":
		return types.StrategySelect
	case info.Type == "checkbox":
		return types.StrategyCheckbox
	case info.Type == "radio":
		return types.StrategyRadio
	case info.Type == "file":
		return types.StrategyUpload
	case ft == types.FieldCoverLetter || ft == types.FieldCustomTextLong:
		return types.StrategyAIGenerate
	default:
		return types.StrategyType
	}
}

func prioritize(mappings []types.FieldMapping) {
	sort.SliceStable(mappings, func(i, j int) bool {
		if mappings[i].Required != mappings[j].Required {
			return mappings[i].Required
		}
		return mappings[i].Confidence > mappings[j].Confidence
	})
}

// FillAll fills every mapping at or above minConfidence and returns how many
// succeeded. Individual failures are logged and skipped; only cancellation
// stops the run early.
func (m *Mapper) FillAll(ctx context.Context, mappings []types.FieldMapping, minConfidence float64) (int, error) {
	filled, err := m.FillEach(ctx, mappings, minConfidence)
	return len(filled), err
}

// FillEach is FillAll returning the mappings that were written.
func (m *Mapper) FillEach(ctx context.Context, mappings []types.FieldMapping, minConfidence float64) ([]types.FieldMapping, error) {
	var filled []types.FieldMapping
	for i, mapping := range mappings {
		if mapping.Confidence < minConfidence {
			if m.opts.Verbose {
				log.Printf("[MAPPER] Skipping low confidence field: %s (%.2f)", mapping.FieldType, mapping.Confidence)
			}
			continue
		}

		ok, err := m.Fill(ctx, mapping)
		if ctx.Err() != nil {
			return filled, ctx.Err()
		}
		if err != nil {
			log.Printf("[MAPPER] Failed to fill %s (%s): %v", mapping.FieldType, mapping.Selector, err)
			continue
		}
		if ok {
			filled = append(filled, mapping)
		}

		if i < len(mappings)-1 {
			if err := m.opts.FieldDelay.Wait(ctx); err != nil {
				return filled, err
			}
		}
	}
	return filled, nil
}

// Fill applies one mapping. It reports false without error when the element
// is gone, hidden, or there is nothing to put in it.
func (m *Mapper) Fill(ctx context.Context, mapping types.FieldMapping) (bool, error) {
	elements, err := m.page.Query(ctx, mapping.Selector)
	if err != nil {
		return false, err
	}
	if len(elements) == 0 {
		if m.opts.Verbose {
			log.Printf("[MAPPER] Element not found: %s", mapping.Selector)
		}
		return false, nil
	}
	el := elements[0]

	visible, err := el.Visible(ctx)
	if errors.Is(err, browser.ErrDetached) {
		return false, nil
	}
	if err != nil || !visible {
		return false, err
	}

	switch mapping.Strategy {
	case types.StrategyType:
		if mapping.Value == "" {
			return false, nil
		}
		return true, el.Fill(ctx, mapping.Value)

	case types.StrategySelect:
		return m.fillSelect(ctx, el, mapping)

	case types.StrategyUpload:
		return m.upload(ctx, el, mapping.Value)

	case types.StrategyCheckbox:
		checked, err := el.Checked(ctx)
		if err != nil {
			return false, err
		}
		want := isAffirmative(mapping.Value) ||
			(mapping.FieldType.IsEEO() && answerMatches(mapping.Value, mapping.QuestionText))
		if checked != want {
			if err := el.SetChecked(ctx, want); err != nil {
				return false, err
			}
		}
		return true, nil

	case types.StrategyRadio:
		option := mapping.QuestionText
		if v, ok, err := el.Attribute(ctx, "value"); err == nil && ok && !answerMatches(mapping.Value, option) {
			option = v
		}
		if !answerMatches(mapping.Value, option) {
			return false, nil
		}
		return true, el.Click(ctx)

	case types.StrategyAIGenerate:
		text := m.generate(ctx, mapping)
		if text == "" {
			return false, nil
		}
		return true, el.Fill(ctx, text)
	}
	return false, nil
}

func (m *Mapper) fillSelect(ctx context.Context, el browser.Element, mapping types.FieldMapping) (bool, error) {
	if mapping.Value == "" {
		return false, nil
	}
	candidates := []string{mapping.Value}
	if mapping.FieldType.IsEEO() && mapping.Value == m.opts.Policy.decline() {
		candidates = m.opts.Policy.declineOptions()
	}

	for _, candidate := range candidates {
		err := el.SelectOption(ctx, browser.SelectByLabel, candidate)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, browser.ErrUnsupported) {
			// Custom comboboxes accept typed input.
			return true, el.Fill(ctx, mapping.Value)
		}
		if err := el.SelectOption(ctx, browser.SelectByValue, candidate); err == nil {
			return true, nil
		}
	}
	return false, browser.ErrOptionNotFound
}

func (m *Mapper) upload(ctx context.Context, el browser.Element, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Printf("[MAPPER] Upload file not available: %s", path)
		return false, nil
	}
	if err := el.SetFiles(ctx, path); err != nil {
		return false, err
	}
	settle := browser.Delay{Min: m.opts.UploadSettle, Max: m.opts.UploadSettle}
	return true, settle.Wait(ctx)
}

func (m *Mapper) generate(ctx context.Context, mapping types.FieldMapping) string {
	if mapping.FieldType == types.FieldCoverLetter {
		if m.opts.Generator != nil {
			text, err := m.opts.Generator.CoverLetter(ctx, m.profile)
			if err == nil && strings.TrimSpace(text) != "" {
				return text
			}
			log.Printf("[MAPPER] Cover letter generation failed, using template: %v", err)
		}
		return CoverLetter(m.profile)
	}

	question := mapping.QuestionText
	if answer, ok := m.profile.CustomAnswer(question); ok {
		return answer
	}
	if IsLegalQuestion(question) && !m.profile.AllowDefaultLegalAnswers {
		if m.opts.Verbose {
			log.Printf("[MAPPER] Leaving legal question unanswered: %q", question)
		}
		return ""
	}
	if m.opts.Generator != nil {
		text, err := m.opts.Generator.Answer(ctx, m.profile, question)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		log.Printf("[MAPPER] Answer generation failed, using heuristics: %v", err)
	}
	return QuickAnswer(m.profile, question)
}

func isAffirmative(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

var declineMarkers = []string{"prefer not", "decline", "not wish", "don't wish", "do not want", "not to answer", "not to say", "not to disclose"}

// answerMatches reports whether an option label expresses answer.
func answerMatches(answer, option string) bool {
	a := strings.Fields(browser.NormalizeText(answer))
	o := strings.Fields(browser.NormalizeText(option))
	if len(a) == 0 || len(o) == 0 {
		return false
	}
	if containsAny(strings.Join(a, " "), declineMarkers...) && containsAny(strings.Join(o, " "), declineMarkers...) {
		return true
	}
	if len(o) < len(a) {
		return false
	}
	for i := range a {
		if strings.Trim(o[i], ",.;:") != strings.Trim(a[i], ",.;:") {
			return false
		}
	}
	return true
}
