package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/autoapply/internal/prompts"
	"github.com/jonathan/autoapply/internal/types"
)

// Answer length limits, in characters.
const (
	MaxAnswerChars      = 1000
	MaxCoverLetterChars = 2500
)

const maxPromptSkills = 8

// Answerer writes cover letters and screening answers for a profile.
// It satisfies fieldmap.TextGenerator.
type Answerer struct {
	client Client
}

// NewAnswerer creates an Answerer backed by client.
func NewAnswerer(client Client) *Answerer {
	return &Answerer{client: client}
}

// CoverLetter writes a short letter from the profile's facts.
func (a *Answerer) CoverLetter(ctx context.Context, profile *types.UserProfile) (string, error) {
	prompt, err := prompts.Render(prompts.Application, prompts.KeyCoverLetter, promptData(profile))
	if err != nil {
		return "", err
	}
	text, err := a.client.GenerateContent(ctx, prompt, TierStandard)
	if err != nil {
		return "", fmt.Errorf("cover letter generation failed: %w", err)
	}
	letter := Truncate(CleanAnswer(text), MaxCoverLetterChars)
	if letter == "" {
		return "", fmt.Errorf("cover letter generation returned no text")
	}
	return letter, nil
}

// Answer writes a reply to one open-ended form question. Long-form
// questions get more room than one-liners.
func (a *Answerer) Answer(ctx context.Context, profile *types.UserProfile, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("empty question")
	}

	data := promptData(profile)
	data["Question"] = question
	tier, sentences := TierLite, "2"
	if longForm(question) {
		tier, sentences = TierStandard, "5"
	}
	data["MaxSentences"] = sentences

	prompt, err := prompts.Render(prompts.Application, prompts.KeyScreeningAnswer, data)
	if err != nil {
		return "", err
	}
	text, err := a.client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	answer := Truncate(CleanAnswer(text), MaxAnswerChars)
	if answer == "" {
		return "", fmt.Errorf("model declined to answer %q", question)
	}
	return answer, nil
}

func longForm(question string) bool {
	q := strings.ToLower(question)
	for _, w := range []string{"why", "describe", "tell us", "explain", "cover letter", "anything else"} {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func promptData(p *types.UserProfile) map[string]string {
	skills := p.Skills
	if len(skills) > maxPromptSkills {
		skills = skills[:maxPromptSkills]
	}

	var history strings.Builder
	for i, job := range p.WorkHistory {
		if i == 3 {
			break
		}
		fmt.Fprintf(&history, "- %s at %s", job.Title, job.Company)
		if job.Summary != "" {
			fmt.Fprintf(&history, ": %s", job.Summary)
		}
		history.WriteString("\n")
	}

	return map[string]string{
		"Name":     p.FullName(),
		"Title":    orNone(p.CurrentTitle()),
		"Years":    strconv.Itoa(p.YearsExperience),
		"Skills":   orNone(strings.Join(skills, ", ")),
		"Location": orNone(p.Location),
		"History":  orNone(strings.TrimSpace(history.String())),
	}
}

func orNone(s string) string {
	if s == "" {
		return "(not provided)"
	}
	return s
}
