// Package types provides type definitions for structured data used throughout the autoapply system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserProfile is the candidate data used to fill application forms.
type UserProfile struct {
	FirstName         string             `json:"first_name" validate:"required"`
	LastName          string             `json:"last_name" validate:"required"`
	Email             string             `json:"email" validate:"required,email"`
	Phone             string             `json:"phone" validate:"required"`
	ResumePath        string             `json:"resume_path" validate:"required"`
	ResumeText        string             `json:"resume_text,omitempty"`
	Location          string             `json:"location,omitempty"`
	LinkedInURL       string             `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	PortfolioURL      string             `json:"portfolio_url,omitempty" validate:"omitempty,url"`
	GitHubURL         string             `json:"github_url,omitempty" validate:"omitempty,url"`
	SalaryExpectation string             `json:"salary_expectation,omitempty"`
	YearsExperience   int                `json:"years_experience" validate:"gte=0"`
	Skills            []string           `json:"skills,omitempty"`
	WorkHistory       []WorkHistoryEntry `json:"work_history,omitempty" validate:"dive"`
	Education         []EducationEntry   `json:"education,omitempty" validate:"dive"`
	CustomAnswers     map[string]string  `json:"custom_answers,omitempty"`

	// AllowDefaultLegalAnswers permits stock answers to work-authorization,
	// sponsorship and clearance questions. Off by default.
	AllowDefaultLegalAnswers bool `json:"allow_default_legal_answers,omitempty"`
}

// WorkHistoryEntry is one position in the candidate's work history.
type WorkHistoryEntry struct {
	Company   string `json:"company" validate:"required"`
	Title     string `json:"title" validate:"required"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// EducationEntry is one degree or program.
type EducationEntry struct {
	School string `json:"school" validate:"required"`
	Degree string `json:"degree,omitempty"`
	Field  string `json:"field,omitempty"`
	Year   string `json:"year,omitempty"`
}

// Validate checks required fields and formats.
func (p *UserProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// FullName returns "First Last".
func (p *UserProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// CurrentTitle returns the title of the most recent position, if any.
func (p *UserProfile) CurrentTitle() string {
	if len(p.WorkHistory) == 0 {
		return ""
	}
	return p.WorkHistory[0].Title
}

// CustomAnswer returns the stored answer whose key appears in question.
// Matching is a case-insensitive substring test; the longest matching key wins
// so that "years of go experience" beats "experience".
func (p *UserProfile) CustomAnswer(question string) (string, bool) {
	if len(p.CustomAnswers) == 0 || question == "" {
		return "", false
	}
	q := strings.ToLower(question)

	keys := make([]string, 0, len(p.CustomAnswers))
	for k := range p.CustomAnswers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		needle := strings.ToLower(strings.TrimSpace(k))
		if needle != "" && strings.Contains(q, needle) {
			return p.CustomAnswers[k], true
		}
	}
	return "", false
}
