package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/autoapply/internal/types"
)

func testProfile() *types.UserProfile {
	return &types.UserProfile{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Phone:           "555-0100",
		ResumePath:      "/tmp/resume.pdf",
		GitHubURL:       "https://github.com/ada",
		YearsExperience: 7,
		Skills:          []string{"Go", "Postgres", "Kubernetes"},
	}
}

func TestAnswerPolicy_Value(t *testing.T) {
	policy := DefaultAnswerPolicy()

	tests := []struct {
		name     string
		mutate   func(*types.UserProfile)
		ft       types.FieldType
		question string
		want     string
	}{
		{name: "first name", ft: types.FieldFirstName, want: "Ada"},
		{name: "website falls back to github", ft: types.FieldWebsite, want: "https://github.com/ada"},
		{
			name:   "website prefers portfolio",
			mutate: func(p *types.UserProfile) { p.PortfolioURL = "https://ada.dev" },
			ft:     types.FieldWebsite,
			want:   "https://ada.dev",
		},
		{name: "salary default", ft: types.FieldSalaryExpectation, want: "Negotiable"},
		{name: "start date", ft: types.FieldStartDate, want: "Immediately"},
		{name: "referral", ft: types.FieldReferralSource, want: "Company Website"},
		{name: "eeo declines", ft: types.FieldRace, want: "Prefer not to say"},
		{name: "legal without opt-in", ft: types.FieldWorkAuthorization, question: "Are you authorized to work in the US?", want: ""},
		{
			name:     "legal with opt-in",
			mutate:   func(p *types.UserProfile) { p.AllowDefaultLegalAnswers = true },
			ft:       types.FieldWorkAuthorization,
			question: "Are you authorized to work in the US?",
			want:     "Yes",
		},
		{
			name:     "sponsorship with opt-in",
			mutate:   func(p *types.UserProfile) { p.AllowDefaultLegalAnswers = true },
			ft:       types.FieldWorkAuthorization,
			question: "Will you require visa sponsorship?",
			want:     "No",
		},
		{
			name:     "custom answer beats eeo default",
			mutate:   func(p *types.UserProfile) { p.CustomAnswers = map[string]string{"gender": "Female"} },
			ft:       types.FieldGender,
			question: "Gender",
			want:     "Female",
		},
		{
			name:     "custom answer beats legal gate",
			mutate:   func(p *types.UserProfile) { p.CustomAnswers = map[string]string{"sponsorship": "No"} },
			ft:       types.FieldWorkAuthorization,
			question: "Do you need sponsorship?",
			want:     "No",
		},
		{
			name:     "custom answers never override contact data",
			mutate:   func(p *types.UserProfile) { p.CustomAnswers = map[string]string{"email": "other@example.com"} },
			ft:       types.FieldEmail,
			question: "Email",
			want:     "ada@example.com",
		},
		{name: "short custom with heuristic", ft: types.FieldCustomTextShort, question: "Years of experience with Go?", want: "7"},
		{name: "short custom without heuristic", ft: types.FieldCustomTextShort, question: "Favourite editor", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			assert.Equal(t, tt.want, policy.Value(p, tt.ft, tt.question))
		})
	}
}

func TestQuickAnswer(t *testing.T) {
	p := testProfile()

	assert.Equal(t, "Negotiable", QuickAnswer(p, "What are your salary expectations?"))
	assert.Equal(t, "Immediately", QuickAnswer(p, "When can you start?"))
	assert.Equal(t, "7", QuickAnswer(p, "How many years of experience do you have?"))
	assert.Equal(t, "Yes, experienced with remote work", QuickAnswer(p, "Are you comfortable working remote?"))
	assert.Equal(t, "Prefer remote/local", QuickAnswer(p, "Are you willing to relocate?"))
	assert.Contains(t, QuickAnswer(p, "Why are you interested in this role?"), "excited about this opportunity")
	assert.Equal(t, genericAnswer, QuickAnswer(p, "Anything else?"))

	p.WorkHistory = []types.WorkHistoryEntry{{Company: "Engines", Title: "Programmer"}}
	assert.Equal(t, "2 weeks", QuickAnswer(p, "What is your notice period?"))
}

func TestCoverLetter(t *testing.T) {
	p := testProfile()
	letter := CoverLetter(p)
	assert.Contains(t, letter, "With 7 years of experience")
	assert.Contains(t, letter, "Go, Postgres, Kubernetes")
	assert.Contains(t, letter, "Sincerely,\nAda Lovelace")

	p.Skills = nil
	p.YearsExperience = 0
	letter = CoverLetter(p)
	assert.Contains(t, letter, "With several years of experience and expertise in my technical skills")
}

func TestAnswerMatches(t *testing.T) {
	tests := []struct {
		answer, option string
		want           bool
	}{
		{"Yes", "Yes", true},
		{"Yes", "Yes, I am authorized", true},
		{"No", "Not a protected veteran", false},
		{"No", "No", true},
		{"Prefer not to say", "I don't wish to answer", true},
		{"Prefer not to say", "Decline to self identify", true},
		{"Prefer not to say", "Male", false},
		{"", "Yes", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer+"/"+tt.option, func(t *testing.T) {
			assert.Equal(t, tt.want, answerMatches(tt.answer, tt.option))
		})
	}
}

func TestIsLegalQuestion(t *testing.T) {
	assert.True(t, IsLegalQuestion("Do you require visa sponsorship?"))
	assert.True(t, IsLegalQuestion("Are you legally able to work here?"))
	assert.False(t, IsLegalQuestion("Tell us about yourself"))
}
