package fieldmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/autoapply/internal/types"
)

// Default answers for questions a profile does not cover.
const (
	DefaultSalary    = "Negotiable"
	DefaultStartDate = "Immediately"
	DefaultReferral  = "Company Website"
	DefaultDecline   = "Prefer not to say"
	genericAnswer    = "I look forward to discussing this further."
)

// AnswerPolicy decides what goes into sensitive and open-ended fields.
// Voluntary self-identification always declines. Legal questions
// (authorization, sponsorship, clearance) are answered only when the profile
// opts in. A matching custom answer takes precedence over both.
type AnswerPolicy struct {
	Decline          string
	DeclineFallbacks []string
}

// DefaultAnswerPolicy returns the policy used when none is configured.
func DefaultAnswerPolicy() AnswerPolicy {
	return AnswerPolicy{
		Decline: DefaultDecline,
		DeclineFallbacks: []string{
			"Decline to self identify",
			"Decline To Self Identify",
			"I don't wish to answer",
			"I do not wish to answer",
			"I do not want to answer",
			"Decline to state",
			"Prefer not to answer",
		},
	}
}

// Value returns the profile value for a field. An empty string means the
// field should be left alone, except for ai_generate fields which produce
// their text at fill time.
func (p AnswerPolicy) Value(profile *types.UserProfile, ft types.FieldType, question string) string {
	if !ft.IsContact() && ft != types.FieldResume && ft != types.FieldCoverLetter {
		if answer, ok := profile.CustomAnswer(question); ok {
			return answer
		}
	}

	switch ft {
	case types.FieldFirstName:
		return profile.FirstName
	case types.FieldLastName:
		return profile.LastName
	case types.FieldEmail:
		return profile.Email
	case types.FieldPhone:
		return profile.Phone
	case types.FieldResume:
		return profile.ResumePath
	case types.FieldLinkedIn:
		return profile.LinkedInURL
	case types.FieldWebsite:
		if profile.PortfolioURL != "" {
			return profile.PortfolioURL
		}
		return profile.GitHubURL
	case types.FieldGitHub:
		return profile.GitHubURL
	case types.FieldAddress:
		return profile.Location
	case types.FieldSalaryExpectation:
		if profile.SalaryExpectation != "" {
			return profile.SalaryExpectation
		}
		return DefaultSalary
	case types.FieldStartDate:
		return DefaultStartDate
	case types.FieldReferralSource:
		return DefaultReferral
	case types.FieldWorkAuthorization:
		return LegalAnswer(profile, question)
	case types.FieldGender, types.FieldRace, types.FieldVeteranStatus, types.FieldDisability:
		return p.decline()
	case types.FieldCustomTextShort, types.FieldCustomSelect:
		if answer, ok := heuristicAnswer(profile, question); ok {
			return answer
		}
	}
	return ""
}

func (p AnswerPolicy) decline() string {
	if p.Decline == "" {
		return DefaultDecline
	}
	return p.Decline
}

// declineOptions lists the labels tried, in order, when declining in a select.
func (p AnswerPolicy) declineOptions() []string {
	return append([]string{p.decline()}, p.DeclineFallbacks...)
}

// LegalAnswer returns a stock answer to a work-eligibility question when the
// profile allows it, and "" otherwise.
func LegalAnswer(profile *types.UserProfile, question string) string {
	if !profile.AllowDefaultLegalAnswers {
		return ""
	}
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "sponsor"):
		return "No"
	case strings.Contains(q, "clearance"):
		return "No"
	default:
		return "Yes"
	}
}

// IsLegalQuestion reports whether question asks about work eligibility.
func IsLegalQuestion(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range []string{"authorized to work", "authorised to work", "work authorization", "sponsor", "visa", "clearance", "legally"} {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// QuickAnswer answers an open question without a language model.
func QuickAnswer(profile *types.UserProfile, question string) string {
	if answer, ok := profile.CustomAnswer(question); ok {
		return answer
	}
	if answer, ok := heuristicAnswer(profile, question); ok {
		return answer
	}
	return genericAnswer
}

func heuristicAnswer(profile *types.UserProfile, question string) (string, bool) {
	q := strings.ToLower(question)
	if q == "" {
		return "", false
	}

	switch {
	case containsAny(q, "salary", "compensation", "pay", "expectation"):
		if profile.SalaryExpectation != "" {
			return profile.SalaryExpectation, true
		}
		return DefaultSalary, true
	case containsAny(q, "start", "notice", "availability", "when can you"):
		if len(profile.WorkHistory) > 0 {
			return "2 weeks", true
		}
		return DefaultStartDate, true
	case strings.Contains(q, "experience") && containsAny(q, "years", "how many", "how much"):
		if profile.YearsExperience > 0 {
			return strconv.Itoa(profile.YearsExperience), true
		}
		return "3", true
	case containsAny(q, "relocation", "relocate", "willing to move"):
		for _, v := range profile.CustomAnswers {
			if strings.Contains(strings.ToLower(v), "remote") {
				return "Open to relocation", true
			}
		}
		return "Prefer remote/local", true
	case containsAny(q, "remote", "work from home", "wfh"):
		return "Yes, experienced with remote work", true
	case strings.Contains(q, "why") && containsAny(q, "interested", "position", "role", "company"):
		return "I am excited about this opportunity and believe my background aligns well with the requirements. " +
			"I'm particularly interested in contributing to a forward-thinking team.", true
	}
	return "", false
}

// CoverLetter renders the built-in cover letter for profile.
func CoverLetter(profile *types.UserProfile) string {
	skills := "my technical skills"
	if len(profile.Skills) > 0 {
		n := min(len(profile.Skills), 5)
		skills = strings.Join(profile.Skills[:n], ", ")
	}
	years := "several"
	if profile.YearsExperience > 0 {
		years = strconv.Itoa(profile.YearsExperience)
	}

	return fmt.Sprintf(`Dear Hiring Manager,

I am writing to express my strong interest in this position. With %s years of experience and expertise in %s, I am confident I can make a valuable contribution to your team.

My background includes relevant work experience that has prepared me for this role. I am particularly drawn to this opportunity because of the company's innovative approach and commitment to excellence.

Thank you for considering my application. I look forward to discussing how I can contribute to your team.

Sincerely,
%s`, years, skills, profile.FullName())
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
