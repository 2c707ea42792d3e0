package types

// FieldType is the semantic meaning of a form field.
type FieldType string

// Field types recognised by the classifier.
const (
	FieldFirstName         FieldType = "first_name"
	FieldLastName          FieldType = "last_name"
	FieldEmail             FieldType = "email"
	FieldPhone             FieldType = "phone"
	FieldResume            FieldType = "resume"
	FieldCoverLetter       FieldType = "cover_letter"
	FieldLinkedIn          FieldType = "linkedin"
	FieldWebsite           FieldType = "website"
	FieldGitHub            FieldType = "github"
	FieldSalaryExpectation FieldType = "salary_expectation"
	FieldStartDate         FieldType = "start_date"
	FieldReferralSource    FieldType = "referral_source"
	FieldWorkAuthorization FieldType = "work_authorization"
	FieldGender            FieldType = "gender"
	FieldRace              FieldType = "race"
	FieldVeteranStatus     FieldType = "veteran_status"
	FieldDisability        FieldType = "disability"
	FieldAddress           FieldType = "address"
	FieldCustomTextShort   FieldType = "custom_text_short"
	FieldCustomTextLong    FieldType = "custom_text_long"
	FieldCustomSelect      FieldType = "custom_select"
	FieldUnknown           FieldType = "unknown"
)

// IsCustom reports whether t is one of the fallback custom_* types.
func (t FieldType) IsCustom() bool {
	switch t {
	case FieldCustomTextShort, FieldCustomTextLong, FieldCustomSelect:
		return true
	}
	return false
}

// IsEEO reports whether t is a voluntary self-identification field.
func (t FieldType) IsEEO() bool {
	switch t {
	case FieldGender, FieldRace, FieldVeteranStatus, FieldDisability:
		return true
	}
	return false
}

// IsContact reports whether t carries identity or contact data.
func (t FieldType) IsContact() bool {
	switch t {
	case FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldLinkedIn,
		FieldWebsite, FieldGitHub, FieldAddress:
		return true
	}
	return false
}

// FillStrategy is how a mapped field gets its value onto the page.
type FillStrategy string

// Fill strategies.
const (
	StrategyType       FillStrategy = "type"
	StrategySelect     FillStrategy = "select"
	StrategyCheckbox   FillStrategy = "checkbox"
	StrategyRadio      FillStrategy = "radio"
	StrategyUpload     FillStrategy = "upload"
	StrategyAIGenerate FillStrategy = "ai_generate"
)

// FieldMapping binds one page element to a field type, value and strategy.
// The element itself is re-located through Selector when filling.
type FieldMapping struct {
	Selector     string       `json:"selector"`
	FieldType    FieldType    `json:"field_type"`
	Confidence   float64      `json:"confidence"`
	Value        string       `json:"value"`
	Strategy     FillStrategy `json:"fill_strategy"`
	Required     bool         `json:"required"`
	QuestionText string       `json:"question_text,omitempty"`
}
