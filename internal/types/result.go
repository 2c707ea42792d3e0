package types

import "time"

// Status is the outcome vocabulary of an application attempt.
type Status string

// Statuses.
const (
	StatusSubmitted        Status = "submitted"
	StatusFailed           Status = "failed"
	StatusRedirect         Status = "redirect"
	StatusManualRequired   Status = "manual_required"
	StatusCaptchaBlocked   Status = "captcha_blocked"
	StatusLowConfidence    Status = "low_confidence"
	StatusTimeout          Status = "timeout"
	StatusException        Status = "exception"
	StatusError            Status = "error"
	StatusNoSubmitButton   Status = "no_submit_button"
	StatusNoApplyButton    Status = "no_apply_button"
	StatusLoginRequired    Status = "login_required"
	StatusMaxStepsExceeded Status = "max_steps_exceeded"
	StatusUnverified       Status = "unverified"
	StatusDuplicate        Status = "duplicate"
)

// Platform identifies an applicant tracking system.
type Platform string

// Supported platforms.
const (
	PlatformWorkday        Platform = "workday"
	PlatformTaleo          Platform = "taleo"
	PlatformICIMS          Platform = "icims"
	PlatformSuccessFactors Platform = "successfactors"
	PlatformADP            Platform = "adp"
	PlatformGreenhouse     Platform = "greenhouse"
	PlatformLever          Platform = "lever"
	PlatformAngelList      Platform = "angellist"
	PlatformDice           Platform = "dice"
	PlatformIndeed         Platform = "indeed"
	PlatformLinkedIn       Platform = "linkedin"
	PlatformUnknown        Platform = "unknown"
)

// ApplicationResult is the outcome of a single application attempt.
// Success is true only when Status is StatusSubmitted and the submission
// was verified.
type ApplicationResult struct {
	Success        bool          `json:"success"`
	Platform       Platform      `json:"platform"`
	JobID          string        `json:"job_id,omitempty"`
	JobURL         string        `json:"job_url"`
	Status         Status        `json:"status"`
	ConfirmationID string        `json:"confirmation_id,omitempty"`
	Error          string        `json:"error,omitempty"`
	RedirectURL    string        `json:"redirect_url,omitempty"`
	FieldsFilled   int           `json:"fields_filled"`
	TotalFields    int           `json:"total_fields"`
	Steps          int           `json:"steps,omitempty"`
	SessionID      string        `json:"session_id,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// BatchReport aggregates a set of results.
type BatchReport struct {
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPlatform map[Platform]int `json:"by_platform"`
}

// Summarize builds a BatchReport from results.
func Summarize(results []ApplicationResult) BatchReport {
	report := BatchReport{
		Total:      len(results),
		ByStatus:   make(map[Status]int),
		ByPlatform: make(map[Platform]int),
	}
	for _, r := range results {
		if r.Success {
			report.Succeeded++
		}
		report.ByStatus[r.Status]++
		report.ByPlatform[r.Platform]++
	}
	return report
}
