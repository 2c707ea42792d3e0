package handlers

import "github.com/jonathan/autoapply/internal/types"

// Flow selects how a platform's application is driven.
type Flow int

const (
	// FlowForm opens an application form on the ATS and steps through it.
	FlowForm Flow = iota
	// FlowJobBoard starts on a job board listing that either hands off to
	// an external ATS or opens an in-board easy apply form.
	FlowJobBoard
)

// Profile is the selector table for one platform. Every selector list is
// tried in order and the first visible match wins.
type Profile struct {
	Platform    types.Platform
	URLPatterns []string
	Flow        Flow

	// FormReady means the application form is already on the page.
	FormReady []string
	Apply     []string
	Guest     []string

	ExternalApply   []string
	EasyApply       []string
	ManualEasyApply bool

	Next    []string
	Review  []string
	Submit  []string
	Success []string
	Captcha []string
	Login   []string

	// A page containing DelegateMarker is driven with Delegate's selectors.
	DelegateMarker string
	Delegate       *Profile
}

var commonCaptcha = []string{
	`iframe[src*="recaptcha"]`,
	`.g-recaptcha`,
	`#recaptcha`,
	`.h-captcha`,
}

var passwordWall = []string{`input[type="password"]`}

var guestButtons = []string{
	`button:has-text("Apply as Guest")`,
	`button:has-text("Continue as Guest")`,
	`a:has-text("Apply without registering")`,
	`a:has-text("Apply as Guest")`,
}

// Workday drives myworkdayjobs.com tenants, including the guest apply path.
var Workday = Profile{
	Platform:    types.PlatformWorkday,
	URLPatterns: []string{"myworkdayjobs.com", "workday.com", "wd101.myworkdayjobs.com"},
	FormReady:   []string{`[data-automation-id="applyFlowPage"]`, `[data-automation-id="formField"]`},
	Apply: []string{
		`button[data-automation-id="applyButton"]`,
		`a[data-automation-id="applyButton"]`,
		`[data-automation-id="apply-button"]`,
		`button.apply-button`,
		`button:has-text("Apply")`,
		`a:has-text("Apply Manually")`,
	},
	Guest: guestButtons,
	Next: []string{
		`button[data-automation-id="nextButton"]`,
		`button[data-automation-id="saveAndContinue"]`,
		`button:has-text("Save and Continue")`,
		`button:has-text("Next")`,
	},
	Review: []string{`button[data-automation-id="reviewButton"]`, `button:has-text("Review")`},
	Submit: []string{
		`button[data-automation-id="submitButton"]`,
		`button[type="submit"]:has-text("Submit Application")`,
		`button:has-text("Submit")`,
	},
	Success: []string{
		`[data-automation-id="applicationSubmitted"]`,
		`h1:has-text("Thank You")`,
		`h2:has-text("Application Received")`,
	},
	Captcha: commonCaptcha,
	Login: append([]string{
		`[data-automation-id="signInContent"]`,
		`button[data-automation-id="createAccountButton"]`,
	}, passwordWall...),
}

var Taleo = Profile{
	Platform:    types.PlatformTaleo,
	URLPatterns: []string{"taleo.net", "oraclecloud.com", "taleo"},
	FormReady:   []string{`form#requisitionDescriptionInterface`, `form[name="ftf"]`},
	Apply: []string{
		`a:has-text("Apply Online")`,
		`button:has-text("Apply")`,
		`a:has-text("Apply")`,
		`input[value="Apply"]`,
	},
	Guest: guestButtons,
	Next: []string{
		`input[value="Save and Continue"]`,
		`input[value="Continue"]`,
		`input[value="Next"]`,
		`button:has-text("Continue")`,
		`button:has-text("Next")`,
	},
	Review: []string{`input[value="Review"]`, `button:has-text("Review")`},
	Submit: []string{
		`input[value="Submit"]`,
		`input[value="Finish"]`,
		`input[value="Complete"]`,
		`button:has-text("Submit")`,
	},
	Success: []string{`.confirmation`, `h1:has-text("Thank You")`},
	Captcha: commonCaptcha,
	Login:   passwordWall,
}

var ICIMS = Profile{
	Platform:    types.PlatformICIMS,
	URLPatterns: []string{"icims.com", "jobs.net"},
	FormReady:   []string{`#iCIMS_ApplicantProfile`, `form.iCIMS_Form`},
	Apply: []string{
		`.iCIMS_Button:has-text("Apply Now")`,
		`a:has-text("Apply for this job online")`,
		`button:has-text("Apply")`,
		`input[value="Apply"]`,
	},
	Guest:  guestButtons,
	Next:   []string{`.iCIMS_Button:has-text("Next")`, `button:has-text("Next")`, `input[value="Next"]`},
	Review: []string{`button:has-text("Review")`},
	Submit: []string{
		`.iCIMS_Button:has-text("Submit")`,
		`input[value="Submit"]`,
		`button:has-text("Submit")`,
	},
	Success: []string{`.iCIMS_Confirmation`, `h1:has-text("Thank You")`},
	Captcha: commonCaptcha,
	Login:   passwordWall,
}

var SuccessFactors = Profile{
	Platform:    types.PlatformSuccessFactors,
	URLPatterns: []string{"successfactors.com", "sapsf", "jobs.sap.com", "careerportal"},
	FormReady:   []string{`form#applyForm`, `[data-help-id="applicationForm"]`},
	Apply: []string{
		`button[data-help-id="applyButton"]`,
		`button:has-text("Apply")`,
		`a:has-text("Apply")`,
	},
	Guest:   guestButtons,
	Next:    []string{`button[data-help-id="nextButton"]`, `button:has-text("Next")`, `button:has-text("Continue")`},
	Review:  []string{`button:has-text("Review")`},
	Submit:  []string{`button[data-help-id="submitButton"]`, `button:has-text("Submit")`},
	Success: []string{`.applicationComplete`, `h1:has-text("Thank You")`},
	Captcha: commonCaptcha,
	Login:   passwordWall,
}

var ADP = Profile{
	Platform:    types.PlatformADP,
	URLPatterns: []string{"workforcenow.adp.com", "recruiting.adp.com", "adp.com"},
	FormReady:   []string{`form#applicationForm`, `.application-form`},
	Apply: []string{
		`button:has-text("Apply")`,
		`a:has-text("Apply")`,
		`input[value="Apply"]`,
	},
	Guest:   guestButtons,
	Next:    []string{`button:has-text("Next")`, `button:has-text("Continue")`},
	Review:  []string{`button:has-text("Review")`},
	Submit:  []string{`button:has-text("Submit")`, `input[type="submit"]`},
	Success: []string{`.confirmation`, `h1:has-text("Thank You")`},
	Captcha: commonCaptcha,
	Login:   passwordWall,
}

var Greenhouse = Profile{
	Platform:    types.PlatformGreenhouse,
	URLPatterns: []string{"greenhouse.io", "boards.greenhouse.io"},
	FormReady:   []string{`#application_form`, `#application-form`, `form#application`, `form`},
	Apply: []string{
		`a:has-text("Apply for this job")`,
		`a[href*="#application_form"]`,
		`.apply-button`,
		`button:has-text("Apply")`,
	},
	Submit: []string{
		`#submit_app`,
		`input[type="submit"]`,
		`button[type="submit"]`,
		`.submit-button`,
		`button:has-text("Submit Application")`,
	},
	Success: []string{`#thank_you`, `.thank-you`, `h1:has-text("Thank You")`, `h2:has-text("Application Received")`},
	Captcha: commonCaptcha,
}

var Lever = Profile{
	Platform:    types.PlatformLever,
	URLPatterns: []string{"jobs.lever.co", "lever.co"},
	FormReady:   []string{`.application-form`, `form#application-form`, `#application`},
	Apply:       []string{`.postings-btn`, `a:has-text("Apply for this job")`, `a:has-text("Apply")`},
	Submit: []string{
		`button[type="submit"]`,
		`.postings-btn.template-btn-submit`,
		`button:has-text("Submit Application")`,
	},
	Success: []string{`.postings-success-message`, `h2:has-text("Application submitted")`, `.confirmation-message`},
	Captcha: commonCaptcha,
}

var AngelList = Profile{
	Platform:    types.PlatformAngelList,
	URLPatterns: []string{"angel.co", "wellfound.com", "angel.list"},
	FormReady:   []string{`form[data-test="JobApplication"]`},
	Apply:       []string{`button:has-text("Apply Now")`, `button:has-text("Apply")`, `a:has-text("Apply")`},
	Guest:       []string{`button:has-text("Quick Apply")`},
	Submit:      []string{`button[type="submit"]`, `button:has-text("Submit")`, `input[value="Submit"]`},
	Success:     []string{`h2:has-text("Application sent")`, `.application-sent`},
	Captcha:     commonCaptcha,
	Login:       append([]string{`a:has-text("Sign in")`}, passwordWall...),

	DelegateMarker: "greenhouse",
	Delegate:       &Greenhouse,
}

var Dice = Profile{
	Platform:      types.PlatformDice,
	URLPatterns:   []string{"dice.com", "www.dice.com"},
	Flow:          FlowJobBoard,
	ExternalApply: []string{`a[data-cy="apply-button-external"]`, `a.apply-button[href^="http"]`},
	EasyApply: []string{
		`button:has-text("Easy Apply")`,
		`a:has-text("Easy Apply")`,
		`.easy-apply-button`,
		`apply-button-wc`,
	},
	Guest:   []string{`button:has-text("Apply as Guest")`},
	Next:    []string{`button:has-text("Next")`, `button:has-text("Continue")`},
	Submit:  []string{`button:has-text("Submit")`, `button:has-text("Send Application")`, `input[value="Submit"]`},
	Success: []string{`.application-submitted`, `h1:has-text("Application Submitted")`},
	Captcha: commonCaptcha,
	Login:   passwordWall,
}

var Indeed = Profile{
	Platform:    types.PlatformIndeed,
	URLPatterns: []string{"indeed.com/viewjob", "indeed.com/rc/clk", "indeed.com/apply"},
	Flow:        FlowJobBoard,
	ExternalApply: []string{
		`a:has-text("Apply on company site")`,
		`[data-testid="apply-on-company-site"]`,
		`a[href*="apply"]:has-text("company")`,
		`button:has-text("Apply on company site")`,
	},
	EasyApply:       []string{`button:has-text("Apply now")`, `[data-testid="apply-button"]`, `.indeed-apply-button`},
	ManualEasyApply: true,
	Captcha:         append([]string{`#challenge-form`}, commonCaptcha...),
	Login:           passwordWall,
}

var LinkedIn = Profile{
	Platform:    types.PlatformLinkedIn,
	URLPatterns: []string{"linkedin.com/jobs/view", "linkedin.com/jobs/cmp", "linkedin.com/job/view"},
	Flow:        FlowJobBoard,
	ExternalApply: []string{
		`[data-control-name="jobdetails_topcard_external_apply"]`,
		`a.jobs-apply-button[href]`,
		`a:has-text("Apply on company website")`,
		`button:has-text("Apply on company website")`,
	},
	EasyApply: []string{
		`button:has-text("Easy Apply")`,
		`[data-control-name="jobdetails_topcard_inapply"]`,
		`.jobs-apply-button--top-card`,
	},
	Next:    []string{`button[aria-label="Continue to next step"]`, `button:has-text("Next")`},
	Review:  []string{`button[aria-label="Review your application"]`, `button:has-text("Review")`},
	Submit:  []string{`button[aria-label="Submit application"]`, `button:has-text("Submit application")`},
	Success: []string{`h3:has-text("Your application was sent")`, `.artdeco-inline-feedback--success`},
	Captcha: commonCaptcha,
	Login: append([]string{
		`form.login__form`,
		`a:has-text("Sign in to apply")`,
	}, passwordWall...),
}

// Profiles returns every platform profile in dispatch order.
func Profiles() []Profile {
	return []Profile{Workday, Taleo, ICIMS, SuccessFactors, ADP, AngelList, Greenhouse, Lever, Dice, Indeed, LinkedIn}
}
