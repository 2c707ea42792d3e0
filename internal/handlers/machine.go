package handlers

// State is a phase of an application attempt.
type State int

const (
	StateInitial State = iota
	StateApplyClicked
	StateFormStep
	StateSubmitted
	StateVerified
	StateUnverified
	StateFailed
	StateRedirect
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateApplyClicked:
		return "apply_clicked"
	case StateFormStep:
		return "form_step"
	case StateSubmitted:
		return "submitted"
	case StateVerified:
		return "verified"
	case StateUnverified:
		return "unverified"
	case StateRedirect:
		return "redirect"
	default:
		return "failed"
	}
}

// Observation is what one form step saw on the page. Guard signals are read
// before the step's fields are filled; button signals after.
type Observation struct {
	Step     int
	MaxSteps int

	Captcha bool
	Login   bool
	Success bool

	Submit bool
	Review bool
	Next   bool
}

// Action is the transition chosen for an Observation.
type Action int

const (
	// ActionFill means no guard fired: fill the step, then look for buttons.
	ActionFill Action = iota
	ActionSolveCaptcha
	ActionLoginRequired
	ActionVerify
	ActionSubmit
	ActionReview
	ActionNext
	ActionStuck
	ActionExhausted
)

func (a Action) String() string {
	return [...]string{"fill", "solve_captcha", "login_required", "verify", "submit", "review", "next", "stuck", "exhausted"}[a]
}

// DecideGuards picks the transition at the start of a step, before any
// field is touched.
func DecideGuards(o Observation) Action {
	switch {
	case o.MaxSteps > 0 && o.Step > o.MaxSteps:
		return ActionExhausted
	case o.Captcha:
		return ActionSolveCaptcha
	case o.Login:
		return ActionLoginRequired
	case o.Success:
		return ActionVerify
	}
	return ActionFill
}

// Decide picks the transition for a filled step. Submit beats review beats
// next; a step offering none of them is stuck.
func Decide(o Observation) Action {
	if a := DecideGuards(o); a != ActionFill {
		return a
	}
	switch {
	case o.Submit:
		return ActionSubmit
	case o.Review:
		return ActionReview
	case o.Next:
		return ActionNext
	}
	return ActionStuck
}
