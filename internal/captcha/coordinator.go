package captcha

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
)

// Outcome is the result of one strategy attempt.
type Outcome int

const (
	// Unsolved means the strategy ran and the challenge remains.
	Unsolved Outcome = iota
	// Solved means the challenge was cleared or a token was injected.
	Solved
	// Skipped means the strategy could not apply to this page.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Skipped:
		return "skipped"
	default:
		return "unsolved"
	}
}

// Strategy is one stage of the solving cascade.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, page browser.Page, timeout time.Duration) (Outcome, error)
}

// Stage binds a strategy to its own time budget.
type Stage struct {
	Strategy Strategy
	Timeout  time.Duration
}

// Stats counts coordinator activity.
type Stats struct {
	Attempts   int            `json:"attempts"`
	Solved     int            `json:"solved"`
	Failed     int            `json:"failed"`
	ByStrategy map[string]int `json:"by_strategy"`
}

// Coordinator runs stages in order until one solves the challenge.
// It is safe for concurrent use.
type Coordinator struct {
	stages  []Stage
	verbose bool

	mu    sync.Mutex
	stats Stats
}

// NewCoordinator creates a coordinator over the given stages.
func NewCoordinator(verbose bool, stages ...Stage) *Coordinator {
	return &Coordinator{
		stages:  stages,
		verbose: verbose,
		stats:   Stats{ByStrategy: make(map[string]int)},
	}
}

// Stages returns the configured strategy names in order.
func (c *Coordinator) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Strategy.Name()
	}
	return names
}

// Present reports whether the page shows a challenge. Inspection errors
// count as present so callers stop instead of submitting blind.
func (c *Coordinator) Present(ctx context.Context, page browser.Page) bool {
	present, err := Present(ctx, page)
	if err != nil {
		log.Printf("[CAPTCHA] Presence check failed: %v", err)
		return true
	}
	return present
}

// Solve clears the challenge on page, or reports false once every stage
// is exhausted. timeout bounds the whole cascade when positive; each stage
// is further bounded by its own timeout.
func (c *Coordinator) Solve(ctx context.Context, page browser.Page, timeout time.Duration) bool {
	if !c.Present(ctx, page) {
		return true
	}

	c.mu.Lock()
	c.stats.Attempts++
	c.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for _, stage := range c.stages {
		if ctx.Err() != nil {
			break
		}
		budget := stage.Timeout
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			if budget <= 0 || remaining < budget {
				budget = remaining
			}
		}

		name := stage.Strategy.Name()
		if c.verbose {
			log.Printf("[CAPTCHA] Trying %s (budget %s)", name, budget)
		}
		outcome, err := stage.Strategy.Attempt(ctx, page, budget)
		if err != nil {
			log.Printf("[CAPTCHA] %s failed: %v", name, err)
		}
		if outcome == Solved {
			c.mu.Lock()
			c.stats.Solved++
			c.stats.ByStrategy[name]++
			c.mu.Unlock()
			if c.verbose {
				log.Printf("[CAPTCHA] Solved by %s", name)
			}
			return true
		}
		if c.verbose {
			log.Printf("[CAPTCHA] %s: %s", name, outcome)
		}
	}

	if len(c.stages) == 0 {
		log.Printf("[CAPTCHA] No solving strategy configured")
	}
	c.mu.Lock()
	c.stats.Failed++
	c.mu.Unlock()
	return false
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.ByStrategy = make(map[string]int, len(c.stats.ByStrategy))
	for k, v := range c.stats.ByStrategy {
		out.ByStrategy[k] = v
	}
	return out
}

// Settings selects which stages a default coordinator carries.
type Settings struct {
	CapSolverKey   string
	TwoCaptchaKey  string
	PassiveTimeout time.Duration
	SolverTimeout  time.Duration
	PollInterval   time.Duration
	Verbose        bool
}

// FromSettings builds the standard cascade: passive wait, then CapSolver,
// then 2Captcha. Solver stages without a key are left out.
func FromSettings(s Settings) *Coordinator {
	stages := []Stage{{Strategy: NewPassive(time.Second), Timeout: s.PassiveTimeout}}
	if s.CapSolverKey != "" {
		cs := NewCapSolver(s.CapSolverKey)
		if s.PollInterval > 0 {
			cs.PollInterval = s.PollInterval
		}
		stages = append(stages, Stage{Strategy: NewSolverStrategy(cs), Timeout: s.SolverTimeout})
	}
	if s.TwoCaptchaKey != "" {
		tc := NewTwoCaptcha(s.TwoCaptchaKey)
		if s.PollInterval > 0 {
			tc.PollInterval = s.PollInterval
		}
		stages = append(stages, Stage{Strategy: NewSolverStrategy(tc), Timeout: s.SolverTimeout})
	}
	return NewCoordinator(s.Verbose, stages...)
}
