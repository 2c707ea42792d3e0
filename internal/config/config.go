// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/captcha"
)

// Environment variables read by ApplyEnv.
const (
	EnvCapSolverKey  = "CAPSOLVER_API_KEY"
	EnvTwoCaptchaKey = "TWOCAPTCHA_API_KEY"
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvMinConfidence = "AUTOAPPLY_MIN_CONFIDENCE"
	EnvMaxConcurrent = "AUTOAPPLY_MAX_CONCURRENT"
	EnvTimeout       = "AUTOAPPLY_TIMEOUT"
	EnvHeadless      = "AUTOAPPLY_HEADLESS"
	EnvBrowserWS     = "AUTOAPPLY_BROWSER_WS"
	EnvHistoryDSN    = "AUTOAPPLY_HISTORY_DSN"
)

// Duration is a time.Duration that reads "90s"-style strings or a number of
// seconds from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the CLI configuration. Values missing from the file keep
// their defaults.
type Config struct {
	// Solver and model credentials
	CapSolverAPIKey  string `json:"capsolver_api_key,omitempty"`
	TwoCaptchaAPIKey string `json:"twocaptcha_api_key,omitempty"`
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`

	// Form filling
	MinConfidence float64 `json:"min_confidence"`
	MaxSteps      int     `json:"max_steps"`

	// Scheduling
	MaxConcurrent int      `json:"max_concurrent"`
	Timeout       Duration `json:"timeout"`

	// Browser
	Headless     bool    `json:"headless"`
	BrowserWS    string  `json:"browser_ws,omitempty"` // DevTools websocket of a remote browser
	SessionRate  float64 `json:"session_rate"`         // session launches per second
	SessionBurst int     `json:"session_burst"`

	// CAPTCHA cascade
	PassiveCaptchaWait Duration `json:"passive_captcha_wait"`
	SolverTimeout      Duration `json:"solver_timeout"`
	SolverPoll         Duration `json:"solver_poll"`

	// Output
	HistoryDSN    string `json:"history_dsn,omitempty"`
	ScreenshotDir string `json:"screenshot_dir,omitempty"`
	Verbose       bool   `json:"verbose,omitempty"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		MinConfidence:      0.4,
		MaxSteps:           8,
		MaxConcurrent:      5,
		Timeout:            Duration(5 * time.Minute),
		Headless:           true,
		SessionRate:        1,
		SessionBurst:       3,
		PassiveCaptchaWait: Duration(30 * time.Second),
		SolverTimeout:      Duration(120 * time.Second),
		SolverPoll:         Duration(5 * time.Second),
	}
}

// LoadConfig loads configuration from a JSON file over Defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// Load reads the optional file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvCapSolverKey, &c.CapSolverAPIKey)
	str(EnvTwoCaptchaKey, &c.TwoCaptchaAPIKey)
	str(EnvGeminiKey, &c.GeminiAPIKey)
	str(EnvBrowserWS, &c.BrowserWS)
	str(EnvHistoryDSN, &c.HistoryDSN)

	if v, ok := lookup(EnvMinConfidence); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvMinConfidence, err)
		}
		c.MinConfidence = f
	}
	if v, ok := lookup(EnvMaxConcurrent); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvMaxConcurrent, err)
		}
		c.MaxConcurrent = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration(d)
	}
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvHeadless, err)
		}
		c.Headless = b
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("config error: 'min_confidence' must be between 0 and 1")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config error: 'max_concurrent' must be at least 1")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("config error: 'max_steps' must be at least 1")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config error: 'timeout' must be non-negative")
	}
	if c.SessionRate < 0 || c.SessionBurst < 0 {
		return fmt.Errorf("config error: session rate and burst must be non-negative")
	}
	if c.PassiveCaptchaWait < 0 || c.SolverTimeout < 0 || c.SolverPoll < 0 {
		return fmt.Errorf("config error: captcha timings must be non-negative")
	}
	if c.BrowserWS != "" && !strings.HasPrefix(c.BrowserWS, "ws://") && !strings.HasPrefix(c.BrowserWS, "wss://") {
		return fmt.Errorf("config error: 'browser_ws' must be a ws:// or wss:// URL")
	}
	return nil
}

// CaptchaSettings returns the solver cascade configuration.
func (c *Config) CaptchaSettings() captcha.Settings {
	return captcha.Settings{
		CapSolverKey:   c.CapSolverAPIKey,
		TwoCaptchaKey:  c.TwoCaptchaAPIKey,
		PassiveTimeout: time.Duration(c.PassiveCaptchaWait),
		SolverTimeout:  time.Duration(c.SolverTimeout),
		PollInterval:   time.Duration(c.SolverPoll),
		Verbose:        c.Verbose,
	}
}

// ChromeOptions returns the browser provider configuration.
func (c *Config) ChromeOptions() browser.ChromeOptions {
	return browser.ChromeOptions{
		Headless:  c.Headless,
		RemoteURL: c.BrowserWS,
		RateLimit: rate.Limit(c.SessionRate),
		Burst:     c.SessionBurst,
		Verbose:   c.Verbose,
	}
}
