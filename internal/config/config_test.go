package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"capsolver_api_key": "cs-key",
		"min_confidence": 0.55,
		"max_concurrent": 12,
		"timeout": "90s",
		"solver_poll": 3,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "cs-key", cfg.CapSolverAPIKey)
	assert.Equal(t, 0.55, cfg.MinConfidence)
	assert.Equal(t, 12, cfg.MaxConcurrent)
	assert.Equal(t, Duration(90*time.Second), cfg.Timeout)
	assert.Equal(t, Duration(3*time.Second), cfg.SolverPoll)
	assert.True(t, cfg.Verbose)

	// untouched fields keep defaults
	assert.True(t, cfg.Headless)
	assert.Equal(t, 8, cfg.MaxSteps)
	assert.Equal(t, Duration(30*time.Second), cfg.PassiveCaptchaWait)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"timeout": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvCapSolverKey:  "cs",
		EnvTwoCaptchaKey: "tc",
		EnvMinConfidence: "0.6",
		EnvMaxConcurrent: "20",
		EnvTimeout:       "2m",
		EnvHeadless:      "false",
		EnvBrowserWS:     "ws://127.0.0.1:9222/devtools/browser/abc",
		EnvHistoryDSN:    "sqlite://history.db",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "cs", cfg.CapSolverAPIKey)
	assert.Equal(t, "tc", cfg.TwoCaptchaAPIKey)
	assert.Equal(t, 0.6, cfg.MinConfidence)
	assert.Equal(t, 20, cfg.MaxConcurrent)
	assert.Equal(t, Duration(2*time.Minute), cfg.Timeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "sqlite://history.db", cfg.HistoryDSN)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvMinConfidence, "high"},
		{EnvMaxConcurrent, "many"},
		{EnvTimeout, "forever"},
		{EnvHeadless, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Defaults()
			err := cfg.ApplyEnv(func(k string) (string, bool) {
				if k == tt.key {
					return tt.value, true
				}
				return "", false
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"confidence above one", func(c *Config) { c.MinConfidence = 1.5 }, "min_confidence"},
		{"negative confidence", func(c *Config) { c.MinConfidence = -0.1 }, "min_confidence"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max_concurrent"},
		{"zero steps", func(c *Config) { c.MaxSteps = 0 }, "max_steps"},
		{"negative timeout", func(c *Config) { c.Timeout = Duration(-time.Second) }, "timeout"},
		{"negative solver poll", func(c *Config) { c.SolverPoll = Duration(-1) }, "captcha timings"},
		{"http browser url", func(c *Config) { c.BrowserWS = "http://localhost:9222" }, "browser_ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCaptchaSettings(t *testing.T) {
	cfg := Defaults()
	cfg.CapSolverAPIKey = "cs"

	s := cfg.CaptchaSettings()
	assert.Equal(t, "cs", s.CapSolverKey)
	assert.Empty(t, s.TwoCaptchaKey)
	assert.Equal(t, 30*time.Second, s.PassiveTimeout)
	assert.Equal(t, 120*time.Second, s.SolverTimeout)
	assert.Equal(t, 5*time.Second, s.PollInterval)

	opts := cfg.ChromeOptions()
	assert.True(t, opts.Headless)
	assert.Equal(t, 3, opts.Burst)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"max_concurrent": 2}`), 0644))
	t.Setenv(EnvMaxConcurrent, "7")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConcurrent)
}
