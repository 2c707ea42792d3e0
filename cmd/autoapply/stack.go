package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/captcha"
	"github.com/jonathan/autoapply/internal/config"
	"github.com/jonathan/autoapply/internal/fieldmap"
	"github.com/jonathan/autoapply/internal/handlers"
	"github.com/jonathan/autoapply/internal/history"
	"github.com/jonathan/autoapply/internal/llm"
	"github.com/jonathan/autoapply/internal/profile"
	"github.com/jonathan/autoapply/internal/router"
	"github.com/jonathan/autoapply/internal/types"
	"github.com/jonathan/autoapply/internal/verify"
)

// stack is everything an apply or batch run needs. Cleanup on the router
// releases the browser, the model client and the history store.
type stack struct {
	router  *router.Router
	captcha *captcha.Coordinator
}

// pacing holds the human-like delays of a run.
type pacing struct {
	timing       handlers.Timing
	field        browser.Delay
	uploadSettle time.Duration
}

func defaultPacing() pacing {
	opts := fieldmap.DefaultOptions()
	return pacing{timing: handlers.DefaultTiming(), field: opts.FieldDelay, uploadSettle: opts.UploadSettle}
}

// mapperOptions returns the field mapper settings for cfg.
func mapperOptions(cfg *config.Config, gen fieldmap.TextGenerator) fieldmap.Options {
	opts := fieldmap.DefaultOptions()
	opts.MinConfidence = cfg.MinConfidence
	opts.Verbose = cfg.Verbose
	if gen != nil {
		opts.Generator = gen
	}
	return opts
}

// newStack wires the router for profile over sessions from provider.
func newStack(ctx context.Context, cfg *config.Config, p *types.UserProfile, provider browser.Provider, pace pacing) (*stack, error) {
	closers := []io.Closer{provider}
	release := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	var gen fieldmap.TextGenerator
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		gen = llm.NewAnswerer(client)
		closers = append(closers, client)
	} else if cfg.Verbose {
		log.Printf("[SETUP] GEMINI_API_KEY not set; free-text questions use stock answers")
	}

	mapper := mapperOptions(cfg, gen)
	mapper.FieldDelay = pace.field
	mapper.UploadSettle = pace.uploadSettle

	coordinator := captcha.FromSettings(cfg.CaptchaSettings())
	deps := handlers.Deps{
		Sessions:       provider,
		Profile:        p,
		Captcha:        coordinator,
		Verifier:       verify.New(verify.WithVerbose(cfg.Verbose)),
		Mapper:         mapper,
		Timing:         pace.timing,
		MaxSteps:       cfg.MaxSteps,
		CaptchaTimeout: time.Duration(cfg.PassiveCaptchaWait) + 2*time.Duration(cfg.SolverTimeout),
		Verbose:        cfg.Verbose,
	}
	if cfg.ScreenshotDir != "" {
		deps.Screenshots = handlers.DirSink{Dir: cfg.ScreenshotDir}
	}

	opts := []router.Option{
		router.WithTimeout(time.Duration(cfg.Timeout)),
		router.WithConcurrency(cfg.MaxConcurrent),
		router.WithVerbose(cfg.Verbose),
	}
	if cfg.HistoryDSN != "" {
		store, err := history.Open(ctx, cfg.HistoryDSN)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		opts = append(opts, router.WithHistory(store))
		closers = append(closers, store)
	}
	for _, c := range closers {
		opts = append(opts, router.WithCloser(c))
	}

	return &stack{
		router:  router.New(handlers.Default(deps), handlers.NewGeneric(deps), opts...),
		captcha: coordinator,
	}, nil
}

// loadStack loads config and profile and builds a Chrome-backed stack.
func loadStack(ctx context.Context, profilePath string) (*config.Config, *stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	p, err := profile.Load(profilePath)
	if err != nil {
		return nil, nil, err
	}
	s, err := newStack(ctx, cfg, p, browser.NewChromeProvider(cfg.ChromeOptions()), defaultPacing())
	if err != nil {
		return nil, nil, err
	}
	return cfg, s, nil
}
