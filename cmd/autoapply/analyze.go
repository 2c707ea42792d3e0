package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoapply/internal/browser/htmldom"
	"github.com/jonathan/autoapply/internal/fieldmap"
	"github.com/jonathan/autoapply/internal/handlers"
	"github.com/jonathan/autoapply/internal/observability"
	"github.com/jonathan/autoapply/internal/platform"
	"github.com/jonathan/autoapply/internal/profile"
	"github.com/jonathan/autoapply/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show how a saved application form would be filled",
	Long: `Loads a saved HTML page and runs field discovery, classification and value
resolution against the profile without a browser and without submitting anything.`,
	RunE: runAnalyze,
}

var (
	analyzeHTML    string
	analyzeURL     string
	analyzeProfile string
	analyzeJSON    bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeHTML, "html", "", "Path to the saved HTML page (required)")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "https://example.com/apply", "URL the page was saved from")
	analyzeCmd.Flags().StringVarP(&analyzeProfile, "profile", "p", "", "Path to profile.json or profile.yaml (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print mappings as JSON")
	_ = analyzeCmd.MarkFlagRequired("html")
	_ = analyzeCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := profile.Load(analyzeProfile)
	if err != nil {
		return err
	}
	markup, err := os.ReadFile(analyzeHTML)
	if err != nil {
		return fmt.Errorf("failed to read HTML file: %w", err)
	}

	report, err := analyzePage(cmd.Context(), analyzeURL, string(markup), p, mapperOptions(cfg, nil))
	if err != nil {
		return err
	}

	if analyzeJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printAnalysis(cmd.OutOrStdout(), report, cfg.MinConfidence)
	return nil
}

// analysis is what analyze reports for one page.
type analysis struct {
	URL         string               `json:"url"`
	Platform    types.Platform       `json:"platform"`
	SafeToApply bool                 `json:"safe_to_apply"`
	Confident   int                  `json:"confident"`
	Required    int                  `json:"required"`
	Mappings    []types.FieldMapping `json:"mappings"`
}

func analyzePage(ctx context.Context, pageURL, markup string, p *types.UserProfile, opts fieldmap.Options) (analysis, error) {
	page, err := htmldom.New(pageURL, markup)
	if err != nil {
		return analysis{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	hs := handlers.Default(handlers.Deps{})
	matchers := make([]platform.Matcher, 0, len(hs))
	for _, h := range hs {
		matchers = append(matchers, h)
	}
	classifier := platform.New(matchers, platform.WithFetcher(nil))
	detected, ok := classifier.DetectURL(pageURL)
	if !ok {
		detected = classifier.Fingerprint(markup)
	}

	mappings, err := fieldmap.New(page, p, opts).Analyze(ctx)
	if err != nil {
		return analysis{}, fmt.Errorf("failed to analyze form: %w", err)
	}
	safe, confident, required := handlers.SafetyGate(mappings)

	return analysis{
		URL:         pageURL,
		Platform:    detected,
		SafeToApply: safe,
		Confident:   confident,
		Required:    required,
		Mappings:    mappings,
	}, nil
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func printAnalysis(w io.Writer, a analysis, minConfidence float64) {
	observability.NewPrinter(w).PrintMappings(a.URL, a.Mappings, minConfidence)
	verdict := "generic handler would submit"
	if !a.SafeToApply {
		verdict = "generic handler would stop (low confidence)"
	}
	fmt.Fprintf(w, "platform: %s\nrequired fields confident: %d/%d, %s\n", a.Platform, a.Confident, a.Required, verdict)
}
