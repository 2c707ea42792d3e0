package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoapply/internal/observability"
)

var applyCmd = &cobra.Command{
	Use:   "apply <job-url>",
	Short: "Apply to a single job",
	Long: `Detects the platform of the job URL, fills the application form from the profile
and submits it. The outcome is printed; the command fails only on setup errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var (
	applyProfile string
	applyJSON    bool
)

func init() {
	applyCmd.Flags().StringVarP(&applyProfile, "profile", "p", "", "Path to profile.json or profile.yaml (required)")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Print the result as JSON")
	_ = applyCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, s, err := loadStack(ctx, applyProfile)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.router.Cleanup(); err != nil {
			log.Printf("[SETUP] cleanup: %v", err)
		}
	}()

	result := s.router.Apply(ctx, args[0])
	if cfg.Verbose {
		st := s.captcha.Stats()
		log.Printf("[CAPTCHA] attempts=%d solved=%d failed=%d", st.Attempts, st.Solved, st.Failed)
	}

	if applyJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintResult(result)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
