package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoapply/internal/observability"
	"github.com/jonathan/autoapply/internal/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch [job-url...]",
	Short: "Apply to many jobs concurrently",
	Long: `Applies to every URL given as an argument or listed in --file (one per line,
blank lines and lines starting with # ignored). At most --concurrency applications
run at once; results keep the input order.`,
	RunE: runBatch,
}

var (
	batchProfile     string
	batchFile        string
	batchConcurrency int
	batchJSON        bool
)

func init() {
	batchCmd.Flags().StringVarP(&batchProfile, "profile", "p", "", "Path to profile.json or profile.yaml (required)")
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "File with one job URL per line")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Maximum concurrent applications (default from config)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Print results as JSON")
	_ = batchCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	urls := append([]string(nil), args...)
	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return fmt.Errorf("failed to open URL file: %w", err)
		}
		fromFile, err := readURLs(f)
		f.Close()
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no job URLs given (pass them as arguments or with --file)")
	}

	ctx := cmd.Context()
	cfg, s, err := loadStack(ctx, batchProfile)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.router.Cleanup(); err != nil {
			log.Printf("[SETUP] cleanup: %v", err)
		}
	}()

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.MaxConcurrent
	}
	results := s.router.ApplyBatch(ctx, urls, concurrency)

	if batchJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Report  types.BatchReport         `json:"report"`
			Results []types.ApplicationResult `json:"results"`
		}{types.Summarize(results), results})
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintBatchReport(types.Summarize(results), results)
	return nil
}

// readURLs returns the non-empty, non-comment lines of r, de-duplicated in
// first-seen order.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}
