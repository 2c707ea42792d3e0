package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoapply/internal/fetch"
	"github.com/jonathan/autoapply/internal/handlers"
	"github.com/jonathan/autoapply/internal/platform"
)

var detectCmd = &cobra.Command{
	Use:   "detect <job-url...>",
	Short: "Print the applicant tracking system behind each URL",
	Long: `Matches each URL against the known platform patterns. Unmatched URLs are fetched
and fingerprinted by page content unless --offline is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

var (
	detectOffline bool
	detectRender  bool
)

func init() {
	detectCmd.Flags().BoolVar(&detectOffline, "offline", false, "Classify by URL only; never fetch the page")
	detectCmd.Flags().BoolVar(&detectRender, "render", false, "Render pages without server-side content in headless Chrome before fingerprinting")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	hs := handlers.Default(handlers.Deps{})
	matchers := make([]platform.Matcher, 0, len(hs))
	for _, h := range hs {
		matchers = append(matchers, h)
	}

	opts := []platform.Option{platform.WithVerbose(verbose)}
	switch {
	case detectOffline:
		opts = append(opts, platform.WithFetcher(nil))
	case detectRender:
		render := fetch.Renderer(fetch.DefaultRenderTimeout, verbose)
		opts = append(opts, platform.WithFetcher(func(ctx context.Context, url string) (string, error) {
			return fetch.HTML(ctx, url, fetch.DefaultOptions(), render)
		}))
	}
	classifier := platform.New(matchers, opts...)

	for _, u := range args {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", classifier.Detect(cmd.Context(), u), u); err != nil {
			return err
		}
	}
	return nil
}
