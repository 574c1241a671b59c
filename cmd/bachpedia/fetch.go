package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/franz/bachpedia/internal/openopus"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download catalog data from external sources",
}

var fetchOpenOpusCmd = &cobra.Command{
	Use:   "openopus",
	Short: "Download a composer's works from the Open Opus API",
	Long: `Download every work of a composer (Bach by default) from the Open Opus API
into a dump file that 'bachpedia import openopus' reads.

Requests are spaced by openopus.rate_limit (default 1s) and retried with
backoff on network errors, 429 and 5xx answers.`,
	RunE: runFetchOpenOpus,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchOpenOpusCmd)

	fetchOpenOpusCmd.Flags().String("out", "openopus_dump.json", "dump file to write")
	fetchOpenOpusCmd.Flags().Int("composer", openopus.BachID, "Open Opus composer id")
}

func runFetchOpenOpus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, _ := cmd.Flags().GetString("out")
	composerID, _ := cmd.Flags().GetInt("composer")

	client := openopus.NewClient(
		openopus.WithBaseURL(GetConfigString("openopus.base_url", openopus.DefaultBaseURL)),
		openopus.WithLimiter(openopus.NewLimiter(GetConfigDuration("openopus.rate_limit", openopus.DefaultRateLimit))),
	)

	util.InfoLog("Fetching works of composer %d from Open Opus", composerID)
	listing, err := client.ListComposerWorks(ctx, composerID)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}

	util.SuccessLog("Saved %d works to %s (%s)", len(listing.Works), out, humanize.Bytes(uint64(len(data))))
	return nil
}
