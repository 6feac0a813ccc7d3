package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/loadtest"
	"github.com/teamboard/teamboard/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "advanced",
	Short:   "Load test the local cache",
	Long: `Populate a scratch cache with generated boards and measure it under load.

Two phases run:
  1. Concurrent readers list boards, recording query latency
  2. Readers race a writer that keeps replacing the whole board set; every
     read must see one complete set

The scratch cache lives in a temporary directory and is removed afterwards.

Examples:
  tb bench
  tb bench --readers 50 --boards 2000
  tb bench --json`,
	Run: func(cmd *cobra.Command, args []string) {
		readers, _ := cmd.Flags().GetInt("readers")
		boards, _ := cmd.Flags().GetInt("boards")
		queries, _ := cmd.Flags().GetInt("queries")
		public, _ := cmd.Flags().GetFloat64("public")
		duration, _ := cmd.Flags().GetDuration("duration")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if readers <= 0 || boards <= 0 || queries <= 0 {
			fatalf("--readers, --boards and --queries must be positive")
		}
		if public < 0 || public > 1 {
			fatalf("--public must be between 0.0 and 1.0")
		}

		dir, err := os.MkdirTemp("", "tb-bench-")
		if err != nil {
			fatalf("failed to create scratch dir: %v", err)
		}
		defer os.RemoveAll(dir)

		if !jsonOutput {
			fmt.Printf("%s Generating %d boards...\n", ui.RenderAccent("⚙"), boards)
		}
		tc, err := loadtest.CreateTestCache(filepath.Join(dir, "bench.db"), boards, public)
		if err != nil {
			fatalf("%v", err)
		}
		defer tc.Close()

		start := time.Now()
		stats, err := tc.RunConcurrentReads(readers, queries)
		if err != nil {
			fatalf("%v", err)
		}
		elapsed := time.Since(start)

		replaces, isoErr := tc.VerifyReplaceIsolation(readers, duration)

		if jsonOutput {
			out := map[string]any{
				"boards":           boards,
				"cards":            tc.TotalCards,
				"readers":          readers,
				"queries":          stats.TotalQueries,
				"errors":           stats.Errors,
				"min_ms":           ms(stats.Min),
				"p50_ms":           ms(stats.P50),
				"p95_ms":           ms(stats.P95),
				"p99_ms":           ms(stats.P99),
				"max_ms":           ms(stats.Max),
				"qps":              float64(stats.TotalQueries) / elapsed.Seconds(),
				"replaces":         replaces,
				"replace_isolated": isoErr == nil,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
		} else {
			fmt.Printf("\n=== Concurrent reads (%d readers x %d queries, %d cards) ===\n", readers, queries, tc.TotalCards)
			stats.PrintStats(os.Stdout)
			fmt.Printf("  Throughput:    %.0f queries/second\n", float64(stats.TotalQueries)/elapsed.Seconds())

			fmt.Printf("\n=== Replace isolation (%v) ===\n", duration)
			if isoErr == nil {
				fmt.Printf("%s %d full replaces, no reader saw a partial cache\n", ui.RenderPass("✓"), replaces)
			}
		}

		if isoErr != nil {
			fatalf("replace isolation failed: %v", isoErr)
		}
	},
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func init() {
	benchCmd.Flags().Int("readers", 20, "Number of concurrent readers")
	benchCmd.Flags().Int("boards", 500, "Number of boards in the scratch cache")
	benchCmd.Flags().Int("queries", 10, "Listings per reader")
	benchCmd.Flags().Float64("public", 0.5, "Fraction of public boards (0.0-1.0)")
	benchCmd.Flags().Duration("duration", 2*time.Second, "How long the replace isolation phase runs")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")

	rootCmd.AddCommand(benchCmd)
}
