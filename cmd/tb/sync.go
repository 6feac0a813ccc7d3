package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/sync"
	"github.com/teamboard/teamboard/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync public boards into the local cache",
	Long: `Fetch every public board from the remote store and replace the local
cache with them.

Transport failures are retried with backoff. If every attempt fails the
cache keeps its previous contents.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		attempts, _ := cmd.Flags().GetInt("attempts")
		if attempts == 0 {
			attempts = cfg.Sync.MaxAttempts
		}
		backoff := cfg.Sync.RetryBackoff()
		if cmd.Flags().Changed("backoff") || cmd.Flags().Changed("policy") {
			base, _ := cmd.Flags().GetDuration("backoff")
			if !cmd.Flags().Changed("backoff") {
				base = cfg.Sync.Backoff
			}
			policy, _ := cmd.Flags().GetString("policy")
			if policy == "" {
				policy = cfg.Sync.BackoffPolicy
			}
			b, err := sync.ParseBackoff(policy, base, cfg.Sync.MaxBackoff)
			if err != nil {
				fatalf("%v", err)
			}
			backoff = b
		}

		store := openStore()
		defer store.Close()
		db := openCache()
		defer db.Close()
		engine := newEngine(store, db)

		fmt.Printf("%s Syncing public boards...\n", ui.RenderAccent("🔄"))
		start := time.Now()
		result := engine.SyncWithRetry(ctx, attempts, backoff)
		if !result.Succeeded() {
			fmt.Fprintf(os.Stderr, "%s Sync failed: %v\n", ui.RenderFail("✗"), result.Err)
			fmt.Fprintf(os.Stderr, "   %s\n", result.FallbackMessage)
			os.Exit(1)
		}

		fmt.Printf("%s %s in %v\n", ui.RenderPass("✓"), result.Message, time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Cache: %s\n", db.Path())
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local cache status",
	Run: func(cmd *cobra.Command, args []string) {
		info, err := os.Stat(cfg.Cache.Path)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Cache not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'tb sync' to create the cache\n\n")
			return
		}
		if err != nil {
			fatalf("checking cache: %v", err)
		}

		db := openCache()
		defer db.Close()
		count, err := db.CountContext(cmd.Context())
		if err != nil {
			fatalf("counting cached boards: %v", err)
		}

		fmt.Printf("\n%s Teamboard Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("User: %s\n", orNone(cfg.User))
		fmt.Printf("Remote: %s\n", redact(cfg.Remote.URL))
		fmt.Printf("Cache: %s (%s)\n", cfg.Cache.Path, formatSize(info.Size()))
		fmt.Printf("Cached boards: %d\n", count)
		fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Println()
	},
}

var boardsCmd = &cobra.Command{
	Use:     "boards",
	GroupID: "boards",
	Short:   "List public boards",
	Long: `List public boards from the remote store, refreshing the cache.

When the remote store cannot be reached the cached boards are shown
instead, marked as possibly out of date.`,
	Run: func(cmd *cobra.Command, args []string) {
		search, _ := cmd.Flags().GetString("search")

		store := openStore()
		defer store.Close()
		db := openCache()
		defer db.Close()
		engine := newEngine(store, db)

		if err := engine.InitializeIfEmpty(cmd.Context(), cfg.User); err != nil {
			fatalf("%v", err)
		}
		listing, err := engine.LoadPublicBoards(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}
		if listing.Stale {
			fmt.Fprintf(os.Stderr, "%s Remote store unavailable (%v); showing cached boards\n", ui.RenderWarn("⚠"), listing.Err)
		}

		boards := board.FilterByName(listing.Boards, search)
		if len(boards) == 0 {
			fmt.Println("No public boards found")
			return
		}
		for _, b := range boards {
			fmt.Printf("%s  %s  %s\n", ui.RenderMuted(b.DocumentID), ui.RenderAccent(b.Name),
				ui.RenderMuted(fmt.Sprintf("(%d columns, %d cards)", b.ColumnCount(), b.CardCount())))
		}
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// redact drops credentials from a store URL.
func redact(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		return url[:i]
	}
	return url
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%d bytes", size)
}

func init() {
	syncCmd.Flags().Int("attempts", 0, "Maximum attempts (default sync.max_attempts)")
	syncCmd.Flags().Duration("backoff", 0, "Base delay between attempts (default sync.backoff)")
	syncCmd.Flags().String("policy", "", "Backoff policy: linear or exponential")

	boardsCmd.Flags().StringP("search", "s", "", "Filter boards by name (case-insensitive)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(boardsCmd)
}
