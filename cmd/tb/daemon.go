package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/config"
	"github.com/teamboard/teamboard/internal/daemon"
	"github.com/teamboard/teamboard/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:         "daemon",
	GroupID:     "sync",
	Short:       "Keep the local cache in sync (foreground)",
	Annotations: map[string]string{longRunning: "true"},
	Long: `Run sync passes in the foreground until interrupted.

The daemon will:
  1. Populate an empty cache (seeding sample boards if sync.seed_samples is set)
  2. Sync public boards every sync.interval
  3. Pick up changes to the config file without restarting

Logs go to log.file when set, rotated by size, otherwise to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		db := openCache()
		defer db.Close()

		d := newDaemon(newEngine(store, db))

		fmt.Printf("%s Sync daemon started (every %v)\n", ui.RenderAccent("🔄"), cfg.Sync.Interval)
		fmt.Println("Press Ctrl+C to stop...")

		if err := d.Start(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: daemon failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nDaemon stopped")
	},
}

// newDaemon builds a daemon from the loaded config and keeps its settings
// current as the config file changes.
func newDaemon(engine daemon.Syncer) *daemon.Daemon {
	logger := logs.Logger("daemon")
	d, err := daemon.New(engine, &daemon.Config{
		UserID:   cfg.User,
		Settings: daemon.SettingsFrom(cfg.Sync),
		Logger:   logger,
	})
	if err != nil {
		fatalf("%v", err)
	}

	if v.ConfigFileUsed() != "" {
		config.Watch(v, func(c *config.Config, err error) {
			if err != nil {
				logger.Printf("Warning: ignoring config change: %v", err)
				return
			}
			d.UpdateSettings(daemon.SettingsFrom(c.Sync))
		})
	}
	return d
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
