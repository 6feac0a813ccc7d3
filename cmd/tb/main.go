// Command tb is the teamboard CLI: shared Kanban boards backed by a remote
// document store with a local cache for offline reads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teamboard/teamboard/internal/config"
	"github.com/teamboard/teamboard/internal/logging"
)

var (
	v    = config.New()
	cfg  *config.Config
	logs *logging.Factory

	configPath string
	verbose    bool
)

// longRunning marks commands that log to the configured log output even
// without --verbose.
const longRunning = "long-running"

var rootCmd = &cobra.Command{
	Use:   "tb",
	Short: "Shared Kanban boards with offline cache",
	Long: `tb manages team Kanban boards stored in a shared document store.

Boards are edited directly against the remote store. Public boards are
synced into a local SQLite cache so they can be listed while offline.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(v, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded

		logCfg := cfg.Log
		if !verbose && cmd.Annotations[longRunning] == "" {
			logCfg.Quiet = true
		}
		logs = logging.New(logCfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Close()
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "boards", Title: "Board Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default .teamboard/config.yaml)")
	flags.String("user", "", "Acting user id")
	flags.String("remote", "", "Remote store URL (memory:// or a libSQL DSN)")
	flags.String("cache", "", "Local cache database path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log component activity to stderr")

	bindFlag(v, "user", "user")
	bindFlag(v, "remote.url", "remote")
	bindFlag(v, "cache.path", "cache")
}

func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
