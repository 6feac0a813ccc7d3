package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:         "dashboard",
	GroupID:     "advanced",
	Short:       "Start the real-time WebSocket dashboard",
	Annotations: map[string]string{longRunning: "true"},
	Long: `Run the sync daemon with a WebSocket dashboard attached.

WebSocket messages include:
- sync_complete: A sync pass finished (succeeded, message, error, boards)
- stats: Cache statistics (cached_boards)
- board_update: A board was edited

Example usage:
  tb dashboard                   # Start on dashboard.port (default 8080)
  tb dashboard --port 9000       # Start on custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		store := openStore()
		defer store.Close()
		db := openCache()
		defer db.Close()
		engine := newEngine(store, db)

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logs.Logger("dashboard"),
		})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		handler := dashboard.NewHandler(server, engine, logs.Logger("dashboard"))
		handler.BroadcastStats(cmd.Context())

		d := newDaemon(engine)
		d.SetObserver(handler)

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		if err := d.Start(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: daemon failed: %v\n", err)
		}

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default dashboard.port)")

	rootCmd.AddCommand(dashboardCmd)
}
