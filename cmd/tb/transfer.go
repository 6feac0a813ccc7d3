package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/cache"
	"github.com/teamboard/teamboard/internal/export"
	"github.com/teamboard/teamboard/internal/migrate"
	"github.com/teamboard/teamboard/internal/session"
	"github.com/teamboard/teamboard/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "advanced",
	Short:   "Export cached boards as JSON, YAML or TOML",
	Long: `Write the boards in the local cache to a file or stdout.

The format follows the output file's extension unless --format is given.
Run 'tb sync' first for an up-to-date export.`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")

		format := export.FormatJSON
		var err error
		switch {
		case formatFlag != "":
			format, err = export.ParseFormat(formatFlag)
		case output != "":
			format, err = export.FormatForPath(output)
		}
		if err != nil {
			fatalf("%v", err)
		}

		db := openCache()
		defer db.Close()
		boards, err := db.ListBoards(cmd.Context(), cache.ListFilter{})
		if err != nil {
			fatalf("%v", err)
		}

		var w io.Writer = os.Stdout
		if output != "" {
			// #nosec G304 - controlled path from CLI
			f, err := os.Create(output)
			if err != nil {
				fatalf("failed to create %s: %v", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := export.Encode(w, format, boards); err != nil {
			fatalf("%v", err)
		}
		if output != "" {
			fmt.Printf("%s Exported %d boards to %s\n", ui.RenderPass("✓"), len(boards), output)
		}
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "advanced",
	Short:   "Import boards into the remote store",
	Long: `Write boards from a file into the remote store.

A .jsonl file is read as raw board documents, one per line, in the remote
store's field layout; unreadable lines are skipped and reported. JSON, YAML
and TOML files are read in the 'tb export' layout. Boards keep their ids, so
re-importing overwrites them.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		path := args[0]
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		store := openStore()
		defer store.Close()

		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			backup, _ := cmd.Flags().GetBool("backup")
			result, err := migrate.ImportJSONL(ctx, store, migrate.ImportOptions{Path: path, DryRun: dryRun, Backup: backup})
			if err != nil {
				fatalf("%v", err)
			}
			if result.BackupCreated != "" {
				fmt.Printf("   Backup: %s\n", result.BackupCreated)
			}
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("⚠"), e)
			}
			fmt.Printf("%s Imported %d boards, skipped %d\n", ui.RenderPass("✓"), result.Imported, result.Skipped)
			return
		}

		format, err := export.FormatForPath(path)
		if err != nil {
			fatalf("%v", err)
		}
		// #nosec G304 - controlled path from CLI
		f, err := os.Open(path)
		if err != nil {
			fatalf("failed to open %s: %v", path, err)
		}
		defer f.Close()

		boards, err := export.Decode(f, format)
		if err != nil {
			fatalf("%v", err)
		}
		if dryRun {
			fmt.Printf("%s %d boards would be imported\n", ui.RenderAccent("→"), len(boards))
			return
		}
		for _, b := range boards {
			if err := session.PersistBoard(ctx, store, b); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("   %s %s\n", ui.RenderMuted(b.DocumentID), b.Name)
		}
		fmt.Printf("%s Imported %d boards\n", ui.RenderPass("✓"), len(boards))
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringP("format", "f", "", "Format: json, yaml or toml")

	importCmd.Flags().Bool("dry-run", false, "Validate without writing")
	importCmd.Flags().Bool("backup", false, "Copy a .jsonl input aside before importing")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
