package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/session"
)

var columnCmd = &cobra.Command{
	Use:     "column",
	GroupID: "boards",
	Short:   "Edit a board's columns",
	Long: `Edit a board's columns. Columns are addressed by the index shown in
'tb board show'. New columns are inserted first.`,
}

var columnCreateCmd = &cobra.Command{
	Use:   "create <board-id> <title>",
	Short: "Add a column at the front of the board",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.CreateColumn(ctx, args[1])
		})
	},
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <board-id> <column> <title>",
	Short: "Rename a column",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.RenameColumn(ctx, col, args[2])
		})
	},
}

var columnDeleteCmd = &cobra.Command{
	Use:   "delete <board-id> <column>",
	Short: "Delete a column and all its cards",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		yes, _ := cmd.Flags().GetBool("yes")
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			if b := s.Board(); col >= 0 && col < b.ColumnCount() {
				title := fmt.Sprintf("Delete column %q and its %d cards?", b.Columns[col].Title, len(b.Columns[col].Cards))
				if !confirm(title, yes) {
					return b, nil
				}
			}
			return s.DeleteColumn(ctx, col)
		})
	},
}

func init() {
	columnDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	columnCmd.AddCommand(columnCreateCmd, columnRenameCmd, columnDeleteCmd)
	rootCmd.AddCommand(columnCmd)
}
