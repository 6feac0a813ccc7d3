package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/remote"
	"github.com/teamboard/teamboard/internal/session"
	"github.com/teamboard/teamboard/internal/ui"
)

var cardCmd = &cobra.Command{
	Use:     "card",
	GroupID: "boards",
	Short:   "Add, move and edit cards",
	Long: `Add, move and edit cards. Cards are addressed by column index and card
index, as shown in 'tb board show'.

Moving a card into a column titled "To Do", "In Progress" or "Done"
updates its status to match.`,
}

var cardAddCmd = &cobra.Command{
	Use:   "add <board-id> <column> <name>",
	Short: "Append a card to a column",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.AddCard(ctx, col, args[2])
		})
	},
}

var cardMoveCmd = &cobra.Command{
	Use:   "move <board-id> <from-column> <card> <to-column> [position]",
	Short: "Move a card to another column or position",
	Long: `Move a card. Without a position the card goes to the end of the
destination column.`,
	Args: cobra.RangeArgs(4, 5),
	Run: func(cmd *cobra.Command, args []string) {
		from := parseIndex("column", args[1])
		card := parseIndex("card", args[2])
		to := parseIndex("column", args[3])
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			if len(args) == 5 {
				return s.MoveCard(ctx, from, to, card, parseIndex("position", args[4]))
			}
			return s.MoveCardToColumn(ctx, from, card, to)
		})
	},
}

var cardEditCmd = &cobra.Command{
	Use:   "edit <board-id> <column> <card>",
	Short: "Change a card's name, status, label or assignees",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		card := parseIndex("card", args[2])

		var edit board.CardEdit
		flags := cmd.Flags()
		if flags.Changed("name") {
			name, _ := flags.GetString("name")
			edit.Name = &name
		}
		if flags.Changed("status") {
			raw, _ := flags.GetString("status")
			status, ok := remote.ParseStatus(raw)
			if !ok {
				fatalf("unknown status %q (want pending, in_progress or completed)", raw)
			}
			edit.Status = &status
		}
		if flags.Changed("label") {
			label, _ := flags.GetString("label")
			edit.LabelColor = &label
		}
		if flags.Changed("assign") {
			edit.AssignedTo, _ = flags.GetStringSlice("assign")
			if edit.AssignedTo == nil {
				edit.AssignedTo = []string{}
			}
		}

		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.UpdateCard(ctx, col, card, edit)
		})
	},
}

var cardDueCmd = &cobra.Command{
	Use:   "due <board-id> <column> <card> <when>",
	Short: "Set a card's due date",
	Long: `Set a card's due date. The date may be written naturally
("tomorrow 5pm", "next friday"), as 2006-01-02, or "none" to clear it.`,
	Args: cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		card := parseIndex("card", args[2])
		due, err := parseDue(args[3], timeNow())
		if err != nil {
			fatalf("%v", err)
		}
		if due != 0 {
			fmt.Printf("%s Due %s\n", ui.RenderAccent("📅"), ui.FormatDue(due))
		}
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.UpdateCard(ctx, col, card, board.CardEdit{DueDate: &due})
		})
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:   "delete <board-id> <column> <card>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		col := parseIndex("column", args[1])
		card := parseIndex("card", args[2])
		yes, _ := cmd.Flags().GetBool("yes")
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			b := s.Board()
			if col >= 0 && col < b.ColumnCount() && card >= 0 && card < len(b.Columns[col].Cards) {
				if !confirm(fmt.Sprintf("Delete card %q?", b.Columns[col].Cards[card].Name), yes) {
					return b, nil
				}
			}
			return s.DeleteCard(ctx, col, card)
		})
	},
}

func init() {
	cardEditCmd.Flags().String("name", "", "New card name")
	cardEditCmd.Flags().String("status", "", "Status: pending, in_progress or completed")
	cardEditCmd.Flags().String("label", "", "Label color (e.g. #ff8800)")
	cardEditCmd.Flags().StringSlice("assign", nil, "Assignee user ids (replaces the current list)")

	cardDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	cardCmd.AddCommand(cardAddCmd, cardMoveCmd, cardEditCmd, cardDueCmd, cardDeleteCmd)
	rootCmd.AddCommand(cardCmd)
}
