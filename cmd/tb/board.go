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

var boardCmd = &cobra.Command{
	Use:     "board",
	GroupID: "boards",
	Short:   "Create, inspect and share boards",
}

var boardCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a board owned by you",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		public, _ := cmd.Flags().GetBool("public")

		store := openStore()
		defer store.Close()
		s := session.New(ctx, store, requireUser(), logs.Logger("session"))
		defer s.Close()

		b, err := s.CreateBoard(ctx, args[0], public)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Created board %s (%s)\n", ui.RenderPass("✓"), b.Name, b.DocumentID)
	},
}

var boardShowCmd = &cobra.Command{
	Use:   "show <board-id>",
	Short: "Print a board's columns and cards",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore()
		defer store.Close()

		// Reading needs no user; an empty id just has no write access.
		s := session.New(ctx, store, cfg.User, logs.Logger("session"))
		defer s.Close()

		b, err := s.Load(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Print(ui.RenderBoard(b))
		fmt.Println()
		for user, role := range b.AssignedTo {
			fmt.Printf("  %s %s\n", ui.RenderMuted(string(role)), user)
		}
	},
}

var boardJoinCmd = &cobra.Command{
	Use:   "join <board-id>",
	Short: "Ask to join a board",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			b, err := s.RequestJoin(ctx)
			if err != nil {
				return nil, err
			}
			role, _ := b.RoleOf(s.UserID())
			fmt.Printf("%s Your role on %s: %s\n", ui.RenderPass("✓"), b.Name, role)
			return b, nil
		})
	},
}

var boardApproveCmd = &cobra.Command{
	Use:   "approve <board-id> <user-id>",
	Short: "Approve a join request (managers only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		editBoard(cmd.Context(), args[0], func(ctx context.Context, s *session.Session) (*board.Board, error) {
			return s.ApproveMember(ctx, args[1])
		})
	},
}

func setPublic(public bool) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		user := requireUser()
		store := openStore()
		defer store.Close()

		// Visibility is a manager decision.
		for _, id := range args {
			doc, err := store.Get(ctx, id)
			if err != nil {
				fatalf("%v", err)
			}
			b, err := remote.DecodeBoard(doc)
			if err != nil {
				fatalf("%v", err)
			}
			if role, _ := b.RoleOf(user); role != board.RoleManager {
				fatalf("%s: %v", b.Name, board.ErrNotManager)
			}
		}

		if err := store.BatchUpdate(ctx, args, map[string]any{remote.FieldIsPublic: public}); err != nil {
			fatalf("%v", err)
		}

		state := "private"
		if public {
			state = "public"
		}
		fmt.Printf("%s %d board(s) now %s\n", ui.RenderPass("✓"), len(args), state)
		fmt.Println("   Run 'tb sync' to refresh the local cache")
	}
}

var boardPublishCmd = &cobra.Command{
	Use:   "publish <board-id>...",
	Short: "Make boards public",
	Args:  cobra.MinimumNArgs(1),
	Run:   setPublic(true),
}

var boardUnpublishCmd = &cobra.Command{
	Use:   "unpublish <board-id>...",
	Short: "Make boards private",
	Args:  cobra.MinimumNArgs(1),
	Run:   setPublic(false),
}

func init() {
	boardCreateCmd.Flags().Bool("public", false, "List the board publicly")

	boardCmd.AddCommand(boardCreateCmd, boardShowCmd, boardJoinCmd, boardApproveCmd, boardPublishCmd, boardUnpublishCmd)
	rootCmd.AddCommand(boardCmd)
}
