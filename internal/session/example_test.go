package session_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/remote"
	"github.com/teamboard/teamboard/internal/session"
)

// This example demonstrates moving a card and handling a pending member.
// Note: This is for documentation only and won't run as a test.
func ExampleSession_MoveCard() {
	ctx := context.Background()
	store := remote.NewMemoryStore()

	s := session.New(ctx, store, "user-1", nil)
	defer s.Close()

	if _, err := s.Load(ctx, "board-1"); err != nil {
		log.Fatal(err)
	}

	b, err := s.MoveCard(ctx, 0, 1, 0, 0)
	switch {
	case errors.Is(err, board.ErrPermissionDenied):
		fmt.Println("Your join request is still pending")
	case err != nil:
		log.Fatal(err)
	default:
		fmt.Printf("Board now has %d cards\n", b.CardCount())
	}
}
