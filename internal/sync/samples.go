package sync

import (
	"strconv"

	"github.com/teamboard/teamboard/internal/board"
)

var sampleBoardNames = []string{
	"Public Project 1",
	"Local Community Board",
	"Database Demo Project",
	"Test Board",
}

// SampleBoards returns the public demo boards seeded into an empty cache,
// each owned by userID.
func SampleBoards(userID string) []*board.Board {
	out := make([]*board.Board, 0, len(sampleBoardNames))
	for i, name := range sampleBoardNames {
		b := board.New(name, userID, true)
		b.DocumentID = "sample-" + strconv.Itoa(i+1)
		out = append(out, b)
	}
	return out
}
