// Package board defines the Kanban board model and the rules for mutating it.
//
// # Overview
//
// A Board holds an ordered list of columns, each holding an ordered list of
// cards. Membership is a map from user id to Role; only Managers and Members
// may change the board, Pending users are read-only until approved.
//
//	Board "Launch"
//	  ├── Column "To Do"   → [card A, card B]
//	  ├── Column "Doing"   → [card C]
//	  ├── Column "Done"    → []
//	  └── (sentinel)         "add column" placeholder, never persisted
//
// # Mutation
//
// Every mutating method takes the acting user id and checks CanMutate first.
// A failed check returns ErrPermissionDenied and leaves the board untouched.
// Positional arguments are validated before anything is changed, so an
// ErrInvalidPosition also leaves the board untouched.
//
// Moving a card derives its new status from the destination column title
// (see DeriveStatus). UpdateCard is the only way to set a status directly.
//
// # Sentinel column
//
// Interactive callers call AttachSentinel after loading a board to get a
// trailing placeholder column. Column indexes given to mutation methods
// never include the sentinel. StripSentinel removes it again and is a no-op
// when no sentinel is attached. Presence is tracked by a flag on the board,
// not by inspecting the last column.
//
// This package does no I/O. Persisting the result is the job of the session
// package.
package board
