package board

import "errors"

var (
	// ErrPermissionDenied is returned when a user without write access
	// (a Pending member or a stranger) attempts a mutation.
	ErrPermissionDenied = errors.New("permission denied: join request is still pending approval")

	// ErrNotManager is returned when a management action is attempted by a
	// user who is not a Manager.
	ErrNotManager = errors.New("only a board manager can do this")

	// ErrInvalidPosition is returned for out-of-range column or card indexes.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNotInitialized is returned when a mutation is attempted before a
	// board has been loaded.
	ErrNotInitialized = errors.New("board not loaded")

	// ErrInvalidName is returned for blank column, card or board names.
	ErrInvalidName = errors.New("name must not be empty")

	// ErrInvalidStatus is returned when a card edit names an unknown status.
	ErrInvalidStatus = errors.New("unknown card status")

	// ErrNoJoinRequest is returned when approving a user who has not asked
	// to join.
	ErrNoJoinRequest = errors.New("no pending join request")
)
