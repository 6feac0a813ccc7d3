// Package session runs interactive board editing against the remote store.
//
// A Session holds one board loaded for editing, with the sentinel column
// attached. Each mutation method applies the change in memory, writes the
// whole board back to the store, and re-reads the stored document so the
// session's copy matches what was persisted:
//
//	Load ──► mutate (board package) ──► PersistBoard ──► Get + decode ──► attach sentinel
//
// Mutations are synchronous for the caller but the persist and refresh
// steps run in a session-scoped task group. Close cancels that group and
// waits for in-flight work. Callers must not start a mutation while another
// is in flight; Busy reports whether one is.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/remote"
)

// ErrClosed is returned by a Session after Close.
var ErrClosed = errors.New("session closed")

// Notifier is told about every board change a session persists.
type Notifier interface {
	BoardChanged(b *board.Board, action string)
}

// Session is one user's editing session for a single board.
type Session struct {
	store  remote.Store
	userID string
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	// mu guards current and notifier.
	mu       sync.Mutex
	current  *board.Board
	notifier Notifier

	inflight atomic.Int32
	closed   atomic.Bool
}

// New creates a session for userID. The session's task group is derived
// from ctx. If logger is nil, a default logger writing to stderr is used.
func New(ctx context.Context, store remote.Store, userID string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	return &Session{
		store:  store,
		userID: userID,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		group:  group,
	}
}

// UserID returns the acting user.
func (s *Session) UserID() string {
	return s.userID
}

// SetNotifier registers n to receive board changes. A nil n disables
// notification.
func (s *Session) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Board returns a copy of the loaded board, or nil before Load.
func (s *Session) Board() *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// CanMutate reports whether the session's user may edit the loaded board.
func (s *Session) CanMutate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return board.CanMutate(s.current, s.userID)
}

// Busy reports whether a persist and refresh cycle is in flight.
func (s *Session) Busy() bool {
	return s.inflight.Load() > 0
}

// Load fetches the board with the given id and makes it the session's
// board, with the sentinel column attached.
func (s *Session) Load(ctx context.Context, id string) (*board.Board, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var loaded *board.Board
	err := s.run(ctx, func(ctx context.Context) error {
		b, err := fetchBoard(ctx, s.store, id)
		if err != nil {
			return err
		}
		b.AttachSentinel()
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		s.current = b
		s.mu.Unlock()
		loaded = b.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("Loaded board %s (%s)", loaded.DocumentID, loaded.Name)
	return loaded, nil
}

// CreateBoard creates a new board owned by the session's user, stores it,
// and makes it the session's board.
func (s *Session) CreateBoard(ctx context.Context, name string, isPublic bool) (*board.Board, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, board.ErrInvalidName
	}
	if s.userID == "" {
		return nil, fmt.Errorf("user id is required to create a board")
	}

	b := board.New(name, s.userID, isPublic)
	err := s.run(ctx, func(ctx context.Context) error {
		if err := PersistBoard(ctx, s.store, b); err != nil {
			return err
		}
		b.AttachSentinel()
		s.mu.Lock()
		s.current = b
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("Created board %s (%s)", b.DocumentID, b.Name)
	s.notify(b.Clone(), "create_board")
	return b.Clone(), nil
}

// CreateColumn inserts a column titled title before all other columns.
func (s *Session) CreateColumn(ctx context.Context, title string) (*board.Board, error) {
	return s.apply(ctx, "create_column", func(b *board.Board) error {
		return b.CreateColumn(s.userID, title)
	})
}

// RenameColumn changes the title of the column at index.
func (s *Session) RenameColumn(ctx context.Context, index int, title string) (*board.Board, error) {
	return s.apply(ctx, "rename_column", func(b *board.Board) error {
		return b.RenameColumn(s.userID, index, title)
	})
}

// DeleteColumn removes the column at index with all its cards.
func (s *Session) DeleteColumn(ctx context.Context, index int) (*board.Board, error) {
	return s.apply(ctx, "delete_column", func(b *board.Board) error {
		return b.DeleteColumn(s.userID, index)
	})
}

// AddCard appends a card named name to the column at index.
func (s *Session) AddCard(ctx context.Context, column int, name string) (*board.Board, error) {
	return s.apply(ctx, "add_card", func(b *board.Board) error {
		return b.AddCard(s.userID, column, name)
	})
}

// MoveCard moves a card between (or within) columns. See board.MoveCard.
func (s *Session) MoveCard(ctx context.Context, from, to, cardIndex, targetIndex int) (*board.Board, error) {
	return s.apply(ctx, "move_card", func(b *board.Board) error {
		return b.MoveCard(s.userID, from, to, cardIndex, targetIndex)
	})
}

// MoveCardToColumn moves a card to the end of another column.
func (s *Session) MoveCardToColumn(ctx context.Context, from, cardIndex, to int) (*board.Board, error) {
	return s.apply(ctx, "move_card", func(b *board.Board) error {
		return b.MoveCardToColumn(s.userID, from, cardIndex, to)
	})
}

// UpdateCard edits a card in place.
func (s *Session) UpdateCard(ctx context.Context, column, cardIndex int, edit board.CardEdit) (*board.Board, error) {
	return s.apply(ctx, "update_card", func(b *board.Board) error {
		return b.UpdateCard(s.userID, column, cardIndex, edit)
	})
}

// DeleteCard removes a card.
func (s *Session) DeleteCard(ctx context.Context, column, cardIndex int) (*board.Board, error) {
	return s.apply(ctx, "delete_card", func(b *board.Board) error {
		return b.DeleteCard(s.userID, column, cardIndex)
	})
}

// RequestJoin asks for the session's user to be added to the board as a
// Pending member. Nothing is written if the user already has a role.
func (s *Session) RequestJoin(ctx context.Context) (*board.Board, error) {
	return s.apply(ctx, "request_join", func(b *board.Board) error {
		added, err := b.RequestJoin(s.userID)
		if err != nil {
			return err
		}
		if !added {
			return errUnchanged
		}
		return nil
	})
}

// ApproveMember promotes a Pending user to Member.
func (s *Session) ApproveMember(ctx context.Context, userID string) (*board.Board, error) {
	return s.apply(ctx, "approve_member", func(b *board.Board) error {
		return b.ApproveMember(s.userID, userID)
	})
}

// Close cancels in-flight work and waits for it to finish. It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// errUnchanged tells apply that a mutation succeeded without changing the
// board, so there is nothing to persist.
var errUnchanged = errors.New("board unchanged")

// apply runs mutate against the session's board, then persists and
// refreshes it. The board is left as it was if mutate fails, and restored
// if the persist fails.
func (s *Session) apply(ctx context.Context, action string, mutate func(b *board.Board) error) (*board.Board, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, board.ErrNotInitialized
	}
	snapshot := s.current.Clone()
	err := mutate(s.current)
	if errors.Is(err, errUnchanged) {
		out := s.current.Clone()
		s.mu.Unlock()
		return out, nil
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	pending := s.current.Clone()
	s.mu.Unlock()

	err = s.run(ctx, func(ctx context.Context) error {
		return s.persistAndRefresh(ctx, pending)
	})
	if err != nil {
		s.mu.Lock()
		s.current = snapshot
		s.mu.Unlock()
		return nil, err
	}

	out := s.Board()
	s.notify(out, action)
	return out, nil
}

// persistAndRefresh writes b and swaps in the stored copy. If the write
// succeeds but the re-read fails, the local copy is kept.
func (s *Session) persistAndRefresh(ctx context.Context, b *board.Board) error {
	if err := PersistBoard(ctx, s.store, b); err != nil {
		return err
	}
	b.AttachSentinel()

	refreshed, err := fetchBoard(ctx, s.store, b.DocumentID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Printf("WARNING: Failed to refresh board %s after write: %v", b.DocumentID, err)
		refreshed = b
	} else {
		refreshed.AttachSentinel()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = refreshed
	s.mu.Unlock()
	return nil
}

// run executes fn in the session's task group and waits for it. fn's
// context is cancelled when either ctx or the session is.
func (s *Session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.inflight.Add(1)
	done := make(chan error, 1)
	s.group.Go(func() error {
		err := fn(opCtx)
		s.inflight.Add(-1)
		done <- err
		// Failures go to the caller, not the group, so one failed write
		// does not cancel the rest of the session.
		return nil
	})

	if err := <-done; err != nil {
		if s.ctx.Err() != nil {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (s *Session) notify(b *board.Board, action string) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.BoardChanged(b, action)
	}
}

func fetchBoard(ctx context.Context, store remote.Store, id string) (*board.Board, error) {
	doc, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get board %s: %w", id, err)
	}
	b, err := remote.DecodeBoard(doc)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// PersistBoard writes the whole board to the store, without its sentinel
// column. A board with no document id is created and given the id the
// store assigns.
func PersistBoard(ctx context.Context, store remote.Store, b *board.Board) error {
	if b == nil {
		return board.ErrNotInitialized
	}
	// EncodeBoard leaves the sentinel out; b itself is not modified.
	id, err := store.Set(ctx, b.DocumentID, remote.EncodeBoard(b))
	if err != nil {
		return fmt.Errorf("failed to persist board %q: %w", b.Name, err)
	}
	b.DocumentID = id
	return nil
}
