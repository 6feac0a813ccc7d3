package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/cache"
	"github.com/teamboard/teamboard/internal/remote"
)

// State is the engine's position in a sync pass.
type State int32

const (
	StateIdle State = iota
	StateSyncing
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Cache is the subset of the local cache the engine writes to.
// *cache.DB implements it.
type Cache interface {
	ReplaceBoards(ctx context.Context, boards []*board.Board) error
	InsertBoards(ctx context.Context, boards []*board.Board) error
	CountContext(ctx context.Context) (int, error)
	ListBoards(ctx context.Context, filter cache.ListFilter) ([]*board.Board, error)
}

// Options configures an Engine.
type Options struct {
	// SeedSamples makes InitializeIfEmpty insert sample boards when the
	// first population pass obtains nothing.
	SeedSamples bool
}

// Engine synchronizes public boards from the remote store into the cache.
type Engine struct {
	store  remote.Store
	cache  Cache
	logger *log.Logger
	opts   Options

	state atomic.Int32
}

// New creates a sync engine.
//
// The cache must have its schema initialized. If logger is nil, a default
// logger writing to stderr is used.
func New(store remote.Store, c Cache, logger *log.Logger, opts Options) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		store:  store,
		cache:  c,
		logger: logger,
		opts:   opts,
	}
}

// State returns the outcome of the most recent pass, or StateSyncing while
// one is running.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// FetchAndCache queries the remote store for public boards and replaces the
// cache with them.
//
// Documents that fail to decode are logged and skipped. The cache is only
// replaced when at least one board decoded, and a cache failure is logged
// rather than returned. An error is returned only when the remote query
// itself fails.
func (e *Engine) FetchAndCache(ctx context.Context) ([]*board.Board, error) {
	docs, err := e.store.QueryEqual(ctx, remote.FieldIsPublic, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public boards: %w", err)
	}

	boards := make([]*board.Board, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		b, err := remote.DecodeBoard(doc)
		if err != nil {
			e.logger.Printf("WARNING: Skipping document %s: %v", doc.ID, err)
			skipped++
			continue
		}
		boards = append(boards, b)
	}
	e.logger.Printf("Fetched %d public boards (skipped=%d)", len(boards), skipped)

	if len(boards) == 0 {
		return boards, nil
	}

	// The caller may be tearing down; leave the cache alone.
	if err := ctx.Err(); err != nil {
		return boards, nil
	}
	if err := e.cache.ReplaceBoards(ctx, boards); err != nil {
		e.logger.Printf("WARNING: Failed to replace cache: %v", err)
		return boards, nil
	}
	e.logger.Printf("Replaced cache with %d boards", len(boards))
	return boards, nil
}

// SyncWithRetry runs FetchAndCache up to maxAttempts times, waiting
// backoff.Delay(n) between attempts. Cancellation is checked between
// attempts. It never returns an error; failures are reported in the Result.
func (e *Engine) SyncWithRetry(ctx context.Context, maxAttempts int, backoff Backoff) Result {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	e.state.Store(int32(StateSyncing))
	e.logger.Printf("Starting sync pass (max attempts=%d)", maxAttempts)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, delayFor(backoff, attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		boards, err := e.FetchAndCache(ctx)
		if err == nil {
			e.state.Store(int32(StateSuccess))
			return Result{
				Outcome: OutcomeSuccess,
				Message: fmt.Sprintf("Synced %d public boards", len(boards)),
				Boards:  len(boards),
			}
		}

		lastErr = err
		e.logger.Printf("Sync attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if ctx.Err() != nil {
			break
		}
	}

	e.state.Store(int32(StateFailed))
	return Result{
		Outcome:         OutcomeFailed,
		Err:             lastErr,
		FallbackMessage: e.fallbackMessage(),
	}
}

func (e *Engine) fallbackMessage() string {
	// The pass context may already be cancelled; the count is a local read.
	count, err := e.cache.CountContext(context.Background())
	if err != nil {
		return "Could not reach the server and the local cache is unavailable"
	}
	if count == 0 {
		return "Could not reach the server; no cached boards are available"
	}
	return fmt.Sprintf("Could not reach the server; showing %d cached boards", count)
}

func delayFor(b Backoff, n int) time.Duration {
	if b == nil {
		return 0
	}
	return b.Delay(n)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CachedCount returns the number of boards in the local cache.
func (e *Engine) CachedCount(ctx context.Context) (int, error) {
	count, err := e.cache.CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cached boards: %w", err)
	}
	return count, nil
}

// InitializeIfEmpty runs one population pass when the cache holds no
// boards. A failed fetch is logged, not returned. With Options.SeedSamples
// set, sample boards owned by userID are cached when the pass obtains none.
func (e *Engine) InitializeIfEmpty(ctx context.Context, userID string) error {
	count, err := e.CachedCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	e.logger.Printf("Cache is empty, running initial population pass")
	boards, err := e.FetchAndCache(ctx)
	if err != nil {
		e.logger.Printf("WARNING: Initial population failed: %v", err)
	}
	if len(boards) > 0 || !e.opts.SeedSamples || userID == "" {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	samples := SampleBoards(userID)
	if err := e.cache.InsertBoards(ctx, samples); err != nil {
		return fmt.Errorf("failed to insert sample boards: %w", err)
	}
	e.logger.Printf("Inserted %d sample boards", len(samples))
	return nil
}

// Listing is the result of a fetch-or-fallback read.
type Listing struct {
	Boards []*board.Board
	// Stale is set when the remote fetch failed and Boards came from the
	// cache. A fresh listing with no boards means there are none.
	Stale bool
	// Err is the fetch failure behind a stale listing.
	Err error
}

// LoadPublicBoards fetches public boards, falling back to the cache when the
// remote store cannot be reached. The returned error is set only when both
// the fetch and the cache read fail.
func (e *Engine) LoadPublicBoards(ctx context.Context) (Listing, error) {
	boards, fetchErr := e.FetchAndCache(ctx)
	if fetchErr == nil {
		return Listing{Boards: boards}, nil
	}

	e.logger.Printf("WARNING: Falling back to cache: %v", fetchErr)
	cached, err := e.cache.ListBoards(ctx, cache.ListFilter{PublicOnly: true})
	if err != nil {
		return Listing{Stale: true, Err: fetchErr}, errors.Join(fetchErr, fmt.Errorf("failed to read cache: %w", err))
	}
	return Listing{Boards: cached, Stale: true, Err: fetchErr}, nil
}
