// Package loadtest exercises the local cache under concurrent access.
//
// It populates a cache with generated boards, then has many readers list
// boards at once while recording latency, or has readers race a writer that
// keeps replacing the whole board set. The second run checks that a reader
// never observes a half-replaced cache.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/cache"
)

// TestCache is a populated cache for load testing.
type TestCache struct {
	DB         *cache.DB
	BoardIDs   []string
	TotalCards int
	PublicPct  float64
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// CreateTestCache creates a cache at path holding numBoards generated boards,
// of which roughly publicPct are public.
func CreateTestCache(path string, numBoards int, publicPct float64) (*TestCache, error) {
	db, err := cache.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	boards := GenerateBoards("gen", numBoards, publicPct)
	if err := db.ReplaceBoards(context.Background(), boards); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to populate cache: %w", err)
	}

	tc := &TestCache{DB: db, PublicPct: publicPct, BoardIDs: make([]string, 0, numBoards)}
	for _, b := range boards {
		tc.BoardIDs = append(tc.BoardIDs, b.DocumentID)
		tc.TotalCards += b.CardCount()
	}
	return tc, nil
}

// Close closes the cache.
func (tc *TestCache) Close() error {
	if tc.DB != nil {
		return tc.DB.Close()
	}
	return nil
}

// GenerateBoards creates count boards whose document ids start with prefix.
// Card counts and statuses vary per board; the distribution is deterministic.
func GenerateBoards(prefix string, count int, publicPct float64) []*board.Board {
	rng := rand.New(rand.NewSource(42))
	titles := []string{"To Do", "In Progress", "Done"}
	statuses := []board.Status{board.StatusPending, board.StatusInProgress, board.StatusCompleted}

	boards := make([]*board.Board, count)
	for i := 0; i < count; i++ {
		owner := fmt.Sprintf("loadtest-user-%d", i%10)
		b := board.New(fmt.Sprintf("Board %05d", i), owner, rng.Float64() < publicPct)
		b.DocumentID = fmt.Sprintf("%s-%05d", prefix, i)
		b.AssignedTo[fmt.Sprintf("loadtest-user-%d", (i+1)%10)] = board.RoleMember

		for c, title := range titles {
			col := board.Column{Title: title, CreatedBy: owner, Cards: []board.Card{}}
			numCards := rng.Intn(5)
			for j := 0; j < numCards; j++ {
				col.Cards = append(col.Cards, board.Card{
					Name:       fmt.Sprintf("Card %d.%d", c, j),
					CreatedBy:  owner,
					AssignedTo: []string{owner},
					Status:     statuses[c],
				})
			}
			b.Columns = append(b.Columns, col)
		}
		boards[i] = b
	}
	return boards
}

// RunConcurrentReads simulates numReaders clients listing boards at once.
//
// Each reader performs queriesPerReader listings, recording latency for each.
// Returns aggregated latency statistics.
func (tc *TestCache) RunConcurrentReads(numReaders, queriesPerReader int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, queriesPerReader)
			ctx := context.Background()
			filter := cache.ListFilter{PublicOnly: readerID%2 == 0}

			for j := 0; j < queriesPerReader; j++ {
				start := time.Now()
				_, err := tc.DB.ListBoards(ctx, filter)
				durations = append(durations, time.Since(start))

				if err != nil {
					errorsChan <- fmt.Errorf("reader %d query %d failed: %w", readerID, j, err)
					return
				}
			}
			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	errorCount := len(errorsChan)
	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}
	if len(allDurations) == 0 {
		if err := <-errorsChan; err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

// VerifyReplaceIsolation runs numReaders readers against a writer that
// alternates between two complete board sets for duration. Every listing
// must contain exactly one set in full.
func (tc *TestCache) VerifyReplaceIsolation(numReaders int, duration time.Duration) (replaces int, err error) {
	n := len(tc.BoardIDs)
	sets := [][]*board.Board{
		GenerateBoards("a", n, 1),
		GenerateBoards("b", n, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	errorsChan := make(chan error, numReaders+1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			if err := tc.DB.ReplaceBoards(ctx, sets[i%2]); err != nil {
				if ctx.Err() == nil {
					errorsChan <- fmt.Errorf("replace %d failed: %w", i, err)
				}
				return
			}
			replaces++
		}
	}()

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()
			for ctx.Err() == nil {
				boards, err := tc.DB.ListBoards(ctx, cache.ListFilter{})
				if err != nil {
					if ctx.Err() == nil {
						errorsChan <- fmt.Errorf("reader %d list failed: %w", readerID, err)
					}
					return
				}
				if err := checkSingleSet(boards, n); err != nil {
					errorsChan <- fmt.Errorf("reader %d: %w", readerID, err)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)
	if err, ok := <-errorsChan; ok {
		return replaces, err
	}
	return replaces, nil
}

// checkSingleSet reports an error unless boards is one whole generated set.
// The initial population counts as a set.
func checkSingleSet(boards []*board.Board, want int) error {
	if len(boards) != want {
		return fmt.Errorf("saw %d boards, want %d", len(boards), want)
	}
	prefixes := make(map[string]int)
	for _, b := range boards {
		prefix, _, _ := strings.Cut(b.DocumentID, "-")
		prefixes[prefix]++
	}
	if len(prefixes) != 1 {
		return fmt.Errorf("saw a mix of board sets: %v", prefixes)
	}
	return nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// PrintStats writes latency statistics to w.
func (s *LatencyStats) PrintStats(w io.Writer) {
	fmt.Fprintf(w, "Latency Statistics:\n")
	fmt.Fprintf(w, "  Total Queries: %d\n", s.TotalQueries)
	fmt.Fprintf(w, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
