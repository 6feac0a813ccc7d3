package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/teamboard/teamboard/internal/config"
	"github.com/teamboard/teamboard/internal/sync"
)

// Syncer is the part of the sync engine the daemon drives.
// *sync.Engine implements it.
type Syncer interface {
	InitializeIfEmpty(ctx context.Context, userID string) error
	SyncWithRetry(ctx context.Context, maxAttempts int, backoff sync.Backoff) sync.Result
}

// Observer is told about every completed sync pass.
type Observer interface {
	SyncCompleted(r sync.Result)
}

// Settings are the pass schedule and retry policy. They can change while
// the daemon runs.
type Settings struct {
	// Interval is the time between the start of one pass and the next
	Interval time.Duration

	// MaxAttempts bounds the attempts within a single pass
	MaxAttempts int

	// Backoff is the delay policy between attempts
	Backoff sync.Backoff
}

// SettingsFrom converts the sync section of the configuration.
func SettingsFrom(c config.SyncConfig) Settings {
	return Settings{
		Interval:    c.Interval,
		MaxAttempts: c.MaxAttempts,
		Backoff:     c.RetryBackoff(),
	}
}

// Config holds configuration for the daemon.
type Config struct {
	// UserID owns sample boards seeded into an empty cache (optional)
	UserID string

	Settings Settings

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			Interval:    30 * time.Second,
			MaxAttempts: 3,
			Backoff:     sync.ExponentialBackoff{Base: 500 * time.Millisecond, Max: 10 * time.Second},
		},
		Logger: log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon runs sync passes on a schedule.
type Daemon struct {
	engine Syncer
	userID string
	logger *log.Logger

	// mu guards settings and observer.
	mu       gosync.Mutex
	settings Settings
	observer Observer

	reload chan struct{}
	passes atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a daemon driving engine. A nil config uses DefaultConfig.
//
// Use Start() to begin syncing.
func New(engine Syncer, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if err := validateSettings(config.Settings); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		engine:   engine,
		userID:   config.UserID,
		logger:   config.Logger,
		settings: config.Settings,
		reload:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func validateSettings(s Settings) error {
	if s.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %v", s.Interval)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", s.MaxAttempts)
	}
	return nil
}

// SetObserver registers o to receive pass results. A nil o disables
// reporting.
func (d *Daemon) SetObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer = o
}

// Settings returns the settings currently in effect.
func (d *Daemon) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// UpdateSettings replaces the schedule and retry policy. A new interval
// takes effect from the next tick. Invalid settings are logged and ignored.
func (d *Daemon) UpdateSettings(s Settings) {
	if err := validateSettings(s); err != nil {
		d.logger.Printf("Ignoring settings update: %v", err)
		return
	}
	if s.Backoff == nil {
		s.Backoff = d.Settings().Backoff
	}

	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
	d.logger.Printf("Settings updated: interval=%v max_attempts=%d", s.Interval, s.MaxAttempts)

	select {
	case d.reload <- struct{}{}:
	default:
	}
}

// Passes returns the number of completed sync passes.
func (d *Daemon) Passes() int64 {
	return d.passes.Load()
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Populate the cache if it is empty
// 2. Run a sync pass immediately
// 3. Run a sync pass every interval
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Println("Starting daemon")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.ctx, cancel)
	defer stop()

	d.wg.Add(1)
	defer d.wg.Done()

	if err := d.engine.InitializeIfEmpty(ctx, d.userID); err != nil && ctx.Err() == nil {
		d.logger.Printf("Warning: initial population failed: %v", err)
	}

	d.RunOnce(ctx)

	ticker := time.NewTicker(d.Settings().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Println("Shutdown signal received")
			return nil

		case <-d.reload:
			ticker.Reset(d.Settings().Interval)

		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single sync pass with the current settings and reports it
// to the observer. A pass interrupted by shutdown is not reported.
func (d *Daemon) RunOnce(ctx context.Context) sync.Result {
	s := d.Settings()
	start := time.Now()
	result := d.engine.SyncWithRetry(ctx, s.MaxAttempts, s.Backoff)
	if ctx.Err() != nil {
		return result
	}

	d.passes.Add(1)
	if result.Succeeded() {
		d.logger.Printf("Sync pass complete in %v: %s", time.Since(start).Round(time.Millisecond), result.Message)
	} else {
		d.logger.Printf("Sync pass failed: %v (%s)", result.Err, result.FallbackMessage)
	}

	d.mu.Lock()
	o := d.observer
	d.mu.Unlock()
	if o != nil {
		o.SyncCompleted(result)
	}
	return result
}

// Stop gracefully shuts down the daemon and waits for a running Start to
// return.
func (d *Daemon) Stop() error {
	d.logger.Println("Stopping daemon")
	d.cancel()
	d.wg.Wait()
	d.logger.Println("Daemon stopped")
	return nil
}
