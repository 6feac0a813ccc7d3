package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/cache"
	"github.com/teamboard/teamboard/internal/remote"
	"github.com/teamboard/teamboard/internal/session"
	"github.com/teamboard/teamboard/internal/sync"
	"github.com/teamboard/teamboard/internal/ui"
)

// fatalf prints an error and exits, the way every command reports failure.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func requireUser() string {
	if cfg.User == "" {
		fatalf("no user set (use --user, TB_USER or 'user' in the config file)")
	}
	return cfg.User
}

func openStore() remote.Store {
	if cfg.Remote.IsMemory() {
		logs.Logger("remote").Printf("Using in-process store; data lasts only for this process")
		return remote.NewMemoryStore()
	}
	store, err := remote.OpenLibSQL(cfg.Remote.URL, cfg.Remote.AuthToken)
	if err != nil {
		fatalf("failed to open remote store: %v", err)
	}
	return store
}

func openCache() *cache.DB {
	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		fatalf("failed to open cache: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		fatalf("failed to initialize cache: %v", err)
	}
	return db
}

func newEngine(store remote.Store, db *cache.DB) *sync.Engine {
	return sync.New(store, db, logs.Logger("sync"), sync.Options{SeedSamples: cfg.Sync.SeedSamples})
}

// editBoard loads boardID in a session for the configured user, runs edit,
// and prints the resulting board.
func editBoard(ctx context.Context, boardID string, edit func(ctx context.Context, s *session.Session) (*board.Board, error)) {
	store := openStore()
	defer store.Close()

	s := session.New(ctx, store, requireUser(), logs.Logger("session"))
	defer s.Close()

	if _, err := s.Load(ctx, boardID); err != nil {
		fatalf("%v", err)
	}
	b, err := edit(ctx, s)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Print(ui.RenderBoard(b))
}

func parseIndex(what, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fatalf("invalid %s index %q", what, s)
	}
	return n
}

// confirm asks before a destructive change. Without a terminal the answer
// is yes; scripts pass --yes anyway.
func confirm(title string, skip bool) bool {
	if skip || !ui.IsInteractive() {
		return true
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return err == nil && ok
}
