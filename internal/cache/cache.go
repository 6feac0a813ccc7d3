// Package cache provides the on-device board cache.
//
// The cache is an embedded SQLite database in WAL mode holding the last set
// of public boards fetched from the remote store. It is a read fallback
// only: it is never written from local edits, and it is replaced wholesale
// on every successful sync pass.
//
// Architecture:
//   - Database file: .teamboard/cache.db
//   - WAL mode: concurrent readers during a replace
//   - Schema: one boards table keyed by document id; membership and columns
//     are stored as JSON
//
// Writers take DB.writeMu and make their whole change in one transaction, so
// a clear from one sync pass can never interleave with the inserts of
// another, and readers only ever see a complete board set.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/teamboard/teamboard/internal/board"
)

// ErrNotFound is returned by GetBoard for boards that are not cached.
var ErrNotFound = errors.New("board not cached")

// DB wraps the SQLite connection backing the cache.
type DB struct {
	conn *sql.DB
	path string

	// writeMu guards every statement sequence that modifies the boards table.
	writeMu sync.Mutex
}

// Open creates a cache connection at the specified path.
//
// The parent directory is created if needed. The caller must call
// InitSchema before use and Close when done.
//
// Example:
//
//	c, err := cache.Open(".teamboard/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// busy_timeout goes in the DSN so every pooled connection gets it.
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the boards table if it doesn't exist. It is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS boards (
		document_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		assigned_to TEXT NOT NULL DEFAULT '{}',  -- JSON object user -> role
		columns TEXT NOT NULL DEFAULT '[]',      -- JSON array of columns
		is_public INTEGER NOT NULL DEFAULT 0,
		cached_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_boards_public ON boards(is_public);
	CREATE INDEX IF NOT EXISTS idx_boards_name ON boards(name);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// InsertBoards bulk-inserts boards, overwriting rows with the same id.
// Sentinel columns are never stored.
func (db *DB) InsertBoards(ctx context.Context, boards []*board.Board) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBoards(ctx, tx, boards); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear removes every cached board.
func (db *DB) Clear(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := db.conn.ExecContext(ctx, "DELETE FROM boards"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// ReplaceBoards atomically swaps the cache contents for boards.
//
// The clear and the inserts run in one transaction while holding the write
// lock. If ctx is cancelled before the lock is acquired the cache is left
// untouched.
func (db *DB) ReplaceBoards(ctx context.Context, boards []*board.Board) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM boards"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := insertBoards(ctx, tx, boards); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertBoards(ctx context.Context, tx *sql.Tx, boards []*board.Board) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO boards (
		document_id, name, image, created_by, assigned_to, columns, is_public, cached_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(document_id) DO UPDATE SET
		name = excluded.name,
		image = excluded.image,
		created_by = excluded.created_by,
		assigned_to = excluded.assigned_to,
		columns = excluded.columns,
		is_public = excluded.is_public,
		cached_at = excluded.cached_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, b := range boards {
		if b == nil {
			continue
		}
		if b.DocumentID == "" {
			return fmt.Errorf("board %q has no document id", b.Name)
		}

		rolesJSON, err := json.Marshal(b.AssignedTo)
		if err != nil {
			return fmt.Errorf("failed to marshal members of %s: %w", b.DocumentID, err)
		}
		cols := b.WorkColumns()
		if cols == nil {
			cols = []board.Column{}
		}
		colsJSON, err := json.Marshal(cols)
		if err != nil {
			return fmt.Errorf("failed to marshal columns of %s: %w", b.DocumentID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			b.DocumentID,
			b.Name,
			b.Image,
			b.CreatedBy,
			string(rolesJSON),
			string(colsJSON),
			boolToInt(b.IsPublic),
			now,
		); err != nil {
			return fmt.Errorf("failed to insert board %s: %w", b.DocumentID, err)
		}
	}
	return nil
}

// Count returns the number of cached boards.
func (db *DB) Count() (int, error) {
	return db.CountContext(context.Background())
}

// CountContext returns the number of cached boards with context support.
func (db *DB) CountContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM boards").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get board count: %w", err)
	}
	return count, nil
}

// ListFilter configures ListBoards.
type ListFilter struct {
	// PublicOnly restricts the result to public boards.
	PublicOnly bool
	// Member restricts the result to boards the user is on (any role).
	Member string
}

// ListBoards returns cached boards ordered by name, then document id.
func (db *DB) ListBoards(ctx context.Context, filter ListFilter) ([]*board.Board, error) {
	query := `
	SELECT document_id, name, image, created_by, assigned_to, columns, is_public
	FROM boards`
	if filter.PublicOnly {
		query += ` WHERE is_public = 1`
	}
	query += ` ORDER BY name ASC, document_id ASC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var out []*board.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		if filter.Member != "" {
			if _, ok := b.AssignedTo[filter.Member]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boards: %w", err)
	}
	return out, nil
}

// GetBoard returns a single cached board, or ErrNotFound.
func (db *DB) GetBoard(ctx context.Context, id string) (*board.Board, error) {
	row := db.conn.QueryRowContext(ctx, `
	SELECT document_id, name, image, created_by, assigned_to, columns, is_public
	FROM boards
	WHERE document_id = ?`, id)

	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(s scanner) (*board.Board, error) {
	var b board.Board
	var rolesJSON, colsJSON string
	var isPublic int

	if err := s.Scan(&b.DocumentID, &b.Name, &b.Image, &b.CreatedBy, &rolesJSON, &colsJSON, &isPublic); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan board: %w", err)
	}
	b.IsPublic = isPublic != 0

	if err := json.Unmarshal([]byte(rolesJSON), &b.AssignedTo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal members of %s: %w", b.DocumentID, err)
	}
	if err := json.Unmarshal([]byte(colsJSON), &b.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns of %s: %w", b.DocumentID, err)
	}
	if b.Columns == nil {
		b.Columns = []board.Column{}
	}
	b.EnsureCreatorIsManager()
	return &b, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
