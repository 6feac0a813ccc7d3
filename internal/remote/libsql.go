package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

// DefaultCollection is the collection board documents are stored in.
const DefaultCollection = "boards"

// LibSQLStore stores documents as JSON rows in a libSQL database, either a
// hosted Turso database (libsql://...) or a local file (file:...).
type LibSQLStore struct {
	conn       *sql.DB
	collection string
}

// OpenLibSQL connects to the libSQL database at dsn and creates the
// documents table if needed. authToken is appended to remote URLs.
//
// Example:
//
//	store, err := remote.OpenLibSQL("libsql://boards-acme.turso.io", token)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func OpenLibSQL(dsn, authToken string) (*LibSQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("libsql dsn is required")
	}
	if authToken != "" {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid libsql dsn: %w", err)
		}
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql store: %w", err)
	}
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &LibSQLStore{conn: conn, collection: DefaultCollection}
	if err := s.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *LibSQLStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return transportError("init schema", err)
	}
	return nil
}

// QueryEqual implements Store. Matching is strict on JSON type: a boolean
// value never matches a stored string or number. Documents whose body is not
// valid JSON never match.
func (s *LibSQLStore) QueryEqual(ctx context.Context, field string, value any) ([]Document, error) {
	path := jsonPath(field)

	var cond string
	var args []any
	switch v := value.(type) {
	case bool:
		jsonType := "false"
		if v {
			jsonType = "true"
		}
		cond = "json_type(body, ?) = ?"
		args = []any{path, jsonType}
	case string:
		cond = "json_type(body, ?) = 'text' AND json_extract(body, ?) = ?"
		args = []any{path, path, v}
	case int, int32, int64, float32, float64:
		f, _ := number(v)
		cond = "json_type(body, ?) IN ('integer', 'real') AND json_extract(body, ?) = ?"
		args = []any{path, path, f}
	case nil:
		cond = "json_type(body, ?) IS NULL"
		args = []any{path}
	default:
		return nil, fmt.Errorf("unsupported query value type %T", value)
	}

	// json_type errors on malformed JSON, so unreadable bodies are filtered
	// out first instead of failing the whole query.
	query := `SELECT id, body FROM documents WHERE collection = ? AND json_valid(body) AND ` + cond + ` ORDER BY id`
	rows, err := s.conn.QueryContext(ctx, query, append([]any{s.collection}, args...)...)
	if err != nil {
		return nil, transportError("query", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, transportError("scan", err)
		}
		// A body that is valid JSON but not an object yields a document
		// without fields; the decoder reports it so the rest of the batch
		// survives.
		fields, _ := unmarshalFields(body)
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, transportError("query", err)
	}
	return docs, nil
}

// Get implements Store.
func (s *LibSQLStore) Get(ctx context.Context, id string) (Document, error) {
	var body string
	err := s.conn.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, s.collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, transportError("get", err)
	}

	fields, _ := unmarshalFields(body)
	return Document{ID: id, Fields: fields}, nil
}

// Set implements Store.
func (s *LibSQLStore) Set(ctx context.Context, id string, fields map[string]any) (string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO documents (collection, id, body, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(collection, id) DO UPDATE SET
		body = excluded.body,
		updated_at = excluded.updated_at
	`
	if _, err := s.conn.ExecContext(ctx, query, s.collection, id, string(body), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", transportError("set", err)
	}
	return id, nil
}

// BatchUpdate implements Store. All documents are updated in a single
// transaction.
func (s *LibSQLStore) BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return transportError("begin batch", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		var body string
		err := tx.QueryRowContext(ctx,
			`SELECT body FROM documents WHERE collection = ? AND id = ?`, s.collection, id).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return transportError("batch read", err)
		}

		doc, err := unmarshalFields(body)
		if err != nil || doc == nil {
			doc = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			doc[k] = v
		}
		updated, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`,
			string(updated), now, s.collection, id); err != nil {
			return transportError("batch write", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return transportError("commit batch", err)
	}
	return nil
}

// Close implements Store.
func (s *LibSQLStore) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close libsql store: %w", err)
	}
	s.conn = nil
	return nil
}

// jsonPath quotes field as a top-level JSON path.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// unmarshalFields decodes a JSON object, keeping numbers as json.Number.
func unmarshalFields(body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
