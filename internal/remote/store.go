// Package remote provides access to the authoritative board document store.
//
// Documents are schemaless field maps keyed by id, mirroring a hosted
// document database. DecodeBoard and EncodeBoard convert between documents
// and the typed board model; decoding tolerates legacy and mistyped fields.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Field names used in board documents.
const (
	FieldName       = "name"
	FieldImage      = "image"
	FieldCreatedBy  = "createdBy"
	FieldAssignedTo = "assignedTo"
	FieldIsPublic   = "isPublic"
	FieldColumns    = "taskList"
	FieldTitle      = "title"
	FieldCards      = "cards"
	FieldLabelColor = "labelColor"
	FieldDueDate    = "dueDate"
	FieldStatus     = "status"
)

var (
	// ErrTransport marks failures reaching the store. Callers may retry.
	ErrTransport = errors.New("remote store unreachable")

	// ErrNotFound is returned by Get for unknown document ids.
	ErrNotFound = errors.New("document not found")
)

// ParseError reports a document that could not be converted to a board.
type ParseError struct {
	DocumentID string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse board document %q: %s", e.DocumentID, e.Reason)
}

// Document is a single stored document.
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is the contract of the remote document store.
//
// Implementations must be safe for concurrent use. Writes are whole-document
// overwrites; the last writer wins.
type Store interface {
	// QueryEqual returns all documents whose field equals value.
	QueryEqual(ctx context.Context, field string, value any) ([]Document, error)

	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Set overwrites the document with the given id. If id is empty a new
	// document is created. The stored id is returned.
	Set(ctx context.Context, id string, fields map[string]any) (string, error)

	// BatchUpdate sets the given fields on every listed document, leaving
	// other fields alone. Unknown ids fail the whole batch with ErrNotFound.
	BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error

	// Close releases the store's resources.
	Close() error
}

// transportError wraps err so that errors.Is(err, ErrTransport) holds.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
