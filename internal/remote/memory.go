package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// errOffline is the underlying cause reported while a MemoryStore is offline.
var errOffline = errors.New("store is offline")

// MemoryStore is an in-process Store. Documents are deep-copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]any
	offline bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// SetOffline makes every subsequent call fail with ErrTransport until it is
// switched back.
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.offline {
		return transportError(op, errOffline)
	}
	return nil
}

// QueryEqual implements Store.
func (m *MemoryStore) QueryEqual(ctx context.Context, field string, value any) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, "query"); err != nil {
		return nil, err
	}

	var out []Document
	for id, fields := range m.docs {
		if scalarEqual(fields[field], value) {
			out = append(out, Document{ID: id, Fields: copyMap(fields)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, "get"); err != nil {
		return Document{}, err
	}

	fields, ok := m.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Document{ID: id, Fields: copyMap(fields)}, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, id string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "set"); err != nil {
		return "", err
	}

	if id == "" {
		id = uuid.NewString()
	}
	m.docs[id] = copyMap(fields)
	return id, nil
}

// BatchUpdate implements Store.
func (m *MemoryStore) BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "batch update"); err != nil {
		return err
	}

	for _, id := range ids {
		if _, ok := m.docs[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	for _, id := range ids {
		if m.docs[id] == nil {
			m.docs[id] = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			m.docs[id][k] = copyValue(v)
		}
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

// scalarEqual compares query operands the way a document database does:
// values of different kinds never match, numbers compare by value.
func scalarEqual(a, b any) bool {
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case nil:
		return b == nil
	}
	fa, aok := number(a)
	fb, bok := number(b)
	return aok && bok && fa == fb
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out
	}
	return v
}
