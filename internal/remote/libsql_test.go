package remote

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/teamboard/teamboard/internal/board"
)

// openTestLibSQL opens a store on a temporary local libSQL file.
func openTestLibSQL(t *testing.T) *LibSQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "remote.db")
	s, err := OpenLibSQL(dsn, "")
	if err != nil {
		t.Fatalf("OpenLibSQL() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// insertRawBody stores body as-is, bypassing Set's marshaling.
func insertRawBody(t *testing.T, s *LibSQLStore, id, body string) {
	t.Helper()
	_, err := s.conn.Exec(
		`INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)`,
		s.collection, id, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("insert %s failed: %v", id, err)
	}
}

func TestOpenLibSQL_RequiresDSN(t *testing.T) {
	if _, err := OpenLibSQL("", ""); err == nil {
		t.Error("OpenLibSQL(\"\") should fail")
	}
}

func TestLibSQLStore_SetAssignsID(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	id, err := s.Set(ctx, "", map[string]any{FieldName: "Launch", FieldCreatedBy: "u1"})
	if err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Set() with empty id should assign one")
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if doc.ID != id || doc.Fields[FieldName] != "Launch" {
		t.Errorf("Get() = %+v", doc)
	}

	// Overwrite replaces the whole document.
	if _, err := s.Set(ctx, id, map[string]any{FieldName: "Renamed"}); err != nil {
		t.Fatalf("Set(overwrite) failed: %v", err)
	}
	doc, _ = s.Get(ctx, id)
	if _, ok := doc.Fields[FieldCreatedBy]; ok {
		t.Error("Set should overwrite the whole document")
	}
}

func TestLibSQLStore_GetMissing(t *testing.T) {
	_, err := openTestLibSQL(t).Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLibSQLStore_QueryEqualIsTypeStrict(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	values := map[string]any{
		"a": true,
		"b": "true",
		"c": 1,
		"d": false,
		"e": true,
	}
	for id, v := range values {
		if _, err := s.Set(ctx, id, map[string]any{FieldCreatedBy: "u1", FieldIsPublic: v}); err != nil {
			t.Fatalf("Set(%s) failed: %v", id, err)
		}
	}
	if _, err := s.Set(ctx, "f", map[string]any{FieldCreatedBy: "u1"}); err != nil {
		t.Fatalf("Set(f) failed: %v", err)
	}

	got, err := s.QueryEqual(ctx, FieldIsPublic, true)
	if err != nil {
		t.Fatalf("QueryEqual(true) failed: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"a", "e"}) {
		t.Errorf("QueryEqual(true) ids = %v, want [a e]", ids(got))
	}

	got, _ = s.QueryEqual(ctx, FieldIsPublic, "true")
	if !reflect.DeepEqual(ids(got), []string{"b"}) {
		t.Errorf("QueryEqual(\"true\") ids = %v, want [b]", ids(got))
	}

	got, _ = s.QueryEqual(ctx, FieldIsPublic, 1)
	if !reflect.DeepEqual(ids(got), []string{"c"}) {
		t.Errorf("QueryEqual(1) ids = %v, want [c]", ids(got))
	}

	got, _ = s.QueryEqual(ctx, FieldIsPublic, nil)
	if !reflect.DeepEqual(ids(got), []string{"f"}) {
		t.Errorf("QueryEqual(nil) ids = %v, want [f]", ids(got))
	}

	if _, err := s.QueryEqual(ctx, FieldIsPublic, []string{"x"}); err == nil {
		t.Error("QueryEqual() with a list value should fail")
	}
}

func TestLibSQLStore_UnreadableBodies(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	good := board.New("Launch", "u1", true)
	if _, err := s.Set(ctx, "good", EncodeBoard(good)); err != nil {
		t.Fatalf("Set(good) failed: %v", err)
	}
	if _, err := s.Set(ctx, "no-creator", map[string]any{FieldName: "Orphan", FieldIsPublic: true}); err != nil {
		t.Fatalf("Set(no-creator) failed: %v", err)
	}
	insertRawBody(t, s, "corrupt", `{"isPublic": true, "name": `)

	docs, err := s.QueryEqual(ctx, FieldIsPublic, true)
	if err != nil {
		t.Fatalf("QueryEqual() with a corrupt row failed: %v", err)
	}
	if !reflect.DeepEqual(ids(docs), []string{"good", "no-creator"}) {
		t.Fatalf("QueryEqual() ids = %v, want [good no-creator]", ids(docs))
	}

	var decoded, failed int
	for _, doc := range docs {
		_, err := DecodeBoard(doc)
		var perr *ParseError
		switch {
		case err == nil:
			decoded++
		case errors.As(err, &perr):
			failed++
		default:
			t.Errorf("DecodeBoard(%s) error = %v, want ParseError", doc.ID, err)
		}
	}
	if decoded != 1 || failed != 1 {
		t.Errorf("decoded = %d, failed = %d; want 1 and 1", decoded, failed)
	}

	doc, err := s.Get(ctx, "corrupt")
	if err != nil {
		t.Fatalf("Get(corrupt) failed: %v", err)
	}
	var perr *ParseError
	if _, err := DecodeBoard(doc); !errors.As(err, &perr) || perr.DocumentID != "corrupt" {
		t.Errorf("DecodeBoard(corrupt) error = %v, want ParseError for corrupt", err)
	}
}

func TestLibSQLStore_BatchUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	for _, id := range []string{"a", "b"} {
		if _, err := s.Set(ctx, id, map[string]any{FieldName: id, FieldCreatedBy: "u1", FieldIsPublic: false}); err != nil {
			t.Fatalf("Set(%s) failed: %v", id, err)
		}
	}

	if err := s.BatchUpdate(ctx, []string{"a", "b"}, map[string]any{FieldIsPublic: true}); err != nil {
		t.Fatalf("BatchUpdate() failed: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		doc, _ := s.Get(ctx, id)
		if doc.Fields[FieldIsPublic] != true || doc.Fields[FieldName] != id {
			t.Errorf("doc %s = %+v", id, doc.Fields)
		}
	}
}

func TestLibSQLStore_FailedBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	if _, err := s.Set(ctx, "pub", map[string]any{FieldName: "pub", FieldCreatedBy: "u1", FieldIsPublic: true}); err != nil {
		t.Fatalf("Set(pub) failed: %v", err)
	}
	if _, err := s.Set(ctx, "priv", map[string]any{FieldName: "priv", FieldCreatedBy: "u1", FieldIsPublic: false}); err != nil {
		t.Fatalf("Set(priv) failed: %v", err)
	}

	err := s.BatchUpdate(ctx, []string{"priv", "nope"}, map[string]any{FieldIsPublic: true, FieldName: "changed"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("BatchUpdate(unknown id) error = %v, want ErrNotFound", err)
	}

	doc, _ := s.Get(ctx, "priv")
	if doc.Fields[FieldIsPublic] != false || doc.Fields[FieldName] != "priv" {
		t.Errorf("priv after failed batch = %+v, want unchanged", doc.Fields)
	}
	public, err := s.QueryEqual(ctx, FieldIsPublic, true)
	if err != nil {
		t.Fatalf("QueryEqual() failed: %v", err)
	}
	if !reflect.DeepEqual(ids(public), []string{"pub"}) {
		t.Errorf("public ids = %v, want [pub]", ids(public))
	}
}

func TestLibSQLStore_BoardRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestLibSQL(t)

	b, err := DecodeBoard(Document{ID: "doc-1", Fields: sampleFields()})
	if err != nil {
		t.Fatalf("DecodeBoard(sample) failed: %v", err)
	}
	b.AttachSentinel()

	if _, err := s.Set(ctx, b.DocumentID, EncodeBoard(b)); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	docs, err := s.QueryEqual(ctx, FieldIsPublic, true)
	if err != nil {
		t.Fatalf("QueryEqual() failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("QueryEqual() returned %d docs, want 1", len(docs))
	}
	got, err := DecodeBoard(docs[0])
	if err != nil {
		t.Fatalf("DecodeBoard(stored) failed: %v", err)
	}

	b.StripSentinel()
	if !reflect.DeepEqual(got, b) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, b)
	}
}

func TestLibSQLStore_CloseTwice(t *testing.T) {
	s, err := OpenLibSQL("file:"+filepath.Join(t.TempDir(), "remote.db"), "")
	if err != nil {
		t.Fatalf("OpenLibSQL() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
