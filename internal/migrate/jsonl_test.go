package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teamboard/teamboard/internal/remote"
)

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boards.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestReadDocuments(t *testing.T) {
	path := writeJSONL(t,
		`{"id":"b1","name":"Alpha","createdBy":"u1","isPublic":true}`,
		``,
		`{"documentId":"b2","name":"Beta","createdBy":"u1","isPublic":"true"}`,
		`not json`,
		`["array"]`,
	)

	docs, errs, err := ReadDocuments(path)
	if err != nil {
		t.Fatalf("ReadDocuments() failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "b1" || docs[1].ID != "b2" {
		t.Errorf("ids = %s, %s", docs[0].ID, docs[1].ID)
	}
	if _, ok := docs[0].Fields["id"]; ok {
		t.Error("id key should be removed from fields")
	}
	if len(errs) != 2 || !strings.HasPrefix(errs[0], "line 4:") || !strings.HasPrefix(errs[1], "line 5:") {
		t.Errorf("errs = %v", errs)
	}
}

func TestReadDocuments_MissingFile(t *testing.T) {
	if _, _, err := ReadDocuments("/nonexistent/path.jsonl"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestImportJSONL(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemoryStore()
	path := writeJSONL(t,
		`{"id":"b1","name":"Alpha","createdBy":"u1","isPublic":true,"taskList":[{"title":"To Do","cards":[{"name":"c1","status":"IN_PROGRESS"}]}]}`,
		`{"name":"No id","createdBy":"u2","isPublic":1}`,
		`{"id":"bad","name":"No creator"}`,
		`{broken`,
	)

	result, err := ImportJSONL(ctx, store, ImportOptions{Path: path})
	if err != nil {
		t.Fatalf("ImportJSONL() failed: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 2 {
		t.Errorf("result = %+v, want 2 imported, 2 skipped", result)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d documents, want 2", store.Len())
	}
	if result.IDs[0] != "b1" || result.IDs[1] == "" {
		t.Errorf("ids = %v", result.IDs)
	}

	doc, err := store.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	b, err := remote.DecodeBoard(doc)
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}
	if len(b.Columns) != 1 || b.Columns[0].Cards[0].Name != "c1" {
		t.Errorf("imported board = %+v", b)
	}
}

func TestImportJSONL_DryRun(t *testing.T) {
	store := remote.NewMemoryStore()
	path := writeJSONL(t, `{"id":"b1","createdBy":"u1"}`)

	result, err := ImportJSONL(context.Background(), store, ImportOptions{Path: path, DryRun: true, Backup: true})
	if err != nil {
		t.Fatalf("ImportJSONL() failed: %v", err)
	}
	if result.Imported != 1 || store.Len() != 0 {
		t.Errorf("dry run wrote documents: result=%+v len=%d", result, store.Len())
	}
	if result.BackupCreated != "" {
		t.Error("dry run should not create a backup")
	}
}

func TestImportJSONL_Backup(t *testing.T) {
	path := writeJSONL(t, `{"id":"b1","createdBy":"u1"}`)

	result, err := ImportJSONL(context.Background(), remote.NewMemoryStore(), ImportOptions{Path: path, Backup: true})
	if err != nil {
		t.Fatalf("ImportJSONL() failed: %v", err)
	}
	if result.BackupCreated == "" {
		t.Fatal("no backup created")
	}
	if _, err := os.Stat(result.BackupCreated); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestImportJSONL_StoreOffline(t *testing.T) {
	store := remote.NewMemoryStore()
	store.SetOffline(true)
	path := writeJSONL(t, `{"id":"b1","createdBy":"u1"}`)

	result, err := ImportJSONL(context.Background(), store, ImportOptions{Path: path})
	if err != nil {
		t.Fatalf("ImportJSONL() failed: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestImportJSONL_MissingFile(t *testing.T) {
	if _, err := ImportJSONL(context.Background(), remote.NewMemoryStore(), ImportOptions{Path: "/nonexistent.jsonl"}); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
