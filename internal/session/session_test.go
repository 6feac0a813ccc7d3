package session

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/teamboard/teamboard/internal/board"
	"github.com/teamboard/teamboard/internal/remote"
)

const (
	managerID = "manager"
	memberID  = "member"
	pendingID = "pending"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// seedBoard stores the To Do / Done board and returns its id.
func seedBoard(t *testing.T, store remote.Store) string {
	t.Helper()
	b := board.New("Launch", managerID, true)
	b.AssignedTo[memberID] = board.RoleMember
	b.AssignedTo[pendingID] = board.RolePending
	b.Columns = []board.Column{
		{Title: "To Do", CreatedBy: managerID, Cards: []board.Card{
			{Name: "cardA", CreatedBy: managerID, AssignedTo: []string{managerID}, Status: board.StatusPending},
		}},
		{Title: "Done", CreatedBy: managerID, Cards: []board.Card{}},
	}
	id, err := store.Set(context.Background(), "", remote.EncodeBoard(b))
	if err != nil {
		t.Fatalf("failed to seed board: %v", err)
	}
	return id
}

// openSession loads the seeded board into a new session for userID.
func openSession(t *testing.T, store remote.Store, id, userID string) *Session {
	t.Helper()
	s := New(context.Background(), store, userID, quietLogger())
	t.Cleanup(func() { s.Close() })
	if _, err := s.Load(context.Background(), id); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return s
}

// storedBoard decodes the board currently held by the store.
func storedBoard(t *testing.T, store remote.Store, id string) *board.Board {
	t.Helper()
	doc, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", id, err)
	}
	b, err := remote.DecodeBoard(doc)
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}
	return b
}

func columnTitles(cols []board.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Title
	}
	return out
}

func TestLoad_AttachesSentinel(t *testing.T) {
	store := remote.NewMemoryStore()
	s := openSession(t, store, seedBoard(t, store), memberID)

	b := s.Board()
	if !b.HasSentinel() || !b.Columns[len(b.Columns)-1].Sentinel {
		t.Fatal("loaded board should end with a sentinel column")
	}
	if b.ColumnCount() != 2 {
		t.Errorf("ColumnCount() = %d, want 2", b.ColumnCount())
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := New(context.Background(), remote.NewMemoryStore(), memberID, quietLogger())
	defer s.Close()

	_, err := s.Load(context.Background(), "missing")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestMoveCard_PersistsDerivedStatus(t *testing.T) {
	store := remote.NewMemoryStore()
	id := seedBoard(t, store)
	s := openSession(t, store, id, memberID)

	b, err := s.MoveCard(context.Background(), 0, 1, 0, 0)
	if err != nil {
		t.Fatalf("MoveCard() failed: %v", err)
	}
	if len(b.Columns[0].Cards) != 0 || len(b.Columns[1].Cards) != 1 {
		t.Fatalf("columns after move = %+v", b.Columns)
	}
	if b.Columns[1].Cards[0].Status != board.StatusCompleted {
		t.Errorf("moved card status = %q, want completed", b.Columns[1].Cards[0].Status)
	}
	if !b.HasSentinel() {
		t.Error("refreshed board lost its sentinel")
	}

	stored := storedBoard(t, store, id)
	if len(stored.Columns) != 2 {
		t.Fatalf("stored columns = %d, want 2", len(stored.Columns))
	}
	if got := stored.Columns[1].Cards; len(got) != 1 || got[0].Status != board.StatusCompleted {
		t.Errorf("stored Done cards = %+v", got)
	}
}

func TestCreateColumn_PrependsAndStripsSentinel(t *testing.T) {
	store := remote.NewMemoryStore()
	id := seedBoard(t, store)
	s := openSession(t, store, id, managerID)

	b, err := s.CreateColumn(context.Background(), "New")
	if err != nil {
		t.Fatalf("CreateColumn() failed: %v", err)
	}
	want := []string{"New", "To Do", "Done"}
	if got := columnTitles(b.WorkColumns()); !reflect.DeepEqual(got, want) {
		t.Errorf("session columns = %v, want %v", got, want)
	}

	doc, _ := store.Get(context.Background(), id)
	if cols := doc.Fields[remote.FieldColumns].([]any); len(cols) != 3 {
		t.Errorf("stored %d columns, want 3 (no sentinel)", len(cols))
	}
	if got := columnTitles(storedBoard(t, store, id).Columns); !reflect.DeepEqual(got, want) {
		t.Errorf("stored columns = %v, want %v", got, want)
	}
}

func TestMutations_PendingUserDenied(t *testing.T) {
	store := remote.NewMemoryStore()
	id := seedBoard(t, store)
	s := openSession(t, store, id, pendingID)
	ctx := context.Background()

	ops := map[string]func() (*board.Board, error){
		"create column": func() (*board.Board, error) { return s.CreateColumn(ctx, "X") },
		"rename column": func() (*board.Board, error) { return s.RenameColumn(ctx, 0, "X") },
		"delete column": func() (*board.Board, error) { return s.DeleteColumn(ctx, 0) },
		"add card":      func() (*board.Board, error) { return s.AddCard(ctx, 0, "X") },
		"move card":     func() (*board.Board, error) { return s.MoveCard(ctx, 0, 1, 0, 0) },
		"delete card":   func() (*board.Board, error) { return s.DeleteCard(ctx, 0, 0) },
	}

	before := s.Board()
	storedBefore := storedBoard(t, store, id)
	for name, op := range ops {
		if _, err := op(); !errors.Is(err, board.ErrPermissionDenied) {
			t.Errorf("%s: error = %v, want ErrPermissionDenied", name, err)
		}
	}
	if !reflect.DeepEqual(s.Board(), before) {
		t.Error("denied mutations changed the session board")
	}
	if !reflect.DeepEqual(storedBoard(t, store, id), storedBefore) {
		t.Error("denied mutations changed the stored board")
	}
	if s.CanMutate() {
		t.Error("CanMutate() = true for pending user")
	}
}

func TestMutation_NotLoaded(t *testing.T) {
	s := New(context.Background(), remote.NewMemoryStore(), memberID, quietLogger())
	defer s.Close()

	if _, err := s.AddCard(context.Background(), 0, "x"); !errors.Is(err, board.ErrNotInitialized) {
		t.Errorf("AddCard() error = %v, want ErrNotInitialized", err)
	}
}

func TestMutation_PersistFailureRestoresBoard(t *testing.T) {
	store := remote.NewMemoryStore()
	id := seedBoard(t, store)
	s := openSession(t, store, id, memberID)

	before := s.Board()
	store.SetOffline(true)
	_, err := s.AddCard(context.Background(), 0, "cardB")
	if !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("AddCard() error = %v, want ErrTransport", err)
	}
	if !reflect.DeepEqual(s.Board(), before) {
		t.Error("failed persist should restore the previous board")
	}
}

// refreshFailStore fails every Get once armed.
type refreshFailStore struct {
	*remote.MemoryStore
	mu    sync.Mutex
	armed bool
}

func (r *refreshFailStore) Get(ctx context.Context, id string) (remote.Document, error) {
	r.mu.Lock()
	armed := r.armed
	r.mu.Unlock()
	if armed {
		return remote.Document{}, errors.Join(remote.ErrTransport, errors.New("timeout"))
	}
	return r.MemoryStore.Get(ctx, id)
}

func TestMutation_RefreshFailureKeepsLocalCopy(t *testing.T) {
	store := &refreshFailStore{MemoryStore: remote.NewMemoryStore()}
	id := seedBoard(t, store)
	s := openSession(t, store, id, memberID)

	store.mu.Lock()
	store.armed = true
	store.mu.Unlock()

	b, err := s.AddCard(context.Background(), 1, "cardB")
	if err != nil {
		t.Fatalf("AddCard() failed: %v", err)
	}
	if len(b.Columns[1].Cards) != 1 || b.Columns[1].Cards[0].Name != "cardB" {
		t.Errorf("local copy = %+v", b.Columns[1])
	}
	if !b.HasSentinel() {
		t.Error("local copy lost its sentinel")
	}
}

func TestCreateBoard_AssignsID(t *testing.T) {
	store := remote.NewMemoryStore()
	s := New(context.Background(), store, managerID, quietLogger())
	defer s.Close()

	b, err := s.CreateBoard(context.Background(), "  Roadmap ", false)
	if err != nil {
		t.Fatalf("CreateBoard() failed: %v", err)
	}
	if b.DocumentID == "" {
		t.Fatal("CreateBoard() did not assign a document id")
	}
	if b.Name != "Roadmap" || b.AssignedTo[managerID] != board.RoleManager || !b.HasSentinel() {
		t.Errorf("board = %+v", b)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d documents, want 1", store.Len())
	}

	if _, err := s.CreateColumn(context.Background(), "Backlog"); err != nil {
		t.Fatalf("CreateColumn() on new board failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("second write created a new document")
	}
}

func TestCreateBoard_BlankName(t *testing.T) {
	s := New(context.Background(), remote.NewMemoryStore(), managerID, quietLogger())
	defer s.Close()
	if _, err := s.CreateBoard(context.Background(), "  ", true); !errors.Is(err, board.ErrInvalidName) {
		t.Errorf("CreateBoard() error = %v, want ErrInvalidName", err)
	}
}

func TestRequestJoinAndApprove(t *testing.T) {
	store := remote.NewMemoryStore()
	id := seedBoard(t, store)
	ctx := context.Background()

	joiner := openSession(t, store, id, "newcomer")
	b, err := joiner.RequestJoin(ctx)
	if err != nil {
		t.Fatalf("RequestJoin() failed: %v", err)
	}
	if b.AssignedTo["newcomer"] != board.RolePending {
		t.Fatalf("role = %q, want Pending", b.AssignedTo["newcomer"])
	}
	if _, err := joiner.AddCard(ctx, 0, "sneaky"); !errors.Is(err, board.ErrPermissionDenied) {
		t.Errorf("pending AddCard() error = %v, want ErrPermissionDenied", err)
	}

	member := openSession(t, store, id, memberID)
	if _, err := member.ApproveMember(ctx, "newcomer"); !errors.Is(err, board.ErrNotManager) {
		t.Errorf("member ApproveMember() error = %v, want ErrNotManager", err)
	}

	manager := openSession(t, store, id, managerID)
	if _, err := manager.ApproveMember(ctx, "newcomer"); err != nil {
		t.Fatalf("ApproveMember() failed: %v", err)
	}
	if got := storedBoard(t, store, id).AssignedTo["newcomer"]; got != board.RoleMember {
		t.Errorf("stored role = %q, want Member", got)
	}
}

// countingStore counts Set calls.
type countingStore struct {
	*remote.MemoryStore
	mu   sync.Mutex
	sets int
}

func (c *countingStore) Set(ctx context.Context, id string, fields map[string]any) (string, error) {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.MemoryStore.Set(ctx, id, fields)
}

func TestRequestJoin_ExistingMemberWritesNothing(t *testing.T) {
	store := &countingStore{MemoryStore: remote.NewMemoryStore()}
	id := seedBoard(t, store)
	s := openSession(t, store, id, memberID)

	if _, err := s.RequestJoin(context.Background()); err != nil {
		t.Fatalf("RequestJoin() failed: %v", err)
	}
	if store.sets != 1 {
		t.Errorf("Set called %d times, want only the seed write", store.sets)
	}
}

// blockingStore holds every Set until release is closed.
type blockingStore struct {
	*remote.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Set(ctx context.Context, id string, fields map[string]any) (string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return b.MemoryStore.Set(ctx, id, fields)
}

func TestBusy_DuringPersist(t *testing.T) {
	mem := remote.NewMemoryStore()
	id := seedBoard(t, mem)
	store := &blockingStore{MemoryStore: mem, entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := openSession(t, store, id, memberID)

	if s.Busy() {
		t.Fatal("Busy() = true before any mutation")
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.AddCard(context.Background(), 0, "cardB")
		done <- err
	}()

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("persist never started")
	}
	if !s.Busy() {
		t.Error("Busy() = false while a persist is in flight")
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("AddCard() failed: %v", err)
	}
	if s.Busy() {
		t.Error("Busy() = true after the cycle completed")
	}
}

func TestClose_CancelsInFlight(t *testing.T) {
	mem := remote.NewMemoryStore()
	id := seedBoard(t, mem)
	store := &blockingStore{MemoryStore: mem, entered: make(chan struct{}, 1), release: make(chan struct{})}

	s := New(context.Background(), store, memberID, quietLogger())
	if _, err := s.Load(context.Background(), id); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.AddCard(context.Background(), 0, "cardB")
		done <- err
	}()
	<-store.entered

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("in-flight AddCard() error = %v, want ErrClosed", err)
	}
	if _, err := s.AddCard(context.Background(), 0, "again"); !errors.Is(err, ErrClosed) {
		t.Errorf("AddCard() after Close error = %v, want ErrClosed", err)
	}
	if doc, _ := mem.Get(context.Background(), id); len(doc.Fields[remote.FieldColumns].([]any)[0].(map[string]any)[remote.FieldCards].([]any)) != 1 {
		t.Error("cancelled write reached the store")
	}
}

// recorder collects notifications.
type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) BoardChanged(b *board.Board, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func TestNotifier(t *testing.T) {
	store := remote.NewMemoryStore()
	s := openSession(t, store, seedBoard(t, store), managerID)
	rec := &recorder{}
	s.SetNotifier(rec)
	ctx := context.Background()

	if _, err := s.RenameColumn(ctx, 1, "Shipped"); err != nil {
		t.Fatalf("RenameColumn() failed: %v", err)
	}
	if _, err := s.DeleteColumn(ctx, 9); !errors.Is(err, board.ErrInvalidPosition) {
		t.Fatalf("DeleteColumn(9) error = %v, want ErrInvalidPosition", err)
	}
	if _, err := s.MoveCardToColumn(ctx, 0, 0, 1); err != nil {
		t.Fatalf("MoveCardToColumn() failed: %v", err)
	}

	want := []string{"rename_column", "move_card"}
	if !reflect.DeepEqual(rec.actions, want) {
		t.Errorf("actions = %v, want %v", rec.actions, want)
	}
}

func TestPersistBoard_StripsSentinel(t *testing.T) {
	store := remote.NewMemoryStore()
	b := board.New("Solo", managerID, true)
	b.Columns = []board.Column{{Title: "To Do", Cards: []board.Card{}}}
	b.AttachSentinel()

	if err := PersistBoard(context.Background(), store, b); err != nil {
		t.Fatalf("PersistBoard() failed: %v", err)
	}
	if b.DocumentID == "" {
		t.Fatal("PersistBoard() did not assign an id")
	}
	if !b.HasSentinel() {
		t.Error("PersistBoard() should not modify the in-memory board")
	}
	if got := storedBoard(t, store, b.DocumentID).Columns; len(got) != 1 {
		t.Errorf("stored %d columns, want 1", len(got))
	}
}

func TestPersistBoard_Nil(t *testing.T) {
	if err := PersistBoard(context.Background(), remote.NewMemoryStore(), nil); !errors.Is(err, board.ErrNotInitialized) {
		t.Errorf("PersistBoard(nil) error = %v, want ErrNotInitialized", err)
	}
}
