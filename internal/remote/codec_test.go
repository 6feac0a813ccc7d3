package remote

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/teamboard/teamboard/internal/board"
)

func sampleFields() map[string]any {
	return map[string]any{
		FieldName:       "Launch",
		FieldImage:      "https://img/launch.png",
		FieldCreatedBy:  "u1",
		FieldAssignedTo: map[string]any{"u1": "Manager", "u2": "Member", "u3": "Pending"},
		FieldIsPublic:   true,
		FieldColumns: []any{
			map[string]any{
				FieldTitle:     "To Do",
				FieldCreatedBy: "u1",
				FieldCards: []any{
					map[string]any{
						FieldName:       "cardA",
						FieldCreatedBy:  "u2",
						FieldAssignedTo: []any{"u2", "u1"},
						FieldLabelColor: "#ff0000",
						FieldDueDate:    int64(1700000000000),
						FieldStatus:     "IN_PROGRESS",
					},
				},
			},
			map[string]any{FieldTitle: "Done", FieldCreatedBy: "u1", FieldCards: []any{}},
		},
	}
}

func TestDecodeBoard_Full(t *testing.T) {
	b, err := DecodeBoard(Document{ID: "doc-1", Fields: sampleFields()})
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}

	if b.DocumentID != "doc-1" || b.Name != "Launch" || b.CreatedBy != "u1" || !b.IsPublic {
		t.Errorf("board metadata = %+v", b)
	}
	wantRoles := map[string]board.Role{"u1": board.RoleManager, "u2": board.RoleMember, "u3": board.RolePending}
	if !reflect.DeepEqual(b.AssignedTo, wantRoles) {
		t.Errorf("roles = %v, want %v", b.AssignedTo, wantRoles)
	}
	if len(b.Columns) != 2 || b.Columns[0].Title != "To Do" || b.Columns[1].Title != "Done" {
		t.Fatalf("columns = %+v", b.Columns)
	}
	card := b.Columns[0].Cards[0]
	want := board.Card{
		Name:       "cardA",
		CreatedBy:  "u2",
		AssignedTo: []string{"u2", "u1"},
		LabelColor: "#ff0000",
		DueDate:    1700000000000,
		Status:     board.StatusInProgress,
	}
	if !reflect.DeepEqual(card, want) {
		t.Errorf("card = %+v, want %+v", card, want)
	}
	if b.HasSentinel() {
		t.Error("decoded board should not carry a sentinel")
	}
}

func TestDecodeBoard_TolerantPublicFlag(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string TRUE", "TRUE", true},
		{"string false", "false", false},
		{"string 1", "1", true},
		{"int 1", 1, true},
		{"int64 0", int64(0), false},
		{"float 1", 1.0, true},
		{"json number", json.Number("1"), true},
		{"garbage string", "maybe", false},
		{"list", []any{true}, false},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{FieldCreatedBy: "u1"}
			if tt.value != nil {
				fields[FieldIsPublic] = tt.value
			}
			b, err := DecodeBoard(Document{ID: "d", Fields: fields})
			if err != nil {
				t.Fatalf("DecodeBoard() failed: %v", err)
			}
			if b.IsPublic != tt.want {
				t.Errorf("IsPublic = %v, want %v", b.IsPublic, tt.want)
			}
		})
	}
}

func TestDecodeBoard_MistypedFieldsAreAbsent(t *testing.T) {
	fields := map[string]any{
		FieldName:       42,
		FieldCreatedBy:  "u1",
		FieldAssignedTo: map[string]any{"u2": "Owner", "u3": 7, "u4": "member"},
		FieldColumns: []any{
			"not a column",
			map[string]any{
				FieldTitle: "Doing",
				FieldCards: []any{
					map[string]any{FieldName: "x", FieldDueDate: "1700", FieldStatus: "archived", FieldAssignedTo: "u2"},
					map[string]any{FieldName: "y", FieldDueDate: []any{1}, FieldStatus: "done"},
					17,
				},
			},
		},
	}

	b, err := DecodeBoard(Document{ID: "legacy", Fields: fields})
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}
	if b.Name != "" {
		t.Errorf("name = %q, want empty for numeric value", b.Name)
	}
	wantRoles := map[string]board.Role{"u1": board.RoleManager, "u4": board.RoleMember}
	if !reflect.DeepEqual(b.AssignedTo, wantRoles) {
		t.Errorf("roles = %v, want %v", b.AssignedTo, wantRoles)
	}
	if len(b.Columns) != 1 {
		t.Fatalf("columns = %d, want 1", len(b.Columns))
	}
	cards := b.Columns[0].Cards
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	if cards[0].DueDate != 1700 || cards[0].Status != board.StatusPending || len(cards[0].AssignedTo) != 0 {
		t.Errorf("card x = %+v", cards[0])
	}
	if cards[1].DueDate != 0 || cards[1].Status != board.StatusCompleted {
		t.Errorf("card y = %+v", cards[1])
	}
}

func TestDecodeBoard_CreatorAlwaysManager(t *testing.T) {
	fields := map[string]any{
		FieldCreatedBy:  "u1",
		FieldAssignedTo: map[string]any{"u1": "Pending"},
	}
	b, err := DecodeBoard(Document{ID: "d", Fields: fields})
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}
	if b.AssignedTo["u1"] != board.RoleManager {
		t.Errorf("creator role = %q, want Manager", b.AssignedTo["u1"])
	}
}

func TestDecodeBoard_ParseErrors(t *testing.T) {
	docs := []Document{
		{ID: "nil-fields"},
		{ID: "no-creator", Fields: map[string]any{FieldName: "x"}},
		{ID: "numeric-creator", Fields: map[string]any{FieldCreatedBy: 12}},
	}
	for _, doc := range docs {
		_, err := DecodeBoard(doc)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("DecodeBoard(%s) error = %v, want ParseError", doc.ID, err)
			continue
		}
		if perr.DocumentID != doc.ID {
			t.Errorf("ParseError.DocumentID = %q, want %q", perr.DocumentID, doc.ID)
		}
	}
}

func TestEncodeBoard_StripsSentinelAndRoundTrips(t *testing.T) {
	b, err := DecodeBoard(Document{ID: "doc-1", Fields: sampleFields()})
	if err != nil {
		t.Fatalf("DecodeBoard() failed: %v", err)
	}
	b.AttachSentinel()

	fields := EncodeBoard(b)
	cols, ok := fields[FieldColumns].([]any)
	if !ok || len(cols) != 2 {
		t.Fatalf("encoded columns = %#v", fields[FieldColumns])
	}
	if _, ok := fields["documentId"]; ok {
		t.Error("document id should not be a field")
	}
	if fields[FieldIsPublic] != true {
		t.Errorf("isPublic = %#v, want true", fields[FieldIsPublic])
	}

	again, err := DecodeBoard(Document{ID: "doc-1", Fields: fields})
	if err != nil {
		t.Fatalf("DecodeBoard(encoded) failed: %v", err)
	}
	b.StripSentinel()
	if !reflect.DeepEqual(again, b) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", again, b)
	}
}

func TestEncodeStatus(t *testing.T) {
	tests := map[board.Status]string{
		board.StatusPending:    "PENDING",
		board.StatusInProgress: "IN_PROGRESS",
		board.StatusCompleted:  "COMPLETED",
		board.Status(""):       "PENDING",
	}
	for in, want := range tests {
		if got := encodeStatus(in); got != want {
			t.Errorf("encodeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]board.Status{
		"PENDING":     board.StatusPending,
		"in_progress": board.StatusInProgress,
		"InProgress":  board.StatusInProgress,
		"in-progress": board.StatusInProgress,
		"Completed":   board.StatusCompleted,
		"done":        board.StatusCompleted,
	}
	for in, want := range tests {
		got, ok := ParseStatus(in)
		if !ok || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Error("ParseStatus(archived) should fail")
	}
}
