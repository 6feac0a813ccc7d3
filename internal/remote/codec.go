package remote

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/teamboard/teamboard/internal/board"
)

// Wire values for card status, as written by the mobile client.
const (
	wireStatusPending    = "PENDING"
	wireStatusInProgress = "IN_PROGRESS"
	wireStatusCompleted  = "COMPLETED"
)

// DecodeBoard converts a document into a board.
//
// Unrecognized representations of a field are treated as if the field were
// absent. The document fails with a ParseError only when it has no fields or
// no creator, since the creator-is-manager invariant cannot be restored then.
func DecodeBoard(doc Document) (*board.Board, error) {
	if doc.Fields == nil {
		return nil, &ParseError{DocumentID: doc.ID, Reason: "document has no fields"}
	}

	b := &board.Board{
		DocumentID: doc.ID,
		Name:       asString(doc.Fields[FieldName]),
		Image:      asString(doc.Fields[FieldImage]),
		CreatedBy:  asString(doc.Fields[FieldCreatedBy]),
		AssignedTo: decodeRoles(doc.Fields[FieldAssignedTo]),
		IsPublic:   asBool(doc.Fields[FieldIsPublic]),
		Columns:    []board.Column{},
	}
	if b.CreatedBy == "" {
		return nil, &ParseError{DocumentID: doc.ID, Reason: "missing createdBy"}
	}
	b.EnsureCreatorIsManager()

	for _, raw := range asList(doc.Fields[FieldColumns]) {
		fields, ok := asMap(raw)
		if !ok {
			continue
		}
		col := board.Column{
			Title:     asString(fields[FieldTitle]),
			CreatedBy: asString(fields[FieldCreatedBy]),
			Cards:     []board.Card{},
		}
		for _, rawCard := range asList(fields[FieldCards]) {
			cf, ok := asMap(rawCard)
			if !ok {
				continue
			}
			col.Cards = append(col.Cards, decodeCard(cf))
		}
		b.Columns = append(b.Columns, col)
	}

	return b, nil
}

func decodeCard(fields map[string]any) board.Card {
	card := board.Card{
		Name:       asString(fields[FieldName]),
		CreatedBy:  asString(fields[FieldCreatedBy]),
		AssignedTo: []string{},
		LabelColor: asString(fields[FieldLabelColor]),
		DueDate:    asInt64(fields[FieldDueDate]),
		Status:     decodeStatus(fields[FieldStatus]),
	}
	for _, raw := range asList(fields[FieldAssignedTo]) {
		if s, ok := raw.(string); ok && s != "" {
			card.AssignedTo = append(card.AssignedTo, s)
		}
	}
	return card
}

func decodeRoles(v any) map[string]board.Role {
	roles := make(map[string]board.Role)
	m, ok := asMap(v)
	if !ok {
		if sm, ok := v.(map[string]string); ok {
			m = make(map[string]any, len(sm))
			for k, s := range sm {
				m[k] = s
			}
		}
	}
	for user, raw := range m {
		if role, ok := ParseRole(asString(raw)); ok && user != "" {
			roles[user] = role
		}
	}
	return roles
}

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (board.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manager":
		return board.RoleManager, true
	case "member":
		return board.RoleMember, true
	case "pending":
		return board.RolePending, true
	}
	return "", false
}

func decodeStatus(v any) board.Status {
	if s, ok := ParseStatus(asString(v)); ok {
		return s
	}
	return board.StatusPending
}

// ParseStatus matches a status name in any of the spellings found in stored
// documents and on the command line.
func ParseStatus(s string) (board.Status, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch norm {
	case "pending", "todo":
		return board.StatusPending, true
	case "inprogress", "doing":
		return board.StatusInProgress, true
	case "completed", "done":
		return board.StatusCompleted, true
	}
	return "", false
}

// EncodeBoard converts a board into document fields. Any attached sentinel
// column is left out. The document id is not part of the fields.
func EncodeBoard(b *board.Board) map[string]any {
	roles := make(map[string]any, len(b.AssignedTo))
	for user, role := range b.AssignedTo {
		roles[user] = string(role)
	}

	cols := b.WorkColumns()
	columns := make([]any, 0, len(cols))
	for _, col := range cols {
		cards := make([]any, 0, len(col.Cards))
		for _, card := range col.Cards {
			assigned := make([]any, 0, len(card.AssignedTo))
			for _, u := range card.AssignedTo {
				assigned = append(assigned, u)
			}
			cards = append(cards, map[string]any{
				FieldName:       card.Name,
				FieldCreatedBy:  card.CreatedBy,
				FieldAssignedTo: assigned,
				FieldLabelColor: card.LabelColor,
				FieldDueDate:    card.DueDate,
				FieldStatus:     encodeStatus(card.Status),
			})
		}
		columns = append(columns, map[string]any{
			FieldTitle:     col.Title,
			FieldCreatedBy: col.CreatedBy,
			FieldCards:     cards,
		})
	}

	return map[string]any{
		FieldName:       b.Name,
		FieldImage:      b.Image,
		FieldCreatedBy:  b.CreatedBy,
		FieldAssignedTo: roles,
		FieldIsPublic:   b.IsPublic,
		FieldColumns:    columns,
	}
}

func encodeStatus(s board.Status) string {
	switch s {
	case board.StatusInProgress:
		return wireStatusInProgress
	case board.StatusCompleted:
		return wireStatusCompleted
	default:
		return wireStatusPending
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asBool accepts booleans, boolean-like strings and numbers.
func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes":
			return true
		}
		return false
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float32:
		return x != 0
	case float64:
		return x != 0
	}
	return false
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return floatToInt64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func floatToInt64(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func asList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
