package board

import (
	"fmt"
	"strings"
)

// Role is a member's permission level on a board.
type Role string

const (
	// RoleManager owns the board and may approve join requests.
	RoleManager Role = "Manager"
	// RoleMember may edit columns and cards.
	RoleMember Role = "Member"
	// RolePending has requested to join and is read-only until approved.
	RolePending Role = "Pending"
)

// CanWrite reports whether the role may mutate a board.
func (r Role) CanWrite() bool {
	return r == RoleManager || r == RoleMember
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleManager, RoleMember, RolePending:
		return true
	}
	return false
}

// Status is the lifecycle state of a card.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Card is a unit of work inside a column.
type Card struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	CreatedBy  string   `json:"created_by" yaml:"created_by" toml:"created_by"`
	AssignedTo []string `json:"assigned_to" yaml:"assigned_to" toml:"assigned_to"`
	LabelColor string   `json:"label_color,omitempty" yaml:"label_color,omitempty" toml:"label_color,omitempty"`
	DueDate    int64    `json:"due_date,omitempty" yaml:"due_date,omitempty" toml:"due_date,omitempty"` // epoch millis, 0 = unset
	Status     Status   `json:"status" yaml:"status" toml:"status"`
}

// HasDueDate reports whether a due date is set.
func (c Card) HasDueDate() bool {
	return c.DueDate != 0
}

// Column is an ordered list of cards with a title.
type Column struct {
	Title     string `json:"title" yaml:"title" toml:"title"`
	CreatedBy string `json:"created_by" yaml:"created_by" toml:"created_by"`
	Cards     []Card `json:"cards" yaml:"cards" toml:"cards"`

	// Sentinel marks the UI-only "add column" placeholder.
	Sentinel bool `json:"-" yaml:"-" toml:"-"`
}

// Board is a project's top-level container.
type Board struct {
	DocumentID string          `json:"document_id" yaml:"document_id" toml:"document_id"`
	Name       string          `json:"name" yaml:"name" toml:"name"`
	Image      string          `json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`
	CreatedBy  string          `json:"created_by" yaml:"created_by" toml:"created_by"`
	AssignedTo map[string]Role `json:"assigned_to" yaml:"assigned_to" toml:"assigned_to"`
	Columns    []Column        `json:"columns" yaml:"columns" toml:"columns"`
	IsPublic   bool            `json:"is_public" yaml:"is_public" toml:"is_public"`

	hasSentinel bool
}

// New creates an empty board owned by createdBy, who is assigned Manager.
func New(name, createdBy string, isPublic bool) *Board {
	return &Board{
		Name:       name,
		CreatedBy:  createdBy,
		AssignedTo: map[string]Role{createdBy: RoleManager},
		Columns:    []Column{},
		IsPublic:   isPublic,
	}
}

// Validate checks the board's structural invariants.
func (b *Board) Validate() error {
	if b == nil {
		return ErrNotInitialized
	}
	if b.CreatedBy == "" {
		return fmt.Errorf("created_by is required")
	}
	if b.AssignedTo[b.CreatedBy] != RoleManager {
		return fmt.Errorf("creator %s must be assigned %s", b.CreatedBy, RoleManager)
	}
	for user, role := range b.AssignedTo {
		if !role.IsValid() {
			return fmt.Errorf("user %s has unknown role %q", user, role)
		}
	}
	for i, col := range b.Columns {
		if col.Sentinel && !(b.hasSentinel && i == len(b.Columns)-1) {
			return fmt.Errorf("sentinel column at position %d is not trailing", i)
		}
	}
	return nil
}

// EnsureCreatorIsManager restores the invariant that the creator is a Manager.
func (b *Board) EnsureCreatorIsManager() {
	if b.CreatedBy == "" {
		return
	}
	if b.AssignedTo == nil {
		b.AssignedTo = make(map[string]Role)
	}
	b.AssignedTo[b.CreatedBy] = RoleManager
}

// RoleOf returns the role of userID and whether the user is on the board.
func (b *Board) RoleOf(userID string) (Role, bool) {
	if b == nil {
		return "", false
	}
	role, ok := b.AssignedTo[userID]
	return role, ok
}

// HasSentinel reports whether a sentinel column is attached.
func (b *Board) HasSentinel() bool {
	return b != nil && b.hasSentinel
}

// AttachSentinel appends the "add column" placeholder if none is attached.
func (b *Board) AttachSentinel() {
	if b == nil || b.hasSentinel {
		return
	}
	b.Columns = append(b.Columns, Column{Sentinel: true})
	b.hasSentinel = true
}

// StripSentinel removes the placeholder column. It is a no-op when none is
// attached, so stripping twice never drops a real column.
func (b *Board) StripSentinel() {
	if b == nil || !b.hasSentinel {
		return
	}
	b.Columns = b.Columns[:len(b.Columns)-1]
	b.hasSentinel = false
}

// WorkColumns returns the real columns, excluding any sentinel. The returned
// slice shares storage with the board.
func (b *Board) WorkColumns() []Column {
	if b == nil {
		return nil
	}
	if b.hasSentinel {
		return b.Columns[:len(b.Columns)-1]
	}
	return b.Columns
}

// ColumnCount returns the number of real columns.
func (b *Board) ColumnCount() int {
	return len(b.WorkColumns())
}

// CardCount returns the total number of cards across real columns.
func (b *Board) CardCount() int {
	n := 0
	for _, col := range b.WorkColumns() {
		n += len(col.Cards)
	}
	return n
}

// Clone returns a deep copy of the board, including sentinel state.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := *b
	if b.AssignedTo != nil {
		out.AssignedTo = make(map[string]Role, len(b.AssignedTo))
		for k, v := range b.AssignedTo {
			out.AssignedTo[k] = v
		}
	}
	if b.Columns != nil {
		out.Columns = make([]Column, len(b.Columns))
		for i, col := range b.Columns {
			out.Columns[i] = col.clone()
		}
	}
	return &out
}

func (c Column) clone() Column {
	out := c
	if c.Cards != nil {
		out.Cards = make([]Card, len(c.Cards))
		for i, card := range c.Cards {
			out.Cards[i] = card.clone()
		}
	}
	return out
}

func (c Card) clone() Card {
	out := c
	if c.AssignedTo != nil {
		out.AssignedTo = append([]string(nil), c.AssignedTo...)
	}
	return out
}

// FilterByName returns the boards whose name contains query, ignoring case.
// An empty or blank query returns all boards.
func FilterByName(boards []*Board, query string) []*Board {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return boards
	}
	var out []*Board
	for _, b := range boards {
		if strings.Contains(strings.ToLower(b.Name), q) {
			out = append(out, b)
		}
	}
	return out
}
