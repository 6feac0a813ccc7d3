package board

import (
	"fmt"
	"strings"
)

// CanMutate reports whether userID may change the board. Only Managers and
// Members may; Pending users and strangers may not.
func (b *Board) CanMutate(userID string) bool {
	role, ok := b.RoleOf(userID)
	return ok && role.CanWrite()
}

// CanMutate is the free-function form of Board.CanMutate, for callers that
// pre-emptively disable controls.
func CanMutate(b *Board, userID string) bool {
	return b.CanMutate(userID)
}

// gate runs the checks shared by every mutation.
func (b *Board) gate(actor string) error {
	if b == nil {
		return ErrNotInitialized
	}
	if !b.CanMutate(actor) {
		return ErrPermissionDenied
	}
	return nil
}

func (b *Board) checkColumn(index int) error {
	if index < 0 || index >= b.ColumnCount() {
		return fmt.Errorf("%w: column %d (have %d columns)", ErrInvalidPosition, index, b.ColumnCount())
	}
	return nil
}

func (b *Board) checkCard(column, card int) error {
	if err := b.checkColumn(column); err != nil {
		return err
	}
	if n := len(b.Columns[column].Cards); card < 0 || card >= n {
		return fmt.Errorf("%w: card %d in column %d (have %d cards)", ErrInvalidPosition, card, column, n)
	}
	return nil
}

// CreateColumn inserts a new column at the head of the board, before all
// existing columns.
func (b *Board) CreateColumn(actor, title string) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidName
	}

	col := Column{Title: title, CreatedBy: actor, Cards: []Card{}}
	b.Columns = append([]Column{col}, b.Columns...)
	return nil
}

// RenameColumn replaces the title of the column at index, keeping its cards.
func (b *Board) RenameColumn(actor string, index int, title string) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidName
	}
	if err := b.checkColumn(index); err != nil {
		return err
	}

	b.Columns[index].Title = title
	return nil
}

// DeleteColumn removes the column at index together with its cards.
func (b *Board) DeleteColumn(actor string, index int) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if err := b.checkColumn(index); err != nil {
		return err
	}

	b.Columns = append(b.Columns[:index], b.Columns[index+1:]...)
	return nil
}

// AddCard appends a new card to the column at index. The creator is
// assigned to the card.
func (b *Board) AddCard(actor string, column int, name string) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if err := b.checkColumn(column); err != nil {
		return err
	}

	card := Card{
		Name:       name,
		CreatedBy:  actor,
		AssignedTo: []string{actor},
		Status:     StatusPending,
	}
	b.Columns[column].Cards = append(b.Columns[column].Cards, card)
	return nil
}

// MoveCard moves the card at cardIndex of column from into column to at
// targetIndex. The target index is clamped to the destination bounds, so an
// out-of-range target inserts at the end. The card's status is re-derived
// from the destination title; all other card fields are kept.
func (b *Board) MoveCard(actor string, from, to, cardIndex, targetIndex int) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if err := b.checkCard(from, cardIndex); err != nil {
		return err
	}
	if err := b.checkColumn(to); err != nil {
		return err
	}

	src := b.Columns[from].Cards
	card := src[cardIndex]
	b.Columns[from].Cards = append(src[:cardIndex:cardIndex], src[cardIndex+1:]...)

	dest := &b.Columns[to]
	card.Status = DeriveStatus(card.Status, dest.Title)

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(dest.Cards) {
		targetIndex = len(dest.Cards)
	}

	cards := make([]Card, 0, len(dest.Cards)+1)
	cards = append(cards, dest.Cards[:targetIndex]...)
	cards = append(cards, card)
	cards = append(cards, dest.Cards[targetIndex:]...)
	dest.Cards = cards
	return nil
}

// MoveCardToColumn moves a card to the end of another column.
func (b *Board) MoveCardToColumn(actor string, from, cardIndex, to int) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if err := b.checkColumn(to); err != nil {
		return err
	}
	return b.MoveCard(actor, from, to, cardIndex, len(b.Columns[to].Cards))
}

// CardEdit describes a direct edit of a card. Nil fields are left unchanged.
type CardEdit struct {
	Name       *string
	Status     *Status
	LabelColor *string
	DueDate    *int64
	AssignedTo []string
}

// UpdateCard applies edit to the card at cardIndex of column. Unlike moves,
// the status is set exactly as given.
func (b *Board) UpdateCard(actor string, column, cardIndex int, edit CardEdit) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if err := b.checkCard(column, cardIndex); err != nil {
		return err
	}
	if edit.Name != nil && strings.TrimSpace(*edit.Name) == "" {
		return ErrInvalidName
	}
	if edit.Status != nil && !edit.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *edit.Status)
	}

	card := &b.Columns[column].Cards[cardIndex]
	if edit.Name != nil {
		card.Name = strings.TrimSpace(*edit.Name)
	}
	if edit.Status != nil {
		card.Status = *edit.Status
	}
	if edit.LabelColor != nil {
		card.LabelColor = *edit.LabelColor
	}
	if edit.DueDate != nil {
		card.DueDate = *edit.DueDate
	}
	if edit.AssignedTo != nil {
		card.AssignedTo = append([]string(nil), edit.AssignedTo...)
	}
	return nil
}

// DeleteCard removes the card at cardIndex of column.
func (b *Board) DeleteCard(actor string, column, cardIndex int) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if err := b.checkCard(column, cardIndex); err != nil {
		return err
	}

	cards := b.Columns[column].Cards
	b.Columns[column].Cards = append(cards[:cardIndex:cardIndex], cards[cardIndex+1:]...)
	return nil
}

// RequestJoin records a join request for userID as a Pending member.
// It reports false when the user already has any role on the board.
func (b *Board) RequestJoin(userID string) (bool, error) {
	if b == nil {
		return false, ErrNotInitialized
	}
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("user id is required")
	}
	if _, ok := b.AssignedTo[userID]; ok {
		return false, nil
	}
	if b.AssignedTo == nil {
		b.AssignedTo = make(map[string]Role)
	}
	b.AssignedTo[userID] = RolePending
	return true, nil
}

// ApproveMember promotes a Pending user to Member. Only Managers may approve.
func (b *Board) ApproveMember(actor, userID string) error {
	if err := b.gate(actor); err != nil {
		return err
	}
	if b.AssignedTo[actor] != RoleManager {
		return ErrNotManager
	}
	if b.AssignedTo[userID] != RolePending {
		return fmt.Errorf("%w: %s", ErrNoJoinRequest, userID)
	}

	b.AssignedTo[userID] = RoleMember
	return nil
}
