// Package ui renders terminal output for the tb command.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/teamboard/teamboard/internal/board"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func init() {
	// Honor NO_COLOR and pipes.
	if !IsTerminal() || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInteractive reports whether both stdin and stdout are terminals, so a
// prompt can be shown.
func IsInteractive() bool {
	return IsTerminal() && term.IsTerminal(int(os.Stdin.Fd()))
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }

// RenderStatus colors a card status.
func RenderStatus(s board.Status) string {
	switch s {
	case board.StatusCompleted:
		return passStyle.Render(string(s))
	case board.StatusInProgress:
		return warnStyle.Render(string(s))
	default:
		return mutedStyle.Render(string(s))
	}
}

// RenderBoard formats a board's columns and cards for display, numbering
// columns and cards the way the column and card commands address them.
func RenderBoard(b *board.Board) string {
	var sb strings.Builder

	visibility := "private"
	if b.IsPublic {
		visibility = "public"
	}
	fmt.Fprintf(&sb, "%s  %s\n", titleStyle.Render(b.Name), mutedStyle.Render(b.DocumentID+" · "+visibility))

	for user, role := range b.AssignedTo {
		fmt.Fprintf(&sb, "  %s %s\n", mutedStyle.Render(string(role)+":"), user)
	}

	cols := b.WorkColumns()
	if len(cols) == 0 {
		fmt.Fprintf(&sb, "\n  %s\n", mutedStyle.Render("(no columns)"))
	}
	for i, col := range cols {
		fmt.Fprintf(&sb, "\n%s %s %s\n", accentStyle.Render(fmt.Sprintf("[%d]", i)), col.Title,
			mutedStyle.Render(fmt.Sprintf("(%d)", len(col.Cards))))
		for j, card := range col.Cards {
			fmt.Fprintf(&sb, "    %d. %s  %s", j, card.Name, RenderStatus(card.Status))
			if len(card.AssignedTo) > 0 {
				fmt.Fprintf(&sb, "  %s", mutedStyle.Render("@"+strings.Join(card.AssignedTo, " @")))
			}
			if card.HasDueDate() {
				fmt.Fprintf(&sb, "  %s", mutedStyle.Render("due "+FormatDue(card.DueDate)))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
