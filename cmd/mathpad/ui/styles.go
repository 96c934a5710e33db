// Package ui is the terminal front end of the expression editor: a button
// pad mirroring the token catalog, a live display line and, once an
// expression is committed, the integration table.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	mathpad "github.com/njchilds90/gomathpad"
)

var (
	Ink     = lipgloss.Color("#101F38")
	Paper   = lipgloss.Color("#f4f5f6")
	Accent  = lipgloss.Color("#8BC34A")
	Muted   = lipgloss.Color("#6b7685")
	Danger  = lipgloss.Color("#e53935")
	Warning = lipgloss.Color("#FFC107")
	Info    = lipgloss.Color("#2196F3")
)

// Styles groups the styles the editor view uses.
type Styles struct {
	Title    lipgloss.Style
	Display  lipgloss.Style
	Cursor   lipgloss.Style
	Button   lipgloss.Style
	Focused  lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Label    lipgloss.Style
	Help     lipgloss.Style
	Category map[mathpad.Category]lipgloss.Style
}

// DefaultStyles colours buttons by token category, the way the pad groups
// functions, operators, digits and controls.
func DefaultStyles() Styles {
	button := lipgloss.NewStyle().Width(7).Align(lipgloss.Center).Padding(0, 1)
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Display: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1).Width(40),
		Cursor:  lipgloss.NewStyle().Foreground(Accent).Bold(true),
		Button:  button,
		Focused: button.Reverse(true).Bold(true),
		Status:  lipgloss.NewStyle().Foreground(Muted),
		Error:   lipgloss.NewStyle().Foreground(Danger),
		Label:   lipgloss.NewStyle().Foreground(Muted).Width(4),
		Help:    lipgloss.NewStyle().Foreground(Muted).Italic(true),
		Category: map[mathpad.Category]lipgloss.Style{
			mathpad.CategoryNumber:      button.Foreground(Paper),
			mathpad.CategoryOperator:    button.Foreground(Warning),
			mathpad.CategoryFunction:    button.Foreground(Info),
			mathpad.CategoryPower:       button.Foreground(Info),
			mathpad.CategoryConstant:    button.Foreground(Accent),
			mathpad.CategoryVariable:    button.Foreground(Accent).Bold(true),
			mathpad.CategoryParenthesis: button.Foreground(Paper),
			mathpad.CategoryControl:     button.Foreground(Danger),
		},
	}
}

// ButtonStyle returns the style for a token, falling back to the plain
// button style.
func (s Styles) ButtonStyle(c mathpad.Category) lipgloss.Style {
	if st, ok := s.Category[c]; ok {
		return st
	}
	return s.Button
}
