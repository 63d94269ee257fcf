package ux

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by text views.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Passed  lipgloss.Style
	Failed  lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns the text styles. With noColor every style renders plain text.
func NewStyles(noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{Title: plain, Label: plain, Passed: plain, Failed: plain, Warning: plain, Muted: plain}
	}

	return Styles{
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		Passed:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Verdict renders a verdict word in its pass or fail style.
func (s Styles) Verdict(passed bool, word string) string {
	if passed {
		return s.Passed.Render(word)
	}
	return s.Failed.Render(word)
}
