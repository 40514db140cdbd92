package cliui

import "github.com/charmbracelet/lipgloss"

// Shared text styles for command output.
var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// RoleStyle colors the speaker label in chat transcripts.
	RoleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)
