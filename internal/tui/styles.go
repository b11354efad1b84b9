package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3)
	barFullStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	currentStyle   = lipgloss.NewStyle().Bold(true)
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
