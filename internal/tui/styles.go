package tui

import "github.com/charmbracelet/lipgloss"

var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("203")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 2)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	statusStyle   = lipgloss.NewStyle().Bold(true)
	activeStyle   = statusStyle.Foreground(lipgloss.Color("42"))  // green
	inactiveStyle = statusStyle.Foreground(lipgloss.Color("220")) // yellow
	errorStyle    = statusStyle.Foreground(lipgloss.Color("196")) // red

	logTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
