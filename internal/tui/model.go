// Package tui is the terminal observer for a running tracker: a "Live Match"
// tab showing the latest status and a read-only "Logs" tab of diagnostics.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/diagnostics"
)

const (
	tabLive = iota
	tabLogs
)

var tabNames = []string{"Live Match", "Logs"}

const (
	defaultWidth  = 80
	defaultHeight = 20

	// maxLogLines bounds memory for long sessions
	maxLogLines = 1000

	logTimeLayout = "2006-01-02 15:04:05"
)

// StatusMsg carries one tracker update into the program.
type StatusMsg matchwatch.Update

// LogMsg carries one diagnostic entry into the program.
type LogMsg diagnostics.Entry

type keyMap struct {
	Quit key.Binding
	Next key.Binding
	Prev key.Binding
	Live key.Binding
	Logs key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Next: key.NewBinding(key.WithKeys("tab", "right", "l")),
	Prev: key.NewBinding(key.WithKeys("shift+tab", "left", "h")),
	Live: key.NewBinding(key.WithKeys("1")),
	Logs: key.NewBinding(key.WithKeys("2")),
}

// Model is the bubbletea model. The zero value is not usable; call [New].
type Model struct {
	title    string
	tab      int
	spinner  spinner.Model
	viewport viewport.Model
	width    int

	status    matchwatch.Update
	hasStatus bool
	logs      []string
}

// New creates a model showing title, pre-filled with backlog (oldest first).
func New(title string, backlog []diagnostics.Entry) Model {
	if title == "" {
		title = matchwatch.DefaultTitle
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))

	m := Model{
		title:    title,
		spinner:  s,
		viewport: viewport.New(defaultWidth, defaultHeight),
		width:    defaultWidth,
	}
	for _, e := range backlog {
		m.appendLog(e)
	}
	m.refreshLogs()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m.tab = (m.tab + 1) % len(tabNames)
			return m, nil
		case key.Matches(msg, keys.Prev):
			m.tab = (m.tab + len(tabNames) - 1) % len(tabNames)
			return m, nil
		case key.Matches(msg, keys.Live):
			m.tab = tabLive
			return m, nil
		case key.Matches(msg, keys.Logs):
			m.tab = tabLogs
			return m, nil
		}
		if m.tab == tabLogs {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width - 2
		// header, tab bar and footer take about six lines
		m.viewport.Height = max(msg.Height-6, 3)
		m.refreshLogs()
		return m, nil

	case spinner.TickMsg:
		if m.hasStatus {
			// stop ticking once there is something to show
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.status = matchwatch.Update(msg)
		m.hasStatus = true
		return m, nil

	case LogMsg:
		m.appendLog(diagnostics.Entry(msg))
		m.refreshLogs()
		return m, nil
	}

	return m, nil
}

func (m *Model) appendLog(e diagnostics.Entry) {
	line := fmt.Sprintf("%s - DEBUG - %s", logTimeStyle.Render(e.At.Format(logTimeLayout)), e.Message)
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

// refreshLogs re-renders the viewport, following the tail if it was there.
func (m *Model) refreshLogs() {
	follow := m.viewport.AtBottom()
	if len(m.logs) == 0 {
		m.viewport.SetContent(subtleStyle.Render("No diagnostics yet."))
		return
	}
	m.viewport.SetContent(strings.Join(m.logs, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	header := titleStyle.Render(m.title)

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if i == m.tab {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = inactiveTabStyle.Render(name)
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var body string
	if m.tab == tabLive {
		body = m.liveView()
	} else {
		body = m.viewport.View()
	}

	footer := subtleStyle.Render("tab switch view • ↑/↓ scroll logs • q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, tabBar, body, footer)
}

func (m Model) liveView() string {
	if !m.hasStatus {
		return paneStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), matchwatch.MessageWaiting))
	}

	var style lipgloss.Style
	switch m.status.Outcome.Kind {
	case matchwatch.OutcomeActive:
		style = activeStyle
	case matchwatch.OutcomeInactive:
		style = inactiveStyle
	default:
		style = errorStyle
	}

	meta := []string{fmt.Sprintf("tick %d", m.status.Tick)}
	if m.status.StatusCode != 0 {
		meta = append(meta, fmt.Sprintf("HTTP %d", m.status.StatusCode))
	}
	if m.status.Latency > 0 {
		meta = append(meta, fmt.Sprintf("%d ms", m.status.Latency.Milliseconds()))
	}
	if !m.status.CheckedAt.IsZero() {
		meta = append(meta, m.status.CheckedAt.Format("15:04:05"))
	}

	return paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		style.Render(m.status.Message.String()),
		subtleStyle.Render(strings.Join(meta, " · ")),
	))
}
