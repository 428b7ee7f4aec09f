package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/diagnostics"
)

// Sender is the part of *tea.Program used to deliver messages.
type Sender interface {
	Send(msg tea.Msg)
}

// Handler returns a tracker subscriber that forwards updates to p.
//
// Send blocks until the program's event loop receives the message, so the
// program must be running (or finished) for the tracker to make progress.
func Handler(p Sender) matchwatch.Handler {
	return func(u matchwatch.Update) {
		p.Send(StatusMsg(u))
	}
}

// Sink returns a diagnostics sink that forwards entries to p.
func Sink(p Sender) diagnostics.Sink {
	return diagnostics.Func(func(e diagnostics.Entry) {
		p.Send(LogMsg(e))
	})
}
