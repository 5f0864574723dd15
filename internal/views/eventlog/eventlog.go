// Package eventlog provides a scrollable overlay listing session notices.
package eventlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/code-mirror/mirror/internal/theme"
)

const maxEntries = 200

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string // "state", "sent", "recv", "err", etc.
	Message string
}

// Model holds the event log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)
}

// New creates an empty event log.
func New() Model {
	return Model{}
}

// Add appends an entry stamped with t and caps the buffer.
func (m *Model) Add(t time.Time, kind, message string) {
	m.Entries = append(m.Entries, Entry{Time: t, Kind: kind, Message: message})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// ScrollUp moves the viewport towards older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

// ScrollDown moves the viewport towards newer entries.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	visible := max(height-6, 3)

	title := theme.StyleHeader.Render(" SESSION EVENTS ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("↑/↓:scroll  esc:close  %d entries", len(m.Entries)))

	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  Nothing has happened yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := max(len(m.Entries)-m.Offset, 0)
	start := max(end-visible, 0)

	lines := make([]string, 0, end-start)
	for _, e := range m.Entries[start:end] {
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(6).Render(e.Kind)
		msg := e.Message
		if limit := innerW - 24; limit > 3 {
			msg = ansi.Truncate(msg, limit, "...")
		}
		lines = append(lines, ts+" "+kind+" "+msg)
	}

	more := ""
	if m.Offset > 0 {
		more = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), more, help))
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case "sent":
		return theme.ColorSent
	case "recv":
		return theme.ColorReceived
	case "viewer":
		return theme.ColorViewer
	case "err", "drop":
		return theme.ColorErrored
	case "state":
		return theme.ColorConnecting
	default:
		return theme.ColorDimmed
	}
}
