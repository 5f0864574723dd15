package status

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/code-mirror/mirror/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	State     string
	ViewerURL string
	Buffer    string
	Sent      int
	Activity  float64 // 0..1 send activity meter
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{State: "idle"}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	color := theme.StateColor(m.State)
	var stateStr string
	switch m.State {
	case "active":
		stateStr = lipgloss.NewStyle().Foreground(color).Render("● Mirroring")
	case "connecting":
		stateStr = lipgloss.NewStyle().Foreground(color).Render("◌ Connecting...")
	default:
		stateStr = lipgloss.NewStyle().Foreground(color).Render("○ Not mirroring")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := stateStr + sep + m.Buffer
	if m.ViewerURL != "" {
		content += sep + theme.StyleURL.Render(m.ViewerURL)
	}
	if m.Sent > 0 {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("%d sent", m.Sent)) + " " + meter(m.Activity)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

const meterCells = 5

func meter(level float64) string {
	n := int(math.Round(level * meterCells))
	n = max(0, min(n, meterCells))
	return lipgloss.NewStyle().Foreground(theme.ColorSent).Render(strings.Repeat("▮", n)) +
		theme.StyleDimmed.Render(strings.Repeat("▯", meterCells-n))
}
