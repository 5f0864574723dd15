// Package theme provides the Lip Gloss color palette and reusable styles for
// the mirror TUI. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Session state colors.
var (
	ColorActive     = lipgloss.Color("#22c55e")
	ColorConnecting = lipgloss.Color("#d97706")
	ColorIdle       = lipgloss.Color("#6b7280")
)

// Event log colors.
var (
	ColorSent     = lipgloss.Color("#2563eb")
	ColorReceived = lipgloss.Color("#7c3aed")
	ColorViewer   = lipgloss.Color("#06b6d4")
	ColorErrored  = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
	ColorAccent = lipgloss.Color("#a855f7")
	ColorDanger = lipgloss.Color("#dc2626")
)

// Reusable styles.
var (
	StyleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDimmed)
	StyleURL    = lipgloss.NewStyle().Underline(true).Foreground(ColorViewer)

	StyleTab       = lipgloss.NewStyle().Padding(0, 1).Foreground(ColorDimmed)
	StyleActiveTab = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(ColorBright).Background(ColorAccent)
)

// StateColor returns the color for a session state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "active":
		return ColorActive
	case "connecting":
		return ColorConnecting
	default:
		return ColorIdle
	}
}
