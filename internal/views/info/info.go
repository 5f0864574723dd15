// Package info renders the session info overlay as markdown through glamour.
package info

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/code-mirror/mirror/internal/theme"
)

// Data is what the overlay shows.
type Data struct {
	State     string
	SessionID string
	ViewerURL string
	RelayURL  string
	Buffer    string
	Sent      int
	Received  int
}

// Markdown builds the overlay document.
func Markdown(d Data) string {
	var b strings.Builder
	b.WriteString("# Mirroring session\n\n")
	fmt.Fprintf(&b, "- **State:** %s\n", d.State)
	if d.SessionID != "" {
		fmt.Fprintf(&b, "- **Session:** `%s`\n", d.SessionID)
	}
	fmt.Fprintf(&b, "- **Relay:** `%s`\n", d.RelayURL)
	fmt.Fprintf(&b, "- **Buffer:** %s\n", d.Buffer)
	fmt.Fprintf(&b, "- **Messages:** %d sent, %d received\n\n", d.Sent, d.Received)

	if d.ViewerURL != "" {
		b.WriteString("## Viewer\n\n")
		fmt.Fprintf(&b, "Share this address: `%s`\n\n", d.ViewerURL)
		b.WriteString("Press `ctrl+y` to copy it.\n")
	} else {
		b.WriteString("No viewer yet. Press `ctrl+s` to start mirroring.\n")
	}
	return b.String()
}

// Renderer draws the overlay, reusing one glamour renderer until the width
// changes. It is not safe for concurrent use.
type Renderer struct {
	style string
	width int
	tr    *glamour.TermRenderer
	// built counts renderer constructions.
	built int
}

// NewRenderer creates a renderer for a glamour standard style name
// ("dark", "light", "notty", ...).
func NewRenderer(style string) *Renderer {
	return &Renderer{style: style}
}

func (r *Renderer) term(width int) *glamour.TermRenderer {
	if r.tr != nil && r.width == width {
		return r.tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.tr, r.width = tr, width
	r.built++
	return tr
}

// View renders d in a bordered panel width columns wide.
func (r *Renderer) View(d Data, width int) string {
	innerW := max(width-8, 30)

	md := Markdown(d)
	body := md
	if tr := r.term(innerW); tr != nil {
		if out, err := tr.Render(md); err == nil {
			body = strings.Trim(out, "\n")
		}
	}

	help := theme.StyleDimmed.Render("esc:close")
	return lipgloss.NewStyle().
		Width(innerW+4).
		Padding(0, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorAccent).
		Render(lipgloss.JoinVertical(lipgloss.Left, body, "", help))
}
