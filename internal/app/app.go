package app

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/code-mirror/mirror/internal/session"
	"github.com/code-mirror/mirror/internal/theme"
	"github.com/code-mirror/mirror/internal/views/eventlog"
	"github.com/code-mirror/mirror/internal/views/info"
	"github.com/code-mirror/mirror/internal/views/status"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayInfo
	OverlayEventLog
)

// Commands are the user commands of the mirroring adapter. *editor.Adapter
// satisfies it.
type Commands interface {
	StartMirroring() error
	StopMirroring() error
	ViewerURL() (string, error)
}

// Options configures the root model.
type Options struct {
	Hub      *Hub
	Commands Commands
	Buffers  []Buffer
	RelayURL string
	// InfoStyle is the glamour style for the info overlay. Defaults to "dark".
	InfoStyle string
	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

type commandDoneMsg struct {
	name string
	err  error
}

type copiedMsg struct {
	url string
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	hub  *Hub
	cmds Commands
	keys KeyMap
	help help.Model

	width  int
	height int

	views   []view
	active  int
	overlay Overlay

	// Session state as last reported by notices.
	state     string
	sessionID string
	viewerURL string
	sent      int
	received  int
	flash     string

	relayURL string
	infoPane *info.Renderer
	copy     func(string) error

	pulse     pulse
	statusBar status.Model
	events    eventlog.Model
}

// New creates the root model and makes the first buffer the active view.
func New(opts Options) Model {
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if len(opts.Buffers) == 0 {
		opts.Buffers = []Buffer{{Name: "scratch"}}
	}
	if opts.InfoStyle == "" {
		opts.InfoStyle = "dark"
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	views := make([]view, len(opts.Buffers))
	for i, b := range opts.Buffers {
		views[i] = newView(b)
	}

	m := Model{
		hub:       opts.Hub,
		cmds:      opts.Commands,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		views:     views,
		state:     session.Idle.String(),
		relayURL:  opts.RelayURL,
		infoPane:  info.NewRenderer(opts.InfoStyle),
		copy:      opts.Copy,
		pulse:     newPulse(),
		statusBar: status.New(),
		events:    eventlog.New(),
	}
	m.views[0].area.Focus()
	m.activate()
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.help.Width = msg.Width
		for i := range m.views {
			m.views[i].area.SetWidth(msg.Width)
			m.views[i].area.SetHeight(max(msg.Height-6, 3))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case NoticeMsg:
		return m, m.applyNotice(session.Notice(msg))

	case pulseFrameMsg:
		return m, m.pulse.step()

	case commandDoneMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("%s: %v", msg.name, msg.err)
		} else {
			m.flash = ""
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("copy: %v", msg.err)
		} else {
			m.flash = "copied " + msg.url
		}
		return m, nil
	}

	return m.edit(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case m.overlay == OverlayEventLog && key.Matches(msg, m.keys.ScrollUp):
			m.events.ScrollUp(1)
		case m.overlay == OverlayEventLog && key.Matches(msg, m.keys.ScrollDown):
			m.events.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		return m, m.command("start", m.cmds.StartMirroring)

	case key.Matches(msg, m.keys.Stop):
		return m, m.command("stop", m.cmds.StopMirroring)

	case key.Matches(msg, m.keys.NextBuffer):
		m.switchTo((m.active + 1) % len(m.views))
		return m, nil

	case key.Matches(msg, m.keys.PrevBuffer):
		m.switchTo((m.active - 1 + len(m.views)) % len(m.views))
		return m, nil

	case key.Matches(msg, m.keys.CopyURL):
		url, err := m.cmds.ViewerURL()
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		write := m.copy
		return m, func() tea.Msg { return copiedMsg{url: url, err: write(url)} }

	case key.Matches(msg, m.keys.Info):
		m.overlay = OverlayInfo
		return m, nil

	case key.Matches(msg, m.keys.EventLog):
		m.overlay = OverlayEventLog
		return m, nil
	}

	return m.edit(msg)
}

// command runs a blocking adapter command off the update goroutine.
func (m Model) command(name string, fn func() error) tea.Cmd {
	return func() tea.Msg { return commandDoneMsg{name: name, err: fn()} }
}

// edit passes msg to the active textarea and reports what changed.
func (m Model) edit(msg tea.Msg) (tea.Model, tea.Cmd) {
	v := &m.views[m.active]
	var cmd tea.Cmd
	v.area, cmd = v.area.Update(msg)
	m.hub.Edit(v.area.Value(), v.selection())
	return m, cmd
}

func (m *Model) switchTo(i int) {
	if i == m.active {
		return
	}
	m.views[m.active].area.Blur()
	m.active = i
	m.views[i].area.Focus()
	m.activate()
}

func (m *Model) activate() {
	v := m.views[m.active]
	m.hub.Activate(v.area.Value(), v.selection())
}

func (m *Model) applyNotice(n session.Notice) tea.Cmd {
	var cmd tea.Cmd
	switch n.Kind {
	case session.NoticeState:
		m.state = n.State.String()
		m.sessionID = n.SessionID
		m.events.Add(n.Time, n.Kind.String(), m.state)
		switch n.State {
		case session.Active:
			// Give the viewer a baseline without waiting for an edit.
			m.activate()
		case session.Idle:
			m.viewerURL = ""
			m.sessionID = ""
		}

	case session.NoticeViewer:
		m.viewerURL = n.URL
		m.events.Add(n.Time, n.Kind.String(), n.URL)

	case session.NoticeSent:
		m.sent++
		m.events.Add(n.Time, n.Kind.String(), string(n.Message))
		cmd = m.pulse.kick()

	case session.NoticeReceived:
		m.received++
		label := string(n.Message)
		if label == "" {
			label = "malformed message"
		}
		m.events.Add(n.Time, n.Kind.String(), label)

	case session.NoticeDropped:
		msg := string(n.Message) + " dropped"
		if n.Err != nil {
			msg += ": " + n.Err.Error()
		}
		m.events.Add(n.Time, n.Kind.String(), msg)

	case session.NoticeError:
		if n.Err != nil {
			m.flash = n.Err.Error()
			m.events.Add(n.Time, n.Kind.String(), n.Err.Error())
		}
	}
	return cmd
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	m.statusBar.State = m.state
	m.statusBar.ViewerURL = m.viewerURL
	m.statusBar.Buffer = m.views[m.active].name
	m.statusBar.Sent = m.sent
	m.statusBar.Activity = m.pulse.level()

	var body string
	switch m.overlay {
	case OverlayInfo:
		body = m.infoPane.View(m.infoData(), m.width)
	case OverlayEventLog:
		body = m.events.View(m.width, m.height-4)
	default:
		body = m.views[m.active].area.View()
	}

	footer := m.help.View(m.keys)
	if m.flash != "" {
		footer = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(m.flash) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.statusBar.View(), m.renderTabs(), body, footer)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.views))
	for i, v := range m.views {
		if i == m.active {
			tabs[i] = theme.StyleActiveTab.Render(v.name)
		} else {
			tabs[i] = theme.StyleTab.Render(v.name)
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) infoData() info.Data {
	return info.Data{
		State:     m.state,
		SessionID: m.sessionID,
		ViewerURL: m.viewerURL,
		RelayURL:  m.relayURL,
		Buffer:    m.views[m.active].name,
		Sent:      m.sent,
		Received:  m.received,
	}
}
