package app

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/code-mirror/mirror/internal/session"
)

const defaultPumpSize = 256

// NoticeMsg carries a session notice into the Bubble Tea update loop.
type NoticeMsg session.Notice

// NoticePump decouples session observers from the TUI. Observe never blocks;
// when the buffer is full the notice is counted and dropped.
type NoticePump struct {
	ch      chan session.Notice
	dropped atomic.Int64
}

// NewNoticePump creates a pump buffering up to size notices.
func NewNoticePump(size int) *NoticePump {
	if size <= 0 {
		size = defaultPumpSize
	}
	return &NoticePump{ch: make(chan session.Notice, size)}
}

// Observe is a session.Observer.
func (p *NoticePump) Observe(n session.Notice) {
	select {
	case p.ch <- n:
	default:
		p.dropped.Add(1)
	}
}

// Dropped reports how many notices were discarded.
func (p *NoticePump) Dropped() int64 {
	return p.dropped.Load()
}

// Run forwards notices to send (usually tea.Program.Send) until ctx is done.
func (p *NoticePump) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.ch:
			send(NoticeMsg(n))
		}
	}
}
