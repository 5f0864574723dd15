package app

import (
	"sync"

	"github.com/code-mirror/mirror/internal/session"
)

// Hub is the editor host seen by the mirroring adapter. The TUI pushes the
// active buffer's text and cursor into it and the hub notifies subscribers.
// Reads are safe from any goroutine.
type Hub struct {
	mu     sync.RWMutex
	text   string
	sel    session.Selection
	hasSel bool

	subMu  sync.Mutex
	nextID int
	subs   map[hookKind]map[int]func()
}

type hookKind int

const (
	hookContent hookKind = iota
	hookSelection
	hookActivated
)

// NewHub creates a hub with an empty buffer and no selection.
func NewHub() *Hub {
	return &Hub{subs: make(map[hookKind]map[int]func())}
}

// ActiveBufferText implements session.Editor.
func (h *Hub) ActiveBufferText() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.text
}

// PrimarySelection implements session.Editor.
func (h *Hub) PrimarySelection() (session.Selection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sel, h.hasSel
}

// OnContentChanged implements editor.Host.
func (h *Hub) OnContentChanged(fn func()) func() { return h.subscribe(hookContent, fn) }

// OnSelectionChanged implements editor.Host.
func (h *Hub) OnSelectionChanged(fn func()) func() { return h.subscribe(hookSelection, fn) }

// OnViewActivated implements editor.Host.
func (h *Hub) OnViewActivated(fn func()) func() { return h.subscribe(hookActivated, fn) }

func (h *Hub) subscribe(kind hookKind, fn func()) func() {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	id := h.nextID
	h.nextID++
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[int]func())
	}
	h.subs[kind][id] = fn
	return func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		delete(h.subs[kind], id)
	}
}

// Edit records the state after an edit or cursor move and notifies content
// subscribers, then selection subscribers, for whatever changed.
func (h *Hub) Edit(text string, sel session.Selection) {
	h.mu.Lock()
	contentChanged := text != h.text
	selChanged := !h.hasSel || sel != h.sel
	h.text, h.sel, h.hasSel = text, sel, true
	h.mu.Unlock()

	if contentChanged {
		h.fire(hookContent)
	}
	if selChanged {
		h.fire(hookSelection)
	}
}

// Activate records a newly shown buffer and notifies view-activated
// subscribers.
func (h *Hub) Activate(text string, sel session.Selection) {
	h.mu.Lock()
	h.text, h.sel, h.hasSel = text, sel, true
	h.mu.Unlock()

	h.fire(hookActivated)
}

// fire runs callbacks outside both locks; they read the hub back.
func (h *Hub) fire(kind hookKind) {
	h.subMu.Lock()
	fns := make([]func(), 0, len(h.subs[kind]))
	for _, fn := range h.subs[kind] {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
