// Package session runs the mirroring state machine. A single goroutine owns
// the connection and all mutable session state; editor triggers, user
// commands and transport callbacks are all posted to its inbox, so no two
// transitions ever run concurrently.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/code-mirror/mirror/internal/protocol"
	"github.com/code-mirror/mirror/internal/transport"
	"github.com/google/uuid"
)

const defaultInboxSize = 256

// Conn is the part of a transport connection the session uses.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// DialFunc opens a connection and wires h to it. It may block; the session
// always calls it from a worker goroutine.
type DialFunc func(ctx context.Context, h transport.Handlers) (Conn, error)

// Config configures a Session.
type Config struct {
	// URL is the relay's session creation endpoint.
	URL       string
	Transport transport.Options
	InboxSize int
	Logger    *log.Logger
	Observer  Observer
	// Dial overrides the WebSocket transport, mainly for tests.
	Dial DialFunc
}

// Session mirrors one editor to a remote viewer. Create it once per process
// with New; Start and Stop may then be called any number of times.
type Session struct {
	cfg    Config
	editor Editor
	log    *log.Logger
	notify Observer

	state atomic.Int32
	inbox chan event
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu        sync.Mutex
	viewerURL string
	id        string

	// Owned by the loop goroutine.
	cur *attempt
}

// attempt is one connection lifetime, from Start until the connection ends.
type attempt struct {
	id     string
	log    *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	// detach is closed when the loop stops listening to this attempt, which
	// releases any goroutine still trying to post to the inbox.
	detach chan struct{}
	// dialed holds a successful dial's connection until the loop takes it,
	// so teardown can close one the loop never saw.
	dialed chan Conn
	worker sync.WaitGroup
	conn   Conn
}

type event any

type startReq struct{ reply chan error }

type stopReq struct{ reply chan error }

type outbound struct{ frames []frame }

type connected struct{ a *attempt }

type dialFailed struct {
	a   *attempt
	err error
}

type inbound struct {
	a    *attempt
	data []byte
}

type closed struct {
	a   *attempt
	err error
}

type frame struct {
	kind protocol.MessageType
	data []byte
}

// New creates an idle session reading from editor and starts its loop.
func New(editor Editor, cfg Config) *Session {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Transport.Logger == nil {
		cfg.Transport.Logger = cfg.Logger
	}
	if cfg.Dial == nil {
		url, opts := cfg.URL, cfg.Transport
		cfg.Dial = func(ctx context.Context, h transport.Handlers) (Conn, error) {
			return transport.Dial(ctx, url, opts, h)
		}
	}

	s := &Session{
		cfg:    cfg,
		editor: editor,
		log:    cfg.Logger,
		notify: cfg.Observer,
		inbox:  make(chan event, cfg.InboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if s.notify == nil {
		s.notify = func(Notice) {}
	}
	go s.loop()
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Active reports whether the session is mirroring. It is a single atomic load
// and is meant to guard every editor notification.
func (s *Session) Active() bool {
	return s.State() == Active
}

// ViewerURL returns the address assigned by the relay, or "" if none yet.
func (s *Session) ViewerURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewerURL
}

// ID returns the correlation id of the current connection attempt, or "".
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start begins a mirroring session. It returns once the connection attempt
// has been launched; the session becomes Active when the handshake succeeds.
func (s *Session) Start() error {
	return s.request(func(reply chan error) event { return startReq{reply} })
}

// Stop closes the connection and waits until its goroutines have exited.
func (s *Session) Stop() error {
	return s.request(func(reply chan error) event { return stopReq{reply} })
}

// Close stops any active session and terminates the session loop.
func (s *Session) Close() error {
	s.once.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

// ContentChanged sends a snapshot of the active buffer.
func (s *Session) ContentChanged() error {
	if !s.Active() {
		return ErrNotMirroring
	}
	return s.enqueue(protocol.ContentSnapshot{Text: s.editor.ActiveBufferText()})
}

// SelectionChanged sends the primary selection. With no selection at all
// nothing is sent and ErrEmptySelection is returned.
func (s *Session) SelectionChanged() error {
	if !s.Active() {
		return ErrNotMirroring
	}
	sel, ok := s.editor.PrimarySelection()
	if !ok {
		s.log.Printf("selection changed with no selection, ignoring")
		return ErrEmptySelection
	}
	return s.enqueue(selectionUpdate(sel))
}

// ViewActivated sends a snapshot followed by the primary selection, so the
// viewer has the baseline before the selection refers to it.
func (s *Session) ViewActivated() error {
	if !s.Active() {
		return ErrNotMirroring
	}
	return s.enqueue(s.snapshotAndSelection()...)
}

func (s *Session) snapshotAndSelection() []protocol.Outbound {
	msgs := []protocol.Outbound{protocol.ContentSnapshot{Text: s.editor.ActiveBufferText()}}
	if sel, ok := s.editor.PrimarySelection(); ok {
		msgs = append(msgs, selectionUpdate(sel))
	}
	return msgs
}

func selectionUpdate(sel Selection) protocol.SelectionUpdate {
	return protocol.SelectionUpdate{Offset: sel.Offset, Length: sel.Length}
}

// enqueue encodes msgs on the caller's goroutine and hands the frames to the
// loop as one unit, which keeps their relative order.
func (s *Session) enqueue(msgs ...protocol.Outbound) error {
	frames, err := encodeAll(msgs)
	if err != nil {
		return err
	}
	select {
	case s.inbox <- outbound{frames}:
		return nil
	case <-s.done:
		return ErrClosed
	default:
		s.log.Printf("session inbox full, dropping %d message(s)", len(frames))
		for _, f := range frames {
			s.emit(Notice{Kind: NoticeDropped, Message: f.kind})
		}
		return transport.ErrQueueFull
	}
}

func encodeAll(msgs []protocol.Outbound) ([]frame, error) {
	frames := make([]frame, 0, len(msgs))
	for _, m := range msgs {
		data, err := protocol.Encode(m)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame{kind: m.Kind(), data: data})
	}
	return frames, nil
}

func (s *Session) request(mk func(chan error) event) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- mk(reply):
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.inbox:
			s.handle(ev)
		case <-s.quit:
			if s.cur != nil {
				s.teardown(s.cur, nil)
			}
			s.drain()
			return
		}
	}
}

// drain releases whatever is still queued after the loop decided to exit.
func (s *Session) drain() {
	for {
		select {
		case ev := <-s.inbox:
			switch ev := ev.(type) {
			case startReq:
				ev.reply <- ErrClosed
			case stopReq:
				ev.reply <- ErrClosed
			}
		default:
			return
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev := ev.(type) {
	case startReq:
		ev.reply <- s.start()

	case stopReq:
		if s.cur == nil {
			s.log.Printf("stop requested with no active session")
			ev.reply <- ErrNotMirroring
			return
		}
		s.cur.log.Printf("stopping")
		s.teardown(s.cur, nil)
		ev.reply <- nil

	case outbound:
		if s.cur == nil || s.cur.conn == nil {
			return
		}
		s.send(s.cur, ev.frames)

	case connected:
		if ev.a != s.cur {
			// Its teardown already closed the connection.
			return
		}
		ev.a.conn = <-ev.a.dialed
		ev.a.log.Printf("connected to %s", s.cfg.URL)
		s.setState(Active)

	case dialFailed:
		if ev.a != s.cur {
			return
		}
		ev.a.log.Printf("connect failed: %v", ev.err)
		s.teardown(ev.a, ev.err)

	case inbound:
		if ev.a != s.cur {
			return
		}
		s.receive(ev.a, ev.data)

	case closed:
		if ev.a != s.cur {
			return
		}
		if ev.err != nil {
			ev.a.log.Printf("connection lost: %v", ev.err)
		} else {
			ev.a.log.Printf("connection closed by server")
		}
		s.teardown(ev.a, ev.err)
	}
}

func (s *Session) start() error {
	if s.cur != nil {
		return ErrAlreadyMirroring
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{
		id:     id,
		log:    log.New(s.log.Writer(), fmt.Sprintf("[%s] ", id[:8]), s.log.Flags()),
		ctx:    ctx,
		cancel: cancel,
		detach: make(chan struct{}),
		dialed: make(chan Conn, 1),
	}
	s.cur = a
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()

	a.log.Printf("connecting to %s", s.cfg.URL)
	s.setState(Connecting)

	a.worker.Add(1)
	go s.dial(a)
	return nil
}

// dial runs on the attempt's worker goroutine. Transport callbacks are held
// back until the loop has seen the connection, so inbound frames never
// overtake the connected event.
func (s *Session) dial(a *attempt) {
	defer a.worker.Done()

	ready := make(chan struct{})
	wait := func() bool {
		select {
		case <-ready:
			return true
		case <-a.detach:
			return false
		}
	}

	conn, err := s.cfg.Dial(a.ctx, transport.Handlers{
		OnMessage: func(data []byte) {
			if wait() {
				s.post(a, inbound{a, data})
			}
		},
		OnClose: func(err error) {
			if wait() {
				s.post(a, closed{a, err})
			}
		},
	})
	if err != nil {
		s.post(a, dialFailed{a, err})
		return
	}

	a.dialed <- conn
	select {
	case s.inbox <- connected{a}:
		close(ready)
	case <-a.detach:
	}
}

// post delivers ev unless the loop has already detached from a.
func (s *Session) post(a *attempt, ev event) {
	select {
	case s.inbox <- ev:
	case <-a.detach:
	}
}

// teardown releases the attempt's connection and worker and returns the
// session to Idle. It blocks until the transport goroutines have exited.
func (s *Session) teardown(a *attempt, cause error) {
	close(a.detach)
	a.cancel()
	if a.conn != nil {
		a.conn.Close()
	}
	a.worker.Wait()
	select {
	case conn := <-a.dialed:
		// Dialed but never adopted by the loop.
		conn.Close()
	default:
	}

	s.cur = nil
	s.mu.Lock()
	s.viewerURL = ""
	s.id = ""
	s.mu.Unlock()

	if cause != nil {
		s.emitFor(a, Notice{Kind: NoticeError, Err: cause})
	}
	a.log.Printf("session ended")
	s.setStateFor(a, Idle)
}

func (s *Session) send(a *attempt, frames []frame) {
	for _, f := range frames {
		if err := a.conn.Send(f.data); err != nil {
			a.log.Printf("send %s failed: %v", f.kind, err)
			s.emitFor(a, Notice{Kind: NoticeDropped, Message: f.kind, Err: err})
			continue
		}
		s.emitFor(a, Notice{Kind: NoticeSent, Message: f.kind})
	}
}

func (s *Session) receive(a *attempt, data []byte) {
	msg := protocol.Decode(data)
	s.emitFor(a, Notice{Kind: NoticeReceived, Message: msg.Kind()})

	switch m := msg.(type) {
	case protocol.ViewerAssigned:
		s.mu.Lock()
		s.viewerURL = m.URL
		s.mu.Unlock()
		a.log.Printf("started mirroring on %s", m.URL)
		s.emitFor(a, Notice{Kind: NoticeViewer, URL: m.URL})

	case protocol.ResendRequested:
		// Always re-read the editor: the viewer wants what is active now.
		frames, err := encodeAll(s.snapshotAndSelection())
		if err != nil {
			a.log.Printf("resend: %v", err)
			return
		}
		s.send(a, frames)

	case protocol.Unknown:
		if m.Err != nil {
			a.log.Printf("undecodable message from server: %v", m.Err)
		} else {
			a.log.Printf("bad message type from server: %q", m.Type)
		}
	}
}

func (s *Session) setState(st State) {
	s.setStateFor(s.cur, st)
}

func (s *Session) setStateFor(a *attempt, st State) {
	s.state.Store(int32(st))
	s.emitFor(a, Notice{Kind: NoticeState, State: st})
}

func (s *Session) emitFor(a *attempt, n Notice) {
	if a != nil {
		n.SessionID = a.id
	}
	s.emit(n)
}

func (s *Session) emit(n Notice) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if n.Kind != NoticeState {
		n.State = s.State()
	}
	s.notify(n)
}
