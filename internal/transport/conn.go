// Package transport owns one duplex WebSocket connection to the mirror relay.
// A read goroutine dispatches frames to a callback in arrival order and a
// write goroutine drains a bounded outbound queue, so Send never blocks on
// network I/O.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned by Send once the connection is closed.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrQueueFull is returned by Send when the outbound queue is saturated.
	// The message is dropped.
	ErrQueueFull = errors.New("transport: send queue full")
)

const (
	defaultSendQueue        = 64
	defaultWriteTimeout     = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	closeFrameTimeout       = 100 * time.Millisecond
)

// TLSPolicy controls certificate verification for wss:// endpoints.
type TLSPolicy struct {
	// InsecureSkipVerify disables certificate verification. The public relay
	// runs with a certificate that does not verify, so this exists as an
	// explicit opt-in; it is never on by default.
	InsecureSkipVerify bool
}

// Options tune a connection. Zero values fall back to defaults, except the
// keepalive settings: the public relay never answers pings, so both are off
// unless set.
type Options struct {
	TLS              TLSPolicy
	HandshakeTimeout time.Duration
	SendQueue        int
	WriteTimeout     time.Duration
	// PingInterval sends a ping this often. Zero sends none.
	PingInterval time.Duration
	// PongTimeout drops the connection when nothing, pongs included, has been
	// read for this long. Zero means no read deadline.
	PongTimeout time.Duration
	Logger      *log.Logger
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.SendQueue <= 0 {
		o.SendQueue = defaultSendQueue
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval < 0 {
		o.PingInterval = 0
	}
	if o.PongTimeout < 0 {
		o.PongTimeout = 0
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Handlers receive connection events. Both run on the connection's read
// goroutine, never on the caller's.
type Handlers struct {
	// OnMessage is called once per received text frame, in arrival order.
	OnMessage func(data []byte)
	// OnClose is called exactly once when the connection stops being usable.
	// err is nil for an orderly close.
	OnClose func(err error)
}

// Conn is a live connection. It is safe for concurrent use.
type Conn struct {
	ws       *websocket.Conn
	opts     Options
	handlers Handlers

	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Dial connects to url and starts the read and write goroutines. It blocks
// until the handshake completes, fails, or ctx is cancelled; callers that must
// not block run it on their own goroutine.
func Dial(ctx context.Context, url string, opts Options, h Handlers) (*Conn, error) {
	opts = opts.withDefaults()

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if opts.TLS.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		ws:       ws,
		opts:     opts,
		handlers: h,
		send:     make(chan []byte, opts.SendQueue),
		done:     make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writePump()
	return c, nil
}

// Send queues data as one text frame. It never blocks.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close tears the connection down and waits for both goroutines to exit.
// Queued frames are not flushed and a write stuck on a stalled socket is
// aborted. Close is idempotent.
func (c *Conn) Close() error {
	if c.shutdown() {
		// Best effort; gives up quickly if the writer holds the socket.
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeFrameTimeout))
		c.ws.Close()
	}
	c.wg.Wait()
	return nil
}

// shutdown marks the connection closed and stops the write goroutine. It
// reports whether this call did it.
func (c *Conn) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.done)
	return true
}

func (c *Conn) extendReadDeadline() error {
	if c.opts.PongTimeout <= 0 {
		return nil
	}
	return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	c.ws.SetPongHandler(func(string) error {
		return c.extendReadDeadline()
	})
	c.extendReadDeadline()

	var err error
	for {
		var kind int
		var data []byte
		kind, data, err = c.ws.ReadMessage()
		if err != nil {
			break
		}
		// Any frame proves the peer is alive.
		c.extendReadDeadline()
		if kind != websocket.TextMessage {
			continue
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(data)
		}
	}

	c.mu.Lock()
	local := c.closed
	c.mu.Unlock()
	if local || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil
	} else {
		c.opts.Logger.Printf("ws read error: %v", err)
	}

	// Stop the writer too; the socket is unusable either way.
	if c.shutdown() {
		c.ws.Close()
	}
	c.finish(err)
}

func (c *Conn) writePump() {
	defer c.wg.Done()

	var ping <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				select {
				case <-c.done:
					// Closed locally mid-write.
					return
				default:
				}
				c.opts.Logger.Printf("ws write error: %v", err)
				// Unblocks readLoop, which reports the failure.
				c.ws.Close()
				<-c.done
				return
			}

		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.ws.Close()
				<-c.done
				return
			}
		}
	}
}

func (c *Conn) finish(err error) {
	c.closeOnce.Do(func() {
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(err)
		}
	})
}
