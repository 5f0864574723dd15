package session

import (
	"errors"
	"time"

	"github.com/code-mirror/mirror/internal/protocol"
)

// State is the mirroring lifecycle state.
type State int32

const (
	Idle State = iota
	Connecting
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyMirroring = errors.New("session: already mirroring")
	ErrNotMirroring     = errors.New("session: not mirroring")
	ErrEmptySelection   = errors.New("session: editor has no selection")
	ErrClosed           = errors.New("session: closed")
)

// Selection is a region of the active buffer in characters.
type Selection struct {
	Offset uint
	Length uint
}

// Editor is the read side of the host editor. Both methods are called from
// the session's own goroutine as well as the caller's, so implementations
// must be safe for concurrent use.
type Editor interface {
	ActiveBufferText() string
	// PrimarySelection returns the first selection region. ok is false when
	// the editor has no selection at all.
	PrimarySelection() (sel Selection, ok bool)
}

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	NoticeState NoticeKind = iota
	NoticeViewer
	NoticeSent
	NoticeReceived
	NoticeDropped
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeState:
		return "state"
	case NoticeViewer:
		return "viewer"
	case NoticeSent:
		return "sent"
	case NoticeReceived:
		return "recv"
	case NoticeDropped:
		return "drop"
	case NoticeError:
		return "err"
	default:
		return "?"
	}
}

// Notice reports something that happened to the session.
type Notice struct {
	Kind      NoticeKind
	Time      time.Time
	SessionID string
	State     State
	URL       string
	Message   protocol.MessageType
	Err       error
}

// Observer receives notices. It may be called from several goroutines and
// must not block.
type Observer func(Notice)

// Observers fans a notice out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	return func(n Notice) {
		for _, o := range obs {
			if o != nil {
				o(n)
			}
		}
	}
}
