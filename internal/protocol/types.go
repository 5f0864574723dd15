// Package protocol implements the mirror wire format: one JSON object per
// WebSocket text frame carrying a message type and a string content.
package protocol

// MessageType identifies the kind of wire message.
type MessageType string

const (
	MsgData      MessageType = "DATA"
	MsgSelection MessageType = "SELECTION"
	MsgURL       MessageType = "URL"
	MsgResend    MessageType = "RESEND"
)

// Envelope is the JSON object carried by every frame.
type Envelope struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// Outbound is a message produced by the editor side.
type Outbound interface {
	outbound()
	// Kind reports the wire type the message encodes to.
	Kind() MessageType
}

// ContentSnapshot carries the full text of the active buffer.
type ContentSnapshot struct {
	Text string
}

// SelectionUpdate carries the primary selection as a character offset and
// length into the most recent snapshot.
type SelectionUpdate struct {
	Offset uint
	Length uint
}

func (ContentSnapshot) outbound() {}
func (SelectionUpdate) outbound() {}

func (ContentSnapshot) Kind() MessageType { return MsgData }
func (SelectionUpdate) Kind() MessageType { return MsgSelection }

// Inbound is a message received from the relay server.
type Inbound interface {
	inbound()
	Kind() MessageType
}

// ViewerAssigned reports the address where viewers can watch the session.
type ViewerAssigned struct {
	URL string
}

// ResendRequested asks the editor to send a fresh snapshot, typically
// because a new viewer joined.
type ResendRequested struct{}

// Unknown is any frame that could not be decoded or has an unrecognized
// type. Err is nil when the frame was well-formed but of another type.
type Unknown struct {
	Raw  []byte
	Type MessageType
	Err  error
}

func (ViewerAssigned) inbound()  {}
func (ResendRequested) inbound() {}
func (Unknown) inbound()         {}

func (ViewerAssigned) Kind() MessageType  { return MsgURL }
func (ResendRequested) Kind() MessageType { return MsgResend }
func (u Unknown) Kind() MessageType       { return u.Type }
