package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errMissingType  = errors.New("missing message type")
	errBadSelection = errors.New("selection must be \"<offset> <length>\"")
)

// Encode serializes an outbound message into a single wire frame.
func Encode(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case ContentSnapshot:
		return marshal(Envelope{Type: MsgData, Content: m.Text})
	case SelectionUpdate:
		return marshal(Envelope{Type: MsgSelection, Content: FormatSelection(m)})
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", msg)
	}
}

// EncodeInbound serializes a server-side message. Relays and tests use it to
// speak the other half of the protocol.
func EncodeInbound(msg Inbound) ([]byte, error) {
	switch m := msg.(type) {
	case ViewerAssigned:
		return marshal(Envelope{Type: MsgURL, Content: m.URL})
	case ResendRequested:
		return marshal(Envelope{Type: MsgResend})
	case Unknown:
		return append([]byte(nil), m.Raw...), nil
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", msg)
	}
}

// Decode parses a frame received from the server. It never fails: anything
// malformed or unrecognized comes back as Unknown.
func Decode(data []byte) Inbound {
	env, err := unmarshal(data)
	if err != nil {
		return Unknown{Raw: clone(data), Err: err}
	}
	switch env.Type {
	case MsgURL:
		return ViewerAssigned{URL: env.Content}
	case MsgResend:
		return ResendRequested{}
	default:
		return Unknown{Raw: clone(data), Type: env.Type}
	}
}

// DecodeOutbound parses a frame produced by Encode.
func DecodeOutbound(data []byte) (Outbound, error) {
	env, err := unmarshal(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case MsgData:
		return ContentSnapshot{Text: env.Content}, nil
	case MsgSelection:
		return ParseSelection(env.Content)
	default:
		return nil, fmt.Errorf("decode: unexpected message type %q", env.Type)
	}
}

// FormatSelection renders the SELECTION content field.
func FormatSelection(s SelectionUpdate) string {
	return strconv.FormatUint(uint64(s.Offset), 10) + " " + strconv.FormatUint(uint64(s.Length), 10)
}

// ParseSelection parses a SELECTION content field.
func ParseSelection(content string) (SelectionUpdate, error) {
	parts := strings.Split(content, " ")
	if len(parts) != 2 {
		return SelectionUpdate{}, errBadSelection
	}
	offset, err := strconv.ParseUint(parts[0], 10, 0)
	if err != nil {
		return SelectionUpdate{}, fmt.Errorf("selection offset: %w", err)
	}
	length, err := strconv.ParseUint(parts[1], 10, 0)
	if err != nil {
		return SelectionUpdate{}, fmt.Errorf("selection length: %w", err)
	}
	return SelectionUpdate{Offset: uint(offset), Length: uint(length)}, nil
}

func marshal(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errMissingType
	}
	return env, nil
}

func clone(data []byte) []byte {
	return append([]byte(nil), data...)
}
