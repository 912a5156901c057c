package signaling

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/parleyhq/parley/internal/room"
)

type messageType string

const (
	messageTypeJoin       messageType = "join"
	messageTypeSignal     messageType = "signal"
	messageTypeMediaStart messageType = "media-start"
	messageTypeMediaStop  messageType = "media-stop"

	messageTypeWelcome    messageType = "welcome"
	messageTypePeerJoined messageType = "peer-joined"
	messageTypePeerLeft   messageType = "peer-left"
	messageTypeEntropy    messageType = "entropy"
	messageTypeError      messageType = "error"
)

// Error texts sent to clients. These are part of the wire contract; the
// browser client string-matches some of them.
const (
	errTextInvalidJSON     = "Invalid JSON."
	errTextRoomFull        = "Room is full."
	errTextUnknownPeer     = "Peer is no longer available."
	errTextAlreadyJoined   = "Already joined."
	errTextNotJoined       = "Join first."
	errTextNameRequired    = "Name is required."
	errTextInvalidMime     = "Invalid mimeType."
	errTextUnsupportedType = "Unsupported message type."
	errTextRelayDisabled   = "Media relay is disabled."
)

const maxNameChars = 40

// protocolError carries the client-visible message for a rejected inbound
// message. The connection stays open after an error reply.
type protocolError struct {
	text string
}

func (e *protocolError) Error() string { return e.text }

// inboundMessage is the tagged union of all client-to-server messages.
type inboundMessage struct {
	Type messageType `json:"type"`

	Name string `json:"name,omitempty"` // join

	To   string          `json:"to,omitempty"`   // signal
	Data json.RawMessage `json:"data,omitempty"` // signal

	MimeType string `json:"mimeType,omitempty"` // media-start
}

// parseInbound decodes and validates one text frame. JSON syntax errors,
// unknown fields, and trailing garbage all map to the generic invalid-JSON
// reply; a structurally valid message with a bad shape gets a specific one.
func parseInbound(data []byte) (inboundMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg inboundMessage
	if err := dec.Decode(&msg); err != nil {
		return inboundMessage{}, &protocolError{errTextInvalidJSON}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return inboundMessage{}, &protocolError{errTextInvalidJSON}
	}
	if err := msg.validate(); err != nil {
		return inboundMessage{}, err
	}
	return msg, nil
}

func (m inboundMessage) validate() error {
	switch m.Type {
	case messageTypeJoin:
		if m.To != "" || m.Data != nil || m.MimeType != "" {
			return &protocolError{errTextInvalidJSON}
		}
	case messageTypeSignal:
		if m.To == "" || m.Data == nil {
			return &protocolError{errTextInvalidJSON}
		}
		if m.Name != "" || m.MimeType != "" {
			return &protocolError{errTextInvalidJSON}
		}
	case messageTypeMediaStart:
		if m.MimeType == "" {
			return &protocolError{errTextInvalidMime}
		}
		if m.Name != "" || m.To != "" || m.Data != nil {
			return &protocolError{errTextInvalidJSON}
		}
	case messageTypeMediaStop:
		if m.Name != "" || m.To != "" || m.Data != nil || m.MimeType != "" {
			return &protocolError{errTextInvalidJSON}
		}
	default:
		return &protocolError{errTextUnsupportedType}
	}
	return nil
}

// normalizeName trims and caps a display name at maxNameChars characters.
func normalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	runes := []rune(name)
	if len(runes) > maxNameChars {
		name = string(runes[:maxNameChars])
	}
	return name
}

// mimeTypePattern accepts type/subtype with optional parameters, e.g.
// "video/webm" or "video/webm;codecs=vp8,opus".
var mimeTypePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*/[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*(;.*)?$`)

const maxMimeTypeChars = 120

func validMimeType(s string) bool {
	return len(s) <= maxMimeTypeChars && mimeTypePattern.MatchString(s)
}

// MediaPeer describes a participant with an active media stream, so late
// joiners can render already-running streams.
type MediaPeer struct {
	PeerID   string `json:"peerId"`
	MimeType string `json:"mimeType"`
}

type welcomeMessage struct {
	Type               messageType        `json:"type"`
	ID                 string             `json:"id"`
	Participants       []room.Participant `json:"participants"`
	ICEServers         []webrtc.ICEServer `json:"iceServers"`
	ICETransportPolicy string             `json:"iceTransportPolicy"`
	MediaTransport     string             `json:"mediaTransport"`
	MediaPeers         []MediaPeer        `json:"mediaPeers"`
}

type peerJoinedMessage struct {
	Type messageType      `json:"type"`
	Peer room.Participant `json:"peer"`
}

type peerLeftMessage struct {
	Type   messageType `json:"type"`
	PeerID string      `json:"peerId"`
}

type signalOutMessage struct {
	Type messageType     `json:"type"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

type mediaStartMessage struct {
	Type     messageType `json:"type"`
	PeerID   string      `json:"peerId"`
	MimeType string      `json:"mimeType"`
}

type mediaStopMessage struct {
	Type   messageType `json:"type"`
	PeerID string      `json:"peerId"`
}

type entropyMessage struct {
	Type  messageType `json:"type"`
	Bytes int         `json:"bytes"`
	Data  string      `json:"data"`
}

type errorMessage struct {
	Type    messageType `json:"type"`
	Message string      `json:"message"`
}

func newErrorMessage(text string) errorMessage {
	return errorMessage{Type: messageTypeError, Message: text}
}
