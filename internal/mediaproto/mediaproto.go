// Package mediaproto implements the binary frame format used to relay
// encoded media chunks between call participants.
//
// Wire layout (v1):
//
//	[version:1][peer_id_len:1][peer_id bytes][payload bytes]
//
// The peer ID identifies the original sender so receivers can attribute a
// chunk without trusting the transport connection it arrived on.
package mediaproto

import (
	"errors"
	"fmt"
)

const (
	// Version is the only frame version this codec understands.
	Version = 1

	// MaxPeerIDLen is the maximum peer ID length in UTF-8 bytes. It must fit
	// in the single-byte length field with room to spare for future flags.
	MaxPeerIDLen = 120

	headerLen = 2
)

var (
	ErrBadVersion    = errors.New("mediaproto: unsupported frame version")
	ErrTruncated     = errors.New("mediaproto: frame shorter than header")
	ErrEmptyPeerID   = errors.New("mediaproto: empty peer id")
	ErrPeerIDTooLong = errors.New("mediaproto: peer id too long")
	ErrEmptyPayload  = errors.New("mediaproto: empty payload")
)

// Packet is a decoded media frame.
type Packet struct {
	PeerID  string
	Payload []byte
}

// Encode builds a v1 frame for payload attributed to peerID.
func Encode(peerID string, payload []byte) ([]byte, error) {
	if peerID == "" {
		return nil, ErrEmptyPeerID
	}
	if len(peerID) > MaxPeerIDLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPeerIDTooLong, len(peerID), MaxPeerIDLen)
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	b := make([]byte, 0, headerLen+len(peerID)+len(payload))
	b = append(b, Version, byte(len(peerID)))
	b = append(b, peerID...)
	b = append(b, payload...)
	return b, nil
}

// Decode parses a frame. It never panics; malformed input yields an error
// and callers are expected to log and drop the frame rather than propagate.
func Decode(b []byte) (Packet, error) {
	if len(b) < headerLen {
		return Packet{}, ErrTruncated
	}
	if b[0] != Version {
		return Packet{}, fmt.Errorf("%w: %d", ErrBadVersion, b[0])
	}
	idLen := int(b[1])
	if idLen == 0 {
		return Packet{}, ErrEmptyPeerID
	}
	if headerLen+idLen > len(b) {
		return Packet{}, fmt.Errorf("%w: id length %d exceeds frame", ErrTruncated, idLen)
	}

	return Packet{
		PeerID:  string(b[headerLen : headerLen+idLen]),
		Payload: b[headerLen+idLen:],
	}, nil
}
