package signaling

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/metrics"
	"github.com/parleyhq/parley/internal/room"
)

var (
	ErrRoomFull      = errors.New("signaling: room is full")
	ErrAlreadyJoined = errors.New("signaling: connection already joined")
	ErrNotJoined     = errors.New("signaling: connection has not joined")
	ErrUnknownPeer   = errors.New("signaling: no such peer")
)

// Hub owns the room registry and the table of joined connections. One mutex
// serializes every mutation of room membership and per-connection media
// state, so a broadcast can never observe a half-applied change. Outbound
// sends happen outside the lock against point-in-time snapshots; they are
// non-blocking, so a slow peer never stalls the room.
type Hub struct {
	log             *slog.Logger
	m               *metrics.Metrics
	maxParticipants int

	mu       sync.Mutex
	registry *room.Registry
	conns    map[string]*Conn

	newID func() string
}

func NewHub(maxParticipants int, registry *room.Registry, logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:             logger,
		m:               m,
		maxParticipants: maxParticipants,
		registry:        registry,
		conns:           make(map[string]*Conn),
		newID:           uuid.NewString,
	}
}

// JoinResult is everything the welcome message needs from the room.
type JoinResult struct {
	Self       room.Participant
	Others     []room.Participant
	MediaPeers []MediaPeer
}

// Join registers the connection in the room and notifies the other joined
// participants.
func (h *Hub) Join(c *Conn, name string) (JoinResult, error) {
	h.mu.Lock()
	if c.state != StatePending {
		h.mu.Unlock()
		return JoinResult{}, ErrAlreadyJoined
	}
	if h.registry.Count() >= h.maxParticipants {
		h.mu.Unlock()
		h.m.Inc(metrics.RoomFull)
		return JoinResult{}, ErrRoomFull
	}

	id := h.newID()
	self := h.registry.Add(id, name)
	c.state = StateJoined
	c.participant = self
	h.conns[id] = c

	others := make([]room.Participant, 0)
	mediaPeers := make([]MediaPeer, 0)
	targets := make([]*Conn, 0, len(h.conns))
	for _, p := range h.registry.List() {
		if p.ID == id {
			continue
		}
		others = append(others, p)
		peer := h.conns[p.ID]
		targets = append(targets, peer)
		if peer.mediaActive {
			mediaPeers = append(mediaPeers, MediaPeer{PeerID: p.ID, MimeType: peer.mediaMimeType})
		}
	}
	h.mu.Unlock()

	h.log.Info("participant joined", "participant_id", id, "name", name)
	broadcast(targets, peerJoinedMessage{Type: messageTypePeerJoined, Peer: self})

	return JoinResult{Self: self, Others: others, MediaPeers: mediaPeers}, nil
}

// Disconnect finalizes the connection's room state. Idempotent: close and
// error paths may both land here, only the first one acts.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	if c.state == StateClosed {
		h.mu.Unlock()
		return
	}
	wasJoined := c.state == StateJoined
	wasMediaActive := c.mediaActive
	p := c.participant
	c.state = StateClosed
	c.mediaActive = false
	c.mediaMimeType = ""

	var targets []*Conn
	if wasJoined {
		h.registry.Remove(p.ID)
		delete(h.conns, p.ID)
		targets = h.joinedSnapshotLocked(nil)
	}
	h.mu.Unlock()

	if !wasJoined {
		return
	}
	h.log.Info("participant left", "participant_id", p.ID)
	if wasMediaActive {
		broadcast(targets, mediaStopMessage{Type: messageTypeMediaStop, PeerID: p.ID})
	}
	broadcast(targets, peerLeftMessage{Type: messageTypePeerLeft, PeerID: p.ID})
}

// ForwardSignal relays opaque negotiation data to the peer owning id to.
func (h *Hub) ForwardSignal(c *Conn, to string, data []byte) error {
	h.mu.Lock()
	if c.state != StateJoined {
		h.mu.Unlock()
		return ErrNotJoined
	}
	from := c.participant.ID
	target, ok := h.conns[to]
	h.mu.Unlock()

	if !ok {
		return ErrUnknownPeer
	}
	target.TrySendJSON(signalOutMessage{Type: messageTypeSignal, From: from, Data: data})
	return nil
}

// MediaStart flags the connection as streaming and announces it.
func (h *Hub) MediaStart(c *Conn, mimeType string) error {
	h.mu.Lock()
	if c.state != StateJoined {
		h.mu.Unlock()
		return ErrNotJoined
	}
	c.mediaActive = true
	c.mediaMimeType = mimeType
	peerID := c.participant.ID
	targets := h.joinedSnapshotLocked(c)
	h.mu.Unlock()

	broadcast(targets, mediaStartMessage{Type: messageTypeMediaStart, PeerID: peerID, MimeType: mimeType})
	return nil
}

// MediaStop clears the streaming flag. Stopping an inactive stream is a
// no-op with no broadcast.
func (h *Hub) MediaStop(c *Conn) error {
	h.mu.Lock()
	if c.state != StateJoined {
		h.mu.Unlock()
		return ErrNotJoined
	}
	if !c.mediaActive {
		h.mu.Unlock()
		return nil
	}
	c.mediaActive = false
	c.mediaMimeType = ""
	peerID := c.participant.ID
	targets := h.joinedSnapshotLocked(c)
	h.mu.Unlock()

	broadcast(targets, mediaStopMessage{Type: messageTypeMediaStop, PeerID: peerID})
	return nil
}

// MediaReceivers snapshots the fan-out set for a binary frame from sender:
// every other joined connection with an active stream. active is false when
// the sender itself has no active stream, in which case the frame must be
// dropped.
func (h *Hub) MediaReceivers(sender *Conn) (senderID string, active bool, targets []*Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sender.state != StateJoined || !sender.mediaActive {
		return "", false, nil
	}
	for _, peer := range h.conns {
		if peer == sender || !peer.mediaActive {
			continue
		}
		targets = append(targets, peer)
	}
	return sender.participant.ID, true, targets
}

// joinedSnapshotLocked returns every joined connection except skip.
func (h *Hub) joinedSnapshotLocked(skip *Conn) []*Conn {
	out := make([]*Conn, 0, len(h.conns))
	for _, peer := range h.conns {
		if peer == skip {
			continue
		}
		out = append(out, peer)
	}
	return out
}

func broadcast(targets []*Conn, msg any) {
	for _, c := range targets {
		c.TrySendJSON(msg)
	}
}
