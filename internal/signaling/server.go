// Package signaling implements the WebSocket side of the call service: the
// per-connection dispatch state machine, the room hub, and the keepalive
// generator.
package signaling

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/metrics"
	"github.com/parleyhq/parley/internal/ratelimit"
	"github.com/parleyhq/parley/internal/relay"
	"github.com/parleyhq/parley/internal/turnrest"
)

// Server upgrades gated requests to WebSocket connections and drives one
// dispatch loop per connection.
type Server struct {
	cfg   config.Config
	log   *slog.Logger
	m     *metrics.Metrics
	gate  *gate.Gate
	hub   *Hub
	relay *relay.Relay
	turn  *turnrest.Generator // nil when TURN REST is not configured

	clock    ratelimit.Clock
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, g *gate.Gate, hub *Hub, mediaRelay *relay.Relay, turn *turnrest.Generator) *Server {
	return &Server{
		cfg:   cfg,
		log:   logger,
		m:     m,
		gate:  g,
		hub:   hub,
		relay: mediaRelay,
		turn:  turn,
		clock: ratelimit.RealClock{},
		upgrader: websocket.Upgrader{
			// The reverse proxy in front of this server enforces origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, gateErr := s.gate.Check(w, r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Gate failures still complete the upgrade so browser clients can
	// observe the 1008 close code; a plain 4xx is invisible to them.
	if gateErr != nil {
		reason := "unauthorized"
		if errors.Is(gateErr, gate.ErrInsecureTransport) {
			reason = "secure transport required"
		}
		writeClose(ws, websocket.ClosePolicyViolation, reason)
		_ = ws.Close()
		return
	}

	c := newConn(ws, s.log, s.m)
	go c.writeLoop(s.cfg.WSPingInterval)
	go runKeepalive(c, KeepaliveConfig{
		MinDelay: s.cfg.KeepaliveMinDelay,
		MaxDelay: s.cfg.KeepaliveMaxDelay,
		MinBytes: s.cfg.KeepaliveMinBytes,
		MaxBytes: s.cfg.KeepaliveMaxBytes,
	})

	s.log.Debug("connection accepted",
		"remote_addr", r.RemoteAddr, "authenticated", identity.Authenticated)
	s.readLoop(c)
}

func (s *Server) readLoop(c *Conn) {
	defer func() {
		s.hub.Disconnect(c)
		// After a graceful close the writer goroutine owns teardown, so it
		// can flush frames queued ahead of the close.
		if !c.closeRequested() {
			c.shutdown()
		}
	}()

	c.ws.SetReadLimit(s.cfg.MaxMessageBytes)
	resetDeadline := func() {
		_ = c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	}
	c.ws.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})

	limiter := ratelimit.NewTokenBucket(s.clock,
		int64(s.cfg.MaxMessagesPerSecond), int64(s.cfg.MaxMessagesPerSecond))

	for {
		resetDeadline()
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				c.closeWith(websocket.CloseGoingAway, "idle timeout")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			// Only signaling traffic is rate limited; media frames are
			// bounded by the relay's own drop rules.
			if !limiter.Allow() {
				s.m.Inc(metrics.RateLimited)
				c.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
				return
			}
			if closed := s.dispatch(c, data); closed {
				return
			}
		case websocket.BinaryMessage:
			s.relayFrame(c, data)
		}
	}
}

// dispatch handles one text frame. It returns true when the connection was
// closed and the read loop should stop.
func (s *Server) dispatch(c *Conn, data []byte) (closed bool) {
	msg, err := parseInbound(data)
	if err != nil {
		s.replyProtocolError(c, err)
		return false
	}

	switch msg.Type {
	case messageTypeJoin:
		return s.handleJoin(c, msg.Name)
	case messageTypeSignal:
		s.handleSignal(c, msg.To, msg.Data)
	case messageTypeMediaStart:
		s.handleMediaStart(c, msg.MimeType)
	case messageTypeMediaStop:
		s.handleMediaStop(c)
	}
	return false
}

func (s *Server) handleJoin(c *Conn, rawName string) (closed bool) {
	name := normalizeName(rawName)
	if name == "" {
		s.replyError(c, errTextNameRequired)
		return false
	}

	res, err := s.hub.Join(c, name)
	switch {
	case errors.Is(err, ErrRoomFull):
		s.replyError(c, errTextRoomFull)
		c.closeWith(websocket.ClosePolicyViolation, errTextRoomFull)
		return true
	case errors.Is(err, ErrAlreadyJoined):
		s.replyError(c, errTextAlreadyJoined)
		return false
	case err != nil:
		c.closeWith(websocket.CloseInternalServerErr, "join failed")
		return true
	}

	iceServers := s.cfg.ICEServers
	if s.turn != nil {
		if creds, err := s.turn.Generate(res.Self.ID); err == nil {
			iceServers = turnrest.Decorate(iceServers, creds)
		} else {
			s.log.Error("generate turn credentials", "err", err)
		}
	}
	if iceServers == nil {
		iceServers = []webrtc.ICEServer{}
	}

	c.TrySendJSON(welcomeMessage{
		Type:               messageTypeWelcome,
		ID:                 res.Self.ID,
		Participants:       res.Others,
		ICEServers:         iceServers,
		ICETransportPolicy: s.cfg.ICETransportPolicy.String(),
		MediaTransport:     string(s.cfg.MediaTransport),
		MediaPeers:         res.MediaPeers,
	})
	return false
}

func (s *Server) handleSignal(c *Conn, to string, data []byte) {
	// Negotiation only happens in webrtc mode; in ws mode the message is a
	// silent no-op so mixed-version clients do not get error spam.
	if s.cfg.MediaTransport != config.MediaTransportWebRTC {
		return
	}

	switch err := s.hub.ForwardSignal(c, to, data); {
	case errors.Is(err, ErrNotJoined):
		s.replyError(c, errTextNotJoined)
	case errors.Is(err, ErrUnknownPeer):
		s.replyError(c, errTextUnknownPeer)
	}
}

func (s *Server) handleMediaStart(c *Conn, mimeType string) {
	if s.cfg.MediaTransport != config.MediaTransportWS {
		s.replyError(c, errTextRelayDisabled)
		return
	}
	if !validMimeType(mimeType) {
		s.replyError(c, errTextInvalidMime)
		return
	}
	if err := s.hub.MediaStart(c, mimeType); errors.Is(err, ErrNotJoined) {
		s.replyError(c, errTextNotJoined)
	}
}

func (s *Server) handleMediaStop(c *Conn) {
	if s.cfg.MediaTransport != config.MediaTransportWS {
		s.replyError(c, errTextRelayDisabled)
		return
	}
	if err := s.hub.MediaStop(c); errors.Is(err, ErrNotJoined) {
		s.replyError(c, errTextNotJoined)
	}
}

// relayFrame forwards one inbound binary frame. Frames from connections
// without an active stream are dropped unconditionally so a client cannot
// inject media attributed to someone else.
func (s *Server) relayFrame(c *Conn, payload []byte) {
	senderID, active, targets := s.hub.MediaReceivers(c)
	if !active {
		s.m.Inc(metrics.MediaFrameSpoofed)
		s.log.Debug("dropped media frame from inactive sender")
		return
	}

	sinks := make([]relay.Sink, len(targets))
	for i, t := range targets {
		sinks[i] = t
	}
	s.relay.Forward(senderID, payload, sinks)
}

func (s *Server) replyProtocolError(c *Conn, err error) {
	s.m.Inc(metrics.ProtocolErrors)
	var perr *protocolError
	if errors.As(err, &perr) {
		c.TrySendJSON(newErrorMessage(perr.text))
		return
	}
	c.TrySendJSON(newErrorMessage(errTextInvalidJSON))
}

func (s *Server) replyError(c *Conn, text string) {
	s.m.Inc(metrics.ProtocolErrors)
	c.TrySendJSON(newErrorMessage(text))
}

func writeClose(ws *websocket.Conn, code int, reason string) {
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
