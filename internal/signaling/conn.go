package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/internal/metrics"
	"github.com/parleyhq/parley/internal/room"
)

const wsWriteWait = 1 * time.Second

// Outbound frames queued per connection. A full queue means the peer is not
// keeping up; further frames are dropped rather than blocking the room.
const sendQueueLen = 64

// State is the per-connection lifecycle.
type State int

const (
	StatePending State = iota
	StateJoined
	StateClosed
)

type outboundFrame struct {
	messageType int
	data        []byte
}

// Conn wraps one WebSocket connection. All writes go through a single
// writer goroutine fed by a bounded queue, so any goroutine may call the
// TrySend methods without blocking or interleaving frames.
type Conn struct {
	ws  *websocket.Conn
	log *slog.Logger
	m   *metrics.Metrics

	sendq     chan outboundFrame
	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool

	// Mutated only by hub methods under the hub mutex. The connection's own
	// reader goroutine may read them freely because it is also the only
	// goroutine that triggers those hub methods.
	state         State
	participant   room.Participant
	mediaActive   bool
	mediaMimeType string
}

func newConn(ws *websocket.Conn, logger *slog.Logger, m *metrics.Metrics) *Conn {
	return &Conn{
		ws:    ws,
		log:   logger,
		m:     m,
		sendq: make(chan outboundFrame, sendQueueLen),
		done:  make(chan struct{}),
		state: StatePending,
	}
}

// TrySendJSON queues a text frame. It never blocks; frames to a slow or
// closed connection are dropped.
func (c *Conn) TrySendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound message", "err", err)
		return false
	}
	return c.trySend(outboundFrame{messageType: websocket.TextMessage, data: data})
}

// TrySendBinary queues a binary frame, with the same non-blocking drop
// semantics as TrySendJSON.
func (c *Conn) TrySendBinary(data []byte) bool {
	return c.trySend(outboundFrame{messageType: websocket.BinaryMessage, data: data})
}

func (c *Conn) trySend(frame outboundFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendq <- frame:
		return true
	default:
		c.m.Inc(metrics.SendQueueDropped)
		return false
	}
}

// writeLoop drains the send queue and keeps the transport alive with pings.
// It exits when the connection shuts down or a write fails.
func (c *Conn) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.sendq:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(frame.messageType, frame.data); err != nil {
				c.shutdown()
				return
			}
			// A queued close frame ends the connection after everything
			// ahead of it in the queue has been flushed.
			if frame.messageType == websocket.CloseMessage {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// closeWith queues a close frame with the given code. Going through the
// send queue keeps FIFO order, so a preceding error reply reaches the peer
// before the close; the writer goroutine tears the connection down once
// the frame is flushed.
func (c *Conn) closeWith(code int, reason string) {
	c.closing.Store(true)
	frame := outboundFrame{
		messageType: websocket.CloseMessage,
		data:        websocket.FormatCloseMessage(code, reason),
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.sendq <- frame:
	default:
		// Queue full: the peer is not draining, give up on a graceful close.
		c.shutdown()
	}
}

// closeRequested reports whether a graceful close is in flight, in which
// case teardown belongs to the writer goroutine.
func (c *Conn) closeRequested() bool {
	return c.closing.Load()
}

// shutdown tears the connection down without a close frame, for paths where
// the transport already failed.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Done is closed when the connection is shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
