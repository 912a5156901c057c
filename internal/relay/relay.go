// Package relay fans encoded media chunks out to the other participants of
// the room. It is a byte-transparent forwarder: chunks are framed with the
// sender's id and written as-is, never inspected, buffered, or fragmented.
package relay

import (
	"log/slog"

	"github.com/parleyhq/parley/internal/mediaproto"
	"github.com/parleyhq/parley/internal/metrics"
)

// Sink is the non-blocking write side of a receiving connection. A false
// return means the frame was dropped; the relay never retries.
type Sink interface {
	TrySendBinary(data []byte) bool
}

type Relay struct {
	log           *slog.Logger
	m             *metrics.Metrics
	maxFrameBytes int64
}

func New(maxFrameBytes int64, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		log:           logger,
		m:             m,
		maxFrameBytes: maxFrameBytes,
	}
}

// Forward frames payload as coming from senderID and writes it to every
// target. Delivery is best-effort: frames that cannot be encoded or exceed
// the frame size limit are dropped with a log entry, and targets that are
// not write-ready are skipped silently. Nothing is ever surfaced to the
// sender.
func (r *Relay) Forward(senderID string, payload []byte, targets []Sink) {
	frame, err := mediaproto.Encode(senderID, payload)
	if err != nil {
		r.m.Inc(metrics.MediaFrameBad)
		r.log.Debug("dropped unencodable media frame", "sender", senderID, "err", err)
		return
	}
	if int64(len(frame)) > r.maxFrameBytes {
		r.m.Inc(metrics.MediaFrameOversized)
		r.log.Warn("dropped oversized media frame",
			"sender", senderID, "frame_bytes", len(frame), "limit", r.maxFrameBytes)
		return
	}

	for _, t := range targets {
		t.TrySendBinary(frame)
	}
	r.m.Inc(metrics.MediaFramesRelayed)
}
