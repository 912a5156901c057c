package metrics

import "sync"

// Counter names used across the server.
const (
	AuthFailed          = "auth_failed"
	InsecureRejected    = "insecure_transport_rejected"
	RoomFull            = "room_full"
	ProtocolErrors      = "protocol_errors"
	MediaFramesRelayed  = "media_frames_relayed"
	MediaFrameOversized = "media_frame_oversized"
	MediaFrameSpoofed   = "media_frame_unauthorized"
	MediaFrameBad       = "media_frame_undecodable"
	SendQueueDropped    = "send_queue_dropped"
	RateLimited         = "rate_limited"
)

// Metrics is a minimal, concurrency-safe counter registry. It keeps
// enforcement logic testable without committing to a metrics backend; the
// Prometheus handler exposes the counters for scraping.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{m: make(map[string]uint64)}
}

func (m *Metrics) Inc(name string) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
