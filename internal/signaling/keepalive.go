package signaling

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Keepalive padding keeps intermediary proxies from idling out quiet
// connections, and the randomized size and interval avoid a fixed traffic
// fingerprint. Bounds are configured; defaults keep steady-state output
// well under 100 kB/s.

const entropyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// KeepaliveConfig bounds the randomized delay and padding size.
type KeepaliveConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	MinBytes int
	MaxBytes int
}

// runKeepalive emits entropy messages on c until the connection shuts
// down. It runs as its own goroutine, started as soon as the gate passes,
// and stops exactly once via the connection's done channel.
func runKeepalive(c *Conn, cfg KeepaliveConfig) {
	for {
		timer := time.NewTimer(randomDelay(cfg.MinDelay, cfg.MaxDelay))
		select {
		case <-c.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n := randomInt(cfg.MinBytes, cfg.MaxBytes)
		c.TrySendJSON(entropyMessage{
			Type:  messageTypeEntropy,
			Bytes: n,
			Data:  randomPadding(n),
		})
	}
}

func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(randomInt64(int64(max-min)+1))
}

// randomInt draws uniformly from [min, max].
func randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(randomInt64(int64(max-min)+1))
}

// randomInt64 draws uniformly from [0, n). It prefers the cryptographic
// RNG and falls back to math/rand only if that fails, keeping the padding
// unpredictable under normal operation.
func randomInt64(n int64) int64 {
	if n <= 1 {
		return 0
	}
	// Rejection sampling to avoid modulo bias.
	limit := uint64(1<<63-1) / uint64(n) * uint64(n)
	var buf [8]byte
	for i := 0; i < 4; i++ {
		if _, err := crand.Read(buf[:]); err != nil {
			break
		}
		v := binary.BigEndian.Uint64(buf[:]) & (1<<63 - 1)
		if v < limit {
			return int64(v % uint64(n))
		}
	}
	return rand.Int63n(n)
}

func randomPadding(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(rand.Intn(256))
		}
	}
	for i := range buf {
		buf[i] = entropyCharset[int(buf[i])%len(entropyCharset)]
	}
	return string(buf)
}
