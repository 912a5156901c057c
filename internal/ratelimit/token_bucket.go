// Package ratelimit provides the token bucket used to bound inbound
// signaling message rates per connection.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// One token is 1e9 nano-tokens, so a fill rate of X tokens/sec adds X
// nano-tokens per elapsed nanosecond. Fixed point avoids float drift under
// sustained load.
const nanoTokensPerToken = int64(time.Second)

const maxInt64 = int64(^uint64(0) >> 1)

// TokenBucket refills at an integer rate (tokens/sec) up to a fixed
// capacity. A zero capacity or rate disables refill, making every Allow
// after the initial burst fail.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	capacityTokens int64
	fillRate       int64

	availableNano int64
	last          time.Time
}

func NewTokenBucket(clock Clock, capacityTokens, fillRate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	if capacityTokens < 0 {
		capacityTokens = 0
	}
	if fillRate < 0 {
		fillRate = 0
	}
	return &TokenBucket{
		clock:          clock,
		capacityTokens: capacityTokens,
		fillRate:       fillRate,
		availableNano:  tokensToNano(capacityTokens),
		last:           clock.Now(),
	}
}

// Allow consumes one token if available.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.availableNano < nanoTokensPerToken {
		return false
	}
	b.availableNano -= nanoTokensPerToken
	return true
}

func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	if now.Before(b.last) {
		// Time went backwards; skip the refill and move the reference point.
		b.last = now
		return
	}
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.last = now

	if b.fillRate <= 0 || b.capacityTokens <= 0 {
		return
	}

	capacityNano := tokensToNano(b.capacityTokens)
	if b.availableNano >= capacityNano {
		b.availableNano = capacityNano
		return
	}

	// Clamp instead of multiplying when enough time has passed to fill the
	// bucket, so elapsed*fillRate cannot overflow.
	need := capacityNano - b.availableNano
	if elapsed.Nanoseconds() >= need/b.fillRate {
		b.availableNano = capacityNano
		return
	}

	b.availableNano += elapsed.Nanoseconds() * b.fillRate
	if b.availableNano > capacityNano {
		b.availableNano = capacityNano
	}
}

func tokensToNano(tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}
	if tokens > maxInt64/nanoTokensPerToken {
		return maxInt64
	}
	return tokens * nanoTokensPerToken
}
