package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAllowConsumesBurstThenBlocks(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 3, 1)

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("Allow #%d: got false, want true", i)
		}
	}
	if b.Allow() {
		t.Fatal("Allow after burst: got true, want false")
	}
}

func TestRefillOverTime(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 2, 2)

	if !b.Allow() || !b.Allow() {
		t.Fatal("initial burst failed")
	}
	if b.Allow() {
		t.Fatal("bucket should be empty")
	}

	// 2 tokens/sec: after 500ms exactly one token is available.
	clock.advance(500 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("Allow after 500ms: got false, want true")
	}
	if b.Allow() {
		t.Fatal("second Allow after 500ms: got true, want false")
	}
}

func TestRefillClampsAtCapacity(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 2, 10)

	clock.advance(time.Hour)
	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("Allow #%d after long idle: got false, want true", i)
		}
	}
	if b.Allow() {
		t.Fatal("capacity not clamped: third Allow succeeded")
	}
}

func TestTimeGoingBackwardsDoesNotRefill(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewTokenBucket(clock, 1, 1)

	if !b.Allow() {
		t.Fatal("initial Allow failed")
	}
	clock.now = clock.now.Add(-time.Minute)
	if b.Allow() {
		t.Fatal("Allow after clock regression: got true, want false")
	}
}
