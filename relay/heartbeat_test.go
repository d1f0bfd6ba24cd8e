package relay

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock hands the heartbeat a tick channel the test controls.
type fakeClock struct {
	ticks   chan time.Time
	stopped atomic.Bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{ticks: make(chan time.Time)}
}

func (c *fakeClock) newTicker(d time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() { c.stopped.Store(true) }
}

// tick delivers one tick; false when the heartbeat is no longer draining
// the channel.
func (c *fakeClock) tick() bool {
	select {
	case c.ticks <- time.Now():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func newTestHeartbeat(clock *fakeClock) *Heartbeat {
	h := NewHeartbeat()
	h.newTicker = clock.newTicker
	return h
}

func TestHeartbeatFiresOnTicks(t *testing.T) {
	clock := newFakeClock()
	h := newTestHeartbeat(clock)
	fired := make(chan struct{}, 16)

	if err := h.Start(time.Second, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFired := func() {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("action did not fire")
		}
	}
	// Immediate fire on start, then one per delivered tick.
	waitFired()
	for i := 0; i < 3; i++ {
		if !clock.tick() {
			t.Fatalf("tick %d not consumed", i)
		}
		waitFired()
	}
	h.Cancel()

	if len(fired) != 0 {
		t.Fatalf("action fired %d extra times", len(fired))
	}
}

func TestHeartbeatNoTicksAfterCancelReturns(t *testing.T) {
	clock := newFakeClock()
	h := newTestHeartbeat(clock)
	var calls atomic.Int64

	if err := h.Start(time.Second, func() { calls.Add(1) }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.Cancel()
	before := calls.Load()

	// Advance the clock well past several intervals; nothing may fire.
	for i := 0; i < 5; i++ {
		clock.tick()
	}
	if got := calls.Load(); got != before {
		t.Fatalf("action fired %d additional times after Cancel", got-before)
	}
	if !clock.stopped.Load() {
		t.Fatalf("underlying ticker not stopped")
	}
}

func TestHeartbeatCancelIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	h := newTestHeartbeat(clock)

	if err := h.Start(time.Second, func() {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.Cancel()
	h.Cancel() // must not fault
}

func TestHeartbeatCancelBeforeStart(t *testing.T) {
	h := NewHeartbeat()
	h.Cancel()

	// A cancelled heartbeat cannot be restarted.
	if err := h.Start(time.Second, func() {}); err == nil {
		t.Fatalf("Start() after Cancel = nil error, want failure")
	}
}

func TestHeartbeatDoubleStart(t *testing.T) {
	clock := newFakeClock()
	h := newTestHeartbeat(clock)
	defer h.Cancel()

	if err := h.Start(time.Second, func() {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := h.Start(time.Second, func() {}); err == nil {
		t.Fatalf("second Start() = nil error, want failure")
	}
}

func TestPresenceKindFor(t *testing.T) {
	if got := PresenceKindFor(false); got != PresenceTyping {
		t.Fatalf("PresenceKindFor(false) = %q, want typing", got)
	}
	if got := PresenceKindFor(true); got != PresenceRecording {
		t.Fatalf("PresenceKindFor(true) = %q, want recording-voice", got)
	}
}
