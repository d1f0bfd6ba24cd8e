package relay

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is the cadence of presence emission while an
// exchange is in flight.
const DefaultHeartbeatInterval = 3000 * time.Millisecond

// PresenceKind is the transport-level "agent is working" indicator.
type PresenceKind string

const (
	PresenceTyping    PresenceKind = "typing"
	PresenceRecording PresenceKind = "recording-voice"
)

// PresenceKindFor picks the presence signal for a user. The decision is
// made once, at heartbeat start, and never re-evaluated mid-flight.
func PresenceKindFor(voiceEnabled bool) PresenceKind {
	if voiceEnabled {
		return PresenceRecording
	}
	return PresenceTyping
}

type heartbeatState int

const (
	heartbeatIdle heartbeatState = iota
	heartbeatRunning
	heartbeatCancelled
)

// Heartbeat runs an action repeatedly on a background goroutine until
// cancelled. The action keeps firing even while the owning exchange is
// blocked on a backend call. Cancel is synchronous: once it returns, no
// further tick can occur.
type Heartbeat struct {
	mu    sync.Mutex
	state heartbeatState
	stop  chan struct{}
	done  chan struct{}

	// newTicker is swapped for a fake clock in tests.
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start transitions Idle to Running: action fires once immediately and
// then on every interval tick. Starting a heartbeat that already ran is an
// error; each exchange owns exactly one.
func (h *Heartbeat) Start(interval time.Duration, action func()) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if action == nil {
		return fmt.Errorf("action is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != heartbeatIdle {
		return fmt.Errorf("heartbeat already started")
	}
	h.state = heartbeatRunning
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	ticks, stopTicker := h.newTicker(interval)
	go func() {
		defer close(h.done)
		defer stopTicker()
		action()
		for {
			select {
			case <-h.stop:
				return
			case <-ticks:
				// Re-check stop so a tick racing Cancel never fires the
				// action after Cancel returned.
				select {
				case <-h.stop:
					return
				default:
				}
				action()
			}
		}
	}()
	return nil
}

// Cancel transitions Running to Cancelled and waits for the background
// goroutine to exit. Idempotent; cancelling an Idle heartbeat just marks
// it Cancelled.
func (h *Heartbeat) Cancel() {
	h.mu.Lock()
	if h.state != heartbeatRunning {
		h.state = heartbeatCancelled
		h.mu.Unlock()
		return
	}
	h.state = heartbeatCancelled
	stop, done := h.stop, h.done
	h.mu.Unlock()

	close(stop)
	<-done
}
