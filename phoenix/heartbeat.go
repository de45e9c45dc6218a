package phoenix

import (
	"sync"
	"time"
)

// HeartbeatTimer is a repeating timer bound to its own goroutine, separate
// from the socket's main dispatch path, so a stalled inbound-message
// handler doesn't also stall liveness detection. Two HeartbeatTimers are
// never "equal" in the value sense; identity is pointer identity.
type HeartbeatTimer struct {
	interval time.Duration

	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	handler func()
	valid   bool
}

// NewHeartbeatTimer creates a HeartbeatTimer with the given repeat interval.
// It does nothing until Start is called.
func NewHeartbeatTimer(interval time.Duration) *HeartbeatTimer {
	return &HeartbeatTimer{interval: interval}
}

// Start begins firing handler every interval on a dedicated goroutine. A
// prior running timer is stopped first.
func (h *HeartbeatTimer) Start(handler func()) {
	h.mu.Lock()
	if h.ticker != nil {
		h.stopLocked()
	}
	h.handler = handler
	h.ticker = time.NewTicker(h.interval)
	h.stop = make(chan struct{})
	h.valid = true
	ticker := h.ticker
	stop := h.stop
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				h.mu.Lock()
				fn := h.handler
				h.mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the repeating timer. Safe to call even if never started.
func (h *HeartbeatTimer) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *HeartbeatTimer) stopLocked() {
	if h.ticker != nil {
		h.ticker.Stop()
		close(h.stop)
		h.ticker = nil
		h.stop = nil
	}
	h.valid = false
}

// IsValid reports whether the timer is currently running.
func (h *HeartbeatTimer) IsValid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.valid
}

// Fire invokes the handler directly, bypassing the ticker. Used by tests
// that want deterministic control over heartbeat timing instead of
// sleeping for real intervals.
func (h *HeartbeatTimer) Fire() {
	h.mu.Lock()
	fn := h.handler
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}
