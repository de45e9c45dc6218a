package phoenix

import (
	"sync"
	"time"
)

// BackoffFunc computes the delay before the n-th retry (n is 1-indexed: the
// first scheduled fire passes tries=1). Implementations index into a fixed
// table and clamp to a terminal value once the table is exhausted.
type BackoffFunc func(tries int) time.Duration

// reconnectBackoffTable is the socket's schedule for reconnect attempts.
var reconnectBackoffTable = []time.Duration{
	10 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	150 * time.Millisecond,
	200 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

const reconnectBackoffCeiling = 5 * time.Second

// rejoinBackoffTable is each channel's schedule for rejoin attempts.
var rejoinBackoffTable = []time.Duration{
	1 * time.Second,
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
}

const rejoinBackoffCeiling = 10 * time.Second

// ReconnectAfter is the socket's default BackoffFunc.
func ReconnectAfter(tries int) time.Duration {
	return backoffLookup(reconnectBackoffTable, reconnectBackoffCeiling, tries)
}

// RejoinAfter is each channel's default BackoffFunc.
func RejoinAfter(tries int) time.Duration {
	return backoffLookup(rejoinBackoffTable, rejoinBackoffCeiling, tries)
}

// backoffLookup indexes a stepped table with tries=1 meaning "first retry".
// The tables carry a duplicated leading entry for exactly this reason: a
// plain 0-indexed lookup (idx == tries) lands on the right delay without an
// off-by-one adjustment. tries<=0 clamps to index 0, and the ceiling is
// returned once tries reaches the table length.
func backoffLookup(table []time.Duration, ceiling time.Duration, tries int) time.Duration {
	idx := tries
	if idx < 0 {
		idx = 0
	}
	if idx >= len(table) {
		return ceiling
	}
	return table[idx]
}

// TimeoutTimer is a one-shot timer with an attempt counter, used by both
// the socket's reconnect loop and each channel's rejoin loop. It never
// reschedules itself; the fired callback decides whether to call
// ScheduleTimeout again.
type TimeoutTimer struct {
	calculate BackoffFunc
	callback  func()

	mu    sync.Mutex
	timer *time.Timer
	tries int
}

// NewTimeoutTimer creates a TimeoutTimer that invokes callback on fire and
// uses calculate to compute each successive delay.
func NewTimeoutTimer(calculate BackoffFunc, callback func()) *TimeoutTimer {
	return &TimeoutTimer{calculate: calculate, callback: callback}
}

// ScheduleTimeout cancels any pending fire, computes the next delay from
// the current attempt count, and arms a new timer.
func (t *TimeoutTimer) ScheduleTimeout() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.tries++
	delay := t.calculate(t.tries)
	t.timer = time.AfterFunc(delay, t.callback)
}

// Reset cancels any pending fire and zeroes the attempt counter.
func (t *TimeoutTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.tries = 0
}

// Tries reports the current attempt count, mostly useful for tests that
// assert on backoff progression.
func (t *TimeoutTimer) Tries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tries
}
