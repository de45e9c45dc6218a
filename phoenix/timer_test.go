package phoenix

import (
	"testing"
	"time"
)

func TestBackoffLookup(t *testing.T) {
	// Mirrors the real tables' duplicated leading entry so this test can't
	// mask an indexing bug the way a plain non-duplicated table would.
	table := []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 50 * time.Millisecond}
	ceiling := 200 * time.Millisecond

	cases := []struct {
		tries int
		want  time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 10 * time.Millisecond},
		{2, 50 * time.Millisecond},
		{3, ceiling},
		{100, ceiling},
	}
	for _, c := range cases {
		if got := backoffLookup(table, ceiling, c.tries); got != c.want {
			t.Errorf("backoffLookup(tries=%d) = %v, want %v", c.tries, got, c.want)
		}
	}
}

func TestReconnectAfterMatchesTable(t *testing.T) {
	if got, want := ReconnectAfter(1), 10*time.Millisecond; got != want {
		t.Errorf("ReconnectAfter(1) = %v, want %v", got, want)
	}
	if got, want := ReconnectAfter(2), 50*time.Millisecond; got != want {
		t.Errorf("ReconnectAfter(2) = %v, want %v", got, want)
	}
	if got, want := ReconnectAfter(10), reconnectBackoffCeiling; got != want {
		t.Errorf("ReconnectAfter(10) = %v, want %v", got, want)
	}
	if got, want := ReconnectAfter(50), reconnectBackoffCeiling; got != want {
		t.Errorf("ReconnectAfter(50) = %v, want %v", got, want)
	}
}

func TestRejoinAfterMatchesTable(t *testing.T) {
	if got, want := RejoinAfter(1), 1*time.Second; got != want {
		t.Errorf("RejoinAfter(1) = %v, want %v", got, want)
	}
	if got, want := RejoinAfter(2), 2*time.Second; got != want {
		t.Errorf("RejoinAfter(2) = %v, want %v", got, want)
	}
	if got, want := RejoinAfter(4), rejoinBackoffCeiling; got != want {
		t.Errorf("RejoinAfter(4) = %v, want %v", got, want)
	}
	if got, want := RejoinAfter(50), rejoinBackoffCeiling; got != want {
		t.Errorf("RejoinAfter(50) = %v, want %v", got, want)
	}
}

func TestTimeoutTimerFiresAndCountsTries(t *testing.T) {
	fired := make(chan struct{}, 1)
	fastBackoff := func(tries int) time.Duration { return time.Millisecond }

	timer := NewTimeoutTimer(fastBackoff, func() { fired <- struct{}{} })
	if timer.Tries() != 0 {
		t.Fatalf("fresh timer Tries() = %d, want 0", timer.Tries())
	}

	timer.ScheduleTimeout()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if timer.Tries() != 1 {
		t.Fatalf("Tries() after one fire = %d, want 1", timer.Tries())
	}
}

func TestTimeoutTimerResetCancelsAndZeroes(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := NewTimeoutTimer(func(int) time.Duration { return 50 * time.Millisecond }, func() { fired <- struct{}{} })

	timer.ScheduleTimeout()
	timer.Reset()

	select {
	case <-fired:
		t.Fatal("timer fired after Reset")
	case <-time.After(100 * time.Millisecond):
	}
	if timer.Tries() != 0 {
		t.Fatalf("Tries() after Reset = %d, want 0", timer.Tries())
	}
}
