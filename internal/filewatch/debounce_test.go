package filewatch

import (
	"testing"
	"time"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	for i := 0; i < 5; i++ {
		d.trigger("a.txt")
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case path := <-d.out():
		if path != "a.txt" {
			t.Fatalf("path = %q, want a.txt", path)
		}
	case <-time.After(time.Second):
		t.Fatal("expected exactly one debounced event")
	}

	select {
	case path := <-d.out():
		t.Fatalf("unexpected second event for %q", path)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDebouncerTracksDistinctPathsIndependently(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	defer d.stop()

	d.trigger("a.txt")
	d.trigger("b.txt")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case path := <-d.out():
			seen[path] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for both paths")
		}
	}
	if !seen["a.txt"] || !seen["b.txt"] {
		t.Fatalf("seen = %v, want both a.txt and b.txt", seen)
	}
}

func TestDebouncerStopSuppressesPendingEvents(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.trigger("a.txt")
	d.stop()

	select {
	case path, ok := <-d.out():
		if ok {
			t.Fatalf("expected no event after stop, got %q", path)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("expected output channel to be closed after stop")
	}
}
