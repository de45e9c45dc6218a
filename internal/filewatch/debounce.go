package filewatch

import (
	"sync"
	"time"
)

// debouncer coalesces rapid file change events on the same path within a
// time window, so a single editor save that touches a file ten times in a
// row produces one push in.
type debouncer struct {
	window  time.Duration
	timers  map[string]*time.Timer
	mu      sync.Mutex
	output  chan string
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
		output: make(chan string, 256),
	}
}

// trigger registers a change for path, resetting any timer already pending
// for it rather than stacking a second one.
func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, exists := d.timers[path]; exists {
		timer.Reset(d.window)
		return
	}

	d.timers[path] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.timers, path)
		if d.stopped {
			return
		}
		d.output <- path
	})
}

func (d *debouncer) out() <-chan string {
	return d.output
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
	close(d.output)
}
