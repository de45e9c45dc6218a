package phoenix

import (
	"sync"

	"github.com/eapache/queue"
)

// sendBufferEntry pairs an optional wire ref with the closure that
// performs the actual transport write. The ref is only present so a
// channel that errors out mid-join can cancel its own buffered phx_join
// (see Socket.removeFromSendBuffer); entries pushed without a ref (e.g.
// heartbeats) can never be targeted for removal.
type sendBufferEntry struct {
	ref  string
	send func()
}

// sendBuffer is the socket's FIFO of pending sends, populated whenever a
// push happens while the transport isn't open and drained in order once it
// is. Backed by the ring-buffer queue the wider example pack uses for its
// own FIFO task dispatch, rather than a bare slice, so repeated
// drain/append cycles across reconnects don't make the backing array grow
// unbounded.
type sendBuffer struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newSendBuffer() *sendBuffer {
	return &sendBuffer{q: queue.New()}
}

func (b *sendBuffer) push(ref string, send func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.q.Add(sendBufferEntry{ref: ref, send: send})
}

func (b *sendBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}

// drain invokes every buffered send closure in FIFO order and empties the
// buffer. Per SPEC_FULL.md §3, a closure that panics is not this buffer's
// concern to guard against; closures here are never expected to panic
// since they only perform a transport write.
func (b *sendBuffer) drain() {
	b.mu.Lock()
	pending := make([]sendBufferEntry, 0, b.q.Length())
	for b.q.Length() > 0 {
		pending = append(pending, b.q.Peek().(sendBufferEntry))
		b.q.Remove()
	}
	b.mu.Unlock()

	for _, entry := range pending {
		entry.send()
	}
}

// removeByRef drops every buffered entry whose ref matches, preserving the
// relative order of what remains. Used when a channel errors out during
// join and needs to cancel its own buffered phx_join before it ever reaches
// the wire.
func (b *sendBuffer) removeByRef(ref string) {
	if ref == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]sendBufferEntry, 0, b.q.Length())
	for b.q.Length() > 0 {
		entry := b.q.Peek().(sendBufferEntry)
		b.q.Remove()
		if entry.ref != ref {
			kept = append(kept, entry)
		}
	}
	for _, entry := range kept {
		b.q.Add(entry)
	}
}
