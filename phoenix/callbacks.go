package phoenix

import "sync"

// namedCallback pairs a subscription ref with the callback it was
// registered under, so Socket.Off can remove by ref across whichever of
// the four tables it lives in.
type namedCallback[T any] struct {
	ref string
	cb  T
}

// callbackTable is the socket's synchronized, ref-keyed callback
// container, used for all four of onOpen/onClose/onError/onMessage. Same
// read-copy-update discipline as bindingList: snapshot is safe to range
// over even if a callback un-subscribes itself mid-dispatch.
type callbackTable[T any] struct {
	mu    sync.Mutex
	items []namedCallback[T]
}

func (t *callbackTable[T]) add(ref string, cb T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items[:len(t.items):len(t.items)], namedCallback[T]{ref: ref, cb: cb})
}

// remove drops every entry whose ref is in refs.
func (t *callbackTable[T]) remove(refs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	match := func(ref string) bool {
		for _, r := range refs {
			if r == ref {
				return true
			}
		}
		return false
	}

	kept := t.items[:0:0]
	for _, item := range t.items {
		if match(item.ref) {
			continue
		}
		kept = append(kept, item)
	}
	t.items = kept
}

func (t *callbackTable[T]) snapshot() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, len(t.items))
	for i, item := range t.items {
		out[i] = item.cb
	}
	return out
}

func (t *callbackTable[T]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
}
