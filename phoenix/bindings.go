package phoenix

import "sync"

// binding is one (event, callback) subscription on a Channel.
type binding struct {
	event    string
	ref      int
	callback func(Message)
}

// bindingList is a read-copy-update synchronized container: snapshot hands
// back an immutable slice safe to range over even if a callback running
// on that very snapshot calls back into add/remove. This is required
// because Channel.On/Off may legitimately be called from inside a
// dispatched callback.
type bindingList struct {
	mu      sync.Mutex
	items   []binding
	nextRef int
}

func (l *bindingList) add(event string, cb func(Message)) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextRef++
	ref := l.nextRef
	l.items = append(l.items[:len(l.items):len(l.items)], binding{event: event, ref: ref, callback: cb})
	return ref
}

// remove drops every binding matching event and, if ref >= 0, also
// matching ref. ref < 0 means "match any ref for this event".
func (l *bindingList) remove(event string, ref int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.items[:0:0]
	for _, b := range l.items {
		if b.event == event && (ref < 0 || b.ref == ref) {
			continue
		}
		kept = append(kept, b)
	}
	l.items = kept
}

// snapshot returns the current bindings as an immutable slice. Callers
// must not mutate the returned slice.
func (l *bindingList) snapshot() []binding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}
