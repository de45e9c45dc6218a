package phoenix

import (
	"sync"
	"time"
)

// receiveHook is one (status, callback) pair registered on a Push via
// Receive. Multiple hooks per status are allowed and fire in the order
// they were registered.
type receiveHook struct {
	status   string
	callback func(Message)
}

// Push is a single outbound event plus its pending reply hooks. It holds
// a plain (non-owning) pointer back to the Channel that created it -
// Go has no weak-reference primitive, so the "weak back-reference"
// called for in SPEC_FULL.md §9 is enforced by convention: Channel's
// push list is the only owning reference to a Push, this back-pointer is
// never stored in a second owning collection.
type Push struct {
	channel *Channel

	event   string
	payload []byte
	timeout time.Duration
	binary  bool

	mu              sync.Mutex
	ref             string
	refEvent        string
	bindingRef      int
	bound           bool
	sent            bool
	receivedMessage *Message
	hooks           []receiveHook
	timeoutTimer    *time.Timer
}

// newPush constructs a Push for event carrying already-encoded payload
// bytes. It does not send anything; callers decide between Send (when the
// channel can push immediately) and StartTimeout (when it must be
// buffered until the channel joins).
func newPush(ch *Channel, event string, payload []byte, timeout time.Duration, binary bool) *Push {
	return &Push{
		channel: ch,
		event:   event,
		payload: payload,
		timeout: timeout,
		binary:  binary,
	}
}

// Receive registers callback to fire when a reply with the given status
// arrives. If a matching reply has already been received, callback fires
// immediately, synchronously, on the calling goroutine. Returns the Push
// itself so calls can be chained: push.Receive("ok", f1).Receive("error", f2).
func (p *Push) Receive(status string, callback func(Message)) *Push {
	p.mu.Lock()
	if p.receivedMessage != nil && p.receivedMessage.Status == status {
		msg := *p.receivedMessage
		p.mu.Unlock()
		callback(msg)
		return p
	}
	p.hooks = append(p.hooks, receiveHook{status: status, callback: callback})
	p.mu.Unlock()
	return p
}

// Send assigns a fresh wire ref, arms the timeout, and hands the message
// to the socket for transport. If the push was already sent and has not
// been Reset since, Send only re-arms the timeout and sends nothing. A
// resend with a brand new ref (e.g. the permanent joinPush on rejoin)
// takes Reset followed by Send.
func (p *Push) Send() {
	p.mu.Lock()
	if p.sent {
		p.mu.Unlock()
		p.StartTimeout()
		return
	}

	ref := p.channel.socket.nextRef()
	p.ref = ref
	p.refEvent = chanReplyEvent(ref)
	p.bindingRef = p.channel.on(p.refEvent, p.onReply)
	p.bound = true
	p.sent = true
	timeout := p.timeout
	p.mu.Unlock()

	p.armTimeout(timeout)

	msg := NewMessage(p.channel.currentJoinRef(), ref, p.channel.topic, p.event, p.payload)
	p.channel.sendMessage(msg, p.binary)
}

// StartTimeout arms the timeout without sending anything, used when a
// push is buffered on the channel's pushBuffer because the channel hasn't
// joined yet.
func (p *Push) StartTimeout() {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()
	p.armTimeout(timeout)
}

func (p *Push) armTimeout(timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timeoutTimer != nil {
		p.timeoutTimer.Stop()
	}
	p.timeoutTimer = time.AfterFunc(timeout, p.onTimeout)
}

func (p *Push) cancelTimeoutLocked() {
	if p.timeoutTimer != nil {
		p.timeoutTimer.Stop()
		p.timeoutTimer = nil
	}
}

// onReply is the one-shot channel binding installed on refEvent by Send.
// It fires when the channel re-dispatches an inbound phx_reply as the
// synthetic chan_reply_<ref> event.
func (p *Push) onReply(msg Message) {
	p.deliver(msg)
}

// onTimeout synthesizes a local {status: "timeout", payload: {}} reply and
// delivers it through the exact same fan-out path a real reply would take.
func (p *Push) onTimeout() {
	p.mu.Lock()
	ref := p.ref
	joinRef := ""
	p.mu.Unlock()
	if p.channel != nil {
		joinRef = p.channel.currentJoinRef()
	}
	msg := NewReplyMessage(joinRef, ref, p.channel.topic, StatusTimeout, []byte("{}"))
	p.deliver(msg)
}

// deliver records msg, cancels the timeout, fires every hook matching its
// status, then unbinds refEvent so a late/duplicate reply from a
// misbehaving server can't deliver twice.
func (p *Push) deliver(msg Message) {
	p.mu.Lock()
	p.cancelTimeoutLocked()
	m := msg
	p.receivedMessage = &m
	hooks := make([]receiveHook, len(p.hooks))
	copy(hooks, p.hooks)
	bound := p.bound
	bindingRef := p.bindingRef
	refEvent := p.refEvent
	p.bound = false
	p.mu.Unlock()

	for _, h := range hooks {
		if h.status == msg.Status {
			h.callback(msg)
		}
	}

	if bound && p.channel != nil {
		p.channel.off(refEvent, bindingRef)
	}
}

// Reset returns the Push to its pre-send state: timeout cancelled,
// refEvent binding removed, sent flag cleared, cached reply forgotten.
// The next Send call allocates a brand new wire ref. Registered receive
// hooks are preserved, since the joinPush's ok/error/timeout hooks are
// installed once at Channel construction and must survive every rejoin.
func (p *Push) Reset() {
	p.mu.Lock()
	p.cancelTimeoutLocked()
	bound := p.bound
	bindingRef := p.bindingRef
	refEvent := p.refEvent
	p.bound = false
	p.sent = false
	p.receivedMessage = nil
	p.ref = ""
	p.refEvent = ""
	p.mu.Unlock()

	if bound && p.channel != nil {
		p.channel.off(refEvent, bindingRef)
	}
}

// Ref reports the wire ref currently assigned to this push, or "" if it
// has never been sent (or was Reset since).
func (p *Push) Ref() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

// setTimeout overrides the duration armed on the next Send/StartTimeout
// call, used by Channel.Join to apply a per-call timeout override to the
// already-constructed joinPush.
func (p *Push) setTimeout(timeout time.Duration) {
	p.mu.Lock()
	p.timeout = timeout
	p.mu.Unlock()
}
