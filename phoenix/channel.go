package phoenix

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ChannelState is the five-way lifecycle state of a Channel.
type ChannelState int

const (
	StateClosed ChannelState = iota
	StateErrored
	StateJoining
	StateJoined
	StateLeaving
)

func (s ChannelState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Channel is a topic-scoped conversation multiplexed over a Socket's
// single transport. Create one with Socket.Channel, then Join it.
type Channel struct {
	socket *Socket
	topic  string

	mu         sync.Mutex
	state      ChannelState
	joinedOnce bool
	timeout    time.Duration
	pushBuffer []*Push
	onMessage  func(Message) Message

	joinPush    *Push
	bindings    *bindingList
	rejoinTimer *TimeoutTimer

	socketOpenRef  string
	socketErrorRef string
}

func newChannel(socket *Socket, topic string, params map[string]any, timeout time.Duration) *Channel {
	if params == nil {
		params = map[string]any{}
	}

	encodedParams, err := socket.codec.Encode(params)
	if err != nil {
		panic(fmt.Sprintf("phoenix: failed to encode join params for %q: %v", topic, err))
	}

	ch := &Channel{
		socket:   socket,
		topic:    topic,
		timeout:  timeout,
		bindings: &bindingList{},
	}
	ch.joinPush = newPush(ch, EventJoin, encodedParams, timeout, false)
	ch.rejoinTimer = NewTimeoutTimer(RejoinAfter, ch.rejoin)

	ch.joinPush.Receive(StatusOK, ch.onJoinOK)
	ch.joinPush.Receive(StatusError, ch.onJoinError)
	ch.joinPush.Receive(StatusTimeout, ch.onJoinTimeout)

	ch.On(EventClose, ch.onSelfClose)
	ch.On(EventError, ch.onSelfError)
	ch.On(EventReply, ch.onSelfReply)

	ch.socketOpenRef = socket.OnOpen(ch.onSocketOpen)
	ch.socketErrorRef = socket.OnError(ch.onSocketError)

	return ch
}

// Topic returns the channel's topic.
func (ch *Channel) Topic() string { return ch.topic }

// State returns the channel's current lifecycle state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

func (ch *Channel) setState(s ChannelState) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}

// IsClosed, IsErrored, IsJoined, IsJoining, IsLeaving are state predicates
// matching §6.4's "state predicates" surface.
func (ch *Channel) IsClosed() bool  { return ch.State() == StateClosed }
func (ch *Channel) IsErrored() bool { return ch.State() == StateErrored }
func (ch *Channel) IsJoined() bool  { return ch.State() == StateJoined }
func (ch *Channel) IsJoining() bool { return ch.State() == StateJoining }
func (ch *Channel) IsLeaving() bool { return ch.State() == StateLeaving }

// canPush reports whether a push on this channel can be sent immediately:
// the socket transport is open and the channel has completed its join.
func (ch *Channel) canPush() bool {
	return ch.IsJoined() && ch.socket.isConnected()
}

// currentJoinRef is defined precisely when the channel has an outstanding
// joinPush ref, matching the invariant in SPEC_FULL.md §3 directly rather
// than tracking a second redundant field.
func (ch *Channel) currentJoinRef() string {
	return ch.joinPush.Ref()
}

// Join starts the channel's join protocol, fatal if called more than once
// per Channel instance (construct a new Channel via Socket.Channel to
// rejoin a topic from scratch). Returns the joinPush so callers can attach
// ok/error/timeout hooks before the reply arrives.
func (ch *Channel) Join(timeout ...time.Duration) *Push {
	ch.mu.Lock()
	if ch.joinedOnce {
		ch.mu.Unlock()
		panic(fmt.Sprintf("phoenix: tried to join channel %q multiple times", ch.topic))
	}
	ch.joinedOnce = true
	if len(timeout) > 0 {
		ch.timeout = timeout[0]
	}
	ch.mu.Unlock()

	if len(timeout) > 0 {
		ch.joinPush.setTimeout(timeout[0])
	}

	ch.rejoin()
	return ch.joinPush
}

// rejoin drives the channel from closed/errored into joining. It first
// asks the socket to leave any other channel instance already open on the
// same topic, preserving the at-most-one-open-channel-per-topic
// invariant.
func (ch *Channel) rejoin() {
	if ch.IsLeaving() {
		return
	}
	ch.socket.leaveOpenTopic(ch.topic, ch)

	ch.setState(StateJoining)
	ch.joinPush.Reset()
	ch.joinPush.Send()
}

func (ch *Channel) onJoinOK(Message) {
	ch.setState(StateJoined)
	ch.rejoinTimer.Reset()
	ch.flushPushBuffer()
}

func (ch *Channel) onJoinError(Message) {
	ch.setState(StateErrored)
	if ch.socket.isConnected() {
		ch.rejoinTimer.ScheduleTimeout()
	}
}

func (ch *Channel) onJoinTimeout(Message) {
	ch.socket.logger().Printf("[phoenix:channel] join timeout on %q, leaving best-effort", ch.topic)
	ch.leaveBestEffort()
	ch.setState(StateErrored)
	ch.joinPush.Reset()
	if ch.socket.isConnected() {
		ch.rejoinTimer.ScheduleTimeout()
	}
}

func (ch *Channel) flushPushBuffer() {
	ch.mu.Lock()
	buffered := ch.pushBuffer
	ch.pushBuffer = nil
	ch.mu.Unlock()

	for _, p := range buffered {
		p.Send()
	}
}

// leaveBestEffort fires a phx_leave message without waiting for (or even
// expecting) a reply, used when a join itself has just timed out.
func (ch *Channel) leaveBestEffort() {
	msg := NewMessage(ch.currentJoinRef(), ch.socket.nextRef(), ch.topic, EventLeave, []byte("{}"))
	ch.sendMessage(msg, false)
}

// onSelfClose is bound to phx_close at construction: it always runs
// (ahead of any user onClose binding, since bindings fire in registration
// order) whenever the channel transitions to closed, whether from a local
// Leave or a synthetic close triggered elsewhere.
func (ch *Channel) onSelfClose(Message) {
	ch.rejoinTimer.Reset()
	ch.setState(StateClosed)
	ch.socket.remove(ch)
}

// onSelfError is bound to phx_error at construction: cancels any
// in-flight buffered phx_join (so it never reaches the wire once the
// channel already knows it's erroring), and schedules a rejoin if the
// socket is still connected.
func (ch *Channel) onSelfError(Message) {
	if ch.IsJoining() {
		ch.socket.removeFromSendBuffer(ch.joinPush.Ref())
		ch.joinPush.Reset()
	}
	ch.setState(StateErrored)
	if ch.socket.isConnected() {
		ch.rejoinTimer.ScheduleTimeout()
	}
}

// onSelfReply is bound to phx_reply at construction: it re-dispatches the
// generic reply as a synthetic chan_reply_<ref> event so the Push that
// sent it (bound to exactly that event by Push.Send) observes it.
func (ch *Channel) onSelfReply(msg Message) {
	redispatched := msg
	redispatched.Event = chanReplyEvent(msg.Ref)
	ch.trigger(redispatched)
}

func (ch *Channel) onSocketOpen() {
	ch.rejoinTimer.Reset()
	if ch.IsErrored() {
		ch.rejoin()
	}
}

func (ch *Channel) onSocketError(error) {
	ch.rejoinTimer.Reset()
}

// On registers callback for event, returning a channel-local binding ref
// that can later be passed to Off to remove just this one subscription.
func (ch *Channel) On(event string, callback func(Message)) int {
	return ch.bindings.add(event, callback)
}

// Off removes every binding for event, or (if ref is given) just the one
// matching both event and ref.
func (ch *Channel) Off(event string, ref ...int) {
	r := -1
	if len(ref) > 0 {
		r = ref[0]
	}
	ch.bindings.remove(event, r)
}

// on and off are the unexported spellings Push uses internally for its
// one-shot chan_reply_<ref> binding; kept distinct from On/Off so the
// exported surface reads as the public API and this as plumbing.
func (ch *Channel) on(event string, callback func(Message)) int {
	return ch.On(event, callback)
}

func (ch *Channel) off(event string, ref int) {
	ch.Off(event, ref)
}

// OnClose is sugar for On(phx_close, cb).
func (ch *Channel) OnClose(cb func(Message)) int { return ch.On(EventClose, cb) }

// OnError is sugar for On(phx_error, cb).
func (ch *Channel) OnError(cb func(Message)) int { return ch.On(EventError, cb) }

// OnMessage installs a per-channel transform run on every inbound message
// before binding dispatch. Passing nil restores the identity transform.
func (ch *Channel) OnMessage(transform func(Message) Message) {
	ch.mu.Lock()
	ch.onMessage = transform
	ch.mu.Unlock()
}

// trigger is the single dispatch entry point for inbound messages: the
// socket calls it for every channel that IsMember(msg). It runs the
// onMessage transform, then invokes every binding whose event matches.
func (ch *Channel) trigger(msg Message) {
	ch.mu.Lock()
	transform := ch.onMessage
	ch.mu.Unlock()

	out := msg
	if transform != nil {
		out = transform(msg)
	}

	for _, b := range ch.bindings.snapshot() {
		if b.event == out.Event {
			b.callback(out)
		}
	}
}

// IsMember reports whether msg belongs to this channel: its topic must
// match, and a lifecycle-event message carrying a join_ref from a stale
// join attempt is rejected.
func (ch *Channel) IsMember(msg Message) bool {
	if msg.Topic != ch.topic {
		return false
	}
	joinRef := ch.currentJoinRef()
	if msg.JoinRef != "" && msg.JoinRef != joinRef && IsLifecycleEvent(msg.Event) {
		return false
	}
	return true
}

// Push sends event with payload (encoded via the socket's PayloadCodec)
// immediately if the channel can push, or buffers it (arming its timeout
// immediately) until the channel joins. Fatal if Join has never been
// called.
func (ch *Channel) Push(event string, payload any, timeout ...time.Duration) *Push {
	ch.mu.Lock()
	if !ch.joinedOnce {
		ch.mu.Unlock()
		panic(fmt.Sprintf("phoenix: tried to push %q on channel %q before joining", event, ch.topic))
	}
	to := ch.timeout
	if len(timeout) > 0 {
		to = timeout[0]
	}
	ch.mu.Unlock()

	encoded, err := ch.socket.codec.Encode(payload)
	if err != nil {
		panic(fmt.Sprintf("phoenix: failed to encode payload for %q on %q: %v", event, ch.topic, err))
	}

	p := newPush(ch, event, encoded, to, false)
	ch.enqueueOrSend(p)
	return p
}

// BinaryPush sends event with raw bytes as a binary frame, bypassing the
// PayloadCodec entirely. Fatal if Join has never been called.
func (ch *Channel) BinaryPush(event string, data []byte, timeout ...time.Duration) *Push {
	ch.mu.Lock()
	if !ch.joinedOnce {
		ch.mu.Unlock()
		panic(fmt.Sprintf("phoenix: tried to binary-push %q on channel %q before joining", event, ch.topic))
	}
	to := ch.timeout
	if len(timeout) > 0 {
		to = timeout[0]
	}
	ch.mu.Unlock()

	p := newPush(ch, event, data, to, true)
	ch.enqueueOrSend(p)
	return p
}

func (ch *Channel) enqueueOrSend(p *Push) {
	if ch.canPush() {
		p.Send()
		return
	}
	ch.mu.Lock()
	ch.pushBuffer = append(ch.pushBuffer, p)
	ch.mu.Unlock()
	p.StartTimeout()
}

// Leave asks the server to leave the topic. If the channel can't push
// right now, ok fires locally without a round trip.
func (ch *Channel) Leave(timeout ...time.Duration) *Push {
	ch.rejoinTimer.Reset()

	ch.mu.Lock()
	ch.state = StateLeaving
	to := ch.timeout
	if len(timeout) > 0 {
		to = timeout[0]
	}
	ch.mu.Unlock()

	reasonPayload, _ := json.Marshal(map[string]string{"reason": "leave"})
	onLeaveComplete := func(Message) {
		ch.trigger(NewMessage(ch.currentJoinRef(), "", ch.topic, EventClose, reasonPayload))
	}

	leavePush := newPush(ch, EventLeave, []byte("{}"), to, false)
	leavePush.Receive(StatusOK, onLeaveComplete)
	leavePush.Receive(StatusTimeout, onLeaveComplete)

	if ch.canPush() {
		leavePush.Send()
	} else {
		leavePush.deliver(NewReplyMessage(ch.currentJoinRef(), "", ch.topic, StatusOK, []byte("{}")))
	}

	return leavePush
}

func (ch *Channel) sendMessage(msg Message, binary bool) {
	ch.socket.sendMessage(msg, binary)
}
