package phoenix

// Lifecycle event names the server/client exchange on every channel.
const (
	EventJoin    = "phx_join"
	EventLeave   = "phx_leave"
	EventReply   = "phx_reply"
	EventError   = "phx_error"
	EventClose   = "phx_close"
	EventHeartbeat = "heartbeat"
)

// Reply statuses a Push's receive hooks are keyed on.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Message is the immutable record the wire serializer produces and the
// socket fans out to channels. Payload is already-encoded bytes: for text
// frames this is JSON, for binary frames it is whatever raw bytes the
// sender pushed.
type Message struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload []byte
	Status  string
}

// NewReplyMessage builds a phx_reply Message. Payload is the encoded
// "response" field of the reply envelope, not the envelope itself.
func NewReplyMessage(joinRef, ref, topic, status string, payload []byte) Message {
	return Message{
		JoinRef: joinRef,
		Ref:     ref,
		Topic:   topic,
		Event:   EventReply,
		Payload: payload,
		Status:  status,
	}
}

// NewMessage builds an arbitrary-event Message carrying at least one of
// join_ref/ref (i.e. not a broadcast).
func NewMessage(joinRef, ref, topic, event string, payload []byte) Message {
	return Message{
		JoinRef: joinRef,
		Ref:     ref,
		Topic:   topic,
		Event:   event,
		Payload: payload,
	}
}

// NewBroadcastMessage builds a server broadcast: no join_ref, no ref.
func NewBroadcastMessage(topic, event string, payload []byte) Message {
	return Message{
		Topic:   topic,
		Event:   event,
		Payload: payload,
	}
}

// IsLifecycleEvent reports whether event is one of the five events the
// channel state machine treats specially for stale-joinRef filtering.
func IsLifecycleEvent(event string) bool {
	switch event {
	case EventJoin, EventLeave, EventReply, EventError, EventClose:
		return true
	default:
		return false
	}
}

// chanReplyEvent is the synthetic per-push event name a channel dispatches
// a phx_reply under, so Push.Send's one-shot binding can observe it without
// the channel needing a central ref->Push table.
func chanReplyEvent(ref string) string {
	return "chan_reply_" + ref
}
