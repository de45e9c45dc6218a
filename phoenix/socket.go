package phoenix

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultPushTimeout       = 10 * time.Second
)

// Option configures a Socket at construction time.
type Option func(*Socket)

// WithTransportFactory supplies the Transport implementation Connect uses.
// Required: NewSocket returns an error if none is given, since the core
// package deliberately carries no concrete transport (see internal/wsconn).
func WithTransportFactory(f TransportFactory) Option {
	return func(s *Socket) { s.transportFactory = f }
}

// WithCodec overrides the default JSONCodec used to encode Channel.Push
// payloads.
func WithCodec(c PayloadCodec) Option {
	return func(s *Socket) { s.codec = c }
}

// WithLogger overrides the default log.Default() logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Socket) { s.log = l }
}

// WithParams adds static query parameters to the connect URL, sent on every
// (re)connect - commonly used for auth tokens.
func WithParams(params map[string]string) Option {
	return func(s *Socket) { s.params = params }
}

// WithHeaders adds static HTTP headers to the connect request.
func WithHeaders(headers map[string][]string) Option {
	return func(s *Socket) { s.headers = headers }
}

// WithHeartbeatInterval overrides the default 30s heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Socket) { s.heartbeatInterval = d }
}

// WithReconnectBackoff overrides the default ReconnectAfter schedule.
func WithReconnectBackoff(f BackoffFunc) Option {
	return func(s *Socket) { s.reconnectAfter = f }
}

// WithDefaultTimeout overrides the default 10s join/push timeout new
// channels are created with.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Socket) { s.defaultTimeout = d }
}

// Socket owns one logical connection to a Phoenix server: exactly one
// Transport at a time, the reconnect and heartbeat loops, and the set of
// Channels multiplexed over it. A Socket is safe for concurrent use.
type Socket struct {
	endpointURL string
	params      map[string]string
	headers     map[string][]string

	transportFactory TransportFactory
	serializer       Serializer
	codec            PayloadCodec
	log              *log.Logger

	heartbeatInterval time.Duration
	reconnectAfter    BackoffFunc
	defaultTimeout    time.Duration

	refCounter         uint64
	callbackRefCounter uint64

	mu                  sync.Mutex
	transport           Transport
	channels            []*Channel
	sendBuf             *sendBuffer
	closedByUser        bool
	pendingHeartbeatRef string

	reconnectTimer *TimeoutTimer
	heartbeatTimer *HeartbeatTimer

	onOpenCbs    *callbackTable[func()]
	onCloseCbs   *callbackTable[func()]
	onErrorCbs   *callbackTable[func(error)]
	onMessageCbs *callbackTable[func(Message)]
}

// NewSocket builds a Socket for endpoint (an http(s):// or ws(s):// URL; the
// scheme is normalized, any other or missing scheme becomes ws, and
// "/websocket" is appended to the path if it isn't already there). A
// WithTransportFactory option is mandatory.
func NewSocket(endpoint string, opts ...Option) (*Socket, error) {
	s := &Socket{
		serializer:        NewSerializer(),
		codec:             DefaultCodec,
		log:               log.Default(),
		heartbeatInterval: defaultHeartbeatInterval,
		reconnectAfter:    ReconnectAfter,
		defaultTimeout:    defaultPushTimeout,
		sendBuf:           newSendBuffer(),
		onOpenCbs:         &callbackTable[func()]{},
		onCloseCbs:        &callbackTable[func()]{},
		onErrorCbs:        &callbackTable[func(error)]{},
		onMessageCbs:      &callbackTable[func(Message)]{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transportFactory == nil {
		return nil, fmt.Errorf("phoenix: NewSocket requires WithTransportFactory")
	}

	endpointURL, err := normalizeEndpoint(endpoint, s.params)
	if err != nil {
		return nil, fmt.Errorf("phoenix: invalid endpoint: %w", err)
	}
	s.endpointURL = endpointURL

	s.reconnectTimer = NewTimeoutTimer(s.reconnectAfter, s.reconnect)
	s.heartbeatTimer = NewHeartbeatTimer(s.heartbeatInterval)

	return s, nil
}

func normalizeEndpoint(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/websocket"
	}
	q := u.Query()
	q.Del("vsn")
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = "vsn=" + url.QueryEscape(WireVersion)
	if rest := q.Encode(); rest != "" {
		u.RawQuery += "&" + rest
	}
	return u.String(), nil
}

func (s *Socket) nextRef() string {
	return strconv.FormatUint(atomic.AddUint64(&s.refCounter, 1), 10)
}

func (s *Socket) nextCallbackRef() string {
	return strconv.FormatUint(atomic.AddUint64(&s.callbackRefCounter, 1), 10)
}

func (s *Socket) logger() *log.Logger { return s.log }

// Channel creates (but does not join) a Channel for topic. Call Join on the
// result to start its join protocol.
func (s *Socket) Channel(topic string, params map[string]any) *Channel {
	ch := newChannel(s, topic, params, s.defaultTimeout)
	s.mu.Lock()
	s.channels = append(s.channels, ch)
	s.mu.Unlock()
	return ch
}

// Connect dials the endpoint via a freshly constructed Transport. A no-op if
// already connecting or open.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.transport != nil {
		switch s.transport.ReadyState() {
		case StateConnecting, StateOpen:
			s.mu.Unlock()
			return nil
		}
	}
	s.closedByUser = false
	t := s.transportFactory(s.endpointURL)
	s.transport = t
	headers := s.headers
	s.mu.Unlock()

	return t.Connect(ctx, socketDelegate{s}, headers)
}

// socketDelegate adapts Socket to TransportDelegate under names distinct
// from Socket's own OnOpen/OnClose/OnError/OnMessage subscription methods,
// which take a different shape (a callback to register, not an event to
// react to) and would otherwise collide.
type socketDelegate struct{ s *Socket }

func (d socketDelegate) OnOpen()                       { d.s.handleTransportOpen() }
func (d socketDelegate) OnClose(code int, reason string) { d.s.handleTransportClose(code, reason) }
func (d socketDelegate) OnError(err error)             { d.s.handleTransportError(err) }
func (d socketDelegate) OnMessageText(data string)     { d.s.handleTransportMessageText(data) }
func (d socketDelegate) OnMessageBinary(data []byte)   { d.s.handleTransportMessageBinary(data) }

func (s *Socket) reconnect() {
	s.mu.Lock()
	closed := s.closedByUser
	s.mu.Unlock()
	if closed {
		return
	}
	if err := s.Connect(context.Background()); err != nil {
		s.reportError(fmt.Errorf("reconnect: %w", err))
		s.reconnectTimer.ScheduleTimeout()
	}
}

// Disconnect closes the transport and stops all reconnect/heartbeat
// activity. The socket can be reused afterward by calling Connect again.
func (s *Socket) Disconnect(code int, reason string) {
	s.mu.Lock()
	s.closedByUser = true
	t := s.transport
	s.mu.Unlock()

	s.reconnectTimer.Reset()
	s.heartbeatTimer.Stop()
	if t != nil {
		t.Disconnect(code, reason)
	}
}

func (s *Socket) isConnected() bool {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	return t != nil && t.ReadyState() == StateOpen
}

// IsConnected reports whether the transport currently reports StateOpen.
func (s *Socket) IsConnected() bool { return s.isConnected() }

// ConnectionState reports the transport's ReadyState, or StateClosed if no
// transport has ever been created.
func (s *Socket) ConnectionState() ReadyState {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return StateClosed
	}
	return t.ReadyState()
}

// abnormalClose closes the transport with a normal close code when the
// heartbeat round trip stalls. The user did not ask for this close, so
// handleTransportClose schedules a reconnect.
func (s *Socket) abnormalClose(reason string) {
	s.log.Printf("[phoenix:socket] %s, closing to reconnect", reason)
	s.heartbeatTimer.Stop()
	s.mu.Lock()
	s.pendingHeartbeatRef = ""
	t := s.transport
	s.mu.Unlock()
	if t != nil {
		t.Disconnect(CloseNormal, reason)
	}
}

func (s *Socket) sendHeartbeat() {
	if !s.isConnected() {
		return
	}
	s.mu.Lock()
	if s.pendingHeartbeatRef != "" {
		s.mu.Unlock()
		s.abnormalClose("heartbeat timeout")
		return
	}
	ref := s.nextRef()
	s.pendingHeartbeatRef = ref
	s.mu.Unlock()

	s.sendMessage(NewMessage("", ref, "phoenix", EventHeartbeat, []byte("{}")), false)
}

// sendMessage encodes msg via the configured Serializer and either writes it
// immediately (transport open) or buffers it for the next OnOpen.
func (s *Socket) sendMessage(msg Message, binary bool) {
	send := func() {
		s.mu.Lock()
		t := s.transport
		ser := s.serializer
		s.mu.Unlock()
		if t == nil {
			return
		}
		if binary {
			data, err := ser.EncodeBinary(msg)
			if err != nil {
				s.reportError(fmt.Errorf("encode binary: %w", err))
				return
			}
			if err := t.SendBinary(data); err != nil {
				s.reportError(err)
			}
			return
		}
		data, err := ser.EncodeText(msg)
		if err != nil {
			s.reportError(fmt.Errorf("encode text: %w", err))
			return
		}
		if err := t.Send(data); err != nil {
			s.reportError(err)
		}
	}

	s.mu.Lock()
	open := s.transport != nil && s.transport.ReadyState() == StateOpen
	if !open {
		s.sendBuf.push(msg.Ref, send)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	send()
}

func (s *Socket) removeFromSendBuffer(ref string) {
	s.sendBuf.removeByRef(ref)
}

// leaveOpenTopic asks every channel other than except that already holds
// topic in joining/joined to leave, enforcing at most one live channel per
// topic.
func (s *Socket) leaveOpenTopic(topic string, except *Channel) {
	for _, c := range s.snapshotChannels() {
		if c == except {
			continue
		}
		if c.topic == topic && (c.IsJoined() || c.IsJoining()) {
			c.Leave()
		}
	}
}

func (s *Socket) remove(ch *Channel) {
	s.mu.Lock()
	kept := s.channels[:0:0]
	for _, c := range s.channels {
		if c != ch {
			kept = append(kept, c)
		}
	}
	s.channels = kept
	s.mu.Unlock()
	s.Off(ch.socketOpenRef, ch.socketErrorRef)
}

func (s *Socket) snapshotChannels() []*Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// OnOpen, OnClose, OnError and OnMessage register socket-wide callbacks and
// return a ref that can later be passed to Off.
func (s *Socket) OnOpen(cb func()) string {
	ref := s.nextCallbackRef()
	s.onOpenCbs.add(ref, cb)
	return ref
}

func (s *Socket) OnClose(cb func()) string {
	ref := s.nextCallbackRef()
	s.onCloseCbs.add(ref, cb)
	return ref
}

func (s *Socket) OnError(cb func(error)) string {
	ref := s.nextCallbackRef()
	s.onErrorCbs.add(ref, cb)
	return ref
}

func (s *Socket) OnMessage(cb func(Message)) string {
	ref := s.nextCallbackRef()
	s.onMessageCbs.add(ref, cb)
	return ref
}

// Off removes every callback registered under any of refs, across all four
// tables (a ref is only ever valid in the table it was issued from, but the
// callback counter is shared so this is unambiguous).
func (s *Socket) Off(refs ...string) {
	s.onOpenCbs.remove(refs...)
	s.onCloseCbs.remove(refs...)
	s.onErrorCbs.remove(refs...)
	s.onMessageCbs.remove(refs...)
}

func (s *Socket) reportError(err error) {
	s.log.Printf("[phoenix:socket] %v", err)
	for _, cb := range s.onErrorCbs.snapshot() {
		cb(err)
	}
}

// --- transport event handlers, reached via socketDelegate ---

func (s *Socket) handleTransportOpen() {
	s.reconnectTimer.Reset()
	s.mu.Lock()
	s.pendingHeartbeatRef = ""
	s.mu.Unlock()
	s.heartbeatTimer.Start(s.sendHeartbeat)
	s.sendBuf.drain()
	for _, cb := range s.onOpenCbs.snapshot() {
		cb()
	}
}

func (s *Socket) handleTransportClose(code int, reason string) {
	s.heartbeatTimer.Stop()

	for _, ch := range s.snapshotChannels() {
		if ch.IsErrored() || ch.IsLeaving() || ch.IsClosed() {
			continue
		}
		ch.trigger(NewMessage(ch.currentJoinRef(), "", ch.topic, EventError, []byte("{}")))
	}

	for _, cb := range s.onCloseCbs.snapshot() {
		cb()
	}

	s.mu.Lock()
	closedByUser := s.closedByUser
	s.mu.Unlock()
	if !closedByUser {
		s.reconnectTimer.ScheduleTimeout()
	}
}

func (s *Socket) handleTransportError(err error) {
	s.reportError(err)
	for _, ch := range s.snapshotChannels() {
		if ch.IsErrored() || ch.IsLeaving() || ch.IsClosed() {
			continue
		}
		ch.trigger(NewMessage(ch.currentJoinRef(), "", ch.topic, EventError, []byte("{}")))
	}
}

func (s *Socket) handleTransportMessageText(data string) {
	msg, err := s.serializer.DecodeText(data)
	if err != nil {
		s.reportError(fmt.Errorf("decode text frame %q: %w", data, err))
		return
	}
	s.dispatch(msg)
}

func (s *Socket) handleTransportMessageBinary(data []byte) {
	msg, err := s.serializer.DecodeBinary(data)
	if err != nil {
		s.reportError(fmt.Errorf("decode binary frame %x: %w", data, err))
		return
	}
	s.dispatch(msg)
}

func (s *Socket) dispatch(msg Message) {
	if msg.Topic == "phoenix" && msg.Event == EventReply {
		s.mu.Lock()
		if msg.Ref != "" && msg.Ref == s.pendingHeartbeatRef {
			s.pendingHeartbeatRef = ""
		}
		s.mu.Unlock()
	}

	for _, cb := range s.onMessageCbs.snapshot() {
		cb(msg)
	}
	for _, ch := range s.snapshotChannels() {
		if ch.IsMember(msg) {
			ch.trigger(msg)
		}
	}
}
