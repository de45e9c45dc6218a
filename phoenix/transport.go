package phoenix

import "context"

// ReadyState mirrors the WebSocket spec's connection states.
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close codes used by the socket and its callers. Reconnect does not depend
// on the close code: every close not requested through Socket.Disconnect
// schedules a reconnect.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// TransportDelegate receives events from a Transport. Socket passes its own
// implementation (socketDelegate) to Connect; a Transport implementation
// must deliver every event on this interface exactly once per occurrence
// and must not block the caller that invoked Connect/Send.
type TransportDelegate interface {
	OnOpen()
	OnClose(code int, reason string)
	OnError(err error)
	OnMessageText(data string)
	OnMessageBinary(data []byte)
}

// Transport is the capability Socket depends on for actual I/O. The
// concrete, production implementation shipped with this module is
// internal/wsconn, built on gorilla/websocket; test code substitutes a
// fake that implements this interface directly.
type Transport interface {
	// Connect dials the endpoint and begins delivering events to delegate.
	// It must not block past the point where the dial itself completes;
	// the read loop runs on its own goroutine.
	Connect(ctx context.Context, delegate TransportDelegate, headers map[string][]string) error
	// Disconnect closes the transport with the given WebSocket close code
	// and reason. Idempotent.
	Disconnect(code int, reason string)
	// Send writes a text frame.
	Send(data string) error
	// SendBinary writes a binary frame.
	SendBinary(data []byte) error
	// ReadyState reports the transport's current connection state.
	ReadyState() ReadyState
}

// TransportFactory constructs a fresh Transport for a given endpoint URL.
// Socket calls this once per Connect so that a brand new transport object
// backs every (re)connection attempt, matching the teacher's own pattern
// of re-dialing from scratch in Client.connect rather than trying to
// resurrect a dead *websocket.Conn.
type TransportFactory func(endpointURL string) Transport
