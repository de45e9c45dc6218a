// Package wsconn is the concrete gorilla/websocket-backed phoenix.Transport
// shipped with this module. It is a thin translation layer: dial, pump
// reads onto the delegate, serialize writes behind a single mutex.
package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eshe-huli/phx/phoenix"
)

// Transport implements phoenix.Transport over a single *websocket.Conn. A
// fresh Transport is created per connection attempt by the factory returned
// from NewFactory, matching Socket's "never resurrect a dead conn" contract.
type Transport struct {
	endpoint string
	dialer   *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	state    phoenix.ReadyState
	delegate phoenix.TransportDelegate

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New constructs a Transport for endpoint using websocket.DefaultDialer.
func New(endpoint string) *Transport {
	return &Transport{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		state:    phoenix.StateClosed,
	}
}

// NewFactory returns a phoenix.TransportFactory that produces wsconn
// Transports, the production counterpart a caller passes to
// phoenix.WithTransportFactory.
func NewFactory() phoenix.TransportFactory {
	return func(endpointURL string) phoenix.Transport {
		return New(endpointURL)
	}
}

// ReadyState implements phoenix.Transport.
func (t *Transport) ReadyState() phoenix.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect implements phoenix.Transport.
func (t *Transport) Connect(ctx context.Context, delegate phoenix.TransportDelegate, headers map[string][]string) error {
	t.mu.Lock()
	t.state = phoenix.StateConnecting
	t.delegate = delegate
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, t.endpoint, http.Header(headers))
	if err != nil {
		t.mu.Lock()
		t.state = phoenix.StateClosed
		t.mu.Unlock()
		return fmt.Errorf("wsconn: dial %s: %w", t.endpoint, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.state = phoenix.StateOpen
	t.mu.Unlock()

	go t.readLoop(conn, delegate)
	delegate.OnOpen()
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn, delegate phoenix.TransportDelegate) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := phoenix.CloseAbnormal, err.Error()
			if ce, ok := err.(*websocket.CloseError); ok {
				code, reason = ce.Code, ce.Text
			}
			t.fireClose(code, reason)
			return
		}
		switch msgType {
		case websocket.TextMessage:
			delegate.OnMessageText(string(data))
		case websocket.BinaryMessage:
			delegate.OnMessageBinary(data)
		}
	}
}

// fireClose invokes delegate.OnClose exactly once, whichever of a local
// Disconnect or a read-loop error reaches it first.
func (t *Transport) fireClose(code int, reason string) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.state = phoenix.StateClosed
		delegate := t.delegate
		t.mu.Unlock()
		if delegate != nil {
			delegate.OnClose(code, reason)
		}
	})
}

// Disconnect implements phoenix.Transport.
func (t *Transport) Disconnect(code int, reason string) {
	t.mu.Lock()
	t.state = phoenix.StateClosing
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		t.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		t.writeMu.Unlock()
		_ = conn.Close()
	}

	t.fireClose(code, reason)
}

// Send implements phoenix.Transport.
func (t *Transport) Send(data string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return phoenix.ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// SendBinary implements phoenix.Transport.
func (t *Transport) SendBinary(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return phoenix.ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}
