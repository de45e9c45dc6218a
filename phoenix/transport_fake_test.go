package phoenix

import (
	"context"
	"sync"
	"time"
)

// fakeTransport is a test and mock-friendly implementation of Transport,
// in the spirit of the func-field mocks the wider example pack uses for its
// own core contracts. onSend/onSendBinary let a test script a server's
// response to an outbound frame synchronously from within Send itself.
type fakeTransport struct {
	mu       sync.Mutex
	state    ReadyState
	delegate TransportDelegate

	sentText   []string
	sentBinary [][]byte

	connectErr error
	sendErr    error

	onSend       func(data string)
	onSendBinary func(data []byte)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: StateClosed}
}

func (f *fakeTransport) Connect(ctx context.Context, delegate TransportDelegate, headers map[string][]string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.delegate = delegate
	f.state = StateOpen
	f.mu.Unlock()
	delegate.OnOpen()
	return nil
}

func (f *fakeTransport) Disconnect(code int, reason string) {
	f.mu.Lock()
	f.state = StateClosed
	delegate := f.delegate
	f.mu.Unlock()
	if delegate != nil {
		delegate.OnClose(code, reason)
	}
}

func (f *fakeTransport) Send(data string) error {
	f.mu.Lock()
	f.sentText = append(f.sentText, data)
	fn := f.onSend
	err := f.sendErr
	f.mu.Unlock()
	if fn != nil {
		fn(data)
	}
	return err
}

func (f *fakeTransport) SendBinary(data []byte) error {
	f.mu.Lock()
	f.sentBinary = append(f.sentBinary, data)
	fn := f.onSendBinary
	err := f.sendErr
	f.mu.Unlock()
	if fn != nil {
		fn(data)
	}
	return err
}

func (f *fakeTransport) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) deliverText(data string) {
	f.mu.Lock()
	delegate := f.delegate
	f.mu.Unlock()
	if delegate != nil {
		delegate.OnMessageText(data)
	}
}

func (f *fakeTransport) lastSentText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sentText) == 0 {
		return ""
	}
	return f.sentText[len(f.sentText)-1]
}

// autoReplyOK wires the fake so that any phx_join or regular push it
// receives is answered with an immediate {status: "ok"} reply carrying the
// same join_ref/ref, emulating a cooperative server.
func (f *fakeTransport) autoReplyOK() {
	ser := NewSerializer()
	f.mu.Lock()
	f.onSend = func(data string) {
		msg, err := ser.DecodeText(data)
		if err != nil {
			return
		}
		reply := NewReplyMessage(msg.JoinRef, msg.Ref, msg.Topic, StatusOK, []byte(`{}`))
		text, err := ser.EncodeText(reply)
		if err != nil {
			return
		}
		go f.deliverText(text)
	}
	f.mu.Unlock()
}

func newFakeSocket() (*Socket, *fakeTransport) {
	ft := newFakeTransport()
	factory := func(string) Transport { return ft }
	s, err := NewSocket("ws://example.test/socket",
		WithTransportFactory(factory),
		WithHeartbeatInterval(time.Hour),
	)
	if err != nil {
		panic(err)
	}
	return s, ft
}
