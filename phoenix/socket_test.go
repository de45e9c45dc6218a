package phoenix

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEndpointAddsWebsocketPathAndVersion(t *testing.T) {
	got, err := normalizeEndpoint("http://example.test/socket", map[string]string{"token": "abc"})
	if err != nil {
		t.Fatalf("normalizeEndpoint: %v", err)
	}
	want := "ws://example.test/socket/websocket?vsn=2.0.0&token=abc"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeEndpointTreatsUnknownSchemeAsWS(t *testing.T) {
	got, err := normalizeEndpoint("ftp://example.test/socket", nil)
	if err != nil {
		t.Fatalf("normalizeEndpoint: %v", err)
	}
	if want := "ws://example.test/socket/websocket?vsn=2.0.0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSocketConnectFiresOnOpen(t *testing.T) {
	s, _ := newFakeSocket()
	var opened bool
	s.OnOpen(func() { opened = true })

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !opened {
		t.Fatal("expected OnOpen callback to fire")
	}
	if !s.IsConnected() {
		t.Fatal("expected IsConnected after successful Connect")
	}
}

func TestSocketDisconnectFiresOnCloseAndSuppressesReconnect(t *testing.T) {
	s, ft := newFakeSocket()
	closes := 0
	s.OnClose(func() { closes++ })

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Disconnect(CloseNormal, "bye")

	if closes != 1 {
		t.Fatalf("closes = %d, want 1", closes)
	}
	if ft.ReadyState() != StateClosed {
		t.Fatalf("transport state = %v, want closed", ft.ReadyState())
	}
}

func TestSocketDispatchRoutesToMemberChannelsOnly(t *testing.T) {
	s, _ := newFakeSocket()
	lobby := s.Channel("room:lobby", nil)
	other := s.Channel("room:other", nil)

	var lobbyGot, otherGot bool
	lobby.On("new_msg", func(Message) { lobbyGot = true })
	other.On("new_msg", func(Message) { otherGot = true })

	s.dispatch(NewBroadcastMessage("room:lobby", "new_msg", []byte(`{}`)))

	if !lobbyGot {
		t.Fatal("expected lobby channel to receive broadcast")
	}
	if otherGot {
		t.Fatal("expected other channel to not receive broadcast for a different topic")
	}
}

func TestSocketHeartbeatTimeoutTriggersAbnormalClose(t *testing.T) {
	s, _ := newFakeSocket()

	closed := make(chan struct{})
	s.OnClose(func() { close(closed) })
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// first heartbeat leaves pendingHeartbeatRef set (nothing replies to it);
	// the second call observes a still-outstanding heartbeat and aborts the
	// connection as if the server had gone silent.
	s.sendHeartbeat()
	s.sendHeartbeat()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("expected abnormal close after duplicate pending heartbeat")
	}
}

func TestSocketOffRemovesCallbackAcrossTables(t *testing.T) {
	s, _ := newFakeSocket()
	var fired bool
	ref := s.OnOpen(func() { fired = true })
	s.Off(ref)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if fired {
		t.Fatal("expected callback removed by Off to not fire")
	}
}

func TestSocketReportErrorInvokesOnErrorCallbacks(t *testing.T) {
	s, _ := newFakeSocket()
	var got error
	s.OnError(func(err error) { got = err })

	want := errors.New("boom")
	s.reportError(want)

	if !errors.Is(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSocketLeaveOpenTopicLeavesPriorChannelOnRejoin(t *testing.T) {
	s, ft := newFakeSocket()
	ft.autoReplyOK()

	first := s.Channel("room:lobby", nil)
	first.Join()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, first.IsJoined)

	second := s.Channel("room:lobby", nil)
	second.Join()

	waitFor(t, first.IsClosed)
}
