package phoenix

import "testing"

func TestNewReplyMessage(t *testing.T) {
	m := NewReplyMessage("1", "2", "room:lobby", StatusOK, []byte(`{"ok":true}`))
	if m.Event != EventReply {
		t.Fatalf("Event = %q, want %q", m.Event, EventReply)
	}
	if m.JoinRef != "1" || m.Ref != "2" || m.Topic != "room:lobby" || m.Status != StatusOK {
		t.Fatalf("unexpected fields: %+v", m)
	}
}

func TestNewBroadcastMessageHasNoRefs(t *testing.T) {
	m := NewBroadcastMessage("room:lobby", "new_msg", []byte(`{}`))
	if m.JoinRef != "" || m.Ref != "" {
		t.Fatalf("broadcast message should carry no refs, got %+v", m)
	}
}

func TestIsLifecycleEvent(t *testing.T) {
	cases := map[string]bool{
		EventJoin:    true,
		EventLeave:   true,
		EventReply:   true,
		EventError:   true,
		EventClose:   true,
		"new_msg":    false,
		"heartbeat":  false,
	}
	for event, want := range cases {
		if got := IsLifecycleEvent(event); got != want {
			t.Errorf("IsLifecycleEvent(%q) = %v, want %v", event, got, want)
		}
	}
}

func TestChanReplyEvent(t *testing.T) {
	if got, want := chanReplyEvent("42"), "chan_reply_42"; got != want {
		t.Fatalf("chanReplyEvent(42) = %q, want %q", got, want)
	}
}
