package phoenix

import (
	"strings"
	"testing"
)

func TestEncodeDecodeTextRoundTripMessage(t *testing.T) {
	ser := NewSerializer()
	want := NewMessage("1", "2", "room:lobby", "new_msg", []byte(`{"body":"hi"}`))

	text, err := ser.EncodeText(want)
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	got, err := ser.DecodeText(text)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if got.JoinRef != want.JoinRef || got.Ref != want.Ref || got.Topic != want.Topic || got.Event != want.Event {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if string(got.Payload) != string(want.Payload) {
		t.Fatalf("payload round trip: got %s, want %s", got.Payload, want.Payload)
	}
}

func TestEncodeDecodeTextRoundTripReply(t *testing.T) {
	ser := NewSerializer()
	want := NewReplyMessage("1", "2", "room:lobby", StatusOK, []byte(`{"value":42}`))

	text, err := ser.EncodeText(want)
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	got, err := ser.DecodeText(text)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if got.Event != EventReply || got.Status != StatusOK {
		t.Fatalf("got %+v, want reply with status ok", got)
	}
	if string(got.Payload) != `{"value":42}` {
		t.Fatalf("payload = %s", got.Payload)
	}
}

func TestEncodeDecodeTextBroadcastHasNoRefs(t *testing.T) {
	ser := NewSerializer()
	want := NewBroadcastMessage("room:lobby", "new_msg", []byte(`{}`))

	text, err := ser.EncodeText(want)
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	if !strings.HasPrefix(text, "[null,null,") {
		t.Fatalf("expected null join_ref/ref prefix, got %s", text)
	}
	got, err := ser.DecodeText(text)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if got.JoinRef != "" || got.Ref != "" {
		t.Fatalf("decoded broadcast should have empty refs, got %+v", got)
	}
}

func TestEmptyPayloadRoundTripsToEmptyObject(t *testing.T) {
	ser := NewSerializer()
	msg := NewMessage("1", "2", "room:lobby", "ping", nil)

	text, err := ser.EncodeText(msg)
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	if !strings.Contains(text, `"ping",{}`) {
		t.Fatalf("expected empty payload encoded as a bare {}, got %s", text)
	}
}

func TestDecodeTextRejectsInvalidReplyEnvelope(t *testing.T) {
	ser := NewSerializer()
	_, err := ser.DecodeText(`["1","2","room:lobby","phx_reply",{}]`)
	if err == nil {
		t.Fatal("expected error for reply payload missing status/response")
	}
}

func TestDecodeTextRejectsMalformedArray(t *testing.T) {
	ser := NewSerializer()
	if _, err := ser.DecodeText(`not json`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestJSONStringPayloadUnquotedOnDecode(t *testing.T) {
	ser := NewSerializer()
	got, err := ser.DecodeText(`["1","2","room:lobby","note","hello"]`)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if string(got.Payload) != "hello" {
		t.Fatalf("Payload = %q, want %q", got.Payload, "hello")
	}
}
