package phoenix

import (
	"encoding/json"
	"fmt"
)

// replyEnvelope is the payload shape required on every phx_reply message.
type replyEnvelope struct {
	Response json.RawMessage `json:"response"`
	Status   string          `json:"status"`
}

// EncodeText renders m as the 5-element JSON array
// [join_ref, ref, topic, event, payload].
func (defaultSerializer) EncodeText(m Message) (string, error) {
	var joinRef, ref any
	if m.JoinRef != "" {
		joinRef = m.JoinRef
	}
	if m.Ref != "" {
		ref = m.Ref
	}

	var payloadValue any
	if m.Event == EventReply {
		env := replyEnvelope{
			Response: storedBytesToJSONValue(m.Payload),
			Status:   m.Status,
		}
		payloadValue = env
	} else {
		payloadValue = storedBytesToJSONValue(m.Payload)
	}

	arr := [5]any{joinRef, ref, m.Topic, m.Event, payloadValue}
	out, err := json.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDataFromStringFailed, err)
	}
	return string(out), nil
}

// DecodeText parses the 5-element JSON array format. See SPEC_FULL.md §4.3
// for the exact decision tree between reply/message/broadcast shapes.
func (defaultSerializer) DecodeText(data string) (Message, error) {
	var arr [5]json.RawMessage
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrStringFromDataFailed, err)
	}

	joinRef, err := decodeNullableString(arr[0])
	if err != nil {
		return Message{}, fmt.Errorf("%w: join_ref: %v", ErrStringFromDataFailed, err)
	}
	ref, err := decodeNullableString(arr[1])
	if err != nil {
		return Message{}, fmt.Errorf("%w: ref: %v", ErrStringFromDataFailed, err)
	}

	var topic, event string
	if err := json.Unmarshal(arr[2], &topic); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDecodeMissingTopic, err)
	}
	if err := json.Unmarshal(arr[3], &event); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDecodeMissingEvent, err)
	}

	if event == EventReply {
		var env replyEnvelope
		if err := json.Unmarshal(arr[4], &env); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrInvalidReplyStructure, err)
		}
		if env.Status == "" || len(env.Response) == 0 {
			return Message{}, ErrInvalidReplyStructure
		}
		return NewReplyMessage(joinRef, ref, topic, env.Status, jsonValueToStoredBytes(env.Response)), nil
	}

	payload, err := decodeArbitraryPayload(arr[4])
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDecodingPayloadFailed, err)
	}

	if joinRef != "" || ref != "" {
		return NewMessage(joinRef, ref, topic, event, payload), nil
	}
	return NewBroadcastMessage(topic, event, payload), nil
}

func decodeArbitraryPayload(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return jsonValueToStoredBytes(raw), nil
}

// decodeNullableString unmarshals a JSON value that is either null or a
// string, returning "" for null.
func decodeNullableString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// jsonValueToStoredBytes converts a decoded JSON value into the bytes a
// Message stores for its Payload. A JSON string is unquoted to its raw
// UTF-8 bytes (so user code sees exactly what it sent); every other JSON
// value (object, array, number, bool, null) is kept as its raw encoded
// form, byte for byte.
func jsonValueToStoredBytes(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// storedBytesToJSONValue is the encode-side inverse of
// jsonValueToStoredBytes: valid JSON is re-emitted verbatim, anything else
// is treated as a raw string and JSON-string-quoted.
func storedBytesToJSONValue(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("{}")
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, err := json.Marshal(string(b))
	if err != nil {
		// string(b) from arbitrary bytes always marshals successfully;
		// this path is unreachable in practice.
		return json.RawMessage("null")
	}
	return json.RawMessage(quoted)
}
