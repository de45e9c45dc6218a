package phoenix

import "fmt"

// Binary frame kinds, per SPEC_FULL.md §4.3.
const (
	binaryKindPush      byte = 0
	binaryKindReply     byte = 1
	binaryKindBroadcast byte = 2
)

// EncodeBinary renders m as a binary push frame. Outbound binary from the
// client is always a push: kind 0, three length-prefixed meta fields
// (join_ref, topic, event), then the raw payload bytes. Any meta field
// longer than 255 UTF-8 bytes is rejected rather than silently truncated.
func (defaultSerializer) EncodeBinary(m Message) ([]byte, error) {
	joinRef := []byte(m.JoinRef)
	topic := []byte(m.Topic)
	event := []byte(m.Event)

	for name, field := range map[string][]byte{"join_ref": joinRef, "topic": topic, "event": event} {
		if len(field) > 255 {
			return nil, &fieldTooLong{field: name, n: len(field)}
		}
	}

	buf := make([]byte, 0, 4+len(joinRef)+len(topic)+len(event)+len(m.Payload))
	buf = append(buf, binaryKindPush)
	buf = append(buf, byte(len(joinRef)), byte(len(topic)), byte(len(event)))
	buf = append(buf, joinRef...)
	buf = append(buf, topic...)
	buf = append(buf, event...)
	buf = append(buf, m.Payload...)
	return buf, nil
}

// DecodeBinary parses an inbound binary frame, which may be any of the
// three kinds (the server is not restricted to echoing push frames back).
func (defaultSerializer) DecodeBinary(data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, fmt.Errorf("%w: empty frame", ErrInvalidBinaryKind)
	}

	kind := data[0]
	rest := data[1:]

	switch kind {
	case binaryKindPush:
		fields, payload, err := splitLengthPrefixed(rest, 3)
		if err != nil {
			return Message{}, err
		}
		joinRef, topic, event := string(fields[0]), string(fields[1]), string(fields[2])
		return NewMessage(joinRef, "", topic, event, payload), nil

	case binaryKindReply:
		fields, payload, err := splitLengthPrefixed(rest, 4)
		if err != nil {
			return Message{}, err
		}
		joinRef, ref, topic, status := string(fields[0]), string(fields[1]), string(fields[2]), string(fields[3])
		return NewReplyMessage(joinRef, ref, topic, status, payload), nil

	case binaryKindBroadcast:
		fields, payload, err := splitLengthPrefixed(rest, 2)
		if err != nil {
			return Message{}, err
		}
		topic, event := string(fields[0]), string(fields[1])
		return NewBroadcastMessage(topic, event, payload), nil

	default:
		return Message{}, ErrInvalidBinaryKind
	}
}

// splitLengthPrefixed reads n single-byte length prefixes, then n strings
// of those lengths in order, then returns whatever bytes remain as the
// payload.
func splitLengthPrefixed(data []byte, n int) ([][]byte, []byte, error) {
	if len(data) < n {
		return nil, nil, fmt.Errorf("%w: truncated meta lengths", ErrInvalidBinaryKind)
	}
	lengths := data[:n]
	cursor := n
	fields := make([][]byte, n)
	for i, l := range lengths {
		end := cursor + int(l)
		if end > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated meta field %d", ErrInvalidBinaryKind, i)
		}
		fields[i] = data[cursor:end]
		cursor = end
	}
	return fields, data[cursor:], nil
}
