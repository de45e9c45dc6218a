package phoenix

// Serializer is the bi-directional codec for both wire shapes Phoenix
// Channels supports. The client only ever sends text frames on the
// regular path and binary frames via Channel.BinaryPush; it must be able
// to decode whichever shape the server chooses to reply with.
type Serializer interface {
	EncodeText(m Message) (string, error)
	DecodeText(data string) (Message, error)
	EncodeBinary(m Message) ([]byte, error)
	DecodeBinary(data []byte) (Message, error)
}

// WireVersion is the protocol version this serializer speaks, appended to
// the connect URL as vsn=<WireVersion>.
const WireVersion = "2.0.0"

// defaultSerializer implements Serializer using encoding/json for the text
// array format and the single-byte-length-prefixed layout described in
// SPEC_FULL.md §4.3 for binary frames.
type defaultSerializer struct{}

// NewSerializer returns the library's only Serializer implementation. It
// is exported as a constructor (rather than a bare value) to leave room
// for a future alternative without breaking callers that hold a
// Serializer interface value.
func NewSerializer() Serializer {
	return defaultSerializer{}
}
