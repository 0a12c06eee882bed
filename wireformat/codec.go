package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes envelopes into channel Messages.
type Codec interface {
	// Name identifies the codec in logs.
	Name() string
	// Encode marshals v into a Message.
	Encode(v any) (Message, error)
	// Decode unmarshals a Message produced by Encode.
	Decode(m Message, v any) error
}

// JSON encodes envelopes as text messages.
var JSON Codec = jsonCodec{}

// CBOR encodes envelopes as binary messages.
var CBOR Codec = cborCodec{}

// CodecFor picks the codec matching the payload kind: text is JSON, binary is CBOR.
// Replies are encoded with the same codec as the request they answer.
func CodecFor(m Message) Codec {
	if m.IsBinary() {
		return CBOR
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("json encode: %w", err)
	}
	return Text(string(data)), nil
}

func (jsonCodec) Decode(m Message, v any) error {
	if !m.IsText() {
		return fmt.Errorf("json decode: expected text payload, got %s", m.Kind)
	}
	if err := json.Unmarshal([]byte(m.Text), v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Encode(v any) (Message, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("cbor encode: %w", err)
	}
	return Binary(data), nil
}

func (cborCodec) Decode(m Message, v any) error {
	if !m.IsBinary() {
		return fmt.Errorf("cbor decode: expected binary payload, got %s", m.Kind)
	}
	if err := cbor.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}
