package wireformat

import (
	"errors"
	"fmt"
)

// ErrEmptyFrame is returned when decoding a zero-length frame.
var ErrEmptyFrame = errors.New("empty frame")

// EncodeFrame flattens a Message into a single buffer: one kind byte followed
// by the payload. Used where a transport moves raw bytes only (WASM memory).
func EncodeFrame(m Message) []byte {
	switch m.Kind {
	case KindText:
		buf := make([]byte, 1+len(m.Text))
		buf[0] = byte(KindText)
		copy(buf[1:], m.Text)
		return buf
	default:
		buf := make([]byte, 1+len(m.Data))
		buf[0] = byte(KindBinary)
		copy(buf[1:], m.Data)
		return buf
	}
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return Message{}, ErrEmptyFrame
	}
	payload := frame[1:]
	switch Kind(frame[0]) {
	case KindText:
		return Text(string(payload)), nil
	case KindBinary:
		data := make([]byte, len(payload))
		copy(data, payload)
		return Binary(data), nil
	default:
		return Message{}, fmt.Errorf("unknown frame kind %d", frame[0])
	}
}
