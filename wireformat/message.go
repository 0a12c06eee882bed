// Package wireformat defines what travels over a bridge channel: the tagged
// Message envelope (string or binary payload), the literal sentinels of the
// file stream protocol and the versioned object invocation envelope.
// These shapes are the compatibility contract between host and guest.
package wireformat

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind tags a Message payload.
type Kind uint8

const (
	// KindText is a UTF-8 string payload.
	KindText Kind = 1
	// KindBinary is an opaque byte buffer payload.
	KindBinary Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Message is one posted payload: either Text or Data depending on Kind.
type Message struct {
	Text string
	Data []byte
	Kind Kind
}

// Text builds a string message.
func Text(s string) Message {
	return Message{Kind: KindText, Text: s}
}

// Binary builds a buffer message. The slice is not copied.
func Binary(b []byte) Message {
	if b == nil {
		b = []byte{}
	}
	return Message{Kind: KindBinary, Data: b}
}

// IsText reports whether the payload is a string.
func (m Message) IsText() bool { return m.Kind == KindText }

// IsBinary reports whether the payload is a buffer.
func (m Message) IsBinary() bool { return m.Kind == KindBinary }

// Len returns the payload size in bytes.
func (m Message) Len() int {
	if m.Kind == KindText {
		return len(m.Text)
	}
	return len(m.Data)
}

// String summarizes the message for logs without dumping binary payloads.
func (m Message) String() string {
	if m.Kind == KindText {
		return fmt.Sprintf("text(%q)", m.Text)
	}
	return fmt.Sprintf("%s(%d bytes)", m.Kind, len(m.Data))
}

// Stream protocol literals. These must match byte for byte.
const (
	// FailurePrefix starts every failure reply on the stream channels.
	FailurePrefix = "Failed"
	// PathSetReply confirms an output path.
	PathSetReply = "Path set"
	// ChunkWrittenPrefix starts a chunk acknowledgement.
	ChunkWrittenPrefix = "Chunk written:"
)

// IsFailure reports whether a text reply is a host failure.
func IsFailure(s string) bool {
	return strings.HasPrefix(s, FailurePrefix)
}

// Failure formats a "Failed! <detail>" reply.
func Failure(detail string) Message {
	return Text(FailurePrefix + "! " + detail)
}

// FailureWith formats a "Failed to <action>: <detail>" reply.
func FailureWith(action, detail string) Message {
	return Text(fmt.Sprintf("%s to %s: %s", FailurePrefix, action, detail))
}

// ChunkWritten formats the acknowledgement for n bytes.
func ChunkWritten(n int) Message {
	return Text(fmt.Sprintf("%s %d bytes", ChunkWrittenPrefix, n))
}

// Clone returns a copy that shares no memory with m. Posting a message has
// copy semantics, so in-process transports clone before queueing.
func (m Message) Clone() Message {
	m.Data = bytes.Clone(m.Data)
	return m
}
