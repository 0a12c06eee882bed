package hostfuncs

import (
	"context"

	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// MessageHandler serves one named channel. It is called once per inbound
// message, in delivery order, and returns exactly one reply.
type MessageHandler func(ctx context.Context, msg wireformat.Message) wireformat.Message

// HostFunc is a generic function signature for envelope-based handlers.
// It accepts a context and a typed request, and returns a typed response.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// NewEnvelopeHandler wraps a typed HostFunc into a MessageHandler.
// The request is decoded with the codec matching the payload kind (JSON text or
// CBOR binary) and the response is encoded with the same codec.
// decodeFailed builds the response for payloads that cannot be decoded, and
// encodeFailed replaces a response the codec rejects. Only when that
// replacement cannot be encoded either does the reply fall back to a plain
// failure string.
//
// Usage:
//
//	handler := hostfuncs.NewEnvelopeHandler(
//	    func(ctx context.Context, req wireformat.ObjectRequestWire) wireformat.ObjectResponseWire {
//	        return bridge.Serve(ctx, req)
//	    },
//	    func(msg wireformat.Message, err error) wireformat.ObjectResponseWire { ... },
//	    func(req wireformat.ObjectRequestWire, err error) wireformat.ObjectResponseWire { ... },
//	)
func NewEnvelopeHandler[Req any, Resp any](
	fn HostFunc[Req, Resp],
	decodeFailed func(wireformat.Message, error) Resp,
	encodeFailed func(Req, error) Resp,
) MessageHandler {
	return func(ctx context.Context, msg wireformat.Message) wireformat.Message {
		codec := wireformat.CodecFor(msg)

		var resp Resp
		var req Req
		if err := codec.Decode(msg, &req); err != nil {
			resp = decodeFailed(msg, err)
		} else {
			resp = fn(ctx, req)
		}

		reply, err := codec.Encode(resp)
		if err == nil {
			return reply
		}
		if encodeFailed != nil {
			if reply, err2 := codec.Encode(encodeFailed(req, err)); err2 == nil {
				return reply
			}
		}
		return wireformat.Failure("failed to marshal response: " + err.Error())
	}
}
