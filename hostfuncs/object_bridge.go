package hostfuncs

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// ObjectBridge serves object invocation envelopes against one session's
// handle table.
type ObjectBridge struct {
	table  *objects.Table
	logger *slog.Logger
}

// NewObjectBridge creates a bridge over the given table.
func NewObjectBridge(table *objects.Table, logger *slog.Logger) *ObjectBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectBridge{table: table, logger: logger}
}

// Handler returns the ObjectBridge channel handler. Requests and replies use
// the codec matching the request payload kind. Failure replies keep the
// request id whenever it can be recovered so the guest caller is woken up.
func (b *ObjectBridge) Handler() MessageHandler {
	return NewEnvelopeHandler(b.Serve, b.decodeFailed, b.encodeFailed)
}

func (b *ObjectBridge) decodeFailed(msg wireformat.Message, err error) wireformat.ObjectResponseWire {
	// A request with a malformed field usually still carries a readable id.
	var ref struct {
		ID string `json:"id"`
	}
	_ = wireformat.CodecFor(msg).Decode(msg, &ref)

	b.logger.Warn("hostfuncs: undecodable object request", "id", ref.ID, "error", err)
	return wireformat.ObjectResponseWire{
		Version: wireformat.ObjectProtocolVersion,
		ID:      ref.ID,
		Error:   (&bridgeerrors.ProtocolViolationError{Channel: entities.ChannelObjectBridge, Detail: err.Error()}).ToErrorDetail(),
	}
}

func (b *ObjectBridge) encodeFailed(req wireformat.ObjectRequestWire, err error) wireformat.ObjectResponseWire {
	member := req.Member
	if req.Op == wireformat.OpNew {
		member = objects.MemberInit
	}
	b.logger.Warn("hostfuncs: unencodable object result", "id", req.ID, "member", member, "error", err)
	return wireformat.ObjectResponseWire{
		Version: wireformat.ObjectProtocolVersion,
		ID:      req.ID,
		Error:   (&bridgeerrors.InvocationError{Member: member, Err: err}).ToErrorDetail(),
	}
}

// Serve executes one request.
func (b *ObjectBridge) Serve(ctx context.Context, req wireformat.ObjectRequestWire) wireformat.ObjectResponseWire {
	resp := wireformat.ObjectResponseWire{Version: wireformat.ObjectProtocolVersion, ID: req.ID}

	result, err := b.serve(ctx, req)
	if err != nil {
		if req.Op == wireformat.OpSet {
			// The guest does not wait for set replies; this log is the only trace.
			b.logger.WarnContext(ctx, "hostfuncs: field assignment failed",
				"handle", req.Handle, "member", req.Member, "error", err)
		}
		resp.Error = bridgeerrors.ToErrorDetail(err)
		return resp
	}
	resp.Result = &result
	return resp
}

func (b *ObjectBridge) serve(ctx context.Context, req wireformat.ObjectRequestWire) (wireformat.ValueWire, error) {
	null := wireformat.ValueWire{Kind: wireformat.ValueNull}

	if err := req.Validate(); err != nil {
		return null, &bridgeerrors.InvalidArgumentError{Argument: "request", Reason: err.Error()}
	}

	if req.Op == wireformat.OpNew {
		args, err := b.table.DecodeArgs(req.Args)
		if err != nil {
			return null, err
		}
		h, err := b.table.Construct(ctx, req.Class, args)
		if err != nil {
			return null, err
		}
		return wireformat.PtrValue(h, req.Class), nil
	}

	h, err := entities.ParseHandle(req.Handle)
	if err != nil {
		return null, &bridgeerrors.InvalidArgumentError{Argument: "handle", Reason: err.Error()}
	}

	switch req.Op {
	case wireformat.OpGet:
		return b.table.Invoke(ctx, h, req.Member, nil)
	case wireformat.OpCall:
		return b.table.Invoke(ctx, h, req.Member, req.Args)
	case wireformat.OpSet:
		if req.Value == nil {
			return null, &bridgeerrors.InvalidArgumentError{Argument: "value", Reason: "missing value for set"}
		}
		return null, b.table.SetField(ctx, h, req.Member, *req.Value)
	case wireformat.OpRelease:
		if err := b.table.Release(h); err != nil {
			b.logger.WarnContext(ctx, "hostfuncs: dispose failed", "handle", h.String(), "error", err)
		}
		return null, nil
	}
	return null, &bridgeerrors.InvalidArgumentError{Argument: "op", Reason: string(req.Op)}
}
