package hostfuncs

import (
	"context"
	"log/slog"

	"github.com/jpillora/sizestr"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// Middleware wraps a MessageHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next MessageHandler) MessageHandler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that catches panics and turns
// them into a failure reply instead of crashing the host. The guest still
// receives exactly one reply for its message.
func PanicRecoveryMiddleware() Middleware {
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg wireformat.Message) (reply wireformat.Message) {
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "hostfuncs: handler panicked", "channel", channelOf(ctx), "panic", r)
					reply = NewPanicFailure(r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every served message.
// Failure replies on the stream channels are logged at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg wireformat.Message) wireformat.Message {
			attrs := []any{
				"channel", channelOf(ctx),
				"kind", msg.Kind.String(),
				"size", sizestr.ToString(int64(msg.Len())),
			}
			if hc, ok := ctx.(HostContext); ok && hc.SessionID() != "" {
				attrs = append(attrs, "session", hc.SessionID())
			}

			logger.DebugContext(ctx, "hostfuncs: message received", attrs...)
			reply := next(ctx, msg)
			if reply.IsText() && wireformat.IsFailure(reply.Text) {
				logger.WarnContext(ctx, "hostfuncs: request failed", append(attrs, "reply", reply.Text)...)
			} else {
				logger.DebugContext(ctx, "hostfuncs: reply sent", append(attrs, "reply", reply.String())...)
			}
			return reply
		}
	}
}

func channelOf(ctx context.Context) string {
	if hc, ok := ctx.(HostContext); ok {
		return hc.ChannelName()
	}
	return "unknown"
}
