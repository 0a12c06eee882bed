package hostfuncs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/reglet-dev/reglet-bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	panicHandler := func(ctx context.Context, msg wireformat.Message) wireformat.Message {
		panic("test panic")
	}

	wrapped := PanicRecoveryMiddleware()(panicHandler)

	reply := wrapped(context.Background(), wireformat.Text("/tmp/x"))
	require.True(t, reply.IsText())
	testutil.AssertFailure(t, reply)
	assert.Equal(t, "Failed! panic: test panic", reply.Text)
}

func TestPanicRecoveryMiddleware_ErrorValue(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(func(context.Context, wireformat.Message) wireformat.Message {
		panic(errors.New("bad state"))
	})
	assert.Equal(t, "Failed! panic: bad state", wrapped(context.Background(), wireformat.Text("")).Text)
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(echoHandler)
	assert.Equal(t, "echo:ok", wrapped(context.Background(), wireformat.Text("ok")).Text)
}

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var callOrder []string

	tracing := func(name string) Middleware {
		return func(next MessageHandler) MessageHandler {
			return func(ctx context.Context, msg wireformat.Message) wireformat.Message {
				callOrder = append(callOrder, name+"-before")
				reply := next(ctx, msg)
				callOrder = append(callOrder, name+"-after")
				return reply
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(tracing("mw1"), tracing("mw2")),
		WithMessageHandler("Echo", func(ctx context.Context, msg wireformat.Message) wireformat.Message {
			callOrder = append(callOrder, "handler")
			return msg
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "Echo", wireformat.Text("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}, callOrder)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(
		WithSessionID("abc"),
		WithMiddleware(LoggingMiddleware(logger)),
		WithMessageHandler("Fail", func(context.Context, wireformat.Message) wireformat.Message {
			return wireformat.Failure("nope")
		}),
		WithMessageHandler("Echo", echoHandler),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "Echo", wireformat.Binary(make([]byte, 2048)))
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "hostfuncs: message received")
	assert.Contains(t, out, "channel=Echo")
	assert.Contains(t, out, "session=abc")
	assert.Contains(t, out, "kind=binary")

	buf.Reset()
	_, err = reg.Invoke(context.Background(), "Fail", wireformat.Text("x"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "Failed! nope")
}
