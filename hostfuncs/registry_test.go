package hostfuncs

import (
	"context"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, msg wireformat.Message) wireformat.Message {
	if msg.IsText() {
		return wireformat.Text("echo:" + msg.Text)
	}
	return msg
}

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Empty(t, reg.Names())
}

func TestNewRegistry_WithMessageHandler(t *testing.T) {
	reg, err := NewRegistry(
		WithMessageHandler("Echo", echoHandler),
	)
	require.NoError(t, err)

	assert.True(t, reg.Has("Echo"))
	assert.False(t, reg.Has("nonexistent"))
	assert.Equal(t, []string{"Echo"}, reg.Names())
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    []RegistryOption
		wantErr string
	}{
		{
			name:    "duplicate",
			opts:    []RegistryOption{WithMessageHandler("x", echoHandler), WithMessageHandler("x", echoHandler)},
			wantErr: "duplicate channel name",
		},
		{
			name:    "empty name",
			opts:    []RegistryOption{WithMessageHandler("", echoHandler)},
			wantErr: "cannot be empty",
		},
		{
			name:    "nil handler",
			opts:    []RegistryOption{WithMessageHandler("x", nil)},
			wantErr: "is nil",
		},
		{
			name:    "bundle clash",
			opts:    []RegistryOption{WithBundle(InputStreamBundle()), WithBundle(InputStreamBundle())},
			wantErr: "duplicate channel name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	var seen HostContext
	reg, err := NewRegistry(
		WithSessionID("s-1"),
		WithMessageHandler("Echo", func(ctx context.Context, msg wireformat.Message) wireformat.Message {
			seen, _ = ctx.(HostContext)
			return echoHandler(ctx, msg)
		}),
	)
	require.NoError(t, err)

	t.Run("found handler", func(t *testing.T) {
		reply, err := reg.Invoke(context.Background(), "Echo", wireformat.Text("hi"))
		require.NoError(t, err)
		assert.Equal(t, "echo:hi", reply.Text)
		require.NotNil(t, seen)
		assert.Equal(t, "Echo", seen.ChannelName())
		assert.Equal(t, "s-1", seen.SessionID())
	})

	t.Run("channel not installed", func(t *testing.T) {
		_, err := reg.Invoke(context.Background(), entities.ChannelFsInputStream, wireformat.Text("/x"))
		var denied *bridgeerrors.PermissionDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, entities.PermissionFsInputStream, denied.Permission)
	})
}

func TestHandlerRegistry_Names_Sorted(t *testing.T) {
	reg, err := NewRegistry(
		WithBundle(CombineBundles(OutputStreamBundle(), InputStreamBundle())),
		WithMessageHandler("Echo", echoHandler),
	)
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{"Echo", entities.ChannelFsInputStream, entities.ChannelFsOutputStream}, names)

	// The returned slice is a copy.
	names[0] = "mutated"
	assert.Equal(t, "Echo", reg.Names()[0])
}
