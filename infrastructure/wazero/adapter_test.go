package wazero

import (
	"context"
	"errors"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/reglet-dev/reglet-bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/sys"
)

type fakeInvoker struct {
	names []string
	err   error
	seen  []wireformat.Message
}

func (f *fakeInvoker) Names() []string { return f.names }

func (f *fakeInvoker) Invoke(_ context.Context, channel string, msg wireformat.Message) (wireformat.Message, error) {
	f.seen = append(f.seen, msg)
	if f.err != nil {
		return wireformat.Message{}, f.err
	}
	return wireformat.Text(channel + ":" + msg.String()), nil
}

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()
	assert.Equal(t, DefaultModuleName, cfg.ModuleName)
	assert.Equal(t, uint32(entities.DefaultMaxPayload+1), cfg.MaxRequestSize)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithCustomHandler(CustomHandler{Name: "log_message"})(&cfg)

	assert.Equal(t, "custom_module", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	require.Len(t, cfg.CustomHandlers, 1)
	assert.Equal(t, "log_message", cfg.CustomHandlers[0].Name)
}

func TestServeFrame(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		inv := &fakeInvoker{}
		reply, err := wireformat.DecodeFrame(serveFrame(ctx, inv, "FsInputStream", wireformat.EncodeFrame(wireformat.Text("/a"))))
		require.NoError(t, err)
		assert.Equal(t, `FsInputStream:text("/a")`, reply.Text)
		require.Len(t, inv.seen, 1)
		assert.Equal(t, wireformat.Text("/a"), inv.seen[0])
	})

	t.Run("malformed frame", func(t *testing.T) {
		inv := &fakeInvoker{}
		reply, err := wireformat.DecodeFrame(serveFrame(ctx, inv, "X", nil))
		require.NoError(t, err)
		testutil.AssertFailure(t, reply)
		assert.Empty(t, inv.seen)
	})

	t.Run("invoke error", func(t *testing.T) {
		inv := &fakeInvoker{err: errors.New("not installed")}
		reply, err := wireformat.DecodeFrame(serveFrame(ctx, inv, "X", wireformat.EncodeFrame(wireformat.Binary([]byte{1}))))
		require.NoError(t, err)
		assert.Equal(t, "Failed! not installed", reply.Text)
	})
}

func TestCallContext(t *testing.T) {
	ctx := context.Background()
	_, ok := CallFromContext(ctx)
	assert.False(t, ok)

	ctx = WithCall(ctx, Call{Guest: "reader", Channel: entities.ChannelFsInputStream})
	call, ok := CallFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "reader", call.Guest)
	assert.Equal(t, entities.ChannelFsInputStream, call.Channel)
}

// callRecorder captures the call each invocation ran under.
type callRecorder struct {
	fakeInvoker
	calls []Call
}

func (r *callRecorder) Invoke(ctx context.Context, channel string, msg wireformat.Message) (wireformat.Message, error) {
	call, _ := CallFromContext(ctx)
	r.calls = append(r.calls, call)
	return r.fakeInvoker.Invoke(ctx, channel, msg)
}

func TestRunner(t *testing.T) {
	ctx := context.Background()
	runner, err := NewRunner(ctx, &fakeInvoker{names: []string{entities.ChannelFsInputStream, entities.ChannelObjectBridge}})
	require.NoError(t, err)
	defer func() { require.NoError(t, runner.Close(ctx)) }()

	err = runner.Run(ctx, []byte("not wasm"))
	assert.Error(t, err)
}

// installedProbe is a hand-assembled guest:
//
//	(import "wasi_snapshot_preview1" "proc_exit" (func (param i32)))
//	(import "wxbridge" "channel_installed" (func (param i64) (result i32)))
//	(func $_start (call $proc_exit (call $channel_installed (i64.const <ptr 16, len 12>))))
//	(data (i32.const 16) "ObjectBridge")
//
// Its exit code is the probe result.
var installedProbe = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x12, 0x04, 0x60,
	0x01, 0x7f, 0x00, 0x60, 0x01, 0x7e, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x60,
	0x01, 0x7f, 0x01, 0x7f, 0x02, 0x41, 0x02, 0x16, 0x77, 0x61, 0x73, 0x69,
	0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72,
	0x65, 0x76, 0x69, 0x65, 0x77, 0x31, 0x09, 0x70, 0x72, 0x6f, 0x63, 0x5f,
	0x65, 0x78, 0x69, 0x74, 0x00, 0x00, 0x08, 0x77, 0x78, 0x62, 0x72, 0x69,
	0x64, 0x67, 0x65, 0x11, 0x63, 0x68, 0x61, 0x6e, 0x6e, 0x65, 0x6c, 0x5f,
	0x69, 0x6e, 0x73, 0x74, 0x61, 0x6c, 0x6c, 0x65, 0x64, 0x00, 0x01, 0x03,
	0x03, 0x02, 0x02, 0x03, 0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x1e, 0x03,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x06, 0x5f, 0x73,
	0x74, 0x61, 0x72, 0x74, 0x00, 0x02, 0x08, 0x61, 0x6c, 0x6c, 0x6f, 0x63,
	0x61, 0x74, 0x65, 0x00, 0x03, 0x0a, 0x15, 0x02, 0x0d, 0x00, 0x42, 0x8c,
	0x80, 0x80, 0x80, 0x80, 0x02, 0x10, 0x01, 0x10, 0x00, 0x0b, 0x05, 0x00,
	0x41, 0x80, 0x08, 0x0b, 0x0b, 0x12, 0x01, 0x00, 0x41, 0x10, 0x0b, 0x0c,
	0x4f, 0x62, 0x6a, 0x65, 0x63, 0x74, 0x42, 0x72, 0x69, 0x64, 0x67, 0x65,
}

// postProbe posts the frame text("/a") on ObjectBridge through channel_post
// and exits with the length of the reply frame. Its allocate export always
// answers 1024.
var postProbe = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x13, 0x04, 0x60,
	0x01, 0x7f, 0x00, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e, 0x60, 0x00, 0x00,
	0x60, 0x01, 0x7f, 0x01, 0x7f, 0x02, 0x3c, 0x02, 0x16, 0x77, 0x61, 0x73,
	0x69, 0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70,
	0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31, 0x09, 0x70, 0x72, 0x6f, 0x63,
	0x5f, 0x65, 0x78, 0x69, 0x74, 0x00, 0x00, 0x08, 0x77, 0x78, 0x62, 0x72,
	0x69, 0x64, 0x67, 0x65, 0x0c, 0x63, 0x68, 0x61, 0x6e, 0x6e, 0x65, 0x6c,
	0x5f, 0x70, 0x6f, 0x73, 0x74, 0x00, 0x01, 0x03, 0x03, 0x02, 0x02, 0x03,
	0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x1e, 0x03, 0x06, 0x6d, 0x65, 0x6d,
	0x6f, 0x72, 0x79, 0x02, 0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74,
	0x00, 0x02, 0x08, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x61, 0x74, 0x65, 0x00,
	0x03, 0x0a, 0x1d, 0x02, 0x15, 0x00, 0x42, 0x8c, 0x80, 0x80, 0x80, 0x80,
	0x02, 0x42, 0x83, 0x80, 0x80, 0x80, 0x80, 0x04, 0x10, 0x01, 0xa7, 0x10,
	0x00, 0x0b, 0x05, 0x00, 0x41, 0x80, 0x08, 0x0b, 0x0b, 0x1a, 0x02, 0x00,
	0x41, 0x10, 0x0b, 0x0c, 0x4f, 0x62, 0x6a, 0x65, 0x63, 0x74, 0x42, 0x72,
	0x69, 0x64, 0x67, 0x65, 0x00, 0x41, 0x20, 0x0b, 0x03, 0x01, 0x2f, 0x61,
}

func exitCode(t *testing.T, err error) uint32 {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *sys.ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.ExitCode()
}

func TestRunner_ChannelInstalled(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		names []string
		want  uint32
	}{
		{name: "installed", names: []string{entities.ChannelObjectBridge}, want: 1},
		{name: "absent", names: []string{entities.ChannelFsInputStream}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := NewRunner(ctx, &fakeInvoker{names: tt.names})
			require.NoError(t, err)
			defer func() { require.NoError(t, runner.Close(ctx)) }()

			assert.Equal(t, tt.want, exitCode(t, runner.Run(ctx, installedProbe)))
		})
	}
}

func TestRunner_ChannelPost(t *testing.T) {
	ctx := context.Background()
	inv := &callRecorder{fakeInvoker: fakeInvoker{names: []string{entities.ChannelObjectBridge}}}
	runner, err := NewRunner(ctx, inv)
	require.NoError(t, err)
	defer func() { require.NoError(t, runner.Close(ctx)) }()

	code := exitCode(t, runner.Run(ctx, postProbe, WithGuestModuleName("probe")))

	assert.Equal(t, []Call{{Guest: "probe", Channel: entities.ChannelObjectBridge}}, inv.calls)
	require.Len(t, inv.seen, 1)
	assert.Equal(t, wireformat.Text("/a"), inv.seen[0])
	want := wireformat.EncodeFrame(wireformat.Text(`ObjectBridge:text("/a")`))
	assert.Equal(t, uint32(len(want)), code)
}

func TestRunner_ChannelPostNotInstalled(t *testing.T) {
	ctx := context.Background()
	inv := &fakeInvoker{names: []string{entities.ChannelFsInputStream}}
	runner, err := NewRunner(ctx, inv)
	require.NoError(t, err)
	defer func() { require.NoError(t, runner.Close(ctx)) }()

	code := exitCode(t, runner.Run(ctx, postProbe))

	assert.Empty(t, inv.seen)
	want := wireformat.EncodeFrame(wireformat.Failure("channel ObjectBridge is not installed"))
	assert.Equal(t, uint32(len(want)), code)
}
