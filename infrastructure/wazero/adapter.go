package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/internal/abi"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultModuleName is the host module guests import channels from.
const DefaultModuleName = "wxbridge"

// Entry points exported next to the per-channel functions. A guest linking
// against a fixed import set probes with channel_installed(name i64) i32 and
// posts with channel_post(name i64, frame i64) i64.
const (
	FuncChannelInstalled = "channel_installed"
	FuncChannelPost      = "channel_post"
)

// Invoker serves messages on named channels. host.Session implements it.
type Invoker interface {
	// Names lists the installed channels.
	Names() []string
	// Invoke serves one message and returns its reply.
	Invoke(ctx context.Context, channel string, msg wireformat.Message) (wireformat.Message, error)
}

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "wxbridge").
	ModuleName string

	// MaxRequestSize limits the size of a frame read from guest memory.
	MaxRequestSize uint32

	// CustomHandlers allows adding wazero-specific functions that don't fit
	// the frame in, frame out pattern (e.g., a log sink with no return).
	CustomHandlers []CustomHandler
}

// CustomHandler represents a custom wazero handler that doesn't use the
// standard packed i64 request/response pattern.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum frame size read from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: DefaultModuleName,
		// One kind byte on top of the largest payload.
		MaxRequestSize: entities.DefaultMaxPayload + 1,
	}
}

// RegisterWithRuntime exports one function per installed channel from a host
// module named cfg.ModuleName.
//
// Each function:
//   - reads the request frame from guest memory (packed i64 ptr+len)
//   - decodes it and serves it through the Invoker
//   - allocates guest memory with the "allocate" export
//   - writes the reply frame and returns its packed ptr+len
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, invoker Invoker, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, name := range invoker.Names() {
		channel := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				handleChannelCall(ctx, mod, stack, invoker, channel, cfg.MaxRequestSize)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(channel)
	}

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handleInstalled(ctx, mod, stack, invoker)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI32}).
		Export(FuncChannelInstalled)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handlePost(ctx, mod, stack, invoker, cfg.MaxRequestSize)
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export(FuncChannelPost)

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

func handleChannelCall(ctx context.Context, mod api.Module, stack []uint64, invoker Invoker, channel string, maxRequestSize uint32) {
	ctx = enterCall(ctx, mod, channel)
	stack[0] = writeResponse(ctx, mod, callChannel(ctx, mod, invoker, channel, stack[0], maxRequestSize))
}

// handlePost serves channel_post(name, frame). Unknown channels get a failure
// reply rather than a link error, so guests can probe before posting.
func handlePost(ctx context.Context, mod api.Module, stack []uint64, invoker Invoker, maxRequestSize uint32) {
	channel, ok := readName(mod, stack[0])
	if !ok {
		slog.ErrorContext(ctx, "wazero: failed to read channel name from guest memory", "guest", mod.Name())
		stack[0] = writeResponse(ctx, mod, wireformat.EncodeFrame(wireformat.Failure("invalid channel name")))
		return
	}
	ctx = enterCall(ctx, mod, channel)
	if !slices.Contains(invoker.Names(), channel) {
		stack[0] = writeResponse(ctx, mod, wireformat.EncodeFrame(wireformat.Failure(fmt.Sprintf("channel %s is not installed", channel))))
		return
	}
	stack[0] = writeResponse(ctx, mod, callChannel(ctx, mod, invoker, channel, stack[1], maxRequestSize))
}

// handleInstalled serves channel_installed(name): 1 when installed, else 0.
func handleInstalled(ctx context.Context, mod api.Module, stack []uint64, invoker Invoker) {
	channel, ok := readName(mod, stack[0])
	if !ok {
		slog.ErrorContext(ctx, "wazero: failed to read channel name from guest memory")
		stack[0] = 0
		return
	}
	if slices.Contains(invoker.Names(), channel) {
		stack[0] = 1
		return
	}
	stack[0] = 0
}

// callChannel reads the request frame named by packed and serves it.
func callChannel(ctx context.Context, mod api.Module, invoker Invoker, channel string, packed uint64, maxRequestSize uint32) []byte {
	ptr, length := abi.UnpackPtrLen(packed)

	if length > maxRequestSize {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, maxRequestSize)
		slog.ErrorContext(ctx, "wazero: "+errMsg, "channel", channel)
		return wireformat.EncodeFrame(wireformat.Failure(errMsg))
	}

	frame, ok := mod.Memory().Read(ptr, length)
	if !ok || !abi.Valid(packed) {
		errMsg := "failed to read request from guest memory"
		slog.ErrorContext(ctx, "wazero: "+errMsg, "channel", channel)
		return wireformat.EncodeFrame(wireformat.Failure(errMsg))
	}

	return serveFrame(ctx, invoker, channel, frame)
}

// maxNameLength bounds channel names read from guest memory.
const maxNameLength = 256

func readName(mod api.Module, packed uint64) (string, bool) {
	ptr, length := abi.UnpackPtrLen(packed)
	if length == 0 || length > maxNameLength || !abi.Valid(packed) {
		return "", false
	}
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(b), true
}

// serveFrame decodes a request frame, serves it and encodes the reply. Every
// failure still produces a reply frame so the guest never blocks on silence.
func serveFrame(ctx context.Context, invoker Invoker, channel string, frame []byte) []byte {
	msg, err := wireformat.DecodeFrame(frame)
	if err != nil {
		slog.ErrorContext(ctx, "wazero: malformed frame", "channel", channel, "error", err)
		return wireformat.EncodeFrame(wireformat.Failure(err.Error()))
	}

	reply, err := invoker.Invoke(ctx, channel, msg)
	if err != nil {
		call, _ := CallFromContext(ctx)
		slog.ErrorContext(ctx, "wazero: channel invocation failed", "channel", channel, "guest", call.Guest, "error", err)
		return wireformat.EncodeFrame(wireformat.Failure(err.Error()))
	}
	return wireformat.EncodeFrame(reply)
}

// writeResponse allocates memory in the guest and writes the response bytes.
// Returns packed ptr+len or 0 on failure.
func writeResponse(ctx context.Context, mod api.Module, data []byte) uint64 {
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		slog.ErrorContext(ctx, "wazero: guest module missing 'allocate' export")
		return 0
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		slog.ErrorContext(ctx, "wazero: failed to call guest allocate", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 && len(data) > 0 {
		slog.ErrorContext(ctx, "wazero: guest allocate returned a null pointer")
		return 0
	}

	if !mod.Memory().Write(ptr, data) {
		slog.ErrorContext(ctx, "wazero: failed to write response to guest memory")
		return 0
	}

	return abi.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: Data length is bounded by config
}
