package wazero

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Runner executes WASI guests that talk to one host session through the
// exported channel functions.
type Runner struct {
	runtime wazero.Runtime
}

// RunOption configures a single guest run.
type RunOption func(*runConfig)

type runConfig struct {
	stdout io.Writer
	stderr io.Writer
	name   string
	args   []string
}

// WithArgs sets the guest argv (argv[0] included).
func WithArgs(args ...string) RunOption {
	return func(c *runConfig) {
		c.args = args
	}
}

// WithStdout routes guest stdout.
func WithStdout(w io.Writer) RunOption {
	return func(c *runConfig) {
		c.stdout = w
	}
}

// WithStderr routes guest stderr.
func WithStderr(w io.Writer) RunOption {
	return func(c *runConfig) {
		c.stderr = w
	}
}

// WithGuestModuleName names the guest module instance; it shows up in logs.
func WithGuestModuleName(name string) RunOption {
	return func(c *runConfig) {
		c.name = name
	}
}

// NewRunner creates a runtime with WASI and the channel host module.
func NewRunner(ctx context.Context, invoker Invoker, opts ...AdapterOption) (*Runner, error) {
	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	if err := RegisterWithRuntime(ctx, rt, invoker, opts...); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register channel functions: %w", err)
	}

	return &Runner{runtime: rt}, nil
}

// Run instantiates the module, which runs its _start export, and waits for it
// to return. A zero exit code is success.
func (r *Runner) Run(ctx context.Context, wasmBytes []byte, opts ...RunOption) error {
	cfg := runConfig{stdout: io.Discard, stderr: io.Discard, name: "guest"}
	for _, opt := range opts {
		opt(&cfg)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(cfg.name).
		WithStdout(cfg.stdout).
		WithStderr(cfg.stderr).
		WithArgs(cfg.args...)

	mod, err := r.runtime.InstantiateWithConfig(ctx, wasmBytes, modCfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("failed to run guest: %w", err)
	}
	return mod.Close(ctx)
}

// Close releases resources held by the runtime.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
