// Package run implements "wxbridge run".
package run

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/infrastructure/wazero"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/cmdutil"
)

// Command returns the run command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a WASI guest against one host session",
		ArgsUsage: "<module.wasm> [guest args...]",
		Flags:     cmdutil.ManifestFlags(),
		Action:    run,
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("run: expected a wasm module")
	}
	path := c.Args().First()

	wasmBytes, err := os.ReadFile(path) //nolint:gosec // G304: the module path is the command argument
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	h, err := cmdutil.Host(c)
	if err != nil {
		return err
	}
	session, err := h.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	runner, err := wazero.NewRunner(c.Context, session)
	if err != nil {
		return err
	}
	defer runner.Close(c.Context)

	return runner.Run(c.Context, wasmBytes,
		wazero.WithGuestModuleName(path),
		wazero.WithArgs(c.Args().Slice()...),
		wazero.WithStdout(c.App.Writer),
		wazero.WithStderr(c.App.ErrWriter),
	)
}
