// Package put implements "wxbridge put".
package put

import (
	"errors"
	"io"
	"log/slog"

	"github.com/jpillora/sizestr"
	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/internal/cmd/cmdutil"
)

// Command returns the put command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "write stdin to a host file through the FsOutputStream channel",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{cmdutil.URLFlag()},
		Action:    put,
	}
}

func put(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("put: expected exactly one path")
	}

	b, closeAll, err := cmdutil.Bridge(c)
	if err != nil {
		return err
	}
	defer closeAll()

	s, err := b.OpenOutputStream(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := io.Copy(s, c.App.Reader)
	if err != nil {
		return err
	}
	slog.Debug("put: done", "path", s.Path(), "size", sizestr.ToString(n))
	return nil
}
