// Package cat implements "wxbridge cat".
package cat

import (
	"errors"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/internal/cmd/cmdutil"
)

// Command returns the cat command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print a host file through the FsInputStream channel",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{cmdutil.URLFlag()},
		Action:    cat,
	}
}

func cat(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("cat: expected exactly one path")
	}

	b, closeAll, err := cmdutil.Bridge(c)
	if err != nil {
		return err
	}
	defer closeAll()

	s, err := b.OpenInputStream(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = io.Copy(c.App.Writer, s)
	return err
}
