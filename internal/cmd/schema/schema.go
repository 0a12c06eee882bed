// Package schema implements "wxbridge schema".
package schema

import (
	"fmt"

	"github.com/urfave/cli/v2"

	appschema "github.com/reglet-dev/reglet-bridge/application/schema"
)

// Command returns the schema command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "print a JSON schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "schema `kind`: manifest or request",
				Value: "manifest",
			},
		},
		Action: show,
	}
}

func show(c *cli.Context) error {
	var (
		raw []byte
		err error
	)
	switch kind := c.String("kind"); kind {
	case "manifest":
		raw, err = appschema.ManifestSchema()
	case "request":
		raw, err = appschema.ObjectRequestSchema()
	default:
		return fmt.Errorf("unknown schema kind %q", kind)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, string(raw))
	return err
}
