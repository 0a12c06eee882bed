package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/internal/cmd/cat"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/cmdutil"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/put"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/run"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/schema"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/serve"
)

var version = "dev"

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "logfmt",
		Aliases: []string{"f"},
		Usage:   "`format` logs as text or json",
		Value:   "text",
		EnvVars: []string{"WXBRIDGE_LOGFMT"},
	},
	&cli.StringFlag{
		Name:    "loglvl",
		Usage:   "set logging `level` to debug, info, warn or error",
		Value:   "info",
		EnvVars: []string{"WXBRIDGE_LOGLVL"},
	},
	&cli.BoolFlag{
		Name:    "logsrc",
		Usage:   "annotate logs with source locations",
		EnvVars: []string{"WXBRIDGE_LOGSRC"},
	},
}

var commands = []*cli.Command{
	serve.Command(),
	run.Command(),
	cat.Command(),
	put.Command(),
	schema.Command(),
}

func main() {
	app := &cli.App{
		Name:      "wxbridge",
		Usage:     "serve and exercise the object and file stream bridge",
		UsageText: "wxbridge [global options] command [command options] [arguments...]",
		Version:   version,
		Flags:     flags,
		Commands:  commands,
		Before:    cmdutil.SetupLogger,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wxbridge:", err)
		os.Exit(1)
	}
}
