// Package cmdutil holds helpers shared by the wxbridge subcommands.
package cmdutil

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/guest"
	"github.com/reglet-dev/reglet-bridge/host"
	"github.com/reglet-dev/reglet-bridge/host/builtin"
	"github.com/reglet-dev/reglet-bridge/infrastructure/websocket"
	bridgelog "github.com/reglet-dev/reglet-bridge/log"
)

// ManifestFlags are accepted by every command that builds a host.
func ManifestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:    "manifest",
			Aliases: []string{"m"},
			Usage:   "load the host manifest from `path`",
			EnvVars: []string{"WXBRIDGE_MANIFEST"},
		},
		&cli.StringSliceFlag{
			Name:  "var",
			Usage: "template variable for the manifest as `key=value`",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "fail on manifest template variables that are not set",
		},
	}
}

// URLFlag names the bridge a guest command connects to.
func URLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "bridge base `url`",
		Value:   "ws://127.0.0.1:8770/",
		EnvVars: []string{"WXBRIDGE_URL"},
	}
}

// SetupLogger installs the process logger from the global flags.
func SetupLogger(c *cli.Context) error {
	level, err := bridgelog.ParseLevel(c.String("loglvl"))
	if err != nil {
		return err
	}
	format, err := bridgelog.ParseFormat(c.String("logfmt"))
	if err != nil {
		return err
	}

	slog.SetDefault(bridgelog.New(c.App.ErrWriter,
		bridgelog.WithLevel(level),
		bridgelog.WithFormat(format),
		bridgelog.WithSource(c.Bool("logsrc")),
	))
	return nil
}

// Vars parses the repeated --var flag.
func Vars(c *cli.Context) (map[string]any, error) {
	vars := make(map[string]any)
	for _, kv := range c.StringSlice("var") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

// Manifest loads the manifest named by --manifest. Without the flag the
// host runs with an empty manifest: objects only, no stream channels.
func Manifest(c *cli.Context) (*entities.Manifest, error) {
	path := c.Path("manifest")
	if path == "" {
		return &entities.Manifest{Name: "wxbridge"}, nil
	}

	vars, err := Vars(c)
	if err != nil {
		return nil, err
	}
	return host.NewLoader(host.WithStrictTemplates(c.Bool("strict"))).LoadManifestFile(path, vars)
}

// Host builds a host from the manifest flags, serving the builtin classes.
func Host(c *cli.Context) (*host.Host, error) {
	m, err := Manifest(c)
	if err != nil {
		return nil, err
	}

	classes, err := builtin.Classes(builtin.WithPackageName(m.Name))
	if err != nil {
		return nil, err
	}

	return host.NewHost(
		host.WithManifest(m),
		host.WithClasses(classes),
		host.WithLogger(slog.Default()),
	)
}

// Bridge connects a guest bridge to the server named by --url. Channels the
// server does not install are simply absent.
func Bridge(c *cli.Context) (*guest.Bridge, func() error, error) {
	names := []string{
		entities.ChannelFsInputStream,
		entities.ChannelFsOutputStream,
		entities.ChannelObjectBridge,
	}
	globals, err := websocket.Dial(c.Context, c.String("url"), names, websocket.WithDialLogger(slog.Default()))
	if err != nil {
		return nil, nil, err
	}

	b := guest.New(globals, guest.WithLogger(slog.Default()))
	closeAll := func() error {
		_ = b.Close()
		return globals.Close()
	}
	return b, closeAll, nil
}
