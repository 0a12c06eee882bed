package cmdutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWith executes action under a throwaway app carrying the shared flags.
func runWith(t *testing.T, args []string, action cli.ActionFunc) error {
	t.Helper()
	app := &cli.App{
		Name: "test",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "logfmt", Value: "text"},
			&cli.StringFlag{Name: "loglvl", Value: "info"},
			&cli.BoolFlag{Name: "logsrc"},
		}, ManifestFlags()...),
		Reader:    &bytes.Buffer{},
		Writer:    &bytes.Buffer{},
		ErrWriter: &bytes.Buffer{},
		Action:    action,
	}
	return app.Run(append([]string{"test"}, args...))
}

func TestVars(t *testing.T) {
	err := runWith(t, []string{"--var", "root=/srv", "--var", "mode=a=b"}, func(c *cli.Context) error {
		vars, err := Vars(c)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"root": "/srv", "mode": "a=b"}, vars)
		return nil
	})
	require.NoError(t, err)

	err = runWith(t, []string{"--var", "novalue"}, func(c *cli.Context) error {
		_, err := Vars(c)
		return err
	})
	assert.ErrorContains(t, err, "key=value")
}

func TestManifest(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		err := runWith(t, nil, func(c *cli.Context) error {
			m, err := Manifest(c)
			require.NoError(t, err)
			assert.Equal(t, "wxbridge", m.Name)
			assert.Empty(t, m.Permissions)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("templated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.yaml")
		raw := "name: {{ .vars.app }}\npermissions:\n  - " + entities.PermissionFsInputStream + "\n"
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		err := runWith(t, []string{"--manifest", path, "--var", "app=notes"}, func(c *cli.Context) error {
			m, err := Manifest(c)
			require.NoError(t, err)
			assert.Equal(t, "notes", m.Name)
			assert.Equal(t, []string{entities.PermissionFsInputStream}, m.Permissions)

			h, err := Host(c)
			require.NoError(t, err)
			assert.Equal(t, []string{entities.ChannelFsInputStream, entities.ChannelObjectBridge}, h.Installed())
			return nil
		})
		require.NoError(t, err)
	})
}

func TestSetupLogger(t *testing.T) {
	err := runWith(t, []string{"--loglvl", "loud"}, SetupLogger)
	assert.ErrorContains(t, err, "loud")

	err = runWith(t, []string{"--logfmt", "xml"}, SetupLogger)
	assert.ErrorContains(t, err, "xml")
}

