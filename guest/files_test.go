package guest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/guest"
	"github.com/reglet-dev/reglet-bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Theme   string   `json:"theme"`
	Modules []string `json:"modules"`
	Enabled bool     `json:"enabled"`
}

func TestFileHelpers_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := newBridge(t, allPermissions, nil, guest.WithMaxChunk(8))
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, b.WriteTextFile(ctx, path, "a longer text than one chunk"))

		got, err := b.ReadTextFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "a longer text than one chunk", got)
	})

	t.Run("binary", func(t *testing.T) {
		path := filepath.Join(dir, "blob")
		want := []byte{0, 1, 2, 3, 255, 254, 253, 252, 251, 250}
		require.NoError(t, b.WriteBinaryFile(ctx, path, want))

		got, err := b.ReadBinaryFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty file truncates", func(t *testing.T) {
		path := filepath.Join(dir, "empty")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
		require.NoError(t, b.WriteBinaryFile(ctx, path, nil))

		got, err := b.ReadBinaryFile(ctx, path)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "settings.json")
		want := settings{Theme: "dark", Modules: []string{"a", "b"}, Enabled: true}
		require.NoError(t, b.WriteJSONFile(ctx, path, want))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		testutil.AssertJSONEqual(t, `{"theme":"dark","modules":["a","b"],"enabled":true}`, string(raw))

		got, err := guest.ReadJSONFile[settings](ctx, b, path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("bad json", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "broken.json", "{")

		_, err := guest.ReadJSONFile[settings](ctx, b, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken.json")
	})

	t.Run("unencodable json", func(t *testing.T) {
		err := b.WriteJSONFile(ctx, filepath.Join(dir, "chan.json"), make(chan int))
		testutil.AssertCode(t, err, bridgeerrors.CodeInvalidArgument)
	})
}

func TestFileHelpers_OutputPermissionAbsent(t *testing.T) {
	b := newBridge(t, []string{entities.PermissionFsInputStream}, nil)

	err := b.WriteTextFile(context.Background(), filepath.Join(t.TempDir(), "x"), "x")
	testutil.AssertCode(t, err, bridgeerrors.CodePermissionDenied)
	assert.Contains(t, err.Error(), entities.PermissionFsOutputStream)
}

func TestBridge_CloseAbortsPending(t *testing.T) {
	b, hosts := newScripted(t, entities.ChannelFsInputStream)
	fs := hosts[entities.ChannelFsInputStream]

	done := make(chan error, 1)
	go func() {
		_, err := b.ReadBinaryFile(context.Background(), "/never")
		done <- err
	}()
	fs.expect()

	require.NoError(t, b.Close())
	assert.Equal(t, bridgeerrors.CodeAborted, bridgeerrors.CodeOf(<-done))

	_, err := b.OpenInputStream(context.Background(), "/after")
	testutil.AssertCode(t, err, bridgeerrors.CodeAborted)
}
