package hostfuncs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/policy"
	"github.com/reglet-dev/reglet-bridge/internal/testutil"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputStreamHandler(t *testing.T) {
	dir := t.TempDir()
	existing := testutil.WriteFile(t, dir, "hello.txt", "hello world")
	empty := testutil.WriteFile(t, dir, "empty.bin", "")
	handler := NewInputStreamHandler(WithMaxPayload(32))
	ctx := context.Background()

	tests := []struct {
		name     string
		msg      wireformat.Message
		wantData []byte
		wantText string
	}{
		{name: "existing file", msg: wireformat.Text(existing), wantData: []byte("hello world")},
		{name: "empty file", msg: wireformat.Text(empty), wantData: []byte{}},
		{name: "missing file", msg: wireformat.Text(filepath.Join(dir, "nope")), wantText: "Failed! File does not exist."},
		{name: "directory", msg: wireformat.Text(dir), wantText: "Failed! Not a regular file."},
		{name: "empty path", msg: wireformat.Text(""), wantText: "Failed! Path was empty."},
		{name: "binary request", msg: wireformat.Binary([]byte("x")), wantText: "Failed! Unsupported message type: binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := handler(ctx, tt.msg)
			if tt.wantData != nil {
				require.True(t, reply.IsBinary(), "got %s", reply)
				assert.Equal(t, tt.wantData, reply.Data)
				return
			}
			require.True(t, reply.IsText())
			assert.Equal(t, tt.wantText, reply.Text)
		})
	}
}

func TestInputStreamHandler_OverLimit(t *testing.T) {
	big := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0o600))

	reply := NewInputStreamHandler(WithMaxPayload(32))(context.Background(), wireformat.Text(big))
	testutil.AssertFailure(t, reply, "Payload exceeds the ")
}

func TestInputStreamHandler_PathPolicy(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	allowed := filepath.Join(root, "public.txt")
	denied := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(allowed, []byte("ok"), 0o600))
	require.NoError(t, os.WriteFile(denied, []byte("no"), 0o600))

	p := policy.NewPolicy(
		&entities.FileSystemRules{Read: []string{filepath.ToSlash(root) + "/public.*"}},
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
	)
	handler := NewInputStreamHandler(WithPathPolicy(p))

	reply := handler(context.Background(), wireformat.Text(allowed))
	require.True(t, reply.IsBinary())
	assert.Equal(t, "ok", string(reply.Data))

	reply = handler(context.Background(), wireformat.Text(denied))
	assert.Equal(t, "Failed! Access denied: "+denied, reply.Text)
}
