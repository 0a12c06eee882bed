package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDenialHandler struct {
	denials []string
}

func (h *recordingDenialHandler) OnDenial(op, path, reason string) {
	h.denials = append(h.denials, op+":"+path+":"+reason)
}

func TestPolicy_Unrestricted(t *testing.T) {
	p := policy.NewPolicy(nil, policy.WithDenialHandler(&policy.NopDenialHandler{}))

	assert.False(t, p.Restricted(policy.OpRead))
	assert.False(t, p.Restricted(policy.OpWrite))
	assert.True(t, p.CheckRead("/etc/passwd"))
	assert.True(t, p.CheckWrite("relative/path.txt"))
}

func TestPolicy_CheckRead(t *testing.T) {
	rules := &entities.FileSystemRules{
		Read: []string{"/data/**", "/etc/hosts"},
	}
	p := policy.NewPolicy(rules,
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
		policy.WithSymlinkResolution(false),
	)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"nested file", "/data/app/config.json", true},
		{"exact file", "/etc/hosts", true},
		{"traversal is cleaned", "/data/../etc/passwd", false},
		{"outside", "/etc/passwd", false},
		{"relative without cwd", "data/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CheckRead(tt.path))
		})
	}

	// Write has no rules, so it stays open.
	assert.True(t, p.CheckWrite("/anywhere"))
}

func TestPolicy_CheckWrite_WorkingDirectory(t *testing.T) {
	rules := &entities.FileSystemRules{Write: []string{"/srv/out/*.txt"}}
	p := policy.NewPolicy(rules,
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
		policy.WithSymlinkResolution(false),
		policy.WithWorkingDirectory("/srv/out"),
	)

	assert.True(t, p.CheckWrite("report.txt"))
	assert.False(t, p.CheckWrite("report.bin"))
	assert.False(t, p.CheckWrite("../report.txt"))
}

func TestPolicy_DenialHandler(t *testing.T) {
	h := &recordingDenialHandler{}
	p := policy.NewPolicy(&entities.FileSystemRules{Read: []string{"/data/**"}},
		policy.WithDenialHandler(h),
		policy.WithSymlinkResolution(false),
	)

	assert.False(t, p.CheckRead("/secret"))
	assert.False(t, p.CheckRead("rel"))
	require.Len(t, h.denials, 2)
	assert.Equal(t, "read:/secret:path not allowed", h.denials[0])
	assert.Contains(t, h.denials[1], "relative path")
}

func TestPolicy_SymlinkEscape(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	allowed := filepath.Join(root, "allowed")
	secret := filepath.Join(root, "secret")
	require.NoError(t, os.Mkdir(allowed, 0o755))
	require.NoError(t, os.Mkdir(secret, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secret, "key"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(allowed, "ok"), []byte("x"), 0o600))
	require.NoError(t, os.Symlink(filepath.Join(secret, "key"), filepath.Join(allowed, "link")))

	rules := &entities.FileSystemRules{
		Read:  []string{filepath.ToSlash(allowed) + "/**"},
		Write: []string{filepath.ToSlash(allowed) + "/**"},
	}
	p := policy.NewPolicy(rules, policy.WithDenialHandler(&policy.NopDenialHandler{}))

	assert.True(t, p.CheckRead(filepath.Join(allowed, "ok")))
	assert.False(t, p.CheckRead(filepath.Join(allowed, "link")))
	// Not created yet: the parent directory is resolved.
	assert.True(t, p.CheckWrite(filepath.Join(allowed, "new.txt")))
}
