package stubs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/guest"
	"github.com/reglet-dev/reglet-bridge/guest/stubs"
	"github.com/reglet-dev/reglet-bridge/host"
	"github.com/reglet-dev/reglet-bridge/host/builtin"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/infrastructure/memchan"
	"github.com/reglet-dev/reglet-bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect wires a guest client to one host session and returns the session's
// handle table so tests can count live handles.
func connect(t *testing.T, classes *objects.ClassRegistry) (*guest.Client, *objects.Table) {
	t.Helper()

	h, err := host.NewHost(host.WithClasses(classes))
	require.NoError(t, err)
	session, err := h.NewSession()
	require.NoError(t, err)

	hostEnd, guestEnd := memchan.Pair(entities.ChannelObjectBridge)
	require.NoError(t, session.Bind(hostEnd))

	client := guest.NewClient(guestEnd)
	t.Cleanup(func() {
		_ = client.Close()
		_ = guestEnd.Close()
		_ = session.Close()
	})
	return client, session.Objects()
}

func TestAppContext(t *testing.T) {
	data := t.TempDir()
	classes, err := builtin.Classes(
		builtin.WithPackageName("dev.example.notes"),
		builtin.WithDataDir(data),
		builtin.WithCacheDir(filepath.Join(data, "cache")),
		builtin.WithService("answer", 42),
	)
	require.NoError(t, err)

	client, table := connect(t, classes)
	ctx := context.Background()

	appCtx, err := stubs.NewAppContext(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len(), "only the context handle stays alive")
	assert.Equal(t, builtin.ClassContext, appCtx.Proxy().ClassID())

	name, err := appCtx.PackageName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dev.example.notes", name)

	dataDir, err := appCtx.DataDir(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, dataDir)

	filesDir, err := appCtx.FilesDir(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "files"), filesDir)

	cacheDir, err := appCtx.CacheDir(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "cache"), cacheDir)

	_, ok, err := appCtx.ExternalCacheDir(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	svc, err := appCtx.SystemService(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, int64(42), svc)

	svc, err = appCtx.SystemService(ctx, "window")
	require.NoError(t, err)
	assert.Nil(t, svc)

	_, err = appCtx.SystemService(ctx, "")
	testutil.AssertCode(t, err, bridgeerrors.CodeInvalidArgument)

	assert.Equal(t, 1, table.Len(), "directory objects are released after use")

	prefs, err := appCtx.SharedPreferences(ctx, "settings", 0)
	require.NoError(t, err)
	_, err = prefs.Call(ctx, "putString", "theme", "dark")
	require.NoError(t, err)
	theme, err := prefs.Call(ctx, "getString", "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
	require.NoError(t, prefs.Release(ctx))

	info, err := appCtx.ApplicationInfo(ctx)
	require.NoError(t, err)
	pkg, err := info.Get(ctx, "packageName")
	require.NoError(t, err)
	assert.Equal(t, "dev.example.notes", pkg)
	require.NoError(t, info.Release(ctx))

	_, err = appCtx.Resources(ctx)
	testutil.AssertCode(t, err, bridgeerrors.CodeInvocationError, "not served by the builtin context")

	require.NoError(t, appCtx.Close(ctx))
	require.NoError(t, appCtx.Close(ctx))
	assert.Equal(t, 0, table.Len())
}

func TestAppContext_ExternalCacheDir(t *testing.T) {
	ext := t.TempDir()
	classes, err := builtin.Classes(builtin.WithExternalCacheDir(ext))
	require.NoError(t, err)

	client, _ := connect(t, classes)
	ctx := context.Background()

	appCtx, err := stubs.NewAppContext(ctx, client)
	require.NoError(t, err)
	defer appCtx.Close(ctx)

	dir, ok, err := appCtx.ExternalCacheDir(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ext, dir)
}

// stringDirs answers directory queries with plain strings, as some hosts do.
type stringDirs struct{}

func (stringDirs) CurrentActivityThread() stringDirs { return stringDirs{} }

func (stringDirs) GetApplication() *stringDirsApp { return &stringDirsApp{} }

type stringDirsApp struct{}

func (*stringDirsApp) GetApplicationContext() *stringDirsCtx { return &stringDirsCtx{} }

type stringDirsCtx struct{}

func (*stringDirsCtx) GetDataDir() string { return "/data/app" }

func (*stringDirsCtx) GetPackageName() int { return 7 }

func TestAppContext_HostShapes(t *testing.T) {
	classes := objects.NewClassRegistry().MustRegister(stubs.ClassActivityThread, objects.Singleton(&stringDirs{}))
	client, table := connect(t, classes)
	ctx := context.Background()

	appCtx, err := stubs.NewAppContext(ctx, client)
	require.NoError(t, err)

	dir, err := appCtx.DataDir(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/data/app", dir)

	_, err = appCtx.PackageName(ctx)
	var tm *bridgeerrors.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "getPackageName", tm.Member)

	require.NoError(t, appCtx.Close(ctx))
	assert.Equal(t, 0, table.Len())
}

func TestNewAppContext_FailureReleasesIntermediates(t *testing.T) {
	classes := objects.NewClassRegistry().MustRegister(stubs.ClassActivityThread, objects.Singleton(&brokenThread{}))
	client, table := connect(t, classes)

	_, err := stubs.NewAppContext(context.Background(), client)
	testutil.AssertCode(t, err, bridgeerrors.CodeInvocationError)
	assert.Equal(t, 0, table.Len())
}

type brokenThread struct{}

func (t *brokenThread) CurrentActivityThread() *brokenThread { return t }

// cancellingThread cancels the guest's context while the context walk is
// still in progress, so releasing the intermediates fails.
type cancellingThread struct {
	cancel context.CancelFunc
}

func (c *cancellingThread) CurrentActivityThread() *cancellingThread { return c }

func (c *cancellingThread) GetApplication() *cancellingApp { return &cancellingApp{cancel: c.cancel} }

type cancellingApp struct {
	cancel context.CancelFunc
}

func (a *cancellingApp) GetApplicationContext() *stringDirsCtx {
	a.cancel()
	return &stringDirsCtx{}
}

func TestNewAppContext_ReleaseFailureReturnsNoContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	classes := objects.NewClassRegistry().MustRegister(stubs.ClassActivityThread, objects.Singleton(&cancellingThread{cancel: cancel}))
	client, _ := connect(t, classes)

	appCtx, err := stubs.NewAppContext(ctx, client)
	require.Error(t, err)
	assert.Nil(t, appCtx)
}

func TestNewAppContext_UnknownClass(t *testing.T) {
	client, table := connect(t, objects.NewClassRegistry())

	_, err := stubs.NewAppContext(context.Background(), client)
	var inv *bridgeerrors.InvocationError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, objects.MemberInit, inv.Member)
	assert.Equal(t, 0, table.Len())
}
