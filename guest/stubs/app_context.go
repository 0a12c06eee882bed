package stubs

import (
	"context"
	"fmt"
	"sync"

	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/guest"
	"go.uber.org/multierr"
)

// AppContext is a typed client for the host application context. Build one
// with NewAppContext, pass it to whatever needs it, and Close it when done.
type AppContext struct {
	proxy *guest.ObjectProxy

	mu     sync.Mutex
	closed bool
}

// NewAppContext walks ActivityThread -> currentActivityThread ->
// getApplication -> getApplicationContext. The intermediate handles are
// released before it returns, whether or not the walk succeeds. It returns
// either a context or an error, never both.
func NewAppContext(ctx context.Context, client *guest.Client) (out *AppContext, err error) {
	var intermediate []*guest.ObjectProxy
	defer func() {
		for i := len(intermediate) - 1; i >= 0; i-- {
			err = multierr.Append(err, intermediate[i].Release(ctx))
		}
		if err != nil && out != nil {
			err = multierr.Append(err, out.proxy.Release(ctx))
			out = nil
		}
	}()

	thread, err := NewActivityThread(ctx, client)
	if err != nil {
		return nil, err
	}
	intermediate = append(intermediate, thread.Proxy())

	current, err := thread.CurrentActivityThread(ctx)
	if err != nil {
		return nil, err
	}
	intermediate = append(intermediate, current.Proxy())

	app, err := current.Application(ctx)
	if err != nil {
		return nil, err
	}
	intermediate = append(intermediate, app)

	appCtx, err := callObject(ctx, app, "getApplicationContext")
	if err != nil {
		return nil, err
	}
	return &AppContext{proxy: appCtx}, nil
}

// Proxy exposes the underlying proxy for members this stub does not cover.
func (c *AppContext) Proxy() *guest.ObjectProxy { return c.proxy }

// PackageName returns the application's package name.
func (c *AppContext) PackageName(ctx context.Context) (string, error) {
	return callString(ctx, c.proxy, "getPackageName")
}

// DataDir returns the absolute path of the data directory.
func (c *AppContext) DataDir(ctx context.Context) (string, error) {
	return c.dir(ctx, "getDataDir")
}

// CacheDir returns the absolute path of the cache directory.
func (c *AppContext) CacheDir(ctx context.Context) (string, error) {
	return c.dir(ctx, "getCacheDir")
}

// FilesDir returns the absolute path of the files directory.
func (c *AppContext) FilesDir(ctx context.Context) (string, error) {
	return c.dir(ctx, "getFilesDir")
}

// ExternalCacheDir returns the external cache directory. ok is false when the
// host has none.
func (c *AppContext) ExternalCacheDir(ctx context.Context) (path string, ok bool, err error) {
	f, err := callOptionalObject(ctx, c.proxy, "getExternalCacheDir")
	if err != nil || f == nil {
		return "", false, err
	}
	path, err = absolutePath(ctx, f)
	return path, err == nil, err
}

// SystemService returns the named service, or nil if the host does not
// provide it. Non-object services come back as plain values.
func (c *AppContext) SystemService(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, &bridgeerrors.InvalidArgumentError{Argument: "name", Reason: "cannot be empty"}
	}
	return c.proxy.Call(ctx, "getSystemService", name)
}

// SharedPreferences returns the named preference store.
func (c *AppContext) SharedPreferences(ctx context.Context, name string, mode int) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getSharedPreferences", name, mode)
}

// ApplicationInfo returns the application info object.
func (c *AppContext) ApplicationInfo(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getApplicationInfo")
}

// Resources returns the resources object.
func (c *AppContext) Resources(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getResources")
}

// PackageManager returns the package manager.
func (c *AppContext) PackageManager(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getPackageManager")
}

// ContentResolver returns the content resolver.
func (c *AppContext) ContentResolver(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getContentResolver")
}

// Assets returns the asset manager.
func (c *AppContext) Assets(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, c.proxy, "getAssets")
}

// Close releases the context handle. Calling it again does nothing.
func (c *AppContext) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.proxy.Release(ctx)
}

// dir resolves a directory member. Hosts may answer with a path string or a
// File object, which is read and released.
func (c *AppContext) dir(ctx context.Context, member string) (string, error) {
	v, err := c.proxy.Call(ctx, member)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case *guest.ObjectProxy:
		return absolutePath(ctx, x)
	}
	return "", &bridgeerrors.TypeMismatchError{Member: member, Detail: fmt.Sprintf("expected a path, got %T", v)}
}

func absolutePath(ctx context.Context, f *guest.ObjectProxy) (_ string, err error) {
	defer func() {
		err = multierr.Append(err, f.Release(ctx))
	}()
	return callString(ctx, f, "getAbsolutePath")
}
