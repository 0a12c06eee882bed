package stubs

import (
	"context"
	"fmt"

	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/guest"
)

// ClassActivityThread is the host class that leads to the application.
const ClassActivityThread = "android.app.ActivityThread"

// ActivityThread is a typed client for android.app.ActivityThread.
type ActivityThread struct {
	proxy *guest.ObjectProxy
}

// NewActivityThread asks the host to construct an ActivityThread.
func NewActivityThread(ctx context.Context, client *guest.Client) (*ActivityThread, error) {
	p, err := client.New(ctx, ClassActivityThread)
	if err != nil {
		return nil, err
	}
	return &ActivityThread{proxy: p}, nil
}

// Proxy exposes the underlying proxy for members this stub does not cover.
func (t *ActivityThread) Proxy() *guest.ObjectProxy { return t.proxy }

// CurrentActivityThread returns the process-wide thread. The result is a new
// handle the caller must release.
func (t *ActivityThread) CurrentActivityThread(ctx context.Context) (*ActivityThread, error) {
	p, err := callObject(ctx, t.proxy, "currentActivityThread")
	if err != nil {
		return nil, err
	}
	return &ActivityThread{proxy: p}, nil
}

// Application returns the running application object.
func (t *ActivityThread) Application(ctx context.Context) (*guest.ObjectProxy, error) {
	return callObject(ctx, t.proxy, "getApplication")
}

// Release drops the host handle.
func (t *ActivityThread) Release(ctx context.Context) error {
	return t.proxy.Release(ctx)
}

// callObject calls a member expected to return a remote object.
func callObject(ctx context.Context, p *guest.ObjectProxy, member string, args ...any) (*guest.ObjectProxy, error) {
	v, err := p.Call(ctx, member, args...)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*guest.ObjectProxy)
	if !ok {
		return nil, &bridgeerrors.TypeMismatchError{Member: member, Detail: fmt.Sprintf("expected an object, got %T", v)}
	}
	return obj, nil
}

// callOptionalObject is callObject where the host may answer null.
func callOptionalObject(ctx context.Context, p *guest.ObjectProxy, member string, args ...any) (*guest.ObjectProxy, error) {
	v, err := p.Call(ctx, member, args...)
	if err != nil || v == nil {
		return nil, err
	}
	obj, ok := v.(*guest.ObjectProxy)
	if !ok {
		return nil, &bridgeerrors.TypeMismatchError{Member: member, Detail: fmt.Sprintf("expected an object, got %T", v)}
	}
	return obj, nil
}

func callString(ctx context.Context, p *guest.ObjectProxy, member string, args ...any) (string, error) {
	v, err := p.Call(ctx, member, args...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &bridgeerrors.TypeMismatchError{Member: member, Detail: fmt.Sprintf("expected a string, got %T", v)}
	}
	return s, nil
}
