package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Call identifies one host call made by a guest. It rides on the context
// handed to the channel handlers.
type Call struct {
	Guest   string
	Channel string
}

type callKey struct{}

// WithCall attaches c to ctx.
func WithCall(ctx context.Context, c Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFromContext returns the call attached by WithCall.
func CallFromContext(ctx context.Context) (Call, bool) {
	c, ok := ctx.Value(callKey{}).(Call)
	return c, ok
}

// enterCall names the call on channel. A guest name already on ctx wins
// over the module name.
func enterCall(ctx context.Context, mod api.Module, channel string) context.Context {
	guest := mod.Name()
	if prev, ok := CallFromContext(ctx); ok && prev.Guest != "" {
		guest = prev.Guest
	}
	return WithCall(ctx, Call{Guest: guest, Channel: channel})
}
