package hostfuncs

import (
	"context"
)

// HostContext wraps a standard context.Context with handler-specific helpers.
// It carries the channel being served and the host session it belongs to, and
// allows middleware to store request-scoped values without polluting the
// standard context.
type HostContext interface {
	context.Context

	// ChannelName returns the name of the channel being served.
	ChannelName() string

	// SessionID returns the identifier of the host session.
	SessionID() string

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values    map[any]any
	channel   string
	sessionID string
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, channel, sessionID string) HostContext {
	return &hostContext{
		Context:   ctx,
		channel:   channel,
		sessionID: sessionID,
		values:    make(map[any]any),
	}
}

func (c *hostContext) ChannelName() string {
	return c.channel
}

func (c *hostContext) SessionID() string {
	return c.sessionID
}

func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
// Otherwise, a new HostContext is created wrapping the given context.
func HostContextFrom(ctx context.Context, channel, sessionID string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, channel, sessionID)
}
