package hostfuncs

import (
	"context"
	"fmt"
	"sort"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// HandlerRegistry is an immutable collection of channel handlers.
// Once created via NewRegistry, handlers cannot be added or removed.
// A registry is built per host session because the stream handlers keep
// per-connection state.
type HandlerRegistry struct {
	handlers   map[string]MessageHandler
	sessionID  string
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]MessageHandler
	sessionID  string
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any channel name is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(InputStreamBundle(WithMaxPayload(1<<20))),
//	    WithMessageHandler("Echo", echo),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers: make(map[string]MessageHandler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware in reverse order so the first middleware wraps outermost.
	wrappedHandlers := make(map[string]MessageHandler, len(b.handlers))
	for name, handler := range b.handlers {
		wrapped := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			wrapped = b.middleware[i](wrapped)
		}
		wrappedHandlers[name] = wrapped
	}

	return &HandlerRegistry{
		handlers:   wrappedHandlers,
		sessionID:  b.sessionID,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Invoke serves one inbound message on the named channel.
// An unknown channel yields a PermissionDeniedError: channels missing from the
// registry were never installed.
func (r *HandlerRegistry) Invoke(ctx context.Context, channel string, msg wireformat.Message) (wireformat.Message, error) {
	handler, ok := r.handlers[channel]
	if !ok {
		perm, _ := entities.PermissionFor(channel)
		return wireformat.Message{}, &bridgeerrors.PermissionDeniedError{Channel: channel, Permission: perm}
	}

	hctx := HostContextFrom(ctx, channel, r.sessionID)
	return handler(hctx, msg), nil
}

// Has returns true if a handler for the channel is registered.
func (r *HandlerRegistry) Has(channel string) bool {
	_, ok := r.handlers[channel]
	return ok
}

// Names returns a sorted list of all registered channel names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// addHandler registers a handler for the given channel.
// Returns an error if the name is already registered.
func (b *registryBuilder) addHandler(name string, handler MessageHandler) error {
	if name == "" {
		return fmt.Errorf("channel name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for channel %q is nil", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate channel name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// WithMessageHandler registers a handler for the named channel.
func WithMessageHandler(name string, handler MessageHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithSessionID tags every HostContext created by the registry.
func WithSessionID(id string) RegistryOption {
	return func(b *registryBuilder) {
		b.sessionID = id
	}
}
