package hostfuncs

import (
	"github.com/reglet-dev/reglet-bridge/domain/entities"
)

// HostFuncBundle is a set of channel handlers installed together.
// Handlers returns fresh handlers on every call so stateful handlers are never
// shared between host sessions.
type HostFuncBundle interface {
	Handlers() map[string]MessageHandler
}

// bundleFunc adapts a function to HostFuncBundle.
type bundleFunc func() map[string]MessageHandler

func (f bundleFunc) Handlers() map[string]MessageHandler {
	return f()
}

// InputStreamBundle returns the FsInputStream handler.
func InputStreamBundle(opts ...FsOption) HostFuncBundle {
	return bundleFunc(func() map[string]MessageHandler {
		return map[string]MessageHandler{
			entities.ChannelFsInputStream: NewInputStreamHandler(opts...),
		}
	})
}

// OutputStreamBundle returns a fresh FsOutputStream handler.
func OutputStreamBundle(opts ...FsOption) HostFuncBundle {
	return bundleFunc(func() map[string]MessageHandler {
		return map[string]MessageHandler{
			entities.ChannelFsOutputStream: NewOutputStreamHandler(opts...),
		}
	})
}

// ObjectBridgeBundle returns the ObjectBridge handler bound to b.
func ObjectBridgeBundle(b *ObjectBridge) HostFuncBundle {
	return bundleFunc(func() map[string]MessageHandler {
		return map[string]MessageHandler{
			entities.ChannelObjectBridge: b.Handler(),
		}
	})
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]MessageHandler {
	result := make(map[string]MessageHandler)
	for _, bundle := range b.bundles {
		for name, handler := range bundle.Handlers() {
			result[name] = handler
		}
	}
	return result
}

// CombineBundles merges bundles. Later bundles win on name clashes.
func CombineBundles(bundles ...HostFuncBundle) HostFuncBundle {
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			if err := b.addHandler(name, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}
