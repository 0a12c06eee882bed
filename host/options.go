package host

import (
	"log/slog"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/hostfuncs"
)

// Option configures a Host.
type Option func(*hostConfig)

type hostConfig struct {
	manifest   *entities.Manifest
	classes    *objects.ClassRegistry
	logger     *slog.Logger
	workingDir string
	middleware []hostfuncs.Middleware
	bundles    []hostfuncs.HostFuncBundle
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		manifest: &entities.Manifest{Name: "default"},
		logger:   slog.Default(),
	}
}

// WithManifest sets the static configuration. Without one no permission is
// granted, so neither stream channel is installed.
func WithManifest(m *entities.Manifest) Option {
	return func(c *hostConfig) {
		if m != nil {
			c.manifest = m
		}
	}
}

// WithClasses installs the ObjectBridge channel, constructing objects from r.
func WithClasses(r *objects.ClassRegistry) Option {
	return func(c *hostConfig) {
		c.classes = r
	}
}

// WithLogger sets the logger used by the host and every session.
func WithLogger(l *slog.Logger) Option {
	return func(c *hostConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkingDirectory resolves relative guest paths against dir.
// Defaults to the process working directory.
func WithWorkingDirectory(dir string) Option {
	return func(c *hostConfig) {
		c.workingDir = dir
	}
}

// WithMiddleware wraps every channel handler, inside the built-in panic
// recovery and logging middleware.
func WithMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(c *hostConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithBundle installs extra, ungated channels in every session.
func WithBundle(b hostfuncs.HostFuncBundle) Option {
	return func(c *hostConfig) {
		if b != nil {
			c.bundles = append(c.bundles, b)
		}
	}
}
