package hostfuncs

import (
	"log/slog"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
)

// FsOption configures the file stream handlers.
type FsOption func(*fsConfig)

type fsConfig struct {
	policy     ports.PathPolicy
	logger     *slog.Logger
	maxPayload int
}

func defaultFsConfig() fsConfig {
	return fsConfig{
		policy:     allowAll{},
		logger:     slog.Default(),
		maxPayload: entities.DefaultMaxPayload,
	}
}

// WithPathPolicy restricts the paths the handlers may read or write.
func WithPathPolicy(p ports.PathPolicy) FsOption {
	return func(c *fsConfig) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithMaxPayload bounds a file read and a single written chunk.
func WithMaxPayload(n int) FsOption {
	return func(c *fsConfig) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// WithFsLogger sets the logger used for file operations.
func WithFsLogger(l *slog.Logger) FsOption {
	return func(c *fsConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newFsConfig(opts []FsOption) fsConfig {
	cfg := defaultFsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type allowAll struct{}

func (allowAll) CheckRead(string) bool  { return true }
func (allowAll) CheckWrite(string) bool { return true }
