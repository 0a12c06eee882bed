package guest

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"go.uber.org/multierr"
)

// Option configures a Bridge.
type Option func(*bridgeConfig)

type bridgeConfig struct {
	logger   *slog.Logger
	codec    wireformat.Codec
	maxChunk int
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		logger:   slog.Default(),
		codec:    wireformat.JSON,
		maxChunk: entities.DefaultMaxChunk,
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *bridgeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxChunk bounds the size of one output chunk. Larger writes are split.
func WithMaxChunk(n int) Option {
	return func(c *bridgeConfig) {
		if n > 0 {
			c.maxChunk = n
		}
	}
}

// WithCodec selects the object envelope encoding: wireformat.JSON (text
// messages, the default) or wireformat.CBOR (binary messages).
func WithCodec(codec wireformat.Codec) Option {
	return func(c *bridgeConfig) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// Bridge is the guest's entry point to one host session.
type Bridge struct {
	globals ports.Globals
	config  bridgeConfig

	mu       sync.Mutex
	conduits map[string]*conduit
	client   *Client
	closed   bool
}

// New wraps the channels of a host session.
func New(globals ports.Globals, opts ...Option) *Bridge {
	cfg := defaultBridgeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bridge{
		globals:  globals,
		config:   cfg,
		conduits: make(map[string]*conduit),
	}
}

// Has reports whether the host installed the named channel.
func (b *Bridge) Has(channel string) bool {
	_, ok := b.globals.Lookup(channel)
	return ok
}

// Objects returns the object client, creating it on first use.
func (b *Bridge) Objects() (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
	if b.client != nil {
		return b.client, nil
	}
	ch, err := b.lookup(entities.ChannelObjectBridge)
	if err != nil {
		return nil, err
	}
	b.client = NewClient(ch, WithClientCodec(b.config.codec), WithClientLogger(b.config.logger))
	return b.client, nil
}

// Close detaches the bridge from its channels. Pending operations fail with
// an AbortedError. The channels themselves belong to the caller.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conduits := b.conduits
	client := b.client
	b.conduits = make(map[string]*conduit)
	b.client = nil
	b.closed = true
	b.mu.Unlock()

	var err error
	for _, c := range conduits {
		c.close()
	}
	if client != nil {
		err = multierr.Append(err, client.Close())
	}
	return err
}

// conduit returns the request conduit for a stream channel.
func (b *Bridge) conduit(channel string) (*conduit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
	if c, ok := b.conduits[channel]; ok {
		return c, nil
	}
	ch, err := b.lookup(channel)
	if err != nil {
		return nil, err
	}
	c := newConduit(ch, b.config.logger)
	b.conduits[channel] = c
	return c, nil
}

func (b *Bridge) lookup(channel string) (ports.Channel, error) {
	ch, ok := b.globals.Lookup(channel)
	if !ok {
		perm, _ := entities.PermissionFor(channel)
		return nil, &bridgeerrors.PermissionDeniedError{Channel: channel, Permission: perm}
	}
	return ch, nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &bridgeerrors.InvalidArgumentError{Argument: "path", Reason: "cannot be empty"}
	}
	return nil
}
