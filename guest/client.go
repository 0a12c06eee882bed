package guest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	codec  wireformat.Codec
	logger *slog.Logger
}

// WithClientCodec selects the envelope encoding.
func WithClientCodec(c wireformat.Codec) ClientOption {
	return func(cfg *clientConfig) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// Client invokes host objects over the ObjectBridge channel. Requests carry
// a random id and replies are matched by id, so any number of invocations may
// be in flight at once.
type Client struct {
	ch     ports.Channel
	config clientConfig
	remove func()

	mu      sync.Mutex
	pending map[string]chan wireformat.ObjectResponseWire
	closed  bool
	done    chan struct{}
}

// NewClient attaches a client to an ObjectBridge channel.
func NewClient(ch ports.Channel, opts ...ClientOption) *Client {
	cfg := clientConfig{codec: wireformat.JSON, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Client{
		ch:      ch,
		config:  cfg,
		pending: make(map[string]chan wireformat.ObjectResponseWire),
		done:    make(chan struct{}),
	}
	c.remove = ch.AddListener(c.deliver)
	return c
}

// New asks the host to construct class and returns a proxy for the result.
func (c *Client) New(ctx context.Context, class string, args ...any) (*ObjectProxy, error) {
	if class == "" {
		return nil, &bridgeerrors.InvalidArgumentError{Argument: "class", Reason: "cannot be empty"}
	}
	wireArgs, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	result, err := c.roundTrip(ctx, wireformat.ObjectRequestWire{Op: wireformat.OpNew, Class: class, Args: wireArgs})
	if err != nil {
		return nil, err
	}
	if !result.IsPtr() {
		return nil, &bridgeerrors.ProtocolViolationError{
			Channel: entities.ChannelObjectBridge,
			Detail:  fmt.Sprintf("constructor returned %s, not a pointer", result.Kind),
		}
	}
	return c.proxyFor(result)
}

// Wrap returns a proxy for a handle the caller already holds. Nothing is sent.
func (c *Client) Wrap(h entities.Handle, class string) *ObjectProxy {
	return &ObjectProxy{client: c, handle: h, class: class}
}

// Close detaches the client. In-flight invocations fail with AbortedError.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.remove()
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req wireformat.ObjectRequestWire) (wireformat.ValueWire, error) {
	req.ID = uuid.NewString()
	req.Version = wireformat.ObjectProtocolVersion

	msg, err := c.config.codec.Encode(req)
	if err != nil {
		return wireformat.ValueWire{}, &bridgeerrors.InvalidArgumentError{Argument: "request", Reason: err.Error()}
	}

	reply := make(chan wireformat.ObjectResponseWire, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return wireformat.ValueWire{}, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
	c.pending[req.ID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.ch.PostMessage(ctx, msg); err != nil {
		return wireformat.ValueWire{}, &bridgeerrors.OperationFailedError{
			Operation: string(req.Op),
			Reason:    ReasonPostMessage,
			Err:       err,
		}
	}

	select {
	case resp := <-reply:
		if resp.Error != nil {
			return wireformat.ValueWire{}, bridgeerrors.FromErrorDetail(resp.Error)
		}
		if resp.Result == nil {
			return wireformat.ValueWire{Kind: wireformat.ValueNull}, nil
		}
		return *resp.Result, nil
	case <-ctx.Done():
		return wireformat.ValueWire{}, &bridgeerrors.AbortedError{Reason: ctx.Err()}
	case <-c.done:
		return wireformat.ValueWire{}, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
}

// post sends a request without waiting for the reply.
func (c *Client) post(ctx context.Context, req wireformat.ObjectRequestWire) error {
	req.ID = uuid.NewString()
	req.Version = wireformat.ObjectProtocolVersion

	msg, err := c.config.codec.Encode(req)
	if err != nil {
		return &bridgeerrors.InvalidArgumentError{Argument: "request", Reason: err.Error()}
	}
	return c.ch.PostMessage(ctx, msg)
}

func (c *Client) deliver(msg wireformat.Message) {
	var resp wireformat.ObjectResponseWire
	if err := wireformat.CodecFor(msg).Decode(msg, &resp); err != nil {
		c.config.logger.Warn("guest: undecodable object reply", "error", err)
		return
	}

	c.mu.Lock()
	reply, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		// Replies to set requests and to abandoned invocations end up here.
		c.config.logger.Debug("guest: uncorrelated object reply dropped", "id", resp.ID)
		return
	}
	reply <- resp
}

// decode turns a result into a Go value, wrapping pointers as new proxies.
func (c *Client) decode(v wireformat.ValueWire) (any, error) {
	switch v.Kind {
	case wireformat.ValuePtr:
		return c.proxyFor(v)
	case wireformat.ValueList:
		out := make([]any, len(v.List))
		for i, elem := range v.List {
			x, err := c.decode(elem)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	}
	x, err := v.Interface()
	if err != nil {
		return nil, &bridgeerrors.ProtocolViolationError{Channel: entities.ChannelObjectBridge, Detail: err.Error()}
	}
	return x, nil
}

func (c *Client) proxyFor(v wireformat.ValueWire) (*ObjectProxy, error) {
	h, ok := entities.ParsePointer(v.Ptr)
	if !ok {
		return nil, &bridgeerrors.ProtocolViolationError{
			Channel: entities.ChannelObjectBridge,
			Detail:  fmt.Sprintf("malformed pointer %q", v.Ptr),
		}
	}
	return c.Wrap(h, v.Class), nil
}

func encodeArgs(args []any) ([]wireformat.ValueWire, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]wireformat.ValueWire, len(args))
	for i, a := range args {
		v, err := wireformat.ValueOf(a)
		if err != nil {
			return nil, &bridgeerrors.InvalidArgumentError{Argument: fmt.Sprintf("args[%d]", i), Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}
