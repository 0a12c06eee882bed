// Package wasmchan lets a guest compiled to WASI reach its host through the
// wxbridge host module. Each post is one synchronous host call whose reply is
// delivered to the channel's listeners before PostMessage returns.
package wasmchan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/infrastructure/memchan"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// ErrClosed is returned when posting on a closed channel.
var ErrClosed = errors.New("wasmchan: channel closed")

// Caller performs host calls. Host() returns the real one under wasip1.
type Caller interface {
	// Installed reports whether the host serves the named channel.
	Installed(name string) bool
	// Call sends one request frame and returns the reply frame.
	Call(name string, frame []byte) ([]byte, error)
}

// Channel is a ports.Channel over a Caller.
type Channel struct {
	caller Caller
	name   string

	mu        sync.Mutex
	listeners map[int]ports.Listener
	order     []int
	nextID    int
	closed    bool
}

var _ ports.Channel = (*Channel)(nil)

// NewChannel returns a channel named name.
func NewChannel(name string, caller Caller) *Channel {
	return &Channel{name: name, caller: caller, listeners: make(map[int]ports.Listener)}
}

func (c *Channel) Name() string { return c.name }

// PostMessage calls the host and hands the reply to every listener.
func (c *Channel) PostMessage(ctx context.Context, msg wireformat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	frame, err := c.caller.Call(c.name, wireformat.EncodeFrame(msg))
	if err != nil {
		return fmt.Errorf("wasmchan: call %s: %w", c.name, err)
	}
	reply, err := wireformat.DecodeFrame(frame)
	if err != nil {
		return fmt.Errorf("wasmchan: reply on %s: %w", c.name, err)
	}

	for _, l := range c.snapshot() {
		l(reply.Clone())
	}
	return nil
}

// AddListener registers l. The returned func removes it and is idempotent.
func (c *Channel) AddListener(l ports.Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.order = append(c.order, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close stops further posts.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Channel) snapshot() []ports.Listener {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.order[:0]
	out := make([]ports.Listener, 0, len(c.listeners))
	for _, id := range c.order {
		if l, ok := c.listeners[id]; ok {
			live = append(live, id)
			out = append(out, l)
		}
	}
	c.order = live
	return out
}

// Install probes the host for each known channel and installs the ones it
// serves. The result is what guest.New expects.
func Install(caller Caller) *memchan.Globals {
	globals := memchan.NewGlobals()
	for _, name := range []string{
		entities.ChannelFsInputStream,
		entities.ChannelFsOutputStream,
		entities.ChannelObjectBridge,
	} {
		if caller.Installed(name) {
			globals.Install(NewChannel(name, caller))
		}
	}
	return globals
}
