package memchan

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"go.uber.org/multierr"
)

// ErrClosed is returned when posting on a closed pair.
var ErrClosed = errors.New("memchan: channel is closed")

// Endpoint is one end of an in-process channel pair.
type Endpoint struct {
	name string
	peer *Endpoint

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint64
	queue     []wireformat.Message

	signal chan struct{}
	done   chan struct{}
	once   *sync.Once
}

type listenerEntry struct {
	id uint64
	fn ports.Listener
}

var _ ports.Channel = (*Endpoint)(nil)

// Pair creates two connected endpoints sharing the given channel name.
// Closing either end closes both.
func Pair(name string) (*Endpoint, *Endpoint) {
	done := make(chan struct{})
	once := &sync.Once{}

	a := &Endpoint{name: name, signal: make(chan struct{}, 1), done: done, once: once}
	b := &Endpoint{name: name, signal: make(chan struct{}, 1), done: done, once: once}
	a.peer, b.peer = b, a

	go a.pump()
	go b.pump()
	return a, b
}

// Name implements ports.Channel.
func (e *Endpoint) Name() string { return e.name }

// PostMessage queues msg for the peer's listeners. It never waits for delivery.
func (e *Endpoint) PostMessage(ctx context.Context, msg wireformat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	p := e.peer
	p.mu.Lock()
	p.queue = append(p.queue, msg.Clone())
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
	return nil
}

// AddListener implements ports.Channel.
func (e *Endpoint) AddListener(l ports.Listener) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, entry := range e.listeners {
				if entry.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Close closes both ends of the pair. Queued messages are dropped.
func (e *Endpoint) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

// Done is closed once the pair is closed.
func (e *Endpoint) Done() <-chan struct{} { return e.done }

func (e *Endpoint) pump() {
	for {
		select {
		case <-e.done:
			return
		case <-e.signal:
		}

		for {
			msg, listeners, ok := e.next()
			if !ok {
				break
			}
			for _, l := range listeners {
				l.fn(msg)
			}
		}
	}
}

// next pops the oldest queued message together with a snapshot of the
// listeners registered at that moment.
func (e *Endpoint) next() (wireformat.Message, []listenerEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return wireformat.Message{}, nil, false
	default:
	}
	if len(e.queue) == 0 {
		return wireformat.Message{}, nil, false
	}

	msg := e.queue[0]
	e.queue[0] = wireformat.Message{}
	e.queue = e.queue[1:]

	snapshot := make([]listenerEntry, len(e.listeners))
	copy(snapshot, e.listeners)
	return msg, snapshot, true
}

// Globals is a fixed directory of installed channels. It is the guest's view
// of a host session and is transport agnostic; the websocket client uses it too.
type Globals struct {
	mu       sync.RWMutex
	channels map[string]ports.Channel
	closers  []io.Closer
	closed   bool
}

var _ ports.Globals = (*Globals)(nil)

// NewGlobals returns an empty directory.
func NewGlobals() *Globals {
	return &Globals{channels: make(map[string]ports.Channel)}
}

// Install adds a channel under its own name. When the channel is an
// io.Closer it is closed with the directory.
func (g *Globals) Install(ch ports.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.Name()] = ch
	if c, ok := ch.(io.Closer); ok {
		g.closers = append(g.closers, c)
	}
}

// AddCloser registers an extra resource torn down by Close, such as the
// host session that serves the channels.
func (g *Globals) AddCloser(c io.Closer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closers = append(g.closers, c)
}

// Lookup implements ports.Globals.
func (g *Globals) Lookup(name string) (ports.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.channels[name]
	return ch, ok
}

// Names returns the installed channel names, sorted.
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.channels))
	for name := range g.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered resource in reverse registration order.
// It is safe to call more than once.
func (g *Globals) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	closers := g.closers
	g.closers = nil
	g.mu.Unlock()

	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}
	return err
}
