package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// closeGracePeriod bounds the close handshake write.
const closeGracePeriod = 5 * time.Second

// ErrClosed is returned when posting on a closed connection.
var ErrClosed = errors.New("websocket: channel is closed")

// Conn adapts one websocket connection to ports.Channel.
// Inbound frames are delivered from a single read goroutine, in order.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	name   string

	writeMu sync.Mutex

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint64
	err       error

	done chan struct{}
	once sync.Once
}

type listenerEntry struct {
	fn ports.Listener
	id uint64
}

var _ ports.Channel = (*Conn)(nil)

// NewConn wraps an established websocket and starts its read loop.
func NewConn(name string, ws *websocket.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		ws:     ws,
		logger: logger,
		name:   name,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Name implements ports.Channel.
func (c *Conn) Name() string { return c.name }

// PostMessage writes msg as a text or binary frame. A context deadline
// becomes the write deadline.
func (c *Conn) PostMessage(ctx context.Context, msg wireformat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	frameType, payload, err := frameOf(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("websocket: set write deadline on %s: %w", c.name, err)
	}
	if err := c.ws.WriteMessage(frameType, payload); err != nil {
		c.shutdown(err)
		return fmt.Errorf("websocket: write on %s: %w", c.name, err)
	}
	return nil
}

// AddListener implements ports.Channel.
func (c *Conn) AddListener(l ports.Listener) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: l})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, entry := range c.listeners {
				if entry.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Done is closed when the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil while it is open or after a
// clean close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	c.writeMu.Unlock()

	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) readLoop() {
	for {
		frameType, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(nil)
			} else {
				select {
				case <-c.done:
				default:
					c.logger.Debug("websocket: read loop ended", "channel", c.name, "error", err)
				}
				c.shutdown(err)
			}
			return
		}

		var msg wireformat.Message
		switch frameType {
		case websocket.TextMessage:
			msg = wireformat.Text(string(payload))
		case websocket.BinaryMessage:
			msg = wireformat.Binary(payload)
		default:
			continue
		}

		c.mu.Lock()
		listeners := make([]listenerEntry, len(c.listeners))
		copy(listeners, c.listeners)
		c.mu.Unlock()

		for _, l := range listeners {
			l.fn(msg)
		}
	}
}

func frameOf(msg wireformat.Message) (int, []byte, error) {
	switch msg.Kind {
	case wireformat.KindText:
		return websocket.TextMessage, []byte(msg.Text), nil
	case wireformat.KindBinary:
		return websocket.BinaryMessage, msg.Data, nil
	default:
		return 0, nil, fmt.Errorf("websocket: cannot post %s message", msg.Kind)
	}
}
