package guest

import (
	"context"
	"log/slog"
	"sync"

	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// Failure reasons carried by OperationFailedError.
const (
	ReasonPostMessage = "POST_MESSAGE_ERROR"
	ReasonPathSet     = "PATH_SET_FAILED"
	ReasonWrite       = "WRITE_ERROR"
)

// conduit correlates replies on a stream channel by order. The host answers
// every message exactly once and in order, so the oldest waiter owns the next
// reply. A waiter whose caller gave up stays queued and swallows its reply.
type conduit struct {
	ch     ports.Channel
	logger *slog.Logger
	remove func()

	// postMu is held across enqueue and post so queue order matches wire order.
	postMu sync.Mutex

	mu      sync.Mutex
	waiters []*waiter
	closed  chan struct{}
	once    sync.Once

	// lease is held by the output session currently using the channel.
	lease chan struct{}
}

type waiter struct {
	reply chan wireformat.Message
}

func newConduit(ch ports.Channel, logger *slog.Logger) *conduit {
	c := &conduit{
		ch:     ch,
		logger: logger,
		closed: make(chan struct{}),
		lease:  make(chan struct{}, 1),
	}
	c.remove = ch.AddListener(c.deliver)
	return c
}

func (c *conduit) deliver(msg wireformat.Message) {
	c.mu.Lock()
	if len(c.waiters) == 0 {
		c.mu.Unlock()
		c.logger.Debug("guest: unsolicited reply dropped", "channel", c.ch.Name(), "reply", msg.String())
		return
	}
	w := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	c.mu.Unlock()

	w.reply <- msg
}

// request posts msg and waits for its reply. It returns an AbortedError when
// ctx is done or abort is closed first.
func (c *conduit) request(ctx context.Context, msg wireformat.Message, abort <-chan struct{}) (wireformat.Message, error) {
	select {
	case <-c.closed:
		return wireformat.Message{}, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	default:
	}

	w := &waiter{reply: make(chan wireformat.Message, 1)}

	c.postMu.Lock()
	c.mu.Lock()
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	if err := c.ch.PostMessage(ctx, msg); err != nil {
		c.dequeue(w)
		c.postMu.Unlock()
		return wireformat.Message{}, &bridgeerrors.OperationFailedError{
			Operation: "post",
			Reason:    ReasonPostMessage,
			Err:       err,
		}
	}
	c.postMu.Unlock()

	select {
	case reply := <-w.reply:
		return reply, nil
	case <-ctx.Done():
		return wireformat.Message{}, &bridgeerrors.AbortedError{Reason: ctx.Err()}
	case <-abort:
		return wireformat.Message{}, &bridgeerrors.AbortedError{Reason: errStreamAborted}
	case <-c.closed:
		return wireformat.Message{}, &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
}

// dequeue drops a waiter whose message never left.
func (c *conduit) dequeue(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.waiters {
		if q == w {
			c.waiters = append(c.waiters[:i:i], c.waiters[i+1:]...)
			return
		}
	}
}

// acquire takes the exclusive lease, waiting for the current holder.
func (c *conduit) acquire(ctx context.Context, abort <-chan struct{}) error {
	select {
	case c.lease <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &bridgeerrors.AbortedError{Reason: ctx.Err()}
	case <-abort:
		return &bridgeerrors.AbortedError{Reason: errStreamAborted}
	case <-c.closed:
		return &bridgeerrors.AbortedError{Reason: errBridgeClosed}
	}
}

func (c *conduit) releaseLease() {
	<-c.lease
}

func (c *conduit) close() {
	c.once.Do(func() {
		c.remove()
		close(c.closed)
	})
}
