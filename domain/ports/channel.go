package ports

import (
	"context"

	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// Listener receives inbound messages. Listeners are invoked sequentially in
// delivery order and must not block for long.
type Listener func(msg wireformat.Message)

// Channel is one end of a named, duplex, message-oriented transport.
// PostMessage delivers to the other end's listeners in FIFO order.
// Implementations must be safe for concurrent use.
type Channel interface {
	// Name returns the channel name (e.g. "FsInputStream").
	Name() string

	// PostMessage sends a message to the remote end.
	PostMessage(ctx context.Context, msg wireformat.Message) error

	// AddListener registers a listener and returns a function that removes it.
	// The remove function is idempotent.
	AddListener(l Listener) (remove func())
}

// Globals is the guest's view of the channels the host installed.
// A channel missing from Globals was not permitted by the host.
type Globals interface {
	// Lookup returns the named channel, or false when it is not installed.
	Lookup(name string) (Channel, bool)

	// Close tears down every channel.
	Close() error
}
