package guest

import "errors"

// ErrClosed is returned by stream operations after Close.
var ErrClosed = errors.New("guest: stream is closed")

var (
	errBridgeClosed  = errors.New("bridge closed")
	errStreamAborted = errors.New("stream aborted")
)
