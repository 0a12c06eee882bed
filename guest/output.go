package guest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// OutputStream writes one file on the host.
//
// Start sends the path and waits for "Path set", which creates or truncates
// the file. Each chunk is then posted and acknowledged before the next one
// leaves. The host remembers the current path per channel connection, so a
// started stream holds the channel exclusively until Close or Abort.
// Close is local only: the protocol has no end-of-file message.
type OutputStream struct {
	conduit  *conduit
	path     string
	maxChunk int

	// writeMu serializes writers for the whole post and ack exchange.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     entities.OutputState
	err       error
	ctx       context.Context
	leaseHeld bool
	written   int64

	abort     chan struct{}
	abortOnce sync.Once
}

var _ io.WriteCloser = (*OutputStream)(nil)

// NewOutputStream prepares a write to path without contacting the host.
// It fails with InvalidArgumentError for an empty path and with
// PermissionDeniedError when FsOutputStream is not installed.
func (b *Bridge) NewOutputStream(path string) (*OutputStream, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	c, err := b.conduit(entities.ChannelFsOutputStream)
	if err != nil {
		return nil, err
	}
	return &OutputStream{
		conduit:  c,
		path:     path,
		maxChunk: b.config.maxChunk,
		abort:    make(chan struct{}),
	}, nil
}

// OpenOutputStream prepares and starts a write to path.
func (b *Bridge) OpenOutputStream(ctx context.Context, path string) (*OutputStream, error) {
	s, err := b.NewOutputStream(path)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Start acquires the channel lease and performs the path handshake. Any
// reply other than "Path set" aborts the stream before a byte is sent.
// ctx also becomes the context of Write.
func (s *OutputStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != entities.OutputIdle {
		state := s.state
		s.mu.Unlock()
		return &bridgeerrors.InvalidArgumentError{Argument: "stream", Reason: fmt.Sprintf("cannot start a %s stream", state)}
	}
	s.state = entities.OutputPathPending
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.conduit.acquire(ctx, s.abort); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	if s.state == entities.OutputAborted {
		err := s.err
		s.mu.Unlock()
		s.conduit.releaseLease()
		return err
	}
	s.leaseHeld = true
	s.mu.Unlock()

	reply, err := s.conduit.request(ctx, wireformat.Text(s.path), s.abort)
	if err != nil {
		return s.fail(err)
	}

	switch {
	case reply.IsText() && reply.Text == wireformat.PathSetReply:
	case reply.IsText() && wireformat.IsFailure(reply.Text):
		return s.fail(&bridgeerrors.OperationFailedError{Operation: "set path", Detail: reply.Text})
	case reply.IsText():
		return s.fail(&bridgeerrors.OperationFailedError{Operation: "set path", Detail: reply.Text, Reason: ReasonPathSet})
	default:
		return s.fail(&bridgeerrors.ProtocolViolationError{
			Channel: entities.ChannelFsOutputStream,
			Detail:  fmt.Sprintf("unexpected %s reply to path", reply.Kind),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == entities.OutputAborted {
		return s.err
	}
	s.state = entities.OutputPathConfirmed
	return nil
}

// WriteChunk posts one chunk and waits for its acknowledgement.
// Before the path is confirmed it fails with PathNotSetError; after Abort it
// fails with AbortedError. Neither touches the channel. A failure reply
// aborts the stream.
func (s *OutputStream) WriteChunk(ctx context.Context, chunk []byte) error {
	if len(chunk) > s.maxChunk {
		return &bridgeerrors.InvalidArgumentError{
			Argument: "chunk",
			Reason:   fmt.Sprintf("%d bytes exceeds the %d byte chunk limit", len(chunk), s.maxChunk),
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.transition(entities.OutputWriting); err != nil {
		return err
	}

	s.setState(entities.OutputAwaitingAck)
	reply, err := s.conduit.request(ctx, wireformat.Binary(chunk), s.abort)
	if err != nil {
		return s.fail(err)
	}

	switch {
	case reply.IsText() && wireformat.IsFailure(reply.Text):
		return s.fail(&bridgeerrors.OperationFailedError{Operation: "write", Detail: reply.Text})
	case reply.IsText():
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == entities.OutputAborted {
			return s.err
		}
		s.state = entities.OutputPathConfirmed
		s.written += int64(len(chunk))
		return nil
	default:
		return s.fail(&bridgeerrors.ProtocolViolationError{
			Channel: entities.ChannelFsOutputStream,
			Detail:  fmt.Sprintf("unexpected %s reply to chunk", reply.Kind),
		})
	}
}

// WriteContext writes p, split into chunks of at most the configured size.
// An empty p sends nothing but still reports a closed or aborted stream.
func (s *OutputStream) WriteContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return 0, s.writable()
	}

	n := 0
	for len(p) > 0 {
		size := min(len(p), s.maxChunk)
		if err := s.WriteChunk(ctx, p[:size]); err != nil {
			return n, err
		}
		n += size
		p = p[size:]
	}
	return n, nil
}

// Write implements io.Writer using the context given to Start.
func (s *OutputStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return 0, &bridgeerrors.PathNotSetError{}
	}
	return s.WriteContext(ctx, p)
}

// Close ends the stream locally and frees the channel. Nothing is sent.
// Closing an aborted stream is not an error.
func (s *OutputStream) Close() error {
	s.mu.Lock()
	if s.state != entities.OutputAborted {
		s.state = entities.OutputClosed
	}
	s.mu.Unlock()

	s.releaseLease()
	return nil
}

// Abort ends the stream. An in-flight exchange returns AbortedError at once
// and later writes fail without touching the channel.
func (s *OutputStream) Abort() {
	s.abortOnce.Do(func() {
		s.mu.Lock()
		if s.state != entities.OutputClosed {
			s.state = entities.OutputAborted
			s.err = &bridgeerrors.AbortedError{Reason: errStreamAborted}
		}
		s.mu.Unlock()
		close(s.abort)
	})
	s.releaseLease()
}

// State returns the current session state.
func (s *OutputStream) State() entities.OutputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that aborted the stream, if any.
func (s *OutputStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Path returns the target path.
func (s *OutputStream) Path() string { return s.path }

// Written returns the number of acknowledged bytes.
func (s *OutputStream) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// transition moves a confirmed stream to next, or explains why it cannot.
func (s *OutputStream) transition(next entities.OutputState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	s.state = next
	return nil
}

// writable reports why the stream cannot take a write. The caller holds writeMu.
func (s *OutputStream) writable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writableLocked()
}

func (s *OutputStream) writableLocked() error {
	switch s.state {
	case entities.OutputPathConfirmed:
		return nil
	case entities.OutputAborted:
		return s.err
	case entities.OutputClosed:
		return ErrClosed
	default:
		return &bridgeerrors.PathNotSetError{}
	}
}

func (s *OutputStream) setState(state entities.OutputState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != entities.OutputAborted {
		s.state = state
	}
}

// fail aborts the stream with err and frees the channel.
func (s *OutputStream) fail(err error) error {
	s.mu.Lock()
	if s.state == entities.OutputAborted && s.err != nil {
		err = s.err
	} else {
		s.state = entities.OutputAborted
		s.err = err
	}
	s.mu.Unlock()

	s.abortOnce.Do(func() { close(s.abort) })
	s.releaseLease()
	return err
}

func (s *OutputStream) releaseLease() {
	s.mu.Lock()
	held := s.leaseHeld
	s.leaseHeld = false
	s.mu.Unlock()
	if held {
		s.conduit.releaseLease()
	}
}
