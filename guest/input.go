package guest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// DefaultContentType is reported by input streams unless overridden.
const DefaultContentType = "application/octet-stream"

// InputOption configures an InputStream.
type InputOption func(*InputStream)

// WithContentType overrides the content type the stream reports.
func WithContentType(ct string) InputOption {
	return func(s *InputStream) {
		if ct != "" {
			s.contentType = ct
		}
	}
}

// InputStream reads one whole file from the host.
//
// The host answers a single request with the complete file, so the stream is
// single-shot: it yields exactly the received bytes, then io.EOF, and cannot
// be rewound or reopened.
type InputStream struct {
	conduit     *conduit
	path        string
	contentType string

	mu     sync.Mutex
	state  entities.InputState
	data   *bytes.Reader
	size   int
	err    error
	closed bool

	abort     chan struct{}
	abortOnce sync.Once
}

var _ io.ReadCloser = (*InputStream)(nil)

// NewInputStream prepares a read of path without contacting the host.
// It fails with InvalidArgumentError for an empty path and with
// PermissionDeniedError when FsInputStream is not installed.
func (b *Bridge) NewInputStream(path string, opts ...InputOption) (*InputStream, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	c, err := b.conduit(entities.ChannelFsInputStream)
	if err != nil {
		return nil, err
	}

	s := &InputStream{
		conduit:     c,
		path:        path,
		contentType: DefaultContentType,
		abort:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenInputStream prepares and opens a read of path.
func (b *Bridge) OpenInputStream(ctx context.Context, path string, opts ...InputOption) (*InputStream, error) {
	s, err := b.NewInputStream(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Open requests the file and waits for it. Calling Open again after it
// finished returns the first outcome without contacting the host.
func (s *InputStream) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case entities.InputIdle:
		s.state = entities.InputAwaitingData
	case entities.InputAwaitingData:
		s.mu.Unlock()
		return &bridgeerrors.InvalidArgumentError{Argument: "stream", Reason: "open already in progress"}
	default:
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	reply, err := s.conduit.request(ctx, wireformat.Text(s.path), s.abort)
	if err != nil {
		if bridgeerrors.CodeOf(err) == bridgeerrors.CodeAborted {
			return s.finish(entities.InputAborted, nil, err)
		}
		return s.finish(entities.InputFailed, nil, err)
	}

	switch reply.Kind {
	case wireformat.KindBinary:
		return s.finish(entities.InputDone, reply.Data, nil)
	case wireformat.KindText:
		return s.finish(entities.InputFailed, nil, &bridgeerrors.OperationFailedError{
			Operation: "read",
			Detail:    reply.Text,
		})
	default:
		return s.finish(entities.InputFailed, nil, &bridgeerrors.ProtocolViolationError{
			Channel: entities.ChannelFsInputStream,
			Detail:  fmt.Sprintf("unexpected %s reply", reply.Kind),
		})
	}
}

func (s *InputStream) finish(state entities.InputState, data []byte, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Abort may have won the race while the reply was in flight.
	if s.state == entities.InputAborted {
		return s.err
	}
	s.state = state
	s.err = err
	if state == entities.InputDone {
		s.data = bytes.NewReader(data)
		s.size = len(data)
	}
	return err
}

// Read implements io.Reader. A stream that was never opened is opened with a
// background context first.
func (s *InputStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	idle := s.state == entities.InputIdle
	s.mu.Unlock()
	if idle {
		if err := s.Open(context.Background()); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.state != entities.InputDone {
		if s.err != nil {
			return 0, s.err
		}
		return 0, &bridgeerrors.InvalidArgumentError{Argument: "stream", Reason: "open in progress"}
	}
	return s.data.Read(p)
}

// Abort cancels an open that is waiting for the host. The late reply, if
// any, is dropped. Aborting a finished stream only discards its content.
func (s *InputStream) Abort() {
	s.abortOnce.Do(func() {
		s.mu.Lock()
		if !s.state.Terminal() || s.state == entities.InputDone {
			s.state = entities.InputAborted
			s.err = &bridgeerrors.AbortedError{Reason: errStreamAborted}
			s.data = nil
		}
		s.mu.Unlock()
		close(s.abort)
	})
}

// Close releases the content. Reads after Close return ErrClosed.
func (s *InputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// State returns the current session state.
func (s *InputStream) State() entities.InputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that ended the session, if any.
func (s *InputStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Path returns the requested path.
func (s *InputStream) Path() string { return s.path }

// ContentType returns the content type the stream reports.
func (s *InputStream) ContentType() string { return s.contentType }

// Size returns the number of bytes received, or 0 before Done.
func (s *InputStream) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
