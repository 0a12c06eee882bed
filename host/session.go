package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/hostfuncs"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"go.uber.org/multierr"
)

// Session serves one guest connection. Each inbound message is handled
// synchronously on the delivering goroutine, so replies leave in the order
// requests arrived.
type Session struct {
	registry *hostfuncs.HandlerRegistry
	table    *objects.Table
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	id       string

	mu       sync.Mutex
	removers []func()
	closed   bool
}

func newSession(id string, registry *hostfuncs.HandlerRegistry, table *objects.Table, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		registry: registry,
		table:    table,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		id:       id,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Objects returns the session's handle table.
func (s *Session) Objects() *objects.Table { return s.table }

// Names returns the installed channel names.
func (s *Session) Names() []string { return s.registry.Names() }

// Invoke serves one message on the named channel and returns the reply.
// Channels that were not installed yield a PermissionDeniedError.
func (s *Session) Invoke(ctx context.Context, channel string, msg wireformat.Message) (wireformat.Message, error) {
	return s.registry.Invoke(ctx, channel, msg)
}

// Bind serves the channel named ch.Name(): every inbound message is handled
// and its reply posted back on ch.
func (s *Session) Bind(ch ports.Channel) error {
	name := ch.Name()
	if !s.registry.Has(name) {
		perm, _ := entities.PermissionFor(name)
		return &bridgeerrors.PermissionDeniedError{Channel: name, Permission: perm}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("host: session %s is closed", s.id)
	}

	remove := ch.AddListener(func(msg wireformat.Message) {
		if s.ctx.Err() != nil {
			return
		}
		reply, err := s.registry.Invoke(s.ctx, name, msg)
		if err != nil {
			s.logger.Error("host: dispatch failed", "channel", name, "error", err)
			return
		}
		if err := ch.PostMessage(s.ctx, reply); err != nil {
			s.logger.Warn("host: reply not delivered", "channel", name, "error", err)
		}
	})
	s.removers = append(s.removers, remove)
	return nil
}

// Close detaches every bound channel and releases every live handle.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	removers := s.removers
	s.removers = nil
	s.mu.Unlock()

	s.cancel()
	for _, remove := range removers {
		remove()
	}

	var err error
	if live := s.table.Len(); live > 0 {
		s.logger.Debug("host: releasing live handles", "count", live)
	}
	err = multierr.Append(err, s.table.ReleaseAll())
	s.logger.Debug("host: session closed")
	return err
}
