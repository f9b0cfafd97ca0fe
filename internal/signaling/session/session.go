// Package session provides a single-threaded event loop that hosts bridged
// legs. Leg callbacks posted to a Session run one at a time, in order.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tevino/abool"
)

// ErrClosed is returned by Run when the session was closed.
var ErrClosed = errors.New("session closed")

const defaultQueueSize = 64

// Session serializes callbacks and owns the lifetime of a call.
//
// Thread Safety: Post and CloseSession are safe for concurrent use. Callbacks
// themselves never run concurrently with each other.
type Session struct {
	id     string
	queue  chan func()
	done   chan struct{}
	closed *abool.AtomicBool
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithQueueSize sets the number of callbacks that can wait before Post blocks.
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queue = make(chan func(), n)
		}
	}
}

// WithID sets the session ID instead of generating one.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New creates a Session. Call Run to start processing.
func New(opts ...Option) *Session {
	s := &Session{
		id:     uuid.New().String(),
		queue:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
		closed: abool.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = slog.With("session_id", s.id)
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Post queues fn to run on the session loop. It returns false if the session
// is closed and fn will never run.
func (s *Session) Post(fn func()) bool {
	if s.closed.IsSet() {
		return false
	}
	select {
	case s.queue <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Run processes posted callbacks until the session is closed or ctx ends.
// Callbacks already queued when the session closes are dropped.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Debug("[Session] Loop started")
	defer s.logger.Debug("[Session] Loop stopped")

	for {
		select {
		case <-ctx.Done():
			s.CloseSession()
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		case fn := <-s.queue:
			// Close may have raced with the receive
			if s.closed.IsSet() {
				return ErrClosed
			}
			fn()
		}
	}
}

// CloseSession ends the session. Safe to call more than once and from
// within a posted callback.
func (s *Session) CloseSession() {
	if !s.closed.SetToIf(false, true) {
		return
	}
	close(s.done)
	s.logger.Info("[Session] Closed")
}

// Done returns a channel closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed returns true once CloseSession has been called.
func (s *Session) Closed() bool {
	return s.closed.IsSet()
}
