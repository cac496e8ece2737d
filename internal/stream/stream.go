// Package stream maintains the live event feed covering all conversations.
//
// One goroutine owns the connection: it dials, reads frames in arrival
// order, and on any read error or close tears the connection down and waits
// for the retry policy's delay before dialing again. Dialing only happens
// after the previous connection is closed, so at most one connection is
// ever open.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/models"
)

// ErrAlreadyConnected is returned by Connect on a running stream.
var ErrAlreadyConnected = errors.New("stream already connected")

// Conn is one live connection. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens connections to the event channel.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context) (Conn, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// Handler receives decoded events in arrival order.
type Handler func(models.Event)

// TransportError reports a dropped or failed connection. It is recovered
// by reconnecting and only ever logged.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options configures a Stream. Zero values select defaults.
type Options struct {
	Policy  RetryPolicy
	Logger  *slog.Logger
	Metrics *metrics.Collector

	// After schedules the reconnect timer; defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// Stream is the single multiplexed event connection.
type Stream struct {
	dialer  Dialer
	policy  RetryPolicy
	logger  *slog.Logger
	metrics *metrics.Collector
	after   func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	handler Handler
	conn    Conn
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stream that is not yet connected.
func New(d Dialer, opts Options) *Stream {
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.After == nil {
		opts.After = time.After
	}
	return &Stream{
		dialer:  d,
		policy:  opts.Policy,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		after:   opts.After,
	}
}

// OnEvent registers the dispatcher for decoded events, replacing any
// previous one.
func (s *Stream) OnEvent(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Connect starts the connection loop. It returns immediately; the first
// dial happens in the background and failures are retried like drops.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

// Close tears down the live connection and any pending reconnect, and
// waits for the loop to exit.
func (s *Stream) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Connected reports whether a connection is currently open.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Stream) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			s.logger.Debug("stream closed")
			return
		}
		if connected {
			attempt = 0
		}
		attempt++

		delay, ok := s.policy.Delay(attempt)
		if !ok {
			s.logger.Error("stream giving up", "error", err, "attempts", attempt)
			return
		}
		s.logger.Warn("stream dropped, reconnect scheduled", "error", err, "delay", delay, "attempt", attempt)

		select {
		case <-ctx.Done():
			s.logger.Debug("stream closed, reconnect cancelled")
			return
		case <-s.after(delay):
		}
	}
}

// session dials once and reads until the connection drops.
func (s *Stream) session(ctx context.Context) (connected bool, err error) {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return false, &TransportError{Op: "dial", Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.metrics.Inc(metrics.CounterStreamConnects)
	s.logger.Info("stream connected")

	defer s.drop(conn)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, &TransportError{Op: "read", Err: err}
		}

		ev, err := models.DecodeEvent(data)
		if err != nil {
			s.logger.Warn("skipping undecodable frame", "error", err, "frame", truncate(string(data), 200))
			continue
		}
		s.metrics.Inc(metrics.CounterStreamEvents)
		s.deliver(ev)
	}
}

// drop is the single teardown path for errors and closes alike.
func (s *Stream) drop(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()

	if err := conn.Close(); err != nil {
		s.logger.Debug("close connection", "error", err)
	}
	s.metrics.Inc(metrics.CounterStreamDrops)
}

func (s *Stream) deliver(ev models.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
