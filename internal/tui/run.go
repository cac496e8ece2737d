package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/session"
	"github.com/raphaelgruber/takeover/internal/stream"
)

// programDispatcher runs completions inside the program's Update.
type programDispatcher struct {
	p *tea.Program
}

func (d programDispatcher) Dispatch(fn func()) {
	d.p.Send(dispatchMsg(fn))
}

// Options configures the console.
type Options struct {
	Theme   render.Theme
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Run shows the console until the operator quits or ctx is done. It feeds
// the stream's events to the console, connects the stream and closes it on
// return.
func Run(ctx context.Context, backend session.Backend, s *stream.Stream, opts Options) error {
	model := newModel(ctx, opts.Theme, s.Connected)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	model.manager = session.NewManager(backend, model, programDispatcher{p: p}, session.Options{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	s.OnEvent(model.manager.Deliver)

	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer s.Close()

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("console UI error: %w", err)
	}
	return nil
}
