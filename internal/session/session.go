// Package session coordinates the directory, the active transcript and
// control handoff for the operator console.
//
// A Manager owns all mutable state and must only be called from one
// goroutine, the event loop. Network calls run on their own goroutines and
// hand their results back through a Dispatcher, so state is never touched
// concurrently and no locks are needed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/takeover/internal/client"
	"github.com/raphaelgruber/takeover/internal/control"
	"github.com/raphaelgruber/takeover/internal/directory"
	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
)

// Backend is the REST surface the manager talks to. *client.Client
// implements it.
type Backend interface {
	ListConversations(ctx context.Context) ([]models.ConversationID, error)
	History(ctx context.Context, id models.ConversationID) ([]models.HistoryItem, error)
	ControlStatus(ctx context.Context, id models.ConversationID) (models.ControlStatus, error)
	SetControl(ctx context.Context, id models.ConversationID, status models.ControlStatus) (models.ControlStatus, error)
	Reply(ctx context.Context, id models.ConversationID, text string) error
}

// Surface is whatever displays the session: the TUI, or the log feed in
// headless mode. All methods are called on the event loop.
type Surface interface {
	ShowDirectory(entries []directory.Entry, loaded bool)
	ShowLoading(id models.ConversationID)
	ShowTranscript(id models.ConversationID, blocks []render.Block)
	AppendTranscript(id models.ConversationID, blocks []render.Block)
	ShowFetchError(id models.ConversationID, err error)
	ShowControl(id models.ConversationID, status models.ControlStatus, pending bool)
	Notice(err error)
}

// Session is the selection state. Generation increases on every selection
// change; async results carrying an older generation are stale.
type Session struct {
	ActiveID   models.ConversationID
	Generation uint64
}

// Options configures a Manager.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Manager is the top-level coordinator.
type Manager struct {
	backend  Backend
	surface  Surface
	dispatch Dispatcher
	logger   *slog.Logger
	metrics  *metrics.Collector

	session Session
	dir     *directory.Directory
	control *control.Machine
}

// NewManager creates a manager with an empty directory.
func NewManager(b Backend, s Surface, d Dispatcher, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		backend:  b,
		surface:  s,
		dispatch: d,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		dir:      directory.New(),
		control:  control.New(),
	}
}

// Session returns the current selection state.
func (m *Manager) Session() Session {
	return m.session
}

// Entries returns the directory in display order.
func (m *Manager) Entries() []directory.Entry {
	return m.dir.Entries()
}

// Control returns the confirmed control status of the active conversation.
func (m *Manager) Control() (models.ControlStatus, bool) {
	if m.session.ActiveID == "" {
		return "", false
	}
	return m.control.Status(m.session.ActiveID)
}

// CanReply reports whether the operator controls the active conversation.
func (m *Manager) CanReply() bool {
	return m.session.ActiveID != "" && m.control.CanReply(m.session.ActiveID)
}

// Start loads the directory.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ids, err := m.backend.ListConversations(ctx)
		m.dispatch.Dispatch(func() {
			if err != nil {
				ferr := &FetchError{Err: err}
				m.logger.Error("directory load failed", "error", err)
				m.surface.Notice(ferr)
				return
			}
			m.dir.InitialLoad(ids)
			m.logger.Info("directory loaded", "conversations", m.dir.Len())
			m.showDirectory()
		})
	}()
}

// Deliver queues a stream event for the event loop. It is the handler
// wired to the stream and may be called from any goroutine.
func (m *Manager) Deliver(ev models.Event) {
	m.dispatch.Dispatch(func() { m.RouteEvent(ev) })
}

// RouteEvent applies a live event. A message for the active conversation
// is appended to the transcript at once, even while its history is still
// loading.
func (m *Manager) RouteEvent(ev models.Event) {
	id := ev.Conversation()
	switch ev := ev.(type) {
	case models.NewConversationEvent:
		m.dir.Upsert(id, true)
		m.logger.Info("new conversation", "conversation", id)
	case models.NewMessageEvent:
		m.dir.Upsert(id, true)
		if id == m.session.ActiveID {
			m.surface.AppendTranscript(id, render.Render(ev.Item))
		}
		m.logger.Debug("new message", "conversation", id, "active", id == m.session.ActiveID)
	default:
		m.logger.Warn("ignoring event", "type", fmt.Sprintf("%T", ev))
		return
	}
	m.showDirectory()
}

type fetchResult struct {
	items  []models.HistoryItem
	status models.ControlStatus
	err    error
}

// Select makes id the active conversation and loads its history and
// control status. An id the directory has not seen yet is added to it.
// Selecting the active conversation again does nothing.
func (m *Manager) Select(ctx context.Context, id models.ConversationID) {
	if id == "" || id == m.session.ActiveID {
		return
	}

	m.session.ActiveID = id
	m.session.Generation++
	gen := m.session.Generation
	if !m.dir.Contains(id) {
		m.dir.Upsert(id, false)
	}
	m.dir.MarkActive(id)
	m.showDirectory()
	m.surface.ShowLoading(id)

	go func() {
		res := m.fetch(ctx, id)
		m.dispatch.Dispatch(func() { m.applyFetch(gen, id, res) })
	}()
}

func (m *Manager) fetch(ctx context.Context, id models.ConversationID) fetchResult {
	var res fetchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := m.backend.History(gctx, id)
		if client.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		res.items = items
		return nil
	})
	g.Go(func() error {
		s, err := m.backend.ControlStatus(gctx, id)
		if err != nil {
			return fmt.Errorf("control status: %w", err)
		}
		res.status = s
		return nil
	})
	res.err = g.Wait()
	return res
}

func (m *Manager) applyFetch(gen uint64, id models.ConversationID, res fetchResult) {
	if gen != m.session.Generation {
		m.metrics.Inc(metrics.CounterStaleResults)
		m.logger.Debug("discarding stale load", "conversation", id, "generation", gen, "current", m.session.Generation)
		return
	}
	if res.err != nil {
		ferr := &FetchError{ID: id, Err: res.err}
		m.logger.Error("conversation load failed", "conversation", id, "error", res.err)
		m.surface.ShowFetchError(id, ferr)
		return
	}

	m.control.Set(id, res.status)
	m.surface.ShowTranscript(id, render.RenderHistory(res.items))
	m.surface.ShowControl(id, res.status, false)
}

// ToggleControl asks the server to hand the active conversation to the
// other party. The shown status changes only once the server answers, and
// then to whatever the server reports.
func (m *Manager) ToggleControl(ctx context.Context) {
	id := m.session.ActiveID
	if id == "" {
		return
	}
	req, err := m.control.Begin(id)
	if err != nil {
		m.actionFailed("toggle control", id, err)
		return
	}
	cur, _ := m.control.Status(id)
	m.surface.ShowControl(id, cur, true)
	m.logger.Info("requesting control change", "conversation", id, "from", cur, "to", req)

	go func() {
		reported, err := m.backend.SetControl(ctx, id, req)
		m.dispatch.Dispatch(func() {
			if err != nil {
				m.control.Fail(id)
				m.actionFailed("toggle control", id, err)
			} else {
				m.control.Confirm(id, reported)
				m.logger.Info("control changed", "conversation", id, "controlled_by", reported)
			}
			if id == m.session.ActiveID {
				s, _ := m.control.Status(id)
				m.surface.ShowControl(id, s, false)
			}
		})
	}()
}

// SubmitReply sends text as the operator. Blank replies are ignored. The
// reply shows up in the transcript when the server echoes it on the stream.
func (m *Manager) SubmitReply(ctx context.Context, text string) {
	id := m.session.ActiveID
	text = strings.TrimSpace(text)
	if id == "" || text == "" {
		return
	}
	if !m.control.CanReply(id) {
		m.actionFailed("reply to", id, ErrNotInControl)
		return
	}

	go func() {
		start := time.Now()
		err := m.backend.Reply(ctx, id, text)
		elapsed := time.Since(start)
		m.dispatch.Dispatch(func() {
			if err != nil {
				m.actionFailed("reply to", id, err)
				return
			}
			m.logger.Info("reply sent", "conversation", id, "duration_ms", elapsed.Milliseconds())
		})
	}()
}

func (m *Manager) actionFailed(op string, id models.ConversationID, err error) {
	aerr := &ActionError{Op: op, ID: id, Err: err}
	m.logger.Error("action failed", "op", op, "conversation", id, "error", err)
	m.surface.Notice(aerr)
}

func (m *Manager) showDirectory() {
	m.surface.ShowDirectory(m.dir.Entries(), m.dir.Loaded())
}
