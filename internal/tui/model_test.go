package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/session"
)

type stubBackend struct {
	mu      sync.Mutex
	ids     []models.ConversationID
	status  models.ControlStatus
	replies []string
}

func (b *stubBackend) ListConversations(ctx context.Context) ([]models.ConversationID, error) {
	return b.ids, nil
}

func (b *stubBackend) History(ctx context.Context, id models.ConversationID) ([]models.HistoryItem, error) {
	return []models.HistoryItem{{
		User: &models.Message{Role: models.RoleUser, Parts: []models.Part{models.TextPart{Content: "halo from " + id.String()}}},
		Bot:  &models.Message{Role: models.RoleBot, Parts: []models.Part{models.TextPart{Content: "hai"}}},
	}}, nil
}

func (b *stubBackend) ControlStatus(ctx context.Context, id models.ConversationID) (models.ControlStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, nil
}

func (b *stubBackend) SetControl(ctx context.Context, id models.ConversationID, s models.ControlStatus) (models.ControlStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
	return s, nil
}

func (b *stubBackend) Reply(ctx context.Context, id models.ConversationID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies = append(b.replies, text)
	return nil
}

// chanDispatcher feeds completions back through Update, like the program.
type chanDispatcher chan func()

func (d chanDispatcher) Dispatch(fn func()) { d <- fn }

func newTestModel(t *testing.T, b *stubBackend) (*Model, chanDispatcher) {
	t.Helper()
	d := make(chanDispatcher, 8)
	m := newModel(context.Background(), render.PlainTheme, func() bool { return true })
	m.manager = session.NewManager(b, m, d, session.Options{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, d
}

// settle runs n completions through Update.
func settle(t *testing.T, m *Model, d chanDispatcher, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case fn := <-d:
			m.Update(dispatchMsg(fn))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for completion")
		}
	}
}

func press(m *Model, k tea.KeyPressMsg) {
	m.Update(k)
}

func key(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestDirectoryAndSelection(t *testing.T) {
	b := &stubBackend{ids: []models.ConversationID{"A", "B"}, status: models.ControlBot}
	m, d := newTestModel(t, b)

	m.Init()
	settle(t, m, d, 1)
	assert.Equal(t, models.ConversationID("A"), m.cursorID)

	press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, models.ConversationID("B"), m.cursorID)

	press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, paneLoading, m.pane)
	assert.Contains(t, m.render(), "Loading messages...")

	settle(t, m, d, 1)
	out := m.render()
	assert.Contains(t, out, "Chat with B")
	assert.Contains(t, out, "halo from B")
	assert.Contains(t, out, "Take Over")
}

func TestEmptyDirectoryPlaceholder(t *testing.T) {
	m, d := newTestModel(t, &stubBackend{})
	m.Init()
	settle(t, m, d, 1)

	assert.Contains(t, m.render(), "No conversations found.")
}

func TestLiveMessageAppendsToActiveTranscript(t *testing.T) {
	b := &stubBackend{ids: []models.ConversationID{"A"}, status: models.ControlBot}
	m, d := newTestModel(t, b)
	m.Init()
	settle(t, m, d, 1)
	press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	settle(t, m, d, 1)

	m.manager.RouteEvent(models.NewMessageEvent{
		ConversationID: "A",
		Item: models.HistoryItem{
			Bot: &models.Message{Role: models.RoleAdmin, Parts: []models.Part{models.TextPart{Content: "an operator is here"}}},
		},
	})

	assert.Contains(t, m.render(), "an operator is here")
	assert.True(t, m.viewport.AtBottom())
}

func TestReplyNeedsTakeover(t *testing.T) {
	b := &stubBackend{ids: []models.ConversationID{"A"}, status: models.ControlBot}
	m, d := newTestModel(t, b)
	m.Init()
	settle(t, m, d, 1)
	press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	settle(t, m, d, 1)

	press(m, key('r'))
	assert.False(t, m.input.Focused())
	assert.Contains(t, m.render(), "Take over the conversation to reply.")

	press(m, key('t'))
	assert.Contains(t, m.render(), "updating...")
	settle(t, m, d, 1)
	assert.Equal(t, models.ControlAdmin, m.status)
	assert.Contains(t, m.render(), "Release Control")

	press(m, key('r'))
	require.True(t, m.input.Focused())
	for _, r := range "ok" {
		press(m, key(r))
	}
	press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	settle(t, m, d, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"ok"}, b.replies)
	assert.Empty(t, m.input.Value())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})
	_, cmd := m.Update(key('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
