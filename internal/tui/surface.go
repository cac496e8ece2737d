package tui

import (
	"github.com/raphaelgruber/takeover/internal/directory"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/session"
)

var _ session.Surface = (*Model)(nil)

// ShowDirectory implements session.Surface.
func (m *Model) ShowDirectory(entries []directory.Entry, loaded bool) {
	m.entries, m.loaded = entries, loaded
	if m.cursorID == "" && len(entries) > 0 {
		m.cursorID = entries[0].ID
	}
}

// ShowLoading implements session.Surface.
func (m *Model) ShowLoading(id models.ConversationID) {
	m.activeID = id
	m.pane = paneLoading
	m.blocks = nil
	m.fetchErr = nil
	m.hasStatus = false
	m.pending = false
	m.input.Blur()
	m.input.Reset()
	m.refreshTranscript(true)
}

// ShowTranscript implements session.Surface.
func (m *Model) ShowTranscript(id models.ConversationID, blocks []render.Block) {
	if id != m.activeID {
		return
	}
	m.pane = paneReady
	m.blocks = blocks
	m.refreshTranscript(true)
}

// AppendTranscript implements session.Surface. While the history is still
// loading the blocks are only buffered: the server stores a message before
// broadcasting it, so the history that replaces them already contains it.
func (m *Model) AppendTranscript(id models.ConversationID, blocks []render.Block) {
	if id != m.activeID || len(blocks) == 0 {
		return
	}
	m.blocks = append(m.blocks, blocks...)
	if m.pane == paneReady {
		m.refreshTranscript(true)
	}
}

// ShowFetchError implements session.Surface.
func (m *Model) ShowFetchError(id models.ConversationID, err error) {
	if id != m.activeID {
		return
	}
	m.pane = paneFailed
	m.fetchErr = err
	m.refreshTranscript(true)
}

// ShowControl implements session.Surface.
func (m *Model) ShowControl(id models.ConversationID, status models.ControlStatus, pending bool) {
	if id != m.activeID {
		return
	}
	m.status, m.hasStatus, m.pending = status, true, pending
	if status != models.ControlAdmin {
		m.input.Blur()
	}
}

// Notice implements session.Surface.
func (m *Model) Notice(err error) {
	m.notice = err.Error()
}
