package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/raphaelgruber/takeover/internal/control"
	"github.com/raphaelgruber/takeover/internal/directory"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/session"
)

const feedWidth = 80

// feedSurface prints the session as a line-oriented feed.
type feedSurface struct {
	out    io.Writer
	errOut io.Writer
	theme  render.Theme
	now    func() time.Time

	listed bool
	known  map[models.ConversationID]bool
}

var _ session.Surface = (*feedSurface)(nil)

func newFeedSurface(out, errOut io.Writer, theme render.Theme) *feedSurface {
	return &feedSurface{
		out:    out,
		errOut: errOut,
		theme:  theme,
		now:    time.Now,
		known:  make(map[models.ConversationID]bool),
	}
}

func (f *feedSurface) stamp() string {
	return f.theme.HintStyle().Render(f.now().Format("15:04:05"))
}

// ShowDirectory prints the full list once the initial load completes, then
// one line per conversation with new activity. Updates before the load only
// record which conversations are known.
func (f *feedSurface) ShowDirectory(entries []directory.Entry, loaded bool) {
	if !f.listed {
		for _, e := range entries {
			f.known[e.ID] = true
		}
		if loaded {
			f.listed = true
			printConversations(f.out, entries)
		}
		return
	}

	if len(entries) == 0 || !entries[0].Highlighted {
		return
	}
	top := entries[0].ID
	if !f.known[top] {
		f.known[top] = true
		fmt.Fprintf(f.out, "%s new conversation %s\n", f.stamp(), top)
		return
	}
	fmt.Fprintf(f.out, "%s activity in %s\n", f.stamp(), top)
}

func (f *feedSurface) ShowLoading(id models.ConversationID) {
	fmt.Fprintf(f.out, "%s loading %s...\n", f.stamp(), id)
}

func (f *feedSurface) ShowTranscript(id models.ConversationID, blocks []render.Block) {
	fmt.Fprintln(f.out, "Chat with "+id.String())
	if len(blocks) == 0 {
		fmt.Fprintln(f.out, f.theme.HintStyle().Render("No messages yet."))
		return
	}
	fmt.Fprintln(f.out, f.theme.Transcript(blocks, feedWidth))
}

func (f *feedSurface) AppendTranscript(id models.ConversationID, blocks []render.Block) {
	if len(blocks) == 0 {
		return
	}
	fmt.Fprintf(f.out, "%s %s\n%s\n", f.stamp(), id, f.theme.Transcript(blocks, feedWidth))
}

func (f *feedSurface) ShowFetchError(id models.ConversationID, err error) {
	fmt.Fprintln(f.errOut, f.theme.ErrorStyle().Render("Error: "+err.Error()))
}

func (f *feedSurface) ShowControl(id models.ConversationID, status models.ControlStatus, pending bool) {
	if pending {
		fmt.Fprintf(f.out, "%s %s: control change requested\n", f.stamp(), id)
		return
	}
	fmt.Fprintf(f.out, "%s %s: controlled by %s (%s)\n", f.stamp(), id, status, control.Label(status))
}

func (f *feedSurface) Notice(err error) {
	fmt.Fprintln(f.errOut, f.theme.ErrorStyle().Render("Error: "+err.Error()))
}

// printConversations writes a directory listing.
func printConversations(w io.Writer, entries []directory.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversations found.")
		return
	}
	fmt.Fprintf(w, "Conversations (%d):\n\n", len(entries))
	for _, e := range entries {
		mark := ""
		if e.Highlighted {
			mark = " *"
		}
		fmt.Fprintf(w, "- %s%s\n", e.ID, mark)
	}
}
