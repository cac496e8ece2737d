// Package directory keeps the ordered list of known conversations.
//
// A Directory is not safe for concurrent use; it is owned by the session
// event loop.
package directory

import (
	"slices"

	"github.com/raphaelgruber/takeover/internal/models"
)

// Entry is one conversation as shown in the directory.
type Entry struct {
	ID          models.ConversationID
	Highlighted bool
	Active      bool
}

// Directory orders conversations most-recently-active first.
// Conversations are never removed.
type Directory struct {
	order       []models.ConversationID
	highlighted map[models.ConversationID]bool
	active      models.ConversationID
	loaded      bool
}

// New creates an empty, not yet loaded directory.
func New() *Directory {
	return &Directory{highlighted: make(map[models.ConversationID]bool)}
}

// InitialLoad populates the directory in server order without reordering
// or highlighting. Ids already known (from push events that raced the load)
// keep their place; duplicates in ids are dropped.
func (d *Directory) InitialLoad(ids []models.ConversationID) {
	for _, id := range ids {
		if d.Contains(id) {
			continue
		}
		d.order = append(d.order, id)
	}
	d.loaded = true
}

// Upsert records activity for id. An unknown id is inserted at the front;
// a known id is moved to the front. With markNew the entry is highlighted,
// unless it is the active conversation.
func (d *Directory) Upsert(id models.ConversationID, markNew bool) {
	if i := slices.Index(d.order, id); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
	d.order = slices.Insert(d.order, 0, id)

	if markNew && id != d.active {
		d.highlighted[id] = true
	}
}

// MarkActive moves the selection marker to id and clears its highlight.
func (d *Directory) MarkActive(id models.ConversationID) {
	d.active = id
	delete(d.highlighted, id)
}

// Active returns the currently selected id, or "" when none is.
func (d *Directory) Active() models.ConversationID {
	return d.active
}

// Contains reports whether id is known.
func (d *Directory) Contains(id models.ConversationID) bool {
	return slices.Contains(d.order, id)
}

// Highlighted reports whether id has unread activity.
func (d *Directory) Highlighted(id models.ConversationID) bool {
	return d.highlighted[id]
}

// Len returns the number of known conversations.
func (d *Directory) Len() int {
	return len(d.order)
}

// Loaded reports whether the initial load has completed.
func (d *Directory) Loaded() bool {
	return d.loaded
}

// Empty reports the "no conversations" placeholder state.
func (d *Directory) Empty() bool {
	return d.loaded && len(d.order) == 0
}

// IDs returns the ordered ids.
func (d *Directory) IDs() []models.ConversationID {
	return slices.Clone(d.order)
}

// Entries returns a snapshot of the directory in display order.
func (d *Directory) Entries() []Entry {
	entries := make([]Entry, len(d.order))
	for i, id := range d.order {
		entries[i] = Entry{
			ID:          id,
			Highlighted: d.highlighted[id],
			Active:      id == d.active,
		}
	}
	return entries
}
