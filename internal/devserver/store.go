package devserver

import (
	"slices"
	"sync"

	"github.com/raphaelgruber/takeover/internal/models"
)

// Store keeps conversations in memory. All methods are thread-safe.
type Store struct {
	mu      sync.RWMutex
	order   []models.ConversationID
	history map[models.ConversationID][]models.HistoryItem
	control map[models.ConversationID]models.ControlStatus
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		history: make(map[models.ConversationID][]models.HistoryItem),
		control: make(map[models.ConversationID]models.ControlStatus),
	}
}

// IDs returns conversation ids, oldest first.
func (s *Store) IDs() []models.ConversationID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Exists reports whether id has any history.
func (s *Store) Exists(id models.ConversationID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.history[id]
	return ok
}

// History returns the turns of id, or false if there are none.
func (s *Store) History(id models.ConversationID) ([]models.HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[id]
	return slices.Clone(h), ok
}

// Control returns who controls id. Unknown conversations belong to the bot.
func (s *Store) Control(id models.ConversationID) models.ControlStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.control[id]; ok {
		return c
	}
	return models.ControlBot
}

// SetControl records who controls id.
func (s *Store) SetControl(id models.ConversationID, c models.ControlStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.control[id] = c
}

// Append adds a turn and reports whether it started a new conversation.
func (s *Store) Append(id models.ConversationID, item models.HistoryItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.history[id]
	if !exists {
		s.order = append(s.order, id)
	}
	s.history[id] = append(s.history[id], item)
	return !exists
}
