// Package devserver is an in-memory conversation backend for local
// development and end-to-end tests. It speaks the same REST and websocket
// protocol as the production bot backend, with a canned bot in place of the
// language model.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/raphaelgruber/takeover/internal/models"
)

// Responder produces the bot's answer to a user message.
type Responder func(text string) string

// EchoResponder answers every message by quoting it.
func EchoResponder(text string) string {
	return fmt.Sprintf("You said: %q", text)
}

// Server serves the backend API from a Store.
type Server struct {
	store  *Store
	hub    *Hub
	bot    Responder
	logger *slog.Logger
}

// New creates a server with an empty store.
func New(logger *slog.Logger, bot Responder) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if bot == nil {
		bot = EchoResponder
	}
	return &Server{
		store:  NewStore(),
		hub:    NewHub(logger),
		bot:    bot,
		logger: logger,
	}
}

// Store exposes the backing store.
func (s *Server) Store() *Store { return s.store }

// Hub exposes the websocket fan-out.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", s.handleList)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleHistory)
	mux.HandleFunc("GET /api/conversations/{id}/control", s.handleGetControl)
	mux.HandleFunc("POST /api/conversations/{id}/control", s.handleSetControl)
	mux.HandleFunc("POST /api/conversations/{id}/reply", s.handleReply)
	mux.Handle("GET /ws/all", s.hub)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return LoggingMiddleware(s.logger, mux)
}

// UserMessage simulates an inbound message from a user. Under bot control
// the bot answers in the same turn; under admin control the turn waits for
// the operator.
func (s *Server) UserMessage(id models.ConversationID, parts ...models.Part) {
	if len(parts) == 0 {
		return
	}
	user := &models.Message{Role: models.RoleUser, Parts: parts}
	item := models.HistoryItem{User: user}

	if s.store.Control(id) == models.ControlBot {
		text, _ := user.FirstText()
		item.Bot = &models.Message{
			Role:  models.RoleBot,
			Parts: []models.Part{models.TextPart{Content: s.bot(text)}},
		}
	}

	isNew := s.store.Append(id, item)
	s.hub.Broadcast(models.NewMessageEvent{ConversationID: id, Item: item})
	if isNew {
		s.hub.Broadcast(models.NewConversationEvent{ConversationID: id})
	}
	s.logger.Info("user message", "conversation", id, "new", isNew, "controlled_by", s.store.Control(id))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids := s.store.IDs()
	if ids == nil {
		ids = []models.ConversationID{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := models.ConversationID(r.PathValue("id"))
	history, ok := s.store.History(id)
	if !ok {
		writeError(w, http.StatusNotFound, "No history found for this chat ID")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetControl(w http.ResponseWriter, r *http.Request) {
	id := models.ConversationID(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]models.ControlStatus{"controlled_by": s.store.Control(id)})
}

func (s *Server) handleSetControl(w http.ResponseWriter, r *http.Request) {
	id := models.ConversationID(r.PathValue("id"))
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	status, err := models.ParseControlStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	s.store.SetControl(id, status)
	s.logger.Info("control changed", "conversation", id, "controlled_by", status)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "new_status": status})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id := models.ConversationID(r.PathValue("id"))
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	admin := &models.Message{Role: models.RoleAdmin, Parts: []models.Part{models.TextPart{Content: text}}}
	// The stored turn carries the sentinel in the user slot; the broadcast
	// has no user side at all.
	s.store.Append(id, models.HistoryItem{
		User: &models.Message{Role: models.RoleUser, Parts: []models.Part{models.TextPart{Content: models.AdminRepliedSentinel}}},
		Bot:  admin,
	})
	s.hub.Broadcast(models.NewMessageEvent{ConversationID: id, Item: models.HistoryItem{Bot: admin}})
	s.logger.Info("admin reply", "conversation", id)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
