package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/takeover/internal/models"
)

const writeTimeout = 5 * time.Second

// subscriber is one connected console.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans events out to every connected console.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates a hub with no subscribers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local dev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Subscribers returns the number of connected consoles.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast sends ev to every subscriber. Subscribers that cannot be
// written to are dropped.
func (h *Hub) Broadcast(ev models.Event) {
	data, err := models.EncodeEvent(ev)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.send(data); err != nil {
			h.logger.Warn("dropping subscriber", "error", err)
			h.remove(s)
		}
	}
}

// CloseAll disconnects every subscriber, as a server restart would.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.conn.Close()
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.conn.Close()
}

// ServeHTTP upgrades the request and keeps the subscriber until it
// disconnects. Incoming frames are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{conn: conn}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("console connected", "remote", r.RemoteAddr)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(s)
	h.logger.Info("console disconnected", "remote", r.RemoteAddr)
}
