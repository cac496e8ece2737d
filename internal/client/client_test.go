package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/takeover/internal/client"
	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) (*client.Client, *metrics.Collector) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.NewCollector()
	return client.New(srv.URL, client.Options{Timeout: 5 * time.Second, Metrics: m}), m
}

func TestListConversations(t *testing.T) {
	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`["628111", 628222]`))
	}))

	ids, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ConversationID{"628111", "628222"}, ids)
	assert.Equal(t, int64(1), m.Snapshot().Operations[0].Count)
}

func TestHistory(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/628111", r.URL.Path)
		w.Write([]byte(`[
			{"user": {"role": "user", "parts": [{"text": "halo"}]}, "bot": {"role": "bot", "parts": [{"text": "hai"}]}},
			{"user": {"role": "user", "parts": [{"text": "[ADMIN_REPLIED]"}]}, "bot": {"role": "admin", "parts": [{"text": "admin here"}]}}
		]`))
	}))

	items, err := c.History(context.Background(), "628111")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.RoleAdmin, items[1].Bot.Role)
}

func TestHistoryNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "No history found for this chat ID"}`))
	}))

	_, err := c.History(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	var httpErr *client.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "No history found for this chat ID", httpErr.Message)
}

func TestControlStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/42/control", r.URL.Path)
		w.Write([]byte(`{"controlled_by": "admin"}`))
	}))

	s, err := c.ControlStatus(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, models.ControlAdmin, s)
}

func TestSetControlReturnsServerStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin", body["status"])
		// Someone else released control meanwhile.
		w.Write([]byte(`{"success": true, "new_status": "bot"}`))
	}))

	s, err := c.SetControl(context.Background(), "42", models.ControlAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ControlBot, s)
}

func TestSetControlWithoutNewStatusRereads(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"success": true}`))
			return
		}
		w.Write([]byte(`{"controlled_by": "admin"}`))
	}))

	s, err := c.SetControl(context.Background(), "42", models.ControlAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ControlAdmin, s)
}

func TestSetControlRejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"success false", http.StatusOK, `{"success": false, "error": "locked"}`, "locked"},
		{"bad request", http.StatusBadRequest, `{"error": "Invalid status"}`, "Invalid status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.SetControl(context.Background(), "42", models.ControlAdmin)
			require.Error(t, err)
			assert.True(t, errors.Is(err, client.ErrRejected))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReply(t *testing.T) {
	var got string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/42/reply", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body["text"]
		w.Write([]byte(`{"success": true}`))
	}))

	require.NoError(t, c.Reply(context.Background(), "42", "on my way"))
	assert.Equal(t, "on my way", got)
}

func TestReplyServerFailure(t *testing.T) {
	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to send message"}`))
	}))

	err := c.Reply(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRejected))
	assert.Equal(t, int64(1), m.Snapshot().Operations[0].Errors)
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8123", "ws://localhost:8123/ws/all"},
		{"https://console.example.com/", "wss://console.example.com/ws/all"},
		{"http://host/prefix", "ws://host/prefix/ws/all"},
	}
	for _, tt := range tests {
		got, err := client.New(tt.base, client.Options{}).StreamURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := client.New("ftp://host", client.Options{}).StreamURL()
	assert.Error(t, err)
}

func TestDialStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/all", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_conversation","data":{"chat_id":"7"}}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := c.DialStream(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "new_conversation"))
}

func TestDialStreamDropsSilentPeer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		// Swallow pings: the peer is there but never answers.
		conn.SetPingHandler(func(string) error { return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, client.Options{PongWait: 300 * time.Millisecond})
	conn, err := c.DialStream(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDialStreamStaysUpWhilePeerAnswers(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		// Reading lets the default handler answer pings.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		time.Sleep(600 * time.Millisecond)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_conversation","data":{"chat_id":"7"}}`))
		<-done
	}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, client.Options{PongWait: 300 * time.Millisecond})
	conn, err := c.DialStream(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "quiet but answering peers are kept")
	assert.Contains(t, string(data), "new_conversation")
}
