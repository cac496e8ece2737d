// Package client provides a REST and websocket client for the conversation backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/models"
)

// DefaultStreamPath is the multiplexed event channel covering all conversations.
const DefaultStreamPath = "/ws/all"

// DefaultPongWait is how long the event channel may stay silent, pongs
// included, before the connection is considered dead.
const DefaultPongWait = 60 * time.Second

const pingWriteWait = 5 * time.Second

// Options configures a Client. Zero values select defaults.
type Options struct {
	Timeout    time.Duration
	StreamPath string
	PongWait   time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Client talks to the conversation backend.
type Client struct {
	baseURL    string
	streamPath string
	pongWait   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// New creates a client for the backend at baseURL (e.g. http://localhost:8123).
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.StreamPath == "" {
		opts.StreamPath = DefaultStreamPath
	}
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		streamPath: opts.StreamPath,
		pongWait:   opts.PongWait,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// BaseURL returns the backend URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, op, method, path string, body, result any) (err error) {
	start := time.Now()
	reqID := uuid.New().String()
	defer func() {
		c.observe(op, method, path, reqID, time.Since(start), err)
	}()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func conversationPath(id models.ConversationID, suffix string) string {
	return "/api/conversations/" + url.PathEscape(string(id)) + suffix
}

// =============================================================================
// REST ENDPOINTS
// =============================================================================

// ListConversations returns every known conversation id in server order.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationID, error) {
	var ids []models.ConversationID
	if err := c.do(ctx, metrics.OpListConversations, http.MethodGet, "/api/conversations", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// History returns the exchange turns of a conversation, oldest first.
// A conversation with no stored history yields ErrNotFound.
func (c *Client) History(ctx context.Context, id models.ConversationID) ([]models.HistoryItem, error) {
	var items []models.HistoryItem
	if err := c.do(ctx, metrics.OpHistory, http.MethodGet, conversationPath(id, ""), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type controlStatusResponse struct {
	ControlledBy models.ControlStatus `json:"controlled_by"`
}

// ControlStatus returns which actor currently owns the conversation.
func (c *Client) ControlStatus(ctx context.Context, id models.ConversationID) (models.ControlStatus, error) {
	var resp controlStatusResponse
	if err := c.do(ctx, metrics.OpControlStatus, http.MethodGet, conversationPath(id, "/control"), nil, &resp); err != nil {
		return "", err
	}
	if !resp.ControlledBy.Valid() {
		return "", fmt.Errorf("unexpected control status %q", resp.ControlledBy)
	}
	return resp.ControlledBy, nil
}

type setControlRequest struct {
	Status models.ControlStatus `json:"status"`
}

// actionResponse is returned by control and reply endpoints.
type actionResponse struct {
	Success   bool                 `json:"success"`
	NewStatus models.ControlStatus `json:"new_status,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// SetControl requests a control change and returns the status the server
// reports. When the server omits new_status the current status is re-read.
func (c *Client) SetControl(ctx context.Context, id models.ConversationID, status models.ControlStatus) (models.ControlStatus, error) {
	var resp actionResponse
	err := c.do(ctx, metrics.OpSetControl, http.MethodPost, conversationPath(id, "/control"), setControlRequest{Status: status}, &resp)
	if err != nil {
		return "", rejection(err)
	}
	if !resp.Success {
		return "", rejectedf(resp.Error)
	}
	if resp.NewStatus.Valid() {
		return resp.NewStatus, nil
	}
	return c.ControlStatus(ctx, id)
}

type replyRequest struct {
	Text string `json:"text"`
}

// Reply sends an operator message to the conversation's user.
func (c *Client) Reply(ctx context.Context, id models.ConversationID, text string) error {
	var resp actionResponse
	err := c.do(ctx, metrics.OpReply, http.MethodPost, conversationPath(id, "/reply"), replyRequest{Text: text}, &resp)
	if err != nil {
		return rejection(err)
	}
	if !resp.Success {
		return rejectedf(resp.Error)
	}
	return nil
}

// =============================================================================
// STREAM
// =============================================================================

// StreamURL returns the websocket URL of the multiplexed event channel.
func (c *Client) StreamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.streamPath
	return u.String(), nil
}

// DialStream opens one connection to the event channel.
func (c *Client) DialStream(ctx context.Context) (*StreamConn, error) {
	wsURL, err := c.StreamURL()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{}
	header.Set("X-Request-ID", uuid.New().String())

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connect: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return newStreamConn(conn, c.pongWait), nil
}

// StreamConn is an event channel connection kept alive with pings. A peer
// that stops answering within the pong wait fails the pending read, so a
// half-open connection is dropped like any other.
type StreamConn struct {
	conn     *websocket.Conn
	pongWait time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newStreamConn(conn *websocket.Conn, pongWait time.Duration) *StreamConn {
	s := &StreamConn{conn: conn, pongWait: pongWait, stop: make(chan struct{})}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.ping(pongWait * 9 / 10)
	return s
}

func (s *StreamConn) ping(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait)); err != nil {
				return
			}
		}
	}
}

// ReadMessage returns the next frame. Any frame extends the deadline.
func (s *StreamConn) ReadMessage() (int, []byte, error) {
	mt, data, err := s.conn.ReadMessage()
	if err == nil {
		s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	}
	return mt, data, err
}

// Close stops the pings and closes the connection.
func (s *StreamConn) Close() error {
	s.once.Do(func() { close(s.stop) })
	return s.conn.Close()
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
