package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for backend operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the backend has nothing stored for the request,
	// e.g. a conversation with no history yet.
	ErrNotFound = errors.New("not found")

	// ErrRejected indicates an action (control change, reply) the backend
	// refused, either with success:false or an error status.
	ErrRejected = errors.New("rejected by server")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("server error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), truncate(e.Body, maxBodyLogLen))
}

// Unwrap maps 404 to ErrNotFound.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: string(body)}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Error
	}
	return e
}

// rejection turns an HTTP error on an action endpoint into ErrRejected,
// keeping transport errors as they are.
func rejection(err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Message
		if msg == "" {
			msg = http.StatusText(httpErr.StatusCode)
		}
		return fmt.Errorf("%w: %s (HTTP %d)", ErrRejected, msg, httpErr.StatusCode)
	}
	return err
}

func rejectedf(msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}
