// Package control tracks who owns response generation per conversation.
//
// The status only ever changes to a value the server reported. A toggle
// records the request as pending; the displayed status is untouched until
// the server's answer arrives.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/takeover/internal/models"
)

// ErrUnknownConversation is returned when toggling a conversation whose
// status has not been fetched yet.
var ErrUnknownConversation = errors.New("control status not loaded")

// ErrPending is returned when a toggle is already in flight.
var ErrPending = errors.New("control change already in flight")

// Requester sends a control change and returns the status the server
// reports afterwards.
type Requester interface {
	SetControl(ctx context.Context, id models.ConversationID, status models.ControlStatus) (models.ControlStatus, error)
}

// Machine holds the two-state control flag for every conversation seen.
// It is not safe for concurrent use.
type Machine struct {
	status  map[models.ConversationID]models.ControlStatus
	pending map[models.ConversationID]models.ControlStatus
}

// New creates an empty machine.
func New() *Machine {
	return &Machine{
		status:  make(map[models.ConversationID]models.ControlStatus),
		pending: make(map[models.ConversationID]models.ControlStatus),
	}
}

// Set records a status fetched from the server.
func (m *Machine) Set(id models.ConversationID, s models.ControlStatus) {
	m.status[id] = s
}

// Status returns the last server-confirmed status.
func (m *Machine) Status(id models.ConversationID) (models.ControlStatus, bool) {
	s, ok := m.status[id]
	return s, ok
}

// Pending reports whether a toggle for id awaits the server.
func (m *Machine) Pending(id models.ConversationID) bool {
	_, ok := m.pending[id]
	return ok
}

// CanReply gates reply submission on admin control. The backend does not
// re-check this.
func (m *Machine) CanReply(id models.ConversationID) bool {
	return m.status[id] == models.ControlAdmin
}

// Begin starts a toggle and returns the status to request.
func (m *Machine) Begin(id models.ConversationID) (models.ControlStatus, error) {
	cur, ok := m.status[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if _, busy := m.pending[id]; busy {
		return "", fmt.Errorf("%w: %s", ErrPending, id)
	}
	req := cur.Complement()
	m.pending[id] = req
	return req, nil
}

// Confirm applies the status the server reported, which may differ from
// what was requested.
func (m *Machine) Confirm(id models.ConversationID, reported models.ControlStatus) {
	delete(m.pending, id)
	if reported.Valid() {
		m.status[id] = reported
	}
}

// Fail ends a toggle that did not succeed; the status stays as it was.
func (m *Machine) Fail(id models.ConversationID) {
	delete(m.pending, id)
}

// Toggle runs a full round trip synchronously.
func (m *Machine) Toggle(ctx context.Context, id models.ConversationID, r Requester) (models.ControlStatus, error) {
	req, err := m.Begin(id)
	if err != nil {
		return "", err
	}
	reported, err := r.SetControl(ctx, id, req)
	if err != nil {
		m.Fail(id)
		cur := m.status[id]
		return cur, fmt.Errorf("set control %s to %s: %w", id, req, err)
	}
	m.Confirm(id, reported)
	return m.status[id], nil
}

// Label is the action offered for the current status.
func Label(s models.ControlStatus) string {
	if s == models.ControlAdmin {
		return "Release Control"
	}
	return "Take Over"
}
