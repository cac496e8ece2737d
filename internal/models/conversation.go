// Package models defines the wire types exchanged with the conversation backend.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AdminRepliedSentinel fills the user slot of a history item when an admin
// replied without a preceding user turn. It is never displayed.
const AdminRepliedSentinel = "[ADMIN_REPLIED]"

// ConversationID identifies a conversation (the backend's chat_id).
// The backend keys chats by phone number, so ids may arrive as JSON numbers.
type ConversationID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *ConversationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ConversationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("conversation id: %w", err)
	}
	*id = ConversationID(n.String())
	return nil
}

func (id ConversationID) String() string { return string(id) }

// Role is the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleAdmin Role = "admin"
)

// Message is one side of an exchange.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"-"`
}

// wireMessage is the on-the-wire form of Message.
type wireMessage struct {
	Role  Role              `json:"role"`
	Parts []json.RawMessage `json:"parts"`
}

// UnmarshalJSON decodes parts into their variants, dropping kinds the
// console does not display (function calls and responses).
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Parts = nil
	if w.Parts != nil {
		m.Parts = make([]Part, 0, len(w.Parts))
	}
	for i, raw := range w.Parts {
		p, err := decodePart(raw)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		if p != nil {
			m.Parts = append(m.Parts, p)
		}
	}
	return nil
}

// MarshalJSON encodes the message in the backend's storage shape.
func (m Message) MarshalJSON() ([]byte, error) {
	parts := make([]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		parts = append(parts, p.wire())
	}
	return json.Marshal(struct {
		Role  Role  `json:"role"`
		Parts []any `json:"parts"`
	}{m.Role, parts})
}

// FirstText returns the content of the first text part, if any.
func (m *Message) FirstText() (string, bool) {
	if m == nil {
		return "", false
	}
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			return t.Content, true
		}
	}
	return "", false
}

// HistoryItem is a single exchange turn. Either side may be absent.
type HistoryItem struct {
	User *Message `json:"user,omitempty"`
	Bot  *Message `json:"bot,omitempty"`
}

// ControlStatus says which actor generates responses for a conversation.
type ControlStatus string

const (
	ControlBot   ControlStatus = "bot"
	ControlAdmin ControlStatus = "admin"
)

// Valid reports whether s is one of the two known states.
func (s ControlStatus) Valid() bool {
	return s == ControlBot || s == ControlAdmin
}

// Complement returns the other state.
func (s ControlStatus) Complement() ControlStatus {
	if s == ControlAdmin {
		return ControlBot
	}
	return ControlAdmin
}

// ParseControlStatus validates a user- or server-provided status string.
func ParseControlStatus(s string) (ControlStatus, error) {
	cs := ControlStatus(s)
	if !cs.Valid() {
		return "", fmt.Errorf("invalid control status %q (want bot or admin)", s)
	}
	return cs, nil
}
