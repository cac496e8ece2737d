package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by DecodeEvent for frame types the console
// does not handle.
var ErrUnknownEvent = errors.New("unknown event type")

// Frame types pushed on the multiplexed stream.
const (
	EventNewMessage      = "new_message"
	EventNewConversation = "new_conversation"
)

// Event is a push notification from the stream.
type Event interface {
	Conversation() ConversationID
	eventType() string
}

// NewMessageEvent reports a turn appended to a conversation.
type NewMessageEvent struct {
	ConversationID ConversationID
	Item           HistoryItem
}

// NewConversationEvent reports a conversation the console has not seen.
type NewConversationEvent struct {
	ConversationID ConversationID
}

func (e NewMessageEvent) Conversation() ConversationID      { return e.ConversationID }
func (e NewMessageEvent) eventType() string                 { return EventNewMessage }
func (e NewConversationEvent) Conversation() ConversationID { return e.ConversationID }
func (e NewConversationEvent) eventType() string            { return EventNewConversation }

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type frameData struct {
	ChatID  ConversationID `json:"chat_id"`
	Message *HistoryItem   `json:"message,omitempty"`
}

// DecodeEvent parses one stream frame, dispatching on its type field.
func DecodeEvent(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var d frameData
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", f.Type, err)
		}
	}

	switch f.Type {
	case EventNewMessage:
		if d.ChatID == "" {
			return nil, fmt.Errorf("%s: missing chat_id", f.Type)
		}
		ev := NewMessageEvent{ConversationID: d.ChatID}
		if d.Message != nil {
			ev.Item = *d.Message
		}
		return ev, nil
	case EventNewConversation:
		if d.ChatID == "" {
			return nil, fmt.Errorf("%s: missing chat_id", f.Type)
		}
		return NewConversationEvent{ConversationID: d.ChatID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
}

// EncodeEvent produces the frame DecodeEvent reads.
func EncodeEvent(ev Event) ([]byte, error) {
	d := frameData{ChatID: ev.Conversation()}
	if m, ok := ev.(NewMessageEvent); ok {
		item := m.Item
		d.Message = &item
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Type: ev.eventType(), Data: data})
}
