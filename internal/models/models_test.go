package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDAcceptsNumbers(t *testing.T) {
	var ids []ConversationID
	require.NoError(t, json.Unmarshal([]byte(`["6281234", 6289999, "abc"]`), &ids))
	assert.Equal(t, []ConversationID{"6281234", "6289999", "abc"}, ids)
}

func TestMessagePartShapes(t *testing.T) {
	raw := `{
		"role": "user",
		"parts": [
			{"text": "hello"},
			{"type": "text", "text": "typed"},
			{"type": "FileData", "file_uri": "https://x/a.png", "mime_type": "image/png"},
			{"mime_type": "application/pdf", "uri": "https://x/b", "filename": "report.pdf"},
			{"type": "function_call", "name": "db_tool", "arguments": {}},
			{"type": "function_response", "name": "db_tool", "response": {}}
		]
	}`

	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, RoleUser, m.Role)
	require.Len(t, m.Parts, 4)
	assert.Equal(t, TextPart{Content: "hello"}, m.Parts[0])
	assert.Equal(t, TextPart{Content: "typed"}, m.Parts[1])
	assert.Equal(t, MediaPart{MimeType: "image/png", URI: "https://x/a.png"}, m.Parts[2])
	assert.Equal(t, MediaPart{MimeType: "application/pdf", URI: "https://x/b", Filename: "report.pdf"}, m.Parts[3])
}

func TestFirstText(t *testing.T) {
	m := &Message{Parts: []Part{MediaPart{MimeType: "image/png", URI: "u"}, TextPart{Content: "caption"}}}
	text, ok := m.FirstText()
	assert.True(t, ok)
	assert.Equal(t, "caption", text)

	var nilMsg *Message
	_, ok = nilMsg.FirstText()
	assert.False(t, ok)
}

func TestControlStatus(t *testing.T) {
	assert.Equal(t, ControlAdmin, ControlBot.Complement())
	assert.Equal(t, ControlBot, ControlAdmin.Complement())

	s, err := ParseControlStatus("admin")
	require.NoError(t, err)
	assert.Equal(t, ControlAdmin, s)

	_, err = ParseControlStatus("human")
	assert.Error(t, err)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Event
		wantErr error
	}{
		{
			name: "new conversation",
			in:   `{"type":"new_conversation","data":{"chat_id":"628"}}`,
			want: NewConversationEvent{ConversationID: "628"},
		},
		{
			name: "admin reply",
			in:   `{"type":"new_message","data":{"chat_id":628,"message":{"user":null,"bot":{"role":"admin","parts":[{"text":"hi"}]}}}}`,
			want: NewMessageEvent{
				ConversationID: "628",
				Item:           HistoryItem{Bot: &Message{Role: RoleAdmin, Parts: []Part{TextPart{Content: "hi"}}}},
			},
		},
		{
			name:    "unknown type",
			in:      `{"type":"typing","data":{"chat_id":"1"}}`,
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.in))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEventMissingChatID(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"new_message","data":{}}`))
	assert.Error(t, err)
}

func TestEncodeEventReadsBack(t *testing.T) {
	ev := NewMessageEvent{
		ConversationID: "42",
		Item: HistoryItem{
			User: &Message{Role: RoleUser, Parts: []Part{TextPart{Content: "photo"}, MediaPart{MimeType: "image/jpeg", URI: "https://x/p.jpg"}}},
		},
	}
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}
