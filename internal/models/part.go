package models

import (
	"encoding/json"
	"fmt"
)

// Part is one atomic unit of message content: TextPart or MediaPart.
type Part interface {
	wire() any
}

// TextPart is plain text content.
type TextPart struct {
	Content string
}

// MediaPart references an uploaded file.
type MediaPart struct {
	MimeType string
	URI      string
	Filename string
}

func (p TextPart) wire() any {
	return map[string]string{"type": "text", "text": p.Content}
}

func (p MediaPart) wire() any {
	w := map[string]string{"type": "FileData", "file_uri": p.URI, "mime_type": p.MimeType}
	if p.Filename != "" {
		w["filename"] = p.Filename
	}
	return w
}

// wirePart covers every part shape the backend has stored over time.
type wirePart struct {
	Type     string  `json:"type"`
	Text     *string `json:"text"`
	FileURI  string  `json:"file_uri"`
	URI      string  `json:"uri"`
	MimeType string  `json:"mime_type"`
	Filename string  `json:"filename"`
}

// decodePart returns nil for part kinds that carry nothing displayable.
func decodePart(raw json.RawMessage) (Part, error) {
	var w wirePart
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode part: %w", err)
	}

	switch w.Type {
	case "function_call", "function_response":
		return nil, nil
	}

	if w.Text != nil && w.FileURI == "" && w.URI == "" {
		return TextPart{Content: *w.Text}, nil
	}
	if w.FileURI != "" || w.URI != "" || w.MimeType != "" {
		uri := w.FileURI
		if uri == "" {
			uri = w.URI
		}
		return MediaPart{MimeType: w.MimeType, URI: uri, Filename: w.Filename}, nil
	}
	return nil, nil
}
