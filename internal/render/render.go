// Package render turns history items into display blocks.
//
// Render builds a pure view-model; Theme turns that view-model into
// terminal text. Keeping the two apart lets formatting rules be tested
// without a screen.
package render

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/raphaelgruber/takeover/internal/models"
)

// BlockKind identifies who authored a block.
type BlockKind string

const (
	BlockUser  BlockKind = "user"
	BlockBot   BlockKind = "bot"
	BlockAdmin BlockKind = "admin"
)

// ElementKind identifies how a part is displayed.
type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementImage ElementKind = "image"
	ElementVideo ElementKind = "video"
	ElementAudio ElementKind = "audio"
	ElementFile  ElementKind = "file"
)

// Block is one rendered message.
type Block struct {
	Kind     BlockKind
	Elements []Element
}

// Element is one rendered part.
type Element struct {
	Kind ElementKind

	// Text is set for ElementText.
	Text string

	// Media fields.
	URI      string
	MimeType string

	// File affordance fields (ElementFile only).
	Label    string
	Icon     string
	Filename string
}

// Render converts one exchange turn into display blocks, user first.
func Render(item models.HistoryItem) []Block {
	var blocks []Block

	if item.User != nil {
		first, _ := item.User.FirstText()
		if first != models.AdminRepliedSentinel {
			if b, ok := renderMessage(BlockUser, item.User); ok {
				blocks = append(blocks, b)
			}
		}
	}

	if item.Bot != nil {
		kind := BlockBot
		if item.Bot.Role == models.RoleAdmin {
			kind = BlockAdmin
		}
		if b, ok := renderMessage(kind, item.Bot); ok {
			blocks = append(blocks, b)
		}
	}

	return blocks
}

// RenderHistory renders a whole transcript in order.
func RenderHistory(items []models.HistoryItem) []Block {
	blocks := make([]Block, 0, len(items)*2)
	for _, item := range items {
		blocks = append(blocks, Render(item)...)
	}
	return blocks
}

// renderMessage reports false when nothing in m is displayable, so a
// message never shows as a bare author heading.
func renderMessage(kind BlockKind, m *models.Message) (Block, bool) {
	b := Block{Kind: kind}
	for _, p := range m.Parts {
		if el, ok := renderPart(p); ok {
			b.Elements = append(b.Elements, el)
		}
	}
	return b, len(b.Elements) > 0
}

func renderPart(p models.Part) (Element, bool) {
	switch p := p.(type) {
	case models.TextPart:
		text := strings.TrimSpace(p.Content)
		if text == "" {
			return Element{}, false
		}
		return Element{Kind: ElementText, Text: text}, true

	case models.MediaPart:
		if strings.TrimSpace(p.URI) == "" {
			return Element{}, false
		}
		mt := strings.ToLower(p.MimeType)
		switch {
		case strings.HasPrefix(mt, "image/"):
			return Element{Kind: ElementImage, URI: p.URI, MimeType: p.MimeType}, true
		case strings.HasPrefix(mt, "video/"):
			return Element{Kind: ElementVideo, URI: p.URI, MimeType: p.MimeType}, true
		case strings.HasPrefix(mt, "audio/"):
			return Element{Kind: ElementAudio, URI: p.URI, MimeType: p.MimeType}, true
		}
		ft := classifyFile(mt)
		return Element{
			Kind:     ElementFile,
			URI:      p.URI,
			MimeType: p.MimeType,
			Label:    ft.label,
			Icon:     ft.icon,
			Filename: filenameFor(p),
		}, true
	}
	return Element{}, false
}

type fileType struct {
	label string
	icon  string
}

var (
	filePDF     = fileType{"PDF Document", "📕"}
	fileText    = fileType{"Text File", "📄"}
	fileZip     = fileType{"ZIP Archive", "🗜"}
	fileWord    = fileType{"Word Document", "📘"}
	fileGeneric = fileType{"File", "📎"}
)

func classifyFile(mt string) fileType {
	switch {
	case strings.Contains(mt, "pdf"):
		return filePDF
	case strings.HasPrefix(mt, "text/"):
		return fileText
	case strings.Contains(mt, "zip"):
		return fileZip
	case strings.Contains(mt, "msword"), strings.Contains(mt, "wordprocessingml"):
		return fileWord
	default:
		return fileGeneric
	}
}

// filenameFor prefers the original name, then the URI's last path segment,
// then a name built from the mime type.
func filenameFor(p models.MediaPart) string {
	if p.Filename != "" {
		return p.Filename
	}
	if u, err := url.Parse(p.URI); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	name := "attachment"
	if exts, err := mime.ExtensionsByType(p.MimeType); err == nil && len(exts) > 0 {
		name += exts[0]
	}
	return name
}
