package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color scheme for transcript output.
type Theme struct {
	User  lipgloss.Color
	Bot   lipgloss.Color
	Admin lipgloss.Color
	Media lipgloss.Color
	Hint  lipgloss.Color
	Error lipgloss.Color
}

// DefaultTheme provides default colors.
var DefaultTheme = Theme{
	User:  lipgloss.Color("#5FAFD7"), // light blue
	Bot:   lipgloss.Color("#00D787"), // green
	Admin: lipgloss.Color("#DC3545"), // red, admin replies stand out
	Media: lipgloss.Color("#D7AF5F"), // amber
	Hint:  lipgloss.Color("#6C6C6C"), // dim gray
	Error: lipgloss.Color("#FF005F"),
}

// PlainTheme renders without colors, for pipes and logs.
var PlainTheme = Theme{}

func (t Theme) roleColor(k BlockKind) lipgloss.Color {
	switch k {
	case BlockUser:
		return t.User
	case BlockAdmin:
		return t.Admin
	default:
		return t.Bot
	}
}

// RoleLabel is the heading shown above a block.
func RoleLabel(k BlockKind) string {
	switch k {
	case BlockUser:
		return "User"
	case BlockAdmin:
		return "Admin"
	default:
		return "Assistant"
	}
}

// HintStyle is used for placeholders and status lines.
func (t Theme) HintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// ErrorStyle is used for inline error states.
func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

// Block renders one block as terminal text wrapped to width.
func (t Theme) Block(b Block, width int) string {
	color := t.roleColor(b.Kind)
	heading := lipgloss.NewStyle().Foreground(color).Bold(true).Render(RoleLabel(b.Kind))

	body := lipgloss.NewStyle().PaddingLeft(1)
	if width > 2 {
		body = body.Width(width - 2)
	}
	media := lipgloss.NewStyle().Foreground(t.Media)

	lines := []string{heading}
	for _, el := range b.Elements {
		switch el.Kind {
		case ElementText:
			lines = append(lines, body.Render(el.Text))
		case ElementFile:
			lines = append(lines, body.Render(media.Render(fmt.Sprintf("%s %s: %s", el.Icon, el.Label, el.Filename))+"\n"+el.URI))
		default:
			lines = append(lines, body.Render(media.Render(mediaTag(el.Kind))+" "+el.URI))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(color).
		Render(strings.Join(lines, "\n"))
}

// Transcript renders blocks separated by blank lines.
func (t Theme) Transcript(blocks []Block, width int) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, t.Block(b, width))
	}
	return strings.Join(out, "\n\n")
}

func mediaTag(k ElementKind) string {
	switch k {
	case ElementImage:
		return "[image]"
	case ElementVideo:
		return "[video ▶]"
	case ElementAudio:
		return "[audio ▶]"
	}
	return "[" + string(k) + "]"
}
