package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/adapter/tui/theme"
)

// MessageRole identifies the sender of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error"
)

// ChatMessage represents a single message in the chat history.
type ChatMessage struct {
	ID        string
	Role      MessageRole
	Content   string
	Rendered  string // cached glamour output; empty means not yet rendered
	Streaming bool   // still receiving fragments
	Footer    string // pre-rendered block drawn under the body (feedback controls)
}

// MessageListModel renders an ordered list of chat messages.
type MessageListModel struct {
	Messages   []ChatMessage
	width      int
	mdRenderer *glamour.TermRenderer
}

// NewMessageList creates an empty message list.
func NewMessageList() MessageListModel {
	return MessageListModel{}
}

// SetWidth updates the rendering width and clears cached renders.
func (m *MessageListModel) SetWidth(w int) {
	if w == m.width {
		return
	}
	m.width = w
	m.mdRenderer = nil // force re-creation with new width
	for i := range m.Messages {
		m.Messages[i].Rendered = ""
	}
}

// Sync replaces the message list, keeping cached renders for messages whose
// content did not change.
func (m *MessageListModel) Sync(msgs []ChatMessage) {
	cache := make(map[string]ChatMessage, len(m.Messages))
	for _, old := range m.Messages {
		cache[old.ID] = old
	}
	next := make([]ChatMessage, len(msgs))
	for i, msg := range msgs {
		if old, ok := cache[msg.ID]; ok && old.Content == msg.Content && msg.Rendered == "" {
			msg.Rendered = old.Rendered
		}
		next[i] = msg
	}
	m.Messages = next
}

// View renders all messages as a single string.
func (m *MessageListModel) View() string {
	if len(m.Messages) == 0 {
		return ""
	}

	contentWidth := ContentWidth(m.width)
	var sb strings.Builder
	for i := range m.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(&m.Messages[i], contentWidth))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *MessageListModel) renderMessage(msg *ChatMessage, width int) string {
	header := roleLabel(msg.Role)
	if msg.Streaming {
		header += " " + theme.TextMuted.Render(theme.SymbolEllipsis)
	}

	var body string
	switch msg.Role {
	case RoleAssistant:
		// Partial markdown renders badly; wait for the stream to finish.
		if msg.Streaming {
			body = "  " + wrapText(msg.Content, width-2)
			break
		}
		if msg.Rendered == "" {
			msg.Rendered = m.renderMarkdown(msg.Content, width)
		}
		body = strings.TrimRight(msg.Rendered, "\n")
	case RoleError:
		body = "  " + theme.TextError.Render(wrapText(msg.Content, width-2))
	default:
		body = "  " + wrapText(msg.Content, width-2)
	}

	out := header
	if strings.TrimSpace(body) != "" {
		out += "\n" + body
	}
	if msg.Footer != "" {
		out += "\n" + msg.Footer
	}
	return out
}

func roleLabel(role MessageRole) string {
	switch role {
	case RoleUser:
		return theme.UserLabel.Render(theme.SymbolUser)
	case RoleAssistant:
		return theme.BotLabel.Render(theme.SymbolBot)
	case RoleSystem:
		return theme.SystemLabel.Render("System")
	case RoleError:
		return theme.TextError.Render(theme.SymbolError + " Error")
	default:
		return theme.TextMuted.Render(string(role))
	}
}

func (m *MessageListModel) renderMarkdown(content string, width int) string {
	if m.mdRenderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "  " + content
		}
		m.mdRenderer = r
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return "  " + content
	}
	return rendered
}

// wrapText wraps text to the given width with a 2-space indent on continuation lines.
// Uses rune-based indexing to safely handle multibyte UTF-8.
func wrapText(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	var lines []string
	for len(runes) > width {
		idx := -1
		for i := width - 1; i > 0; i-- {
			if runes[i] == ' ' {
				idx = i
				break
			}
		}
		if idx <= 0 {
			idx = width
		}
		lines = append(lines, string(runes[:idx]))
		runes = runes[idx:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return strings.Join(lines, "\n  ")
}

// ContentWidth calculates the content width respecting MaxContentWidth.
func ContentWidth(termWidth int) int {
	return theme.Clamp(termWidth-4, 20, theme.MaxContentWidth)
}

// Divider renders a horizontal line at the given width.
func Divider(width int) string {
	return lipgloss.NewStyle().
		Foreground(theme.ColorBorder).
		Render(strings.Repeat("─", width))
}
