package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders a bottom status bar with keybinding hints and the
// channel state.
type StatusBarModel struct {
	Hints []KeyHint
	Title string // widget title, e.g. "Support"
	State string // channel state
	Extra string // additional status text (e.g. "Receiving...")
	width int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		key := theme.StatusKey.Render(h.Key)
		hints = append(hints, key+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.Title != "" {
		parts = append(parts, theme.TextMuted.Render(m.Title))
	}
	if m.State != "" {
		parts = append(parts, stateStyle(m.State).Render(m.State))
	}
	right := strings.Join(parts, " "+theme.SymbolBullet+" ")

	if m.Extra != "" {
		if right != "" {
			right += "  "
		}
		right += theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "open":
		return theme.TextSuccess
	case "failed":
		return theme.TextError
	case "connecting":
		return theme.TextWarning
	default:
		return theme.TextMuted
	}
}
