package components

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/adapter/tui/theme"
)

// InputSubmitMsg is sent when the user presses Enter to submit input.
type InputSubmitMsg struct {
	Value string
}

// InputAreaModel wraps a textarea with submit handling. The text is sent
// as typed; the owner decides whether it is acceptable.
type InputAreaModel struct {
	Textarea textarea.Model
	Enabled  bool
	width    int
}

// NewInputArea creates an input area with the given placeholder.
func NewInputArea(placeholder string) InputAreaModel {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0 // no limit
	ta.SetHeight(2)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.Focus()

	return InputAreaModel{
		Textarea: ta,
		Enabled:  true,
	}
}

// SetWidth updates the textarea width.
func (m *InputAreaModel) SetWidth(w int) {
	m.width = w
	m.Textarea.SetWidth(w - 2) // account for border/padding
}

// SetEnabled enables or disables input (e.g. while waiting for response).
func (m *InputAreaModel) SetEnabled(enabled bool) {
	m.Enabled = enabled
	if enabled {
		m.Textarea.Focus()
	} else {
		m.Textarea.Blur()
	}
}

// SetValue replaces the input text.
func (m *InputAreaModel) SetValue(s string) {
	if m.Textarea.Value() == s {
		return
	}
	m.Textarea.SetValue(s)
	m.Textarea.CursorEnd()
}

// Reset clears the input.
func (m *InputAreaModel) Reset() {
	m.Textarea.Reset()
}

// Value returns the current input text.
func (m InputAreaModel) Value() string {
	return m.Textarea.Value()
}

// Update handles key events. Enter submits; other keys edit the text.
func (m InputAreaModel) Update(msg tea.Msg) (InputAreaModel, tea.Cmd) {
	if !m.Enabled {
		return m, nil
	}

	// The textarea should never receive mouse events.
	if _, ok := msg.(tea.MouseMsg); ok {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && !keyMsg.Alt {
		value := m.Textarea.Value()
		return m, func() tea.Msg { return InputSubmitMsg{Value: value} }
	}

	var cmd tea.Cmd
	m.Textarea, cmd = m.Textarea.Update(msg)
	return m, cmd
}

// View renders the input area.
func (m InputAreaModel) View() string {
	return m.Textarea.View()
}
