package widget

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/adapter/tui/components"
	"chatwidget/internal/adapter/tui/theme"
	"chatwidget/internal/adapter/tui/uxerror"
	"chatwidget/internal/domain"
	"chatwidget/internal/usecase/session"
)

// ModelDeps are dependencies injected into the widget model.
type ModelDeps struct {
	Controller *session.Controller
	Logger     *slog.Logger
	Title      string
	StartOpen  bool // open the widget (and the channel) on start
}

// Model is the root Bubble Tea model. It keeps no conversation state of its
// own: every frame is drawn from Controller.Presentation().
type Model struct {
	deps ModelDeps
	ctx  context.Context

	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	spinner   spinner.Model
	fbInput   textinput.Model

	// Feedback mode: keyboard focus on one assistant entry.
	feedbackMode bool
	focusID      string
	editing      bool

	diagnostic string // last channel or frame problem, for the status bar
	width      int
	height     int
	quitting   bool
}

// NewModel creates the root widget model.
func NewModel(ctx context.Context, deps ModelDeps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Title == "" {
		deps.Title = "Chat"
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	fb := textinput.New()
	fb.Prompt = "> "
	fb.PromptStyle = theme.InputPrompt

	sb := components.NewStatusBar()
	sb.Title = deps.Title

	m := Model{
		deps:      deps,
		ctx:       ctx,
		chatView:  components.NewChatView(),
		input:     components.NewInputArea("Type your message..."),
		statusBar: sb,
		spinner:   s,
		fbInput:   fb,
	}
	m.sync()
	return m
}

// Init opens the widget when configured to and starts the spinner.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.deps.StartOpen {
		ctrl, ctx := m.deps.Controller, m.ctx
		cmds = append(cmds, func() tea.Msg {
			return OpenedMsg{OK: ctrl.Open(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case components.InputSubmitMsg:
		m.submit(msg.Value)

	case EventMsg:
		m.handleEvent(msg.Event)

	case OpenedMsg:
		if !msg.OK {
			m.deps.Logger.Debug("open rejected")
		}

	case QuitMsg:
		m.deps.Controller.Shutdown()
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.quitting {
		return m, tea.Quit
	}
	m.sync()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	ctrl := m.deps.Controller

	switch msg.Type {
	case tea.KeyCtrlC:
		ctrl.Shutdown()
		m.quitting = true
		return m, tea.Quit
	case tea.KeyCtrlO:
		ctrl.Toggle(m.ctx)
		return m, nil
	}

	v := ctrl.Presentation()
	if v.Ended {
		return m, nil
	}
	if !v.Visible {
		if msg.Type == tea.KeyEnter {
			ctrl.Open(m.ctx)
		}
		return m, nil
	}

	if m.feedbackMode {
		return m.handleFeedbackKey(msg, v)
	}

	switch msg.Type {
	case tea.KeyEsc:
		ctrl.Hide()
		return m, nil
	case tea.KeyCtrlF:
		if id := lastAssistant(v); id != "" {
			m.feedbackMode = true
			m.focusID = id
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	case tea.KeyRunes:
		if i, ok := digit(msg); ok && v.ShowPlaceholder && v.Draft == "" {
			if i >= 1 && i <= len(v.Topics) {
				ctrl.PickTopic(m.ctx, i-1)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != v.Draft {
		ctrl.SetDraft(value)
	}
	return m, cmd
}

func (m *Model) submit(value string) {
	ctrl := m.deps.Controller
	ctrl.SetDraft(value)
	if ctrl.Send(m.ctx) {
		m.input.Reset()
	}
}

func (m Model) handleFeedbackKey(msg tea.KeyMsg, v session.View) (Model, tea.Cmd) {
	ctrl := m.deps.Controller
	fv := feedbackOf(v, m.focusID)
	if fv == nil {
		m.feedbackMode = false
		m.editing = false
		return m, nil
	}

	if m.editing {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyTab:
			m.editing = false
			m.fbInput.Blur()
		case tea.KeyEnter:
			if ctrl.SubmitFeedback(m.ctx, m.focusID) {
				m.editing = false
				m.fbInput.Blur()
			}
		default:
			var cmd tea.Cmd
			m.fbInput, cmd = m.fbInput.Update(msg)
			ctrl.SetFeedbackText(m.focusID, m.fbInput.Value())
			return m, cmd
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		if fv.PanelOpen {
			ctrl.CloseFeedback(m.focusID)
		} else {
			m.feedbackMode = false
		}
	case tea.KeyUp:
		m.focusID = stepAssistant(v, m.focusID, -1)
	case tea.KeyDown:
		m.focusID = stepAssistant(v, m.focusID, 1)
	case tea.KeyTab:
		if fv.ShowDetail {
			m.editing = true
			m.fbInput.SetValue(fv.Text)
			m.fbInput.CursorEnd()
			m.fbInput.Focus()
		}
	case tea.KeyEnter:
		ctrl.SubmitFeedback(m.ctx, m.focusID)
	case tea.KeyRunes:
		if i, ok := digit(msg); ok {
			if i >= 1 && i <= len(fv.Reasons) {
				ctrl.ToggleReason(m.focusID, fv.Reasons[i-1].Text)
			}
			return m, nil
		}
		switch msg.String() {
		case "+":
			ctrl.Like(m.ctx, m.focusID)
		case "-":
			ctrl.Dislike(m.focusID)
		case "b":
			ctrl.ChooseCategory(m.ctx, m.focusID, domain.FeedbackBetter)
		case "s":
			ctrl.ChooseCategory(m.ctx, m.focusID, domain.FeedbackSame)
		case "w":
			ctrl.ChooseCategory(m.ctx, m.focusID, domain.FeedbackWorse)
		}
	}
	return m, nil
}

func (m *Model) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventChannelOpened:
		m.diagnostic = ""
	case domain.EventChannelFailed:
		if fe, ok := uxerror.ForChannelState(domain.ChannelFailed.String()); ok {
			m.diagnostic = fe.Title
		}
	case domain.EventFrameRejected:
		var p domain.FrameRejectedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		fe := uxerror.FromCode(p.Code, p.Error)
		m.diagnostic = fe.Title
		m.deps.Logger.Debug("frame rejected", "code", string(p.Code), "error", p.Error)
	case domain.EventSessionEnded:
		m.feedbackMode = false
		m.editing = false
	}
}

// sync pulls the current presentation into the sub-models.
func (m *Model) sync() {
	v := m.deps.Controller.Presentation()

	m.input.SetValue(v.Draft)
	m.input.SetEnabled(v.Visible && !v.Ended && !m.feedbackMode)

	m.statusBar.State = v.ChannelState
	m.statusBar.Hints = m.hints(v)
	switch {
	case v.Receiving:
		m.statusBar.Extra = "Receiving..."
	case m.diagnostic != "":
		m.statusBar.Extra = m.diagnostic
	default:
		m.statusBar.Extra = ""
	}

	if !v.ShowPlaceholder {
		m.chatView.Sync(m.messages(v))
	}
}

func (m Model) messages(v session.View) []components.ChatMessage {
	msgs := make([]components.ChatMessage, 0, len(v.Entries))
	for _, e := range v.Entries {
		role := components.RoleUser
		if e.IsAssistant() {
			role = components.RoleAssistant
		}
		footer := ""
		if !e.Streaming {
			footer = components.FeedbackPanel{
				View:    e.Feedback,
				Focused: m.feedbackMode && e.ID == m.focusID,
				Editing: m.editing && e.ID == m.focusID,
			}.Render(m.width)
		}
		if m.editing && e.ID == m.focusID && e.Feedback != nil && e.Feedback.ShowDetail {
			footer += "\n" + m.fbInput.View()
		}
		msgs = append(msgs, components.ChatMessage{
			ID:        e.ID,
			Role:      role,
			Content:   e.Text,
			Streaming: e.Streaming,
			Footer:    footer,
		})
	}
	return msgs
}

func (m Model) hints(v session.View) []components.KeyHint {
	switch {
	case !v.Visible:
		return []components.KeyHint{{Key: "Ctrl+O", Desc: "Open"}, {Key: "Ctrl+C", Desc: "Quit"}}
	case m.editing:
		return []components.KeyHint{{Key: "Enter", Desc: "Submit"}, {Key: "Esc", Desc: "Done"}}
	case m.feedbackMode:
		return []components.KeyHint{{Key: "Up/Down", Desc: "Answer"}, {Key: "+/-", Desc: "Rate"}, {Key: "Esc", Desc: "Back"}}
	case v.ShowPlaceholder && len(v.Topics) > 0:
		return []components.KeyHint{{Key: "1-9", Desc: "Topic"}, {Key: "Enter", Desc: "Send"}, {Key: "Esc", Desc: "Hide"}}
	default:
		return []components.KeyHint{{Key: "Enter", Desc: "Send"}, {Key: "Ctrl+F", Desc: "Feedback"}, {Key: "Esc", Desc: "Hide"}}
	}
}

// View renders the widget.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	v := m.deps.Controller.Presentation()
	if v.Ended {
		return theme.TextMuted.Render("  Session ended.") + "\n"
	}
	if !v.Visible {
		launcher := theme.Launcher.Render(theme.SymbolBot + " " + m.deps.Title)
		pad := m.height - lipgloss.Height(launcher) - 1
		if pad < 0 {
			pad = 0
		}
		return strings.Repeat("\n", pad) + launcher + "\n" + m.statusBar.View()
	}

	var content string
	if v.ShowPlaceholder {
		content = components.Placeholder{
			NoticeTitle: v.NoticeTitle,
			NoticeBody:  v.NoticeBody,
			Topics:      v.Topics,
		}.View(m.width)
		content = lipgloss.NewStyle().Height(m.contentHeight()).Render(content)
	} else {
		content = m.chatView.View()
	}

	inputView := m.input.View()
	if v.Receiving {
		inputView = theme.Dim.Render("> waiting for response...") + "\n" + m.spinner.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.TopicTitle.Render(" "+m.deps.Title),
		content,
		components.Divider(m.width),
		inputView,
		m.statusBar.View(),
	)
}

func (m Model) contentHeight() int {
	const titleH, inputH, statusH, dividerH = 1, 2, 1, 1
	return theme.Clamp(m.height-titleH-inputH-statusH-dividerH, 3, m.height)
}

// layout recalculates sizes for all sub-models.
func (m *Model) layout() {
	m.statusBar.SetWidth(m.width)
	m.chatView.SetSize(m.width, m.contentHeight())
	m.input.SetWidth(m.width)
	m.fbInput.Width = components.ContentWidth(m.width) - 4
}

func feedbackOf(v session.View, id string) *session.FeedbackView {
	for _, e := range v.Entries {
		if e.ID == id {
			return e.Feedback
		}
	}
	return nil
}

func lastAssistant(v session.View) string {
	for i := len(v.Entries) - 1; i >= 0; i-- {
		if v.Entries[i].IsAssistant() {
			return v.Entries[i].ID
		}
	}
	return ""
}

// stepAssistant moves focus to the previous (dir<0) or next assistant entry,
// staying put at either end.
func stepAssistant(v session.View, from string, dir int) string {
	var ids []string
	for _, e := range v.Entries {
		if e.IsAssistant() {
			ids = append(ids, e.ID)
		}
	}
	for i, id := range ids {
		if id != from {
			continue
		}
		if j := i + dir; j >= 0 && j < len(ids) {
			return ids[j]
		}
		return from
	}
	return from
}

func digit(msg tea.KeyMsg) (int, bool) {
	if len(msg.Runes) != 1 || msg.Runes[0] < '0' || msg.Runes[0] > '9' {
		return 0, false
	}
	return int(msg.Runes[0] - '0'), true
}
