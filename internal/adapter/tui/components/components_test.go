package components

import (
	"strings"
	"testing"

	"chatwidget/internal/adapter/tui/theme"
	"chatwidget/internal/domain"
	"chatwidget/internal/usecase/session"
)

func TestWrapText(t *testing.T) {
	if got := wrapText("short", 20); got != "short" {
		t.Errorf("wrapText short = %q", got)
	}
	got := wrapText("aaa bbb ccc", 7)
	if got != "aaa bbb\n  ccc" {
		t.Errorf("wrapText = %q", got)
	}
}

func TestMessageListSyncKeepsRenderCache(t *testing.T) {
	m := NewMessageList()
	m.Sync([]ChatMessage{{ID: "a", Role: RoleAssistant, Content: "hi", Rendered: "cached"}})

	m.Sync([]ChatMessage{{ID: "a", Role: RoleAssistant, Content: "hi"}})
	if m.Messages[0].Rendered != "cached" {
		t.Errorf("unchanged message lost its cache")
	}

	m.Sync([]ChatMessage{{ID: "a", Role: RoleAssistant, Content: "hi there"}})
	if m.Messages[0].Rendered != "" {
		t.Errorf("changed message kept a stale render")
	}
}

func TestMessageListView(t *testing.T) {
	m := NewMessageList()
	m.SetWidth(80)
	m.Sync([]ChatMessage{
		{ID: "u1", Role: RoleUser, Content: "question"},
		{ID: "response-u1", Role: RoleAssistant, Content: "partial ans", Streaming: true, Footer: "FOOTER"},
	})
	out := m.View()
	for _, want := range []string{"You", "question", "Assistant", "partial ans", "FOOTER"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestPlaceholderNumbersTopics(t *testing.T) {
	p := Placeholder{
		NoticeTitle: "AI Chat can be inaccurate.",
		Topics: []domain.TopicSuggestion{
			{Title: "Pricing", Description: "How much does it cost?"},
			{Title: "Hours"},
		},
	}
	out := p.View(80)
	for _, want := range []string{"AI Chat can be inaccurate.", "1. Pricing", "How much does it cost?", "2. Hours"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestFeedbackPanelStates(t *testing.T) {
	tests := []struct {
		name string
		view *session.FeedbackView
		want []string
	}{
		{"none", nil, nil},
		{"idle", &session.FeedbackView{State: domain.FeedbackIdle, ShowButtons: true}, []string{"like"}},
		{"submitted", &session.FeedbackView{State: domain.FeedbackSubmitted}, []string{"Thanks"}},
		{"category", &session.FeedbackView{
			State: domain.FeedbackAwaitingCategory, PanelOpen: true, Header: domain.FeedbackHeaderCategory,
		}, []string{domain.FeedbackHeaderCategory, "worse"}},
		{"detail", &session.FeedbackView{
			State: domain.FeedbackCollectingDetail, PanelOpen: true, ShowDetail: true,
			Header:      domain.FeedbackHeaderDetail,
			Reasons:     []session.ReasonView{{Text: "This isn't true", Checked: true}},
			Placeholder: "What was the issue?",
			CanSubmit:   true,
		}, []string{domain.FeedbackHeaderDetail, "1 " + theme.SymbolChecked + " This isn't true", "What was the issue?", domain.FeedbackSubmitButtonText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FeedbackPanel{View: tt.view, Focused: true}.Render(120)
			if tt.want == nil && out != "" {
				t.Errorf("Render() = %q, want empty", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestStatusBarView(t *testing.T) {
	sb := NewStatusBar()
	sb.SetWidth(80)
	sb.Hints = []KeyHint{{Key: "Enter", Desc: "Send"}}
	sb.Title = "Support"
	sb.State = "open"
	out := sb.View()
	for _, want := range []string{"Enter", "Send", "Support", "open"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q: %s", want, out)
		}
	}
}
