package components

import (
	"fmt"
	"strings"

	"chatwidget/internal/adapter/tui/theme"
	"chatwidget/internal/domain"
	"chatwidget/internal/usecase/session"
)

// FeedbackPanel renders the feedback affordance under one assistant answer.
type FeedbackPanel struct {
	View    *session.FeedbackView
	Focused bool // keyboard focus is on this answer
	Editing bool // typing goes to the free-text field
}

// Render returns the controls block, or "" when there is nothing to draw.
func (p FeedbackPanel) Render(width int) string {
	fv := p.View
	if fv == nil {
		return ""
	}

	if fv.State == domain.FeedbackSubmitted {
		return "  " + theme.TextSuccess.Render(theme.SymbolSuccess+" Thanks for your feedback")
	}

	if fv.ShowButtons {
		line := "  " + theme.SymbolThumbUp + " " + theme.SymbolThumbDown
		if p.Focused {
			line += "  " + theme.Dim.Render("+ like  - dislike")
		}
		return line
	}

	if !fv.PanelOpen {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(theme.Bold.Render(fv.Header))
	switch fv.State {
	case domain.FeedbackAwaitingCategory:
		sb.WriteString("\n" + theme.Dim.Render("b better  s same  w worse  esc close"))
	case domain.FeedbackCollectingDetail:
		for i, r := range fv.Reasons {
			box := theme.SymbolUnchecked
			if r.Checked {
				box = theme.SymbolChecked
			}
			sb.WriteString(fmt.Sprintf("\n%d %s %s", i+1, box, r.Text))
		}
		text := fv.Text
		if text == "" {
			text = theme.InputPlaceholder.Render(fv.Placeholder)
		}
		prompt := "  "
		if p.Editing {
			prompt = theme.InputPrompt.Render("> ")
		}
		sb.WriteString("\n" + prompt + text)

		submit := domain.FeedbackSubmitButtonText
		if fv.CanSubmit {
			submit = theme.StatusKey.Render("enter") + " " + submit
		} else {
			submit = theme.Dim.Render(submit + " (waiting for reply)")
		}
		sb.WriteString("\n" + submit + theme.Dim.Render("  tab edit  esc close"))
	}

	style := theme.Panel
	if p.Focused {
		style = theme.PanelActive
	}
	return style.Width(theme.Clamp(ContentWidth(width)-2, 10, theme.MaxContentWidth)).Render(sb.String())
}
