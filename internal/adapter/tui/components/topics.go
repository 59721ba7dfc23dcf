package components

import (
	"fmt"
	"strings"

	"chatwidget/internal/adapter/tui/theme"
	"chatwidget/internal/domain"
)

// Placeholder is the empty-conversation screen: a notice followed by
// numbered topic suggestions.
type Placeholder struct {
	NoticeTitle string
	NoticeBody  string
	Topics      []domain.TopicSuggestion
}

// View renders the placeholder at the given width. Topics are numbered from
// 1 so a digit key can pick them.
func (p Placeholder) View(width int) string {
	w := ContentWidth(width)

	var sb strings.Builder
	if p.NoticeTitle != "" {
		sb.WriteString(theme.NoticeTitle.Render(theme.SymbolWarning+" "+p.NoticeTitle) + "\n")
	}
	if p.NoticeBody != "" {
		sb.WriteString(theme.NoticeBody.Render("  "+wrapText(p.NoticeBody, w-2)) + "\n")
	}

	if len(p.Topics) == 0 {
		sb.WriteString("\n" + theme.TextMuted.Render("  Ask anything to get started."))
		return sb.String()
	}

	sb.WriteString("\n" + theme.Dim.Render("  Suggested topics") + "\n")
	for i, t := range p.Topics {
		card := theme.TopicTitle.Render(fmt.Sprintf("%d. %s", i+1, t.Title))
		if t.Description != "" {
			card += "\n" + theme.TextMuted.Render(wrapText(t.Description, w-6))
		}
		sb.WriteString(theme.TopicCard.Width(w-2).Render(card) + "\n")
	}
	return sb.String()
}
