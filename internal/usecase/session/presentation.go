package session

import (
	"slices"

	"chatwidget/internal/domain"
	"chatwidget/internal/usecase/feedback"
)

// View is a read-only snapshot of everything a presentation layer draws.
type View struct {
	Visible bool
	Ended   bool

	// Placeholder is shown iff the log is empty; Entries otherwise.
	ShowPlaceholder bool
	NoticeTitle     string
	NoticeBody      string
	Topics          []domain.TopicSuggestion

	Entries []EntryView

	Draft     string
	Receiving bool
	CanSend   bool

	ChannelState string
}

// EntryView is one rendered conversation entry.
type EntryView struct {
	domain.ConversationEntry
	Streaming bool          // currently receiving fragments
	Feedback  *FeedbackView // assistant entries only
}

// FeedbackView is the feedback affordance state of one assistant entry.
type FeedbackView struct {
	State       domain.FeedbackState
	Polarity    domain.Polarity
	ShowButtons bool // thumbs up/down
	PanelOpen   bool
	Header      string
	ShowDetail  bool
	Reasons     []ReasonView
	Text        string
	Placeholder string
	CanSubmit   bool
}

// ReasonView is one checklist row.
type ReasonView struct {
	Text    string
	Checked bool
}

// Presentation derives the current view. It has no side effects.
func (c *Controller) Presentation() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	receiving := c.asm.Receiving()
	openID, _ := c.asm.OpenEntry()
	entries := c.store.Entries()

	v := View{
		Visible:         c.visible,
		Ended:           c.ended,
		ShowPlaceholder: len(entries) == 0,
		NoticeTitle:     c.cfg.NoticeTitle,
		NoticeBody:      c.cfg.NoticeBody,
		Draft:           c.draft,
		Receiving:       receiving,
		CanSend:         !c.ended && !receiving && c.draft != "",
		ChannelState:    "none",
	}
	if c.handle != nil {
		v.ChannelState = c.handle.State().String()
	}
	if v.ShowPlaceholder {
		v.Topics = slices.Clone(c.topics)
		return v
	}

	v.Entries = make([]EntryView, len(entries))
	for i, e := range entries {
		ev := EntryView{ConversationEntry: e, Streaming: e.ID == openID}
		if e.IsAssistant() {
			ev.Feedback = c.feedbackView(e.ID, receiving)
		}
		v.Entries[i] = ev
	}
	return v
}

func (c *Controller) feedbackView(entryID string, receiving bool) *FeedbackView {
	w, ok := c.feedback[entryID]
	if !ok {
		// No interaction yet; an idle workflow renders identically.
		w = feedback.New(entryID, c.cfg.FeedbackReasons)
	}

	fv := &FeedbackView{
		State:       w.State(),
		Polarity:    w.Polarity(),
		ShowButtons: w.State() == domain.FeedbackIdle,
		PanelOpen:   w.PanelOpen(),
		Header:      w.Header(),
		ShowDetail:  w.State() == domain.FeedbackCollectingDetail,
		Text:        w.Text(),
		Placeholder: domain.FeedbackTextPlaceholder,
	}
	fv.CanSubmit = fv.ShowDetail && !receiving
	for _, r := range w.Reasons() {
		fv.Reasons = append(fv.Reasons, ReasonView{Text: r, Checked: w.IsSelected(r)})
	}
	return fv
}
