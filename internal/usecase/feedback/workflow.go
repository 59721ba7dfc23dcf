// Package feedback implements the per-response feedback state machine.
package feedback

import (
	"slices"

	"chatwidget/internal/domain"
)

// Workflow tracks feedback for one assistant entry. Every method takes the
// session's receiving flag and returns whether the transition applied.
// Methods that emit also return the outbound intent.
type Workflow struct {
	entryID  string
	reasons  []string // offered checklist, in display order
	state    domain.FeedbackState
	polarity domain.Polarity
	selected map[string]bool
	text     string
}

// New creates an idle workflow for entryID offering the given reasons.
func New(entryID string, reasons []string) *Workflow {
	if len(reasons) == 0 {
		reasons = domain.DefaultFeedbackReasons
	}
	return &Workflow{
		entryID:  entryID,
		reasons:  slices.Clone(reasons),
		selected: make(map[string]bool),
	}
}

// EntryID returns the assistant entry this workflow belongs to.
func (w *Workflow) EntryID() string { return w.entryID }

// State returns the current state.
func (w *Workflow) State() domain.FeedbackState { return w.state }

// Polarity returns the user's reaction direction.
func (w *Workflow) Polarity() domain.Polarity { return w.polarity }

// Text returns the free-text detail.
func (w *Workflow) Text() string { return w.text }

// Reasons returns the offered checklist.
func (w *Workflow) Reasons() []string { return slices.Clone(w.reasons) }

// Selected returns the checked reasons in checklist order.
func (w *Workflow) Selected() []string {
	out := make([]string, 0, len(w.selected))
	for _, r := range w.reasons {
		if w.selected[r] {
			out = append(out, r)
		}
	}
	return out
}

// IsSelected reports whether reason is checked.
func (w *Workflow) IsSelected(reason string) bool { return w.selected[reason] }

// PanelOpen reports whether the category/detail panel is showing.
func (w *Workflow) PanelOpen() bool {
	return w.state == domain.FeedbackAwaitingCategory || w.state == domain.FeedbackCollectingDetail
}

// Header returns the panel header for the current state.
func (w *Workflow) Header() string {
	switch w.state {
	case domain.FeedbackAwaitingCategory:
		return domain.FeedbackHeaderCategory
	case domain.FeedbackCollectingDetail:
		return domain.FeedbackHeaderDetail
	default:
		return ""
	}
}

// Like submits positive feedback directly from Idle.
func (w *Workflow) Like(receiving bool) (domain.Intent, bool) {
	if receiving || w.state != domain.FeedbackIdle {
		return domain.Intent{}, false
	}
	w.polarity = domain.PolarityPositive
	return w.submit(domain.FeedbackBetter), true
}

// Dislike opens the category panel.
func (w *Workflow) Dislike(receiving bool) bool {
	if receiving || w.state != domain.FeedbackIdle {
		return false
	}
	w.polarity = domain.PolarityNegative
	w.state = domain.FeedbackAwaitingCategory
	return true
}

// Choose picks a category. Better and Same submit immediately; Worse moves
// on to collecting detail and emits nothing.
func (w *Workflow) Choose(category domain.FeedbackCategory, receiving bool) (domain.Intent, bool) {
	if w.state != domain.FeedbackAwaitingCategory {
		return domain.Intent{}, false
	}
	switch category {
	case domain.FeedbackBetter, domain.FeedbackSame:
		if receiving {
			return domain.Intent{}, false
		}
		return w.submit(category), true
	case domain.FeedbackWorse:
		w.state = domain.FeedbackCollectingDetail
		return domain.Intent{}, true
	default:
		return domain.Intent{}, false
	}
}

// ToggleReason checks or unchecks one offered reason.
func (w *Workflow) ToggleReason(reason string) bool {
	if w.state != domain.FeedbackCollectingDetail || !slices.Contains(w.reasons, reason) {
		return false
	}
	if w.selected[reason] {
		delete(w.selected, reason)
	} else {
		w.selected[reason] = true
	}
	return true
}

// SetText replaces the free-text detail.
func (w *Workflow) SetText(text string) bool {
	if w.state != domain.FeedbackCollectingDetail {
		return false
	}
	w.text = text
	return true
}

// Submit sends the detailed negative feedback.
func (w *Workflow) Submit(receiving bool) (domain.Intent, bool) {
	if receiving || w.state != domain.FeedbackCollectingDetail {
		return domain.Intent{}, false
	}
	return w.submit(domain.FeedbackWorse), true
}

// ClosePanel returns an open panel to Idle. Checked reasons and text survive
// for when it is reopened.
func (w *Workflow) ClosePanel() bool {
	if !w.PanelOpen() {
		return false
	}
	w.state = domain.FeedbackIdle
	w.polarity = domain.PolarityUndetermined
	return true
}

func (w *Workflow) submit(category domain.FeedbackCategory) domain.Intent {
	w.state = domain.FeedbackSubmitted
	return domain.FeedbackIntent(w.entryID, category, w.text, w.Selected())
}
