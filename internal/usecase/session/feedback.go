package session

import (
	"context"

	"chatwidget/internal/domain"
	"chatwidget/internal/infra/tracer"
	"chatwidget/internal/usecase/feedback"
)

// Like sends positive feedback for an assistant entry.
func (c *Controller) Like(ctx context.Context, entryID string) bool {
	return c.emitFeedback(ctx, entryID, func(w *feedback.Workflow, receiving bool) (domain.Intent, bool) {
		return w.Like(receiving)
	})
}

// Dislike opens the category panel for an assistant entry.
func (c *Controller) Dislike(entryID string) bool {
	return c.changeFeedback(entryID, func(w *feedback.Workflow, receiving bool) bool {
		return w.Dislike(receiving)
	})
}

// ChooseCategory answers the "better or worse" question.
func (c *Controller) ChooseCategory(ctx context.Context, entryID string, category domain.FeedbackCategory) bool {
	if category == domain.FeedbackWorse {
		return c.changeFeedback(entryID, func(w *feedback.Workflow, receiving bool) bool {
			_, ok := w.Choose(category, receiving)
			return ok
		})
	}
	return c.emitFeedback(ctx, entryID, func(w *feedback.Workflow, receiving bool) (domain.Intent, bool) {
		return w.Choose(category, receiving)
	})
}

// ToggleReason checks or unchecks a reason in the detail panel.
func (c *Controller) ToggleReason(entryID, reason string) bool {
	return c.changeFeedback(entryID, func(w *feedback.Workflow, _ bool) bool {
		return w.ToggleReason(reason)
	})
}

// SetFeedbackText replaces the free-text detail.
func (c *Controller) SetFeedbackText(entryID, text string) bool {
	return c.changeFeedback(entryID, func(w *feedback.Workflow, _ bool) bool {
		return w.SetText(text)
	})
}

// SubmitFeedback sends the detailed negative feedback.
func (c *Controller) SubmitFeedback(ctx context.Context, entryID string) bool {
	return c.emitFeedback(ctx, entryID, func(w *feedback.Workflow, receiving bool) (domain.Intent, bool) {
		return w.Submit(receiving)
	})
}

// CloseFeedback closes an open feedback panel.
func (c *Controller) CloseFeedback(entryID string) bool {
	return c.changeFeedback(entryID, func(w *feedback.Workflow, _ bool) bool {
		return w.ClosePanel()
	})
}

func (c *Controller) changeFeedback(entryID string, fn func(*feedback.Workflow, bool) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workflowLocked(entryID)
	if !ok || !fn(w, c.asm.Receiving()) {
		return false
	}
	c.publish(context.Background(), domain.EventFeedbackChanged, feedbackChangedPayload{
		EntryID: entryID,
		State:   w.State().String(),
	})
	return true
}

func (c *Controller) emitFeedback(ctx context.Context, entryID string, fn func(*feedback.Workflow, bool) (domain.Intent, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workflowLocked(entryID)
	if !ok {
		return false
	}
	intent, ok := fn(w, c.asm.Receiving())
	if !ok {
		return false
	}

	ctx, span := tracer.StartSpan(ctx, "feedback.submit")
	defer span.End()

	entry, _ := c.store.Entry(entryID)
	intent.ID = wireID(entry)
	span.SetAttributes(
		tracer.StringAttr("feedback.category", intent.Category),
		tracer.StringAttr("feedback.id", intent.ID),
	)
	if c.handle != nil {
		c.handle.Send(ctx, intent)
	} else {
		c.logger.Warn("feedback recorded without an open channel", "entry_id", entryID)
	}
	c.publish(ctx, domain.EventFeedbackSubmitted, domain.FeedbackSubmittedPayload{
		EntryID:  entryID,
		Category: intent.Category,
		Choices:  intent.Choices,
	})
	tracer.SetOK(span)
	return true
}

// workflowLocked returns the entry's workflow, creating it on first use.
// Unknown and user entries have none.
func (c *Controller) workflowLocked(entryID string) (*feedback.Workflow, bool) {
	if c.ended {
		return nil, false
	}
	if w, ok := c.feedback[entryID]; ok {
		return w, true
	}
	entry, ok := c.store.Entry(entryID)
	if !ok || !entry.IsAssistant() {
		return nil, false
	}
	w := feedback.New(entryID, c.cfg.FeedbackReasons)
	c.feedback[entryID] = w
	return w, true
}

// wireID is the id the backend knows a response by: its own correlation id
// once bound, the local entry id otherwise.
func wireID(e domain.ConversationEntry) string {
	if e.CorrelationID != "" {
		return e.CorrelationID
	}
	return e.ID
}

type feedbackChangedPayload struct {
	EntryID string `json:"entry_id"`
	State   string `json:"state"`
}
