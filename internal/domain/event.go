package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventChannelOpened EventType = "channel.opened"
	EventChannelFailed EventType = "channel.failed"
	EventChannelClosed EventType = "channel.closed"

	EventTopicsLoaded EventType = "topics.loaded"

	EventTurnStarted   EventType = "turn.started"
	EventTurnFragment  EventType = "turn.fragment"
	EventTurnCompleted EventType = "turn.completed"
	EventFrameRejected EventType = "frame.rejected"

	EventFeedbackChanged   EventType = "feedback.changed"
	EventFeedbackSubmitted EventType = "feedback.submitted"

	EventVisibilityChanged EventType = "widget.visibility"
	EventDraftChanged      EventType = "draft.changed"
	EventSessionEnded      EventType = "session.ended"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event, marshalling payload when non-nil.
func NewEvent(t EventType, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now()}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
