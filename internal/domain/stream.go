package domain

// FrameKind classifies a decoded inbound frame.
type FrameKind string

const (
	FrameFragment FrameKind = "fragment"
	FrameTopics   FrameKind = "topics"
	FrameOther    FrameKind = "other"
)

// InboundFrame is a decoded, validated frame received from the backend.
type InboundFrame struct {
	Kind   FrameKind
	Object string

	// Fragment fields.
	ID           string
	Text         string
	Role         string
	FinishReason string // empty unless the stream is complete

	// Topics payload.
	Topics []TopicSuggestion
}

// Terminal reports whether the fragment carries a terminal marker.
func (f InboundFrame) Terminal() bool { return f.FinishReason != "" }

// FrameHandler receives inbound frames from a channel handle.
type FrameHandler func(frame InboundFrame)

// StreamFragmentPayload is the payload for EventTurnFragment events.
type StreamFragmentPayload struct {
	EntryID       string `json:"entry_id"`
	CorrelationID string `json:"correlation_id"`
	Length        int    `json:"length"`
}

// StreamCompletedPayload is the payload for EventTurnCompleted events.
type StreamCompletedPayload struct {
	EntryID      string `json:"entry_id"`
	FinishReason string `json:"finish_reason"`
	Empty        bool   `json:"empty,omitempty"`
}

// FrameRejectedPayload is the payload for EventFrameRejected events.
type FrameRejectedPayload struct {
	CorrelationID string    `json:"correlation_id,omitempty"`
	Code          ErrorCode `json:"code"`
	Error         string    `json:"error"`
}
