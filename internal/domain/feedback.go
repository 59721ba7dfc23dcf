package domain

// FeedbackState is the position of an assistant entry's feedback workflow.
type FeedbackState int

const (
	FeedbackIdle FeedbackState = iota
	FeedbackAwaitingCategory
	FeedbackCollectingDetail
	FeedbackSubmitted
)

func (s FeedbackState) String() string {
	switch s {
	case FeedbackIdle:
		return "idle"
	case FeedbackAwaitingCategory:
		return "awaiting_category"
	case FeedbackCollectingDetail:
		return "collecting_detail"
	case FeedbackSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Polarity is the direction of the user's reaction.
type Polarity string

const (
	PolarityUndetermined Polarity = ""
	PolarityPositive     Polarity = "positive"
	PolarityNegative     Polarity = "negative"
)

// FeedbackCategory is the wire value of a feedback submission.
type FeedbackCategory string

const (
	FeedbackBetter FeedbackCategory = "better"
	FeedbackSame   FeedbackCategory = "same"
	FeedbackWorse  FeedbackCategory = "worse"
)

// DefaultFeedbackReasons is the checklist offered for "worse" feedback.
var DefaultFeedbackReasons = []string{
	"This is harmful / unsafe",
	"This isn't true",
	"This isn't helpful",
}

// Feedback panel copy.
const (
	FeedbackHeaderCategory   = "Was this response better or worse?"
	FeedbackHeaderDetail     = "Provide additional feedback"
	FeedbackTextPlaceholder  = "What was the issue with the response? How could it be improved?"
	FeedbackSubmitButtonText = "Submit feedback"
)

// FeedbackSubmittedPayload is the payload for EventFeedbackSubmitted events.
type FeedbackSubmittedPayload struct {
	EntryID  string   `json:"entry_id"`
	Category string   `json:"category"`
	Choices  []string `json:"choices,omitempty"`
}
