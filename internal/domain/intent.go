package domain

// Object tags carried in the "object" field of intents and frames.
const (
	ObjectTopics   = "topics"
	ObjectFeedback = "feedback"
)

// Defaults for the synthetic welcome request that fetches topic suggestions.
const (
	DefaultWelcomeID       = "randomWellcomeHash"
	DefaultWelcomeCategory = "welcome"
)

// IntentKind distinguishes the outbound intent shapes.
type IntentKind string

const (
	IntentWelcome  IntentKind = "welcome"
	IntentMessage  IntentKind = "message"
	IntentFeedback IntentKind = "feedback"
)

// Intent is an outbound domain event sent over the channel.
type Intent struct {
	Kind     IntentKind
	ID       string
	Object   string
	Message  string
	Category string
	Choices  []string
}

// WelcomeIntent builds the topic request sent when a channel opens.
func WelcomeIntent(id, category string) Intent {
	return Intent{Kind: IntentWelcome, ID: id, Object: ObjectTopics, Message: "", Category: category}
}

// MessageIntent builds a user message intent.
func MessageIntent(id, text string) Intent {
	return Intent{Kind: IntentMessage, ID: id, Message: text}
}

// FeedbackIntent builds a feedback intent for an assistant entry. Message and
// choices are only carried for the "worse" category.
func FeedbackIntent(entryID string, category FeedbackCategory, message string, choices []string) Intent {
	in := Intent{Kind: IntentFeedback, ID: entryID, Object: ObjectFeedback, Category: string(category)}
	if category == FeedbackWorse {
		in.Message = message
		in.Choices = append([]string{}, choices...)
	}
	return in
}

// Fields flattens the intent into the wire field set for its kind.
func (i Intent) Fields() map[string]any {
	switch i.Kind {
	case IntentWelcome:
		return map[string]any{
			"id":       i.ID,
			"object":   i.Object,
			"message":  i.Message,
			"category": i.Category,
		}
	case IntentFeedback:
		m := map[string]any{
			"id":       i.ID,
			"object":   i.Object,
			"category": i.Category,
		}
		if i.Category == string(FeedbackWorse) {
			choices := i.Choices
			if choices == nil {
				choices = []string{}
			}
			m["message"] = i.Message
			m["choices"] = choices
		}
		return m
	default:
		return map[string]any{
			"id":      i.ID,
			"message": i.Message,
		}
	}
}
