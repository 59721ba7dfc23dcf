package domain

import "strings"

// Author identifies who produced a conversation entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// ResponseIDPrefix prefixes the id of every assistant entry; the remainder is
// the id of the user entry that triggered it.
const ResponseIDPrefix = "response-"

// ResponseID returns the assistant entry id paired with the given user entry id.
func ResponseID(triggerID string) string {
	return ResponseIDPrefix + triggerID
}

// TriggerOf returns the user entry id encoded in an assistant entry id.
func TriggerOf(responseID string) (string, bool) {
	if !strings.HasPrefix(responseID, ResponseIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(responseID, ResponseIDPrefix), true
}

// ConversationEntry is a single rendered turn in the widget's log.
type ConversationEntry struct {
	ID     string `json:"id"`
	Author Author `json:"author"`
	Text   string `json:"text"`

	// Assistant entries only.
	TriggerID     string `json:"trigger_id,omitempty"`     // paired user entry
	CorrelationID string `json:"correlation_id,omitempty"` // backend stream id, bound on first fragment
}

// IsAssistant reports whether the entry was authored by the assistant.
func (e ConversationEntry) IsAssistant() bool { return e.Author == AuthorAssistant }

// TopicSuggestion is a conversation starter offered before the first message.
type TopicSuggestion struct {
	Title       string `json:"title" msgpack:"title"`
	Description string `json:"description" msgpack:"description"`
	Message     string `json:"message" msgpack:"message"`
}

// Default placeholder copy shown above the topic suggestions.
const (
	DefaultNoticeTitle = "AI Chat can be inaccurate."
	DefaultNoticeBody  = "AI Chat may provide inaccurate information about people, places, or facts."
)
