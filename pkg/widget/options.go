package widget

import (
	"log/slog"
	"time"
)

// Option configures a Widget.
type Option func(*settings)

type settings struct {
	logger          *slog.Logger
	title           string
	welcomeID       string
	welcomeCategory string
	feedbackReasons []string
	noticeTitle     string
	noticeBody      string
	dialTimeout     time.Duration
	readLimit       int64
	breakerFailures uint32
	breakerTimeout  time.Duration
	ids             func() string
}

// WithLogger sets a custom slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithTitle sets the title drawn by the terminal widget.
func WithTitle(title string) Option {
	return func(s *settings) { s.title = title }
}

// WithWelcome overrides the id and category of the topic request sent when
// the channel opens.
func WithWelcome(id, category string) Option {
	return func(s *settings) {
		s.welcomeID = id
		s.welcomeCategory = category
	}
}

// WithFeedbackReasons replaces the checklist offered for negative feedback.
func WithFeedbackReasons(reasons ...string) Option {
	return func(s *settings) { s.feedbackReasons = reasons }
}

// WithNotice sets the copy shown above the topic suggestions.
func WithNotice(title, body string) Option {
	return func(s *settings) {
		s.noticeTitle = title
		s.noticeBody = body
	}
}

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) { s.dialTimeout = d }
}

// WithReadLimit caps the size of one inbound frame in bytes.
func WithReadLimit(n int64) Option {
	return func(s *settings) { s.readLimit = n }
}

// WithBreaker sets how many consecutive dial failures open the breaker and
// how long it stays open.
func WithBreaker(maxFailures uint32, timeout time.Duration) Option {
	return func(s *settings) {
		s.breakerFailures = maxFailures
		s.breakerTimeout = timeout
	}
}

// WithIDGenerator sets the generator for user entry ids. ULIDs are used by
// default.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.ids = fn }
}
