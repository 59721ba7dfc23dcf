// Package widget embeds the chat widget in a Go program.
//
// A Widget owns one session: a channel to the conversational backend, the
// conversation log and the feedback state of every answer. Hosts drive it
// either through the methods below or by handing the terminal to RunTUI.
//
// Example:
//
//	w := widget.New(widget.Parameters{URL: "wss://chat.example.com", Path: "/ws"},
//	    widget.WithTitle("Support"),
//	)
//	defer w.Close()
//	w.Open(ctx)
//	w.Send(ctx, "hello")
package widget

import (
	"context"
	"log/slog"

	"chatwidget/internal/adapter/channel"
	tuiwidget "chatwidget/internal/adapter/tui/widget"
	"chatwidget/internal/domain"
	"chatwidget/internal/infra/logger"
	"chatwidget/internal/usecase/eventbus"
	"chatwidget/internal/usecase/session"
)

// Parameters are the connection parameters supplied by the host. They are
// passed to the backend as given.
type Parameters struct {
	URL          string
	Path         string
	Query        map[string]string
	Transports   []string
	Subprotocols []string
	Headers      map[string]string
	Codec        string // "json" (default) or "msgpack"
}

// Entry is one message in the conversation log.
type Entry struct {
	ID        string
	Author    string // "user" or "assistant"
	Text      string
	Streaming bool
	Feedback  string // feedback state of assistant entries
}

// Topic is a suggested conversation starter.
type Topic struct {
	Title       string
	Description string
}

// Feedback categories accepted by ChooseCategory.
const (
	CategoryBetter = string(domain.FeedbackBetter)
	CategorySame   = string(domain.FeedbackSame)
	CategoryWorse  = string(domain.FeedbackWorse)
)

// Widget is an embedded chat session. All methods are safe for concurrent
// use. Methods returning bool report whether the action was accepted.
type Widget struct {
	ctrl   *session.Controller
	bus    *eventbus.Bus
	logger *slog.Logger
	title  string
}

// New creates a widget. The channel is not opened until Open.
func New(p Parameters, opts ...Option) *Widget {
	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	log := logger.Component(s.logger, "widget")
	bus := eventbus.New(log)
	adapter := channel.NewAdapter(log, bus, channel.Options{
		DialTimeout: s.dialTimeout,
		ReadLimit:   s.readLimit,
		Breaker:     channel.BreakerConfig{MaxFailures: s.breakerFailures, Timeout: s.breakerTimeout},
	})

	ctrl := session.New(session.Config{
		Adapter: adapter,
		Endpoint: domain.EndpointConfig{
			URL:          p.URL,
			Path:         p.Path,
			Query:        p.Query,
			Transports:   p.Transports,
			Subprotocols: p.Subprotocols,
			Headers:      p.Headers,
			Codec:        p.Codec,
		},
		Bus:             bus,
		Logger:          log,
		IDs:             s.ids,
		WelcomeID:       s.welcomeID,
		WelcomeCategory: s.welcomeCategory,
		FeedbackReasons: s.feedbackReasons,
		NoticeTitle:     s.noticeTitle,
		NoticeBody:      s.noticeBody,
	})

	return &Widget{ctrl: ctrl, bus: bus, logger: log, title: s.title}
}

// Open shows the widget, connecting on first use.
func (w *Widget) Open(ctx context.Context) bool { return w.ctrl.Open(ctx) }

// Hide hides the widget. The connection stays up.
func (w *Widget) Hide() bool { return w.ctrl.Hide() }

// Toggle flips visibility.
func (w *Widget) Toggle(ctx context.Context) bool { return w.ctrl.Toggle(ctx) }

// Visible reports whether the widget is showing.
func (w *Widget) Visible() bool { return w.ctrl.Presentation().Visible }

// Send submits text as a user message. It is rejected while an answer is
// streaming or when text is empty, and a rejected send leaves the draft as it
// was. An accepted send clears the draft.
func (w *Widget) Send(ctx context.Context, text string) bool {
	if text == "" || w.ctrl.Receiving() {
		return false
	}
	if !w.ctrl.SetDraft(text) {
		return false
	}
	return w.ctrl.Send(ctx)
}

// PickTopic sends suggested topic i as the first message.
func (w *Widget) PickTopic(ctx context.Context, i int) bool { return w.ctrl.PickTopic(ctx, i) }

// Receiving reports whether an answer is streaming.
func (w *Widget) Receiving() bool { return w.ctrl.Receiving() }

// Topics returns the suggestions shown while the conversation is empty.
func (w *Widget) Topics() []Topic {
	v := w.ctrl.Presentation()
	topics := make([]Topic, len(v.Topics))
	for i, t := range v.Topics {
		topics[i] = Topic{Title: t.Title, Description: t.Description}
	}
	return topics
}

// Entries returns a snapshot of the conversation.
func (w *Widget) Entries() []Entry {
	v := w.ctrl.Presentation()
	entries := make([]Entry, len(v.Entries))
	for i, e := range v.Entries {
		entries[i] = Entry{ID: e.ID, Author: string(e.Author), Text: e.Text, Streaming: e.Streaming}
		if e.Feedback != nil {
			entries[i].Feedback = e.Feedback.State.String()
		}
	}
	return entries
}

// Like sends positive feedback for an answer.
func (w *Widget) Like(ctx context.Context, entryID string) bool { return w.ctrl.Like(ctx, entryID) }

// Dislike opens the feedback panel of an answer.
func (w *Widget) Dislike(entryID string) bool { return w.ctrl.Dislike(entryID) }

// ChooseCategory answers the panel's "better or worse" question with one of
// the Category constants.
func (w *Widget) ChooseCategory(ctx context.Context, entryID, category string) bool {
	return w.ctrl.ChooseCategory(ctx, entryID, domain.FeedbackCategory(category))
}

// ToggleReason checks or unchecks a negative-feedback reason.
func (w *Widget) ToggleReason(entryID, reason string) bool { return w.ctrl.ToggleReason(entryID, reason) }

// SetFeedbackText sets the free-text detail of negative feedback.
func (w *Widget) SetFeedbackText(entryID, text string) bool {
	return w.ctrl.SetFeedbackText(entryID, text)
}

// SubmitFeedback sends the detailed negative feedback.
func (w *Widget) SubmitFeedback(ctx context.Context, entryID string) bool {
	return w.ctrl.SubmitFeedback(ctx, entryID)
}

// CloseFeedback closes an open feedback panel.
func (w *Widget) CloseFeedback(entryID string) bool { return w.ctrl.CloseFeedback(entryID) }

// OnChange registers fn to be called, asynchronously, with the name of every
// state change. It returns an unsubscribe function.
func (w *Widget) OnChange(fn func(event string)) func() {
	return w.bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		fn(string(e.Type))
	})
}

// RunTUI draws the widget on the terminal and blocks until the user quits or
// ctx is cancelled. The session is over when it returns.
func (w *Widget) RunTUI(ctx context.Context) error {
	return tuiwidget.NewProgram(tuiwidget.ModelDeps{
		Controller: w.ctrl,
		Logger:     w.logger,
		Title:      w.title,
	}, w.bus).Run(ctx)
}

// Close ends the session and releases the connection.
func (w *Widget) Close() {
	w.ctrl.Shutdown()
	w.bus.Close()
}
