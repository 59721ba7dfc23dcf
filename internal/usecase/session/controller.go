// Package session orchestrates the chat widget: it owns the channel handle,
// the conversation log, the streaming assembler and every feedback workflow,
// and serializes all mutation behind one lock.
package session

import (
	"context"
	"log/slog"
	"sync"

	"chatwidget/internal/domain"
	"chatwidget/internal/infra/tracer"
	"chatwidget/internal/usecase/conversation"
	"chatwidget/internal/usecase/feedback"
	"chatwidget/internal/usecase/stream"
)

// Config carries the controller's collaborators and copy.
type Config struct {
	Adapter  domain.ChannelAdapter
	Endpoint domain.EndpointConfig
	Bus      domain.EventBus // optional
	Logger   *slog.Logger
	IDs      conversation.IDGenerator // optional, ULIDs by default

	WelcomeID       string
	WelcomeCategory string
	FeedbackReasons []string
	NoticeTitle     string
	NoticeBody      string
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.WelcomeID == "" {
		c.WelcomeID = domain.DefaultWelcomeID
	}
	if c.WelcomeCategory == "" {
		c.WelcomeCategory = domain.DefaultWelcomeCategory
	}
	if len(c.FeedbackReasons) == 0 {
		c.FeedbackReasons = domain.DefaultFeedbackReasons
	}
	if c.NoticeTitle == "" {
		c.NoticeTitle = domain.DefaultNoticeTitle
	}
	if c.NoticeBody == "" {
		c.NoticeBody = domain.DefaultNoticeBody
	}
}

// Controller is the session state machine. All exported methods are safe
// for concurrent use. Methods returning bool report whether the intent was
// accepted; a rejected intent changes nothing.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	store       *conversation.Store
	asm         *stream.Assembler
	feedback    map[string]*feedback.Workflow
	handle      domain.ChannelHandle
	unsubscribe func()
	topics      []domain.TopicSuggestion
	topicsSeen  bool
	visible     bool
	draft       string
	ended       bool
}

// New creates a controller. The channel is not opened until Open.
func New(cfg Config) *Controller {
	cfg.applyDefaults()
	store := conversation.NewStore(cfg.IDs)
	return &Controller{
		cfg:      cfg,
		logger:   cfg.Logger,
		store:    store,
		asm:      stream.New(store),
		feedback: make(map[string]*feedback.Workflow),
	}
}

// Open makes the widget visible. The first Open, or one after the previous
// handle died, opens the channel and requests topic suggestions.
func (c *Controller) Open(ctx context.Context) bool {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return false
	}
	if !c.visible {
		c.visible = true
		c.publish(ctx, domain.EventVisibilityChanged, visibilityPayload{Visible: true})
	}

	if c.topicsSeen || (c.handle != nil && c.handle.State().Live()) {
		c.mu.Unlock()
		return true
	}

	oldHandle, oldUnsub := c.handle, c.unsubscribe
	h := c.cfg.Adapter.Open(ctx, c.cfg.Endpoint)
	c.handle = h
	c.unsubscribe = h.Subscribe(func(f domain.InboundFrame) { c.onFrame(h, f) })
	h.Send(ctx, domain.WelcomeIntent(c.cfg.WelcomeID, c.cfg.WelcomeCategory))
	c.logger.Debug("channel opened", "url", c.cfg.Endpoint.URL, "state", h.State().String())
	c.mu.Unlock()

	// The dead handle may still be unwinding its own goroutines.
	release(oldHandle, oldUnsub)
	return true
}

// Hide makes the widget invisible. The channel and any stream keep running.
func (c *Controller) Hide() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended || !c.visible {
		return false
	}
	c.visible = false
	c.publish(context.Background(), domain.EventVisibilityChanged, visibilityPayload{Visible: false})
	return true
}

// Toggle flips visibility, opening the channel when showing.
func (c *Controller) Toggle(ctx context.Context) bool {
	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if visible {
		return c.Hide()
	}
	return c.Open(ctx)
}

// Shutdown ends the session: the handle is closed, its handler detached and
// any in-flight stream abandoned. Every later intent is a no-op.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.visible = false
	c.asm.Abandon()
	h, unsub := c.handle, c.unsubscribe
	c.handle, c.unsubscribe = nil, nil
	c.publish(context.Background(), domain.EventSessionEnded, nil)
	c.mu.Unlock()

	release(h, unsub)
	c.logger.Debug("session ended", "entries", c.store.Len())
}

func release(h domain.ChannelHandle, unsub func()) {
	if unsub != nil {
		unsub()
	}
	if h != nil {
		h.Close()
	}
}

// SetDraft replaces the composer text.
func (c *Controller) SetDraft(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return false
	}
	if c.draft != text {
		c.draft = text
		c.publish(context.Background(), domain.EventDraftChanged, nil)
	}
	return true
}

// Draft returns the composer text.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Receiving reports whether a response is streaming.
func (c *Controller) Receiving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asm.Receiving()
}

// Entries returns a snapshot of the conversation log.
func (c *Controller) Entries() []domain.ConversationEntry {
	return c.store.Entries()
}

// Send submits the draft as a user message.
func (c *Controller) Send(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended || c.asm.Receiving() || c.draft == "" {
		return false
	}

	ctx, span := tracer.StartSpan(ctx, "session.send")
	defer span.End()

	text := c.draft
	if !c.startTurnLocked(ctx, text) {
		tracer.RecordError(span, domain.ErrPairingViolation)
		return false
	}
	c.draft = ""
	c.publish(ctx, domain.EventDraftChanged, nil)
	tracer.SetOK(span)
	return true
}

// PickTopic sends the description of topic i as the first user message.
func (c *Controller) PickTopic(ctx context.Context, i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended || c.asm.Receiving() || c.store.Len() > 0 || i < 0 || i >= len(c.topics) {
		return false
	}

	ctx, span := tracer.StartSpan(ctx, "session.pick_topic")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("topic.title", c.topics[i].Title))

	if !c.startTurnLocked(ctx, c.topics[i].Description) {
		tracer.RecordError(span, domain.ErrPairingViolation)
		return false
	}
	tracer.SetOK(span)
	return true
}

func (c *Controller) startTurnLocked(ctx context.Context, text string) bool {
	userID, responseID, err := c.store.AppendTurn(text)
	if err != nil {
		c.logger.Error("append turn failed", "error", err, "code", domain.ErrorCodeOf(err))
		return false
	}
	c.asm.Begin(responseID)

	if c.handle != nil {
		c.handle.Send(ctx, domain.MessageIntent(userID, text))
	} else {
		c.logger.Warn("message recorded without an open channel", "entry_id", userID)
	}
	c.publish(ctx, domain.EventTurnStarted, turnPayload{UserEntryID: userID, EntryID: responseID})
	return true
}

func (c *Controller) onFrame(h domain.ChannelHandle, f domain.InboundFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended || c.handle != h {
		return
	}
	ctx := context.Background()

	switch f.Kind {
	case domain.FrameTopics:
		c.topics = append([]domain.TopicSuggestion(nil), f.Topics...)
		c.topicsSeen = true
		c.publish(ctx, domain.EventTopicsLoaded, topicsPayload{Count: len(f.Topics), Visible: c.store.Len() == 0})

	case domain.FrameFragment:
		res, err := c.asm.Apply(f)
		if err != nil {
			code := domain.ErrorCodeOf(err)
			c.logger.Warn("fragment rejected", "correlation_id", f.ID, "code", code, "error", err)
			c.publish(ctx, domain.EventFrameRejected, domain.FrameRejectedPayload{
				CorrelationID: f.ID,
				Code:          code,
				Error:         err.Error(),
			})
			return
		}
		c.publish(ctx, domain.EventTurnFragment, domain.StreamFragmentPayload{
			EntryID:       res.EntryID,
			CorrelationID: res.CorrelationID,
			Length:        res.Appended,
		})
		if res.Completed {
			c.publish(ctx, domain.EventTurnCompleted, domain.StreamCompletedPayload{
				EntryID:      res.EntryID,
				FinishReason: f.FinishReason,
				Empty:        res.Empty,
			})
		}

	default:
		c.logger.Debug("ignoring frame", "object", f.Object)
	}
}

func (c *Controller) publish(ctx context.Context, t domain.EventType, payload any) {
	if c.cfg.Bus == nil {
		return
	}
	c.cfg.Bus.Publish(ctx, domain.NewEvent(t, payload))
}

type visibilityPayload struct {
	Visible bool `json:"visible"`
}

type turnPayload struct {
	UserEntryID string `json:"user_entry_id"`
	EntryID     string `json:"entry_id"`
}

type topicsPayload struct {
	Count   int  `json:"count"`
	Visible bool `json:"visible"`
}
