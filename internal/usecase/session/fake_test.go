package session

import (
	"context"
	"fmt"
	"sync"

	"chatwidget/internal/domain"
)

type fakeHandle struct {
	mu       sync.Mutex
	state    domain.ChannelState
	sent     []domain.Intent
	handlers map[int]domain.FrameHandler
	next     int
	closed   int
}

func (h *fakeHandle) Send(_ context.Context, intent domain.Intent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.Live() {
		return
	}
	h.sent = append(h.sent, intent)
}

func (h *fakeHandle) Subscribe(handler domain.FrameHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.handlers[id] = handler
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers, id)
	}
}

func (h *fakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	h.state = domain.ChannelClosed
	h.handlers = map[int]domain.FrameHandler{}
}

func (h *fakeHandle) State() domain.ChannelState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// deliver runs every subscribed handler, as the adapter's read loop would.
func (h *fakeHandle) deliver(f domain.InboundFrame) {
	h.mu.Lock()
	hs := make([]domain.FrameHandler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		hs = append(hs, fn)
	}
	h.mu.Unlock()
	for _, fn := range hs {
		fn(f)
	}
}

func (h *fakeHandle) intents() []domain.Intent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Intent(nil), h.sent...)
}

func (h *fakeHandle) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}

type fakeAdapter struct {
	mu      sync.Mutex
	opened  []*fakeHandle
	initial domain.ChannelState
}

func (a *fakeAdapter) Open(_ context.Context, _ domain.EndpointConfig) domain.ChannelHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := &fakeHandle{state: a.initial, handlers: map[int]domain.FrameHandler{}}
	a.opened = append(a.opened, h)
	return h
}

func (a *fakeAdapter) handles() []*fakeHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeHandle(nil), a.opened...)
}

func (a *fakeAdapter) last() *fakeHandle {
	hs := a.handles()
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("u%d", n)
	}
}

func fragment(id, text, finish string) domain.InboundFrame {
	return domain.InboundFrame{Kind: domain.FrameFragment, ID: id, Text: text, Role: "assistant", FinishReason: finish}
}

func topicsFrame(topics ...domain.TopicSuggestion) domain.InboundFrame {
	return domain.InboundFrame{Kind: domain.FrameTopics, Object: domain.ObjectTopics, Topics: topics}
}
