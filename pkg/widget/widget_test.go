package widget

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/internal/adapter/backend"
	"chatwidget/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startBackend(t *testing.T) (*backend.Server, string) {
	t.Helper()
	srv := backend.NewServer(backend.Config{
		Path:          "/ws",
		FragmentRate:  1000,
		FragmentBurst: 10,
		Topics:        []domain.TopicSuggestion{{Title: "Pricing", Description: "How much?", Message: "Free."}},
	}, nil, testLogger())
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop(context.Background())
		hs.Close()
	})
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func TestWithOptions(t *testing.T) {
	s := &settings{}
	for _, opt := range []Option{
		WithLogger(testLogger()),
		WithTitle("Support"),
		WithWelcome("hello", "greet"),
		WithFeedbackReasons("a", "b"),
		WithNotice("Careful", "Answers may be wrong."),
		WithDialTimeout(time.Second),
		WithReadLimit(4096),
		WithBreaker(5, time.Minute),
		WithIDGenerator(func() string { return "x" }),
	} {
		opt(s)
	}
	if s.title != "Support" || s.welcomeID != "hello" || s.welcomeCategory != "greet" {
		t.Errorf("settings = %+v", s)
	}
	if len(s.feedbackReasons) != 2 || s.noticeTitle != "Careful" || s.noticeBody == "" {
		t.Errorf("settings = %+v", s)
	}
	if s.dialTimeout != time.Second || s.readLimit != 4096 || s.breakerFailures != 5 || s.breakerTimeout != time.Minute {
		t.Errorf("settings = %+v", s)
	}
	if s.ids() != "x" {
		t.Errorf("ids() = %q", s.ids())
	}
}

func TestConversationAgainstMockBackend(t *testing.T) {
	for _, codec := range []string{"json", "msgpack"} {
		t.Run(codec, func(t *testing.T) {
			srv, url := startBackend(t)
			n := 0
			w := New(Parameters{URL: url, Path: "/ws", Codec: codec},
				WithLogger(testLogger()),
				WithIDGenerator(func() string { n++; return fmt.Sprintf("u%d", n) }),
			)
			defer w.Close()

			var changes atomic.Int64
			unsub := w.OnChange(func(string) { changes.Add(1) })
			defer unsub()

			ctx := context.Background()
			require.True(t, w.Open(ctx))
			assert.True(t, w.Visible())

			require.Eventually(t, func() bool { return len(w.Topics()) == 1 }, 3*time.Second, 10*time.Millisecond)
			assert.Equal(t, Topic{Title: "Pricing", Description: "How much?"}, w.Topics()[0])

			require.True(t, w.Send(ctx, "hello there"))
			assert.False(t, w.Send(ctx, "too soon"), "send while receiving")

			require.Eventually(t, func() bool { return !w.Receiving() }, 3*time.Second, 10*time.Millisecond)
			entries := w.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, Entry{ID: "u1", Author: "user", Text: "hello there"}, entries[0])
			assert.Equal(t, "response-u1", entries[1].ID)
			assert.Contains(t, entries[1].Text, "hello there")
			assert.Equal(t, "idle", entries[1].Feedback)
			assert.Empty(t, w.Topics(), "suggestions are hidden once the conversation starts")

			require.True(t, w.Dislike(entries[1].ID))
			require.True(t, w.ChooseCategory(ctx, entries[1].ID, CategoryWorse))
			require.True(t, w.ToggleReason(entries[1].ID, domain.DefaultFeedbackReasons[1]))
			require.True(t, w.SetFeedbackText(entries[1].ID, "made up"))
			require.True(t, w.SubmitFeedback(ctx, entries[1].ID))
			assert.False(t, w.Like(ctx, entries[1].ID), "feedback already submitted")

			require.Eventually(t, func() bool {
				got, _ := srv.Sink().List(context.Background())
				return len(got) == 1
			}, 3*time.Second, 10*time.Millisecond)
			got, err := srv.Sink().List(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "worse", got[0].Category)
			assert.Equal(t, "made up", got[0].Message)
			assert.Equal(t, []string{domain.DefaultFeedbackReasons[1]}, got[0].Choices)

			assert.Eventually(t, func() bool { return changes.Load() > 0 }, time.Second, 10*time.Millisecond)
		})
	}
}

func TestPickTopic(t *testing.T) {
	_, url := startBackend(t)
	w := New(Parameters{URL: url, Path: "/ws"}, WithLogger(testLogger()))
	defer w.Close()

	ctx := context.Background()
	w.Open(ctx)
	require.Eventually(t, func() bool { return len(w.Topics()) == 1 }, 3*time.Second, 10*time.Millisecond)

	assert.False(t, w.PickTopic(ctx, 5))
	require.True(t, w.PickTopic(ctx, 0))
	require.Eventually(t, func() bool { return !w.Receiving() }, 3*time.Second, 10*time.Millisecond)

	entries := w.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "How much?", entries[0].Text)
	assert.Equal(t, "Free.", entries[1].Text)
}

func TestHideAndToggle(t *testing.T) {
	_, url := startBackend(t)
	w := New(Parameters{URL: url, Path: "/ws"}, WithLogger(testLogger()))
	defer w.Close()

	ctx := context.Background()
	assert.False(t, w.Hide(), "already hidden")
	assert.True(t, w.Toggle(ctx))
	assert.True(t, w.Visible())
	assert.True(t, w.Toggle(ctx))
	assert.False(t, w.Visible())
}

func TestCloseEndsSession(t *testing.T) {
	w := New(Parameters{URL: "ws://127.0.0.1:1"}, WithLogger(testLogger()), WithDialTimeout(time.Second))
	w.Open(context.Background())
	w.Close()

	assert.False(t, w.Open(context.Background()))
	assert.False(t, w.Send(context.Background(), "hello"))
	assert.False(t, w.Visible())
}

func TestRejectedSendKeepsDraft(t *testing.T) {
	srv := backend.NewServer(backend.Config{Path: "/ws", FragmentRate: 0.5, FragmentBurst: 1}, nil, testLogger())
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop(context.Background())
		hs.Close()
	})
	w := New(Parameters{URL: "ws" + strings.TrimPrefix(hs.URL, "http"), Path: "/ws"}, WithLogger(testLogger()))
	defer w.Close()

	ctx := context.Background()
	w.Open(ctx)
	require.True(t, w.Send(ctx, "a long question"))
	require.True(t, w.Receiving())

	require.True(t, w.ctrl.SetDraft("half typed"))
	assert.False(t, w.Send(ctx, "too soon"))
	assert.False(t, w.Send(ctx, ""))
	assert.Equal(t, "half typed", w.ctrl.Draft())
	assert.Len(t, w.Entries(), 2)
}
