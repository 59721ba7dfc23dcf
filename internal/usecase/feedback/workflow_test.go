package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/internal/domain"
)

const entry = "response-u1"

func TestLikeSubmitsDirectly(t *testing.T) {
	w := New(entry, nil)

	intent, ok := w.Like(false)
	require.True(t, ok)
	assert.Equal(t, domain.FeedbackSubmitted, w.State())
	assert.Equal(t, domain.PolarityPositive, w.Polarity())
	assert.Equal(t, map[string]any{
		"id":       entry,
		"object":   "feedback",
		"category": "better",
	}, intent.Fields())
}

func TestLikeIgnoredWhileReceiving(t *testing.T) {
	w := New(entry, nil)
	_, ok := w.Like(true)
	assert.False(t, ok)
	assert.Equal(t, domain.FeedbackIdle, w.State())

	assert.False(t, w.Dislike(true))
	assert.Equal(t, domain.FeedbackIdle, w.State())
}

func TestChooseBetterOrSame(t *testing.T) {
	for _, cat := range []domain.FeedbackCategory{domain.FeedbackBetter, domain.FeedbackSame} {
		t.Run(string(cat), func(t *testing.T) {
			w := New(entry, nil)
			require.True(t, w.Dislike(false))
			assert.Equal(t, domain.FeedbackHeaderCategory, w.Header())

			_, ok := w.Choose(cat, true)
			assert.False(t, ok, "blocked while receiving")
			assert.Equal(t, domain.FeedbackAwaitingCategory, w.State())

			intent, ok := w.Choose(cat, false)
			require.True(t, ok)
			assert.Equal(t, domain.FeedbackSubmitted, w.State())
			assert.Equal(t, string(cat), intent.Category)
			assert.NotContains(t, intent.Fields(), "choices")
		})
	}
}

func TestNegativeDetailCollectsOneReason(t *testing.T) {
	w := New(entry, nil)
	r := domain.DefaultFeedbackReasons

	require.True(t, w.Dislike(false))
	assert.Equal(t, domain.FeedbackAwaitingCategory, w.State())

	_, ok := w.Choose(domain.FeedbackWorse, true)
	require.True(t, ok, "revealing detail does not emit")
	assert.Equal(t, domain.FeedbackCollectingDetail, w.State())
	assert.Equal(t, domain.FeedbackHeaderDetail, w.Header())

	require.True(t, w.ToggleReason(r[0]))
	require.True(t, w.ToggleReason(r[2]))
	require.True(t, w.ToggleReason(r[0]))
	assert.Equal(t, []string{r[2]}, w.Selected())
	require.True(t, w.SetText("too vague"))

	_, ok = w.Submit(true)
	assert.False(t, ok)
	assert.Equal(t, domain.FeedbackCollectingDetail, w.State())

	intent, ok := w.Submit(false)
	require.True(t, ok)
	assert.Equal(t, domain.FeedbackSubmitted, w.State())
	assert.Equal(t, map[string]any{
		"id":       entry,
		"object":   "feedback",
		"category": "worse",
		"message":  "too vague",
		"choices":  []string{r[2]},
	}, intent.Fields())

	_, ok = w.Like(false)
	assert.False(t, ok)
	assert.False(t, w.Dislike(false))
	_, ok = w.Submit(false)
	assert.False(t, ok)
	assert.False(t, w.ToggleReason(r[1]))
	assert.False(t, w.ClosePanel())
}

func TestToggleReasonIsSetIdempotent(t *testing.T) {
	w := New(entry, nil)
	require.True(t, w.Dislike(false))
	_, _ = w.Choose(domain.FeedbackWorse, false)

	before := w.Selected()
	for _, r := range domain.DefaultFeedbackReasons {
		require.True(t, w.ToggleReason(r))
		require.True(t, w.ToggleReason(r))
	}
	assert.Equal(t, before, w.Selected())
}

func TestToggleUnknownReasonIgnored(t *testing.T) {
	w := New(entry, []string{"a", "b"})
	require.True(t, w.Dislike(false))
	_, _ = w.Choose(domain.FeedbackWorse, false)

	assert.False(t, w.ToggleReason("c"))
	assert.Empty(t, w.Selected())
}

func TestSelectedFollowsChecklistOrder(t *testing.T) {
	w := New(entry, []string{"a", "b", "c"})
	require.True(t, w.Dislike(false))
	_, _ = w.Choose(domain.FeedbackWorse, false)

	w.ToggleReason("c")
	w.ToggleReason("a")
	assert.Equal(t, []string{"a", "c"}, w.Selected())
}

func TestClosePanelKeepsDetail(t *testing.T) {
	w := New(entry, nil)
	assert.False(t, w.ClosePanel())

	require.True(t, w.Dislike(false))
	_, _ = w.Choose(domain.FeedbackWorse, false)
	w.ToggleReason(domain.DefaultFeedbackReasons[1])
	w.SetText("draft")

	require.True(t, w.ClosePanel())
	assert.Equal(t, domain.FeedbackIdle, w.State())
	assert.Equal(t, domain.PolarityUndetermined, w.Polarity())
	assert.False(t, w.PanelOpen())

	require.True(t, w.Dislike(false))
	_, _ = w.Choose(domain.FeedbackWorse, false)
	assert.Equal(t, "draft", w.Text())
	assert.True(t, w.IsSelected(domain.DefaultFeedbackReasons[1]))
}

func TestTransitionsFromWrongState(t *testing.T) {
	w := New(entry, nil)

	_, ok := w.Choose(domain.FeedbackBetter, false)
	assert.False(t, ok)
	assert.False(t, w.ToggleReason(domain.DefaultFeedbackReasons[0]))
	assert.False(t, w.SetText("x"))
	_, ok = w.Submit(false)
	assert.False(t, ok)

	require.True(t, w.Dislike(false))
	_, ok = w.Choose("unknown", false)
	assert.False(t, ok)
	_, ok = w.Submit(false)
	assert.False(t, ok)
	assert.Equal(t, domain.FeedbackAwaitingCategory, w.State())
}
