package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseIDPairing(t *testing.T) {
	id := ResponseID("01HZX")
	assert.Equal(t, "response-01HZX", id)

	trigger, ok := TriggerOf(id)
	assert.True(t, ok)
	assert.Equal(t, "01HZX", trigger)

	_, ok = TriggerOf("01HZX")
	assert.False(t, ok)
}

func TestIntentFields(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		want   map[string]any
	}{
		{
			name:   "welcome",
			intent: WelcomeIntent(DefaultWelcomeID, DefaultWelcomeCategory),
			want: map[string]any{
				"id": DefaultWelcomeID, "object": "topics", "message": "", "category": "welcome",
			},
		},
		{
			name:   "message",
			intent: MessageIntent("u1", "hello"),
			want:   map[string]any{"id": "u1", "message": "hello"},
		},
		{
			name:   "feedback better",
			intent: FeedbackIntent("response-u1", FeedbackBetter, "ignored", []string{"ignored"}),
			want:   map[string]any{"id": "response-u1", "object": "feedback", "category": "better"},
		},
		{
			name:   "feedback worse without choices",
			intent: FeedbackIntent("response-u1", FeedbackWorse, "bad", nil),
			want: map[string]any{
				"id": "response-u1", "object": "feedback", "category": "worse",
				"message": "bad", "choices": []string{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.intent.Fields())
		})
	}
}

func TestFeedbackIntentCopiesChoices(t *testing.T) {
	choices := []string{"a"}
	in := FeedbackIntent("response-u1", FeedbackWorse, "", choices)
	choices[0] = "mutated"
	assert.Equal(t, []string{"a"}, in.Choices)
}

func TestChannelStateLive(t *testing.T) {
	assert.True(t, ChannelConnecting.Live())
	assert.True(t, ChannelOpen.Live())
	assert.False(t, ChannelFailed.Live())
	assert.False(t, ChannelClosed.Live())
	assert.Equal(t, "failed", ChannelFailed.String())
}
