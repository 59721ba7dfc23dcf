package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"chatwidget/internal/domain"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		msgType websocket.MessageType
	}{
		{"", CodecJSON, websocket.MessageText},
		{"json", CodecJSON, websocket.MessageText},
		{"msgpack", CodecMsgpack, websocket.MessageBinary},
	}
	for _, tt := range tests {
		c, err := CodecFor(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, c.Name())
		assert.Equal(t, tt.msgType, c.MessageType())
		assert.Equal(t, tt.want, CodecForMessageType(tt.msgType).Name())
	}

	_, err := CodecFor("protobuf")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedCode))
	assert.Equal(t, domain.CodeUnsupportedCodec, domain.ErrorCodeOf(err))
}

func TestCodecsCarryIntentFields(t *testing.T) {
	intent := domain.WelcomeIntent(domain.DefaultWelcomeID, domain.DefaultWelcomeCategory)
	for _, name := range []string{CodecJSON, CodecMsgpack} {
		t.Run(name, func(t *testing.T) {
			c, err := CodecFor(name)
			require.NoError(t, err)
			data, err := c.Marshal(intent.Fields())
			require.NoError(t, err)
			m, err := c.Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{
				"id":       "randomWellcomeHash",
				"object":   "topics",
				"message":  "",
				"category": "welcome",
			}, m)
		})
	}
}

func TestMsgpackNestedMapsAreNormalized(t *testing.T) {
	c := msgpackCodec{}
	data, err := c.Marshal(map[string]any{
		"object":  "topics",
		"message": []any{map[string]any{"title": "T", "n": 3}},
	})
	require.NoError(t, err)

	m, err := c.Unmarshal(data)
	require.NoError(t, err)
	items, ok := m["message"].([]any)
	require.True(t, ok, "message should decode as []any, got %T", m["message"])
	item, ok := items[0].(map[string]any)
	require.True(t, ok, "item should decode as map[string]any, got %T", items[0])
	assert.Equal(t, "T", item["title"])
	assert.Equal(t, float64(3), item["n"])
}

func TestUnmarshalRejectsNonObjects(t *testing.T) {
	_, err := jsonCodec{}.Unmarshal([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = jsonCodec{}.Unmarshal([]byte(`null`))
	assert.Error(t, err)

	data, err := msgpackCodec{}.Marshal(nil)
	require.NoError(t, err)
	_, err = msgpackCodec{}.Unmarshal(data)
	assert.Error(t, err)
}
