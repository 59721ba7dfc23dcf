package channel

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"chatwidget/internal/domain"
)

// fragmentSchema describes a streamed text fragment. finish_reason is null
// (or absent) until the stream completes. message may be null or absent,
// which reads as empty text.
const fragmentSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "message": {"type": ["string", "null"]},
    "role": {"type": "string"},
    "finish_reason": {"type": ["string", "null"]}
  },
  "required": ["id"]
}`

// topicsSchema describes the suggestion list answered to a welcome request.
const topicsSchema = `{
  "type": "object",
  "properties": {
    "object": {"const": "topics"},
    "message": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "message": {"type": "string"}
        },
        "required": ["title"]
      }
    }
  },
  "required": ["object", "message"]
}`

var (
	schemasOnce sync.Once
	schemas     struct {
		fragment *jsonschema.Schema
		topics   *jsonschema.Schema
		err      error
	}
)

func loadSchemas() error {
	schemasOnce.Do(func() {
		if schemas.fragment, schemas.err = jsonschema.NewCompiler().Compile([]byte(fragmentSchema)); schemas.err != nil {
			schemas.err = fmt.Errorf("compile fragment schema: %w", schemas.err)
			return
		}
		if schemas.topics, schemas.err = jsonschema.NewCompiler().Compile([]byte(topicsSchema)); schemas.err != nil {
			schemas.err = fmt.Errorf("compile topics schema: %w", schemas.err)
		}
	})
	return schemas.err
}

// DecodeFrame validates a decoded message and converts it into a typed
// frame. A message without an "object" tag is a fragment; "topics" carries
// suggestions; any other tag passes through as FrameOther unvalidated.
func DecodeFrame(m map[string]any) (domain.InboundFrame, error) {
	if err := loadSchemas(); err != nil {
		return domain.InboundFrame{}, err
	}

	object, _ := m["object"].(string)
	switch {
	case object == domain.ObjectTopics:
		if err := validate(schemas.topics, m); err != nil {
			return domain.InboundFrame{}, err
		}
		return topicsFrame(m), nil
	case object != "":
		return domain.InboundFrame{Kind: domain.FrameOther, Object: object}, nil
	default:
		if err := validate(schemas.fragment, m); err != nil {
			return domain.InboundFrame{}, err
		}
		return domain.InboundFrame{
			Kind:         domain.FrameFragment,
			ID:           stringField(m, "id"),
			Text:         stringField(m, "message"),
			Role:         stringField(m, "role"),
			FinishReason: stringField(m, "finish_reason"),
		}, nil
	}
}

func validate(schema *jsonschema.Schema, m map[string]any) error {
	result := schema.Validate(m)
	if !result.IsValid() {
		return domain.NewDomainError("channel.decode", domain.ErrInvalidFrame, fmt.Sprintf("%s", result.Error()))
	}
	return nil
}

func topicsFrame(m map[string]any) domain.InboundFrame {
	items, _ := m["message"].([]any)
	topics := make([]domain.TopicSuggestion, 0, len(items))
	for _, item := range items {
		t, ok := item.(map[string]any)
		if !ok {
			continue
		}
		topics = append(topics, domain.TopicSuggestion{
			Title:       stringField(t, "title"),
			Description: stringField(t, "description"),
			Message:     stringField(t, "message"),
		})
	}
	return domain.InboundFrame{Kind: domain.FrameTopics, Object: domain.ObjectTopics, Topics: topics}
}

// stringField returns m[key] as a string; missing keys and nulls yield "".
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
