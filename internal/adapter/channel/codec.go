package channel

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack"
	"nhooyr.io/websocket"

	"chatwidget/internal/domain"
)

// Codec names accepted in domain.EndpointConfig.Codec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec encodes outbound field maps and decodes inbound messages into
// generic maps. Each codec is bound to one websocket message type.
type Codec interface {
	Name() string
	MessageType() websocket.MessageType
	Marshal(fields map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// CodecFor resolves a codec by name. An empty name selects JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, domain.NewDomainError("channel.codec", domain.ErrUnsupportedCode, name)
	}
}

// CodecForMessageType picks the codec matching a received message type:
// text frames carry JSON, binary frames carry msgpack.
func CodecForMessageType(typ websocket.MessageType) Codec {
	if typ == websocket.MessageBinary {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return CodecJSON }
func (jsonCodec) MessageType() websocket.MessageType { return websocket.MessageText }

func (jsonCodec) Marshal(fields map[string]any) ([]byte, error) {
	return json.Marshal(fields)
}

func (jsonCodec) Unmarshal(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("json decode: not an object")
	}
	return m, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return CodecMsgpack }
func (msgpackCodec) MessageType() websocket.MessageType { return websocket.MessageBinary }

func (msgpackCodec) Marshal(fields map[string]any) ([]byte, error) {
	return msgpack.Marshal(fields)
}

func (msgpackCodec) Unmarshal(data []byte) (map[string]any, error) {
	var v interface{}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("msgpack decode: %w", err)
	}
	m, ok := normalize(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("msgpack decode: not an object")
	}
	return m, nil
}

// normalize rewrites msgpack's decoded shapes into the JSON-like shapes the
// schema validator and frame conversion expect: string-keyed maps, []any
// slices and float64 numbers.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []interface{}:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
