package domain

import "context"

// EndpointConfig is the opaque bag of connection parameters supplied by the
// host. The core never interprets the query or header values; they are
// handed to the transport as-is.
type EndpointConfig struct {
	URL          string            `json:"url"`
	Path         string            `json:"path,omitempty"`
	Query        map[string]string `json:"query,omitempty"`
	Transports   []string          `json:"transports,omitempty"`
	Subprotocols []string          `json:"subprotocols,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Codec        string            `json:"codec,omitempty"` // "json" (default) or "msgpack"
}

// ChannelState is the lifecycle position of a channel handle.
type ChannelState int

const (
	ChannelConnecting ChannelState = iota
	ChannelOpen
	ChannelFailed
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelFailed:
		return "failed"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Live reports whether the handle can still deliver intents.
func (s ChannelState) Live() bool {
	return s == ChannelConnecting || s == ChannelOpen
}

// ChannelAdapter opens connections to the conversational backend.
//
// Open never fails from the caller's point of view: transport faults are
// logged at the adapter boundary and surface only as a handle whose State is
// ChannelFailed. The widget stalls rather than crashing.
type ChannelAdapter interface {
	Open(ctx context.Context, cfg EndpointConfig) ChannelHandle
}

// ChannelHandle is one live connection.
type ChannelHandle interface {
	// Send emits an intent. Fire-and-forget; no delivery acknowledgment.
	Send(ctx context.Context, intent Intent)
	// Subscribe registers a frame handler and returns its unsubscribe function.
	Subscribe(handler FrameHandler) func()
	// Close tears the connection down and detaches every handler.
	Close()
	State() ChannelState
}

// ChannelStatePayload is the payload for channel lifecycle events.
type ChannelStatePayload struct {
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
}
