// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the terminal widget.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"chatwidget/internal/adapter/tui/theme"
	"chatwidget/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display in the widget.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinel errors (checked first so errors.Is works through wrapping).
	{
		match: isAny(domain.ErrChannelBackoff),
		produce: constantError("Assistant Unavailable", "Recent connection attempts failed, so new ones are paused.",
			[]string{"Wait for the breaker timeout to pass", "Check that the backend is running"}),
	},
	{
		match: isAny(domain.ErrChannelDial, domain.ErrChannelClosed),
		produce: constantError("Connection Failed", "Could not reach the chat backend.",
			[]string{"Verify endpoint.url and endpoint.path in config", "Start one locally with 'chatwidget mock-backend'"}),
	},
	{
		match: isAny(domain.ErrChannelEmit, domain.ErrSendQueueFull),
		produce: constantError("Message Not Delivered", "The connection dropped while sending.",
			[]string{"Reopen the widget to reconnect"}),
	},
	{
		match: isAny(domain.ErrInvalidFrame, domain.ErrInterleavedStream, domain.ErrStaleFragment, domain.ErrNoOpenTurn),
		produce: constantError("Garbled Response", "The backend sent a reply the widget could not place.",
			[]string{"Ask again", "Check the backend speaks the widget protocol"}),
	},
	{
		match: isAny(domain.ErrUnsupportedCode),
		produce: constantError("Unsupported Codec", "The configured codec is not known.",
			[]string{"Set endpoint.codec to json or msgpack"}),
	},

	// Network / connectivity patterns (string matching for external errors).
	{
		match: containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the chat backend.",
			[]string{"Check your network connection", "Verify the endpoint URL in config"}),
	},
	{
		match: containsAny("deadline exceeded", "timeout", "timed out"),
		produce: constantError("Connection Timed Out", "The backend took too long to answer.",
			[]string{"Check your network connection", "Increase endpoint.dial_timeout in config"}),
	},
	{
		match: containsAny("401", "403", "unauthorized", "forbidden"),
		produce: constantError("Authentication Failed", "The backend rejected the connection.",
			[]string{"Check the token in endpoint.query or endpoint.headers"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	// Fallback for unrecognized errors.
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug for more details"},
		Raw:     err.Error(),
	}
}

// codeSentinels maps event error codes back to their sentinels so events
// carrying only a code can be humanized.
var codeSentinels = map[domain.ErrorCode]error{
	domain.CodeChannelDial:       domain.ErrChannelDial,
	domain.CodeChannelBackoff:    domain.ErrChannelBackoff,
	domain.CodeChannelEmit:       domain.ErrChannelEmit,
	domain.CodeChannelClosed:     domain.ErrChannelClosed,
	domain.CodeSendQueueFull:     domain.ErrSendQueueFull,
	domain.CodeInvalidFrame:      domain.ErrInvalidFrame,
	domain.CodeInterleavedStream: domain.ErrInterleavedStream,
	domain.CodeStaleFragment:     domain.ErrStaleFragment,
	domain.CodeNoOpenTurn:        domain.ErrNoOpenTurn,
	domain.CodeUnsupportedCodec:  domain.ErrUnsupportedCode,
}

// FromCode humanizes an error known only by its code and message.
func FromCode(code domain.ErrorCode, raw string) FriendlyError {
	if sentinel, ok := codeSentinels[code]; ok {
		return Humanize(domain.NewDomainError(string(code), sentinel, raw))
	}
	return Humanize(errors.New(raw))
}

// ForChannelState describes a dead channel state; ok is false for live ones.
func ForChannelState(state string) (FriendlyError, bool) {
	switch state {
	case domain.ChannelFailed.String():
		return Humanize(domain.ErrChannelDial), true
	case domain.ChannelClosed.String():
		return FriendlyError{Title: "Disconnected", Message: "The chat session has ended."}, true
	default:
		return FriendlyError{}, false
	}
}

func isAny(sentinels ...error) func(error) bool {
	return func(err error) bool {
		for _, s := range sentinels {
			if errors.Is(err, s) {
				return true
			}
		}
		return false
	}
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
