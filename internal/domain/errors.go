package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
)

// Conversation and streaming sentinels.
var (
	ErrEntryNotFound     = fmt.Errorf("conversation entry not found")
	ErrDuplicateEntry    = fmt.Errorf("conversation entry already exists")
	ErrPairingViolation  = fmt.Errorf("assistant entry must follow its user entry")
	ErrNoOpenTurn        = fmt.Errorf("no assistant turn is open")
	ErrInterleavedStream = fmt.Errorf("fragment belongs to a different stream than the open turn")
	ErrStaleFragment     = fmt.Errorf("fragment for a completed turn")
	ErrAlreadyBound      = fmt.Errorf("entry already bound to a correlation id")
)

// Channel sentinels. These never leave the adapter boundary except in logs
// and events.
var (
	ErrChannelClosed   = fmt.Errorf("channel closed")
	ErrChannelDial     = fmt.Errorf("channel dial failed")
	ErrChannelEmit     = fmt.Errorf("channel emit failed")
	ErrChannelBackoff  = fmt.Errorf("channel dial suppressed by open breaker")
	ErrSendQueueFull   = fmt.Errorf("channel send queue full")
	ErrInvalidFrame    = fmt.Errorf("inbound frame invalid")
	ErrUnsupportedCode = fmt.Errorf("unsupported codec")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Store.AppendToEntry")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsProtocolViolation reports whether err is one of the inbound-frame
// violations that are logged and dropped instead of surfaced.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrInvalidFrame) ||
		errors.Is(err, ErrNoOpenTurn) ||
		errors.Is(err, ErrInterleavedStream) ||
		errors.Is(err, ErrStaleFragment)
}

// ErrorCode is a machine-parseable error category for logs and events.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"
	CodeDuplicateEntry    ErrorCode = "DUPLICATE_ENTRY"
	CodePairingViolation  ErrorCode = "PAIRING_VIOLATION"
	CodeNoOpenTurn        ErrorCode = "NO_OPEN_TURN"
	CodeInterleavedStream ErrorCode = "INTERLEAVED_STREAM"
	CodeStaleFragment     ErrorCode = "STALE_FRAGMENT"
	CodeAlreadyBound      ErrorCode = "ALREADY_BOUND"
	CodeChannelClosed     ErrorCode = "CHANNEL_CLOSED"
	CodeChannelDial       ErrorCode = "CHANNEL_DIAL"
	CodeChannelEmit       ErrorCode = "CHANNEL_EMIT"
	CodeChannelBackoff    ErrorCode = "CHANNEL_BACKOFF"
	CodeSendQueueFull     ErrorCode = "SEND_QUEUE_FULL"
	CodeInvalidFrame      ErrorCode = "INVALID_FRAME"
	CodeUnsupportedCodec  ErrorCode = "UNSUPPORTED_CODEC"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:          CodeNotFound,
	ErrInvalidInput:      CodeInvalidInput,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDecryption:        CodeDecryption,
	ErrEntryNotFound:     CodeEntryNotFound,
	ErrDuplicateEntry:    CodeDuplicateEntry,
	ErrPairingViolation:  CodePairingViolation,
	ErrNoOpenTurn:        CodeNoOpenTurn,
	ErrInterleavedStream: CodeInterleavedStream,
	ErrStaleFragment:     CodeStaleFragment,
	ErrAlreadyBound:      CodeAlreadyBound,
	ErrChannelClosed:     CodeChannelClosed,
	ErrChannelDial:       CodeChannelDial,
	ErrChannelEmit:       CodeChannelEmit,
	ErrChannelBackoff:    CodeChannelBackoff,
	ErrSendQueueFull:     CodeSendQueueFull,
	ErrInvalidFrame:      CodeInvalidFrame,
	ErrUnsupportedCode:   CodeUnsupportedCodec,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
