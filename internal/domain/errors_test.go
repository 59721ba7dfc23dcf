package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Store.AppendToEntry", ErrEntryNotFound, "id 'x'")
	want := "Store.AppendToEntry: id 'x': conversation entry not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Assembler.Apply", ErrNoOpenTurn, "")
	want := "Assembler.Apply: no assistant turn is open"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Assembler.Apply", ErrInterleavedStream, "r2")
	if !errors.Is(err, ErrInterleavedStream) {
		t.Error("errors.Is should match ErrInterleavedStream")
	}
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Assembler.Apply" {
		t.Errorf("Op = %q", de.Op)
	}
}

func TestErrorCodeOf(t *testing.T) {
	assert.Equal(t, CodeNoOpenTurn, ErrorCodeOf(ErrNoOpenTurn))
	assert.Equal(t, CodeInterleavedStream, ErrorCodeOf(NewDomainError("op", ErrInterleavedStream, "")))
	assert.Equal(t, CodeChannelDial, ErrorCodeOf(fmt.Errorf("dial: %w", ErrChannelDial)))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestDomainError_Code(t *testing.T) {
	err := NewDomainError("Store.BindCorrelation", ErrAlreadyBound, "response-1")
	assert.Equal(t, CodeAlreadyBound, err.Code())
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))
	err := WrapOp("Codec.Decode", ErrInvalidFrame)
	assert.ErrorIs(t, err, ErrInvalidFrame)
	assert.Equal(t, "Codec.Decode: inbound frame invalid", err.Error())
}

func TestIsProtocolViolation(t *testing.T) {
	assert.True(t, IsProtocolViolation(fmt.Errorf("x: %w", ErrStaleFragment)))
	assert.True(t, IsProtocolViolation(ErrInvalidFrame))
	assert.False(t, IsProtocolViolation(ErrChannelDial))
}
