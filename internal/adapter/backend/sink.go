package backend

import (
	"context"
	"sync"
	"time"
)

// FeedbackRecord is one feedback intent received from a widget.
type FeedbackRecord struct {
	EntryID    string    `json:"entry_id"`
	Category   string    `json:"category"`
	Message    string    `json:"message,omitempty"`
	Choices    []string  `json:"choices,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// FeedbackSink persists feedback received by the mock backend.
type FeedbackSink interface {
	Record(ctx context.Context, rec FeedbackRecord) error
	List(ctx context.Context) ([]FeedbackRecord, error)
	Close() error
}

// MemorySink keeps feedback in process memory.
type MemorySink struct {
	mu      sync.Mutex
	records []FeedbackRecord
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, rec FeedbackRecord) error {
	rec.Choices = append([]string(nil), rec.Choices...)
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemorySink) List(_ context.Context) ([]FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FeedbackRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemorySink) Close() error { return nil }
