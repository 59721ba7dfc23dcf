// Package conversation holds the widget's ordered, id-addressable message log.
package conversation

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"chatwidget/internal/domain"
)

// IDGenerator returns a fresh, session-unique entry id.
type IDGenerator func() string

// NewULIDGenerator returns a generator of monotonic ULIDs.
func NewULIDGenerator() IDGenerator {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}

// Store is the conversation log. Entries are addressable by id and kept in
// append order; nothing is ever reordered or removed.
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.ConversationEntry
	newID IDGenerator
}

// NewStore creates an empty store. A nil generator selects ULIDs.
func NewStore(newID IDGenerator) *Store {
	if newID == nil {
		newID = NewULIDGenerator()
	}
	return &Store{
		byID:  make(map[string]*domain.ConversationEntry),
		newID: newID,
	}
}

// AppendUserTurn appends a user entry and returns its id.
func (s *Store) AppendUserTurn(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.byID[id] != nil {
		id = s.newID()
	}
	s.appendLocked(&domain.ConversationEntry{ID: id, Author: domain.AuthorUser, Text: text})
	return id
}

// maxIDAttempts bounds how often AppendTurn asks the generator for an id.
const maxIDAttempts = 16

// AppendTurn appends a user entry and its empty paired assistant entry under
// one lock. It picks a user id whose response id is also free, so either both
// entries are added or neither is.
func (s *Store) AppendTurn(text string) (userID, responseID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxIDAttempts {
		id := s.newID()
		rid := domain.ResponseID(id)
		if s.byID[id] != nil || s.byID[rid] != nil || id == rid {
			continue
		}
		s.appendLocked(&domain.ConversationEntry{ID: id, Author: domain.AuthorUser, Text: text})
		s.appendLocked(&domain.ConversationEntry{ID: rid, Author: domain.AuthorAssistant, TriggerID: id})
		return id, rid, nil
	}
	return "", "", domain.NewDomainError("Store.AppendTurn", domain.ErrDuplicateEntry, "no free entry id")
}

// AppendPlaceholderAssistantTurn appends the empty assistant entry paired with
// userEntryID. The user entry must be the last entry in the log.
func (s *Store) AppendPlaceholderAssistantTurn(userEntryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastLocked()
	if last == nil || last.ID != userEntryID || last.Author != domain.AuthorUser {
		return domain.NewDomainError("Store.AppendPlaceholderAssistantTurn", domain.ErrPairingViolation, userEntryID)
	}
	id := domain.ResponseID(userEntryID)
	if s.byID[id] != nil {
		return domain.NewDomainError("Store.AppendPlaceholderAssistantTurn", domain.ErrDuplicateEntry, id)
	}
	s.appendLocked(&domain.ConversationEntry{
		ID:        id,
		Author:    domain.AuthorAssistant,
		TriggerID: userEntryID,
	})
	return nil
}

// AppendToOpenAssistantTurn appends fragment to the last entry, which must be
// an assistant entry.
func (s *Store) AppendToOpenAssistantTurn(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastLocked()
	if last == nil || last.Author != domain.AuthorAssistant {
		return domain.NewDomainError("Store.AppendToOpenAssistantTurn", domain.ErrNoOpenTurn, "")
	}
	last.Text += fragment
	return nil
}

// AppendToEntry appends fragment to the assistant entry with the given id.
func (s *Store) AppendToEntry(id, fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.assistantLocked("Store.AppendToEntry", id)
	if err != nil {
		return err
	}
	e.Text += fragment
	return nil
}

// BindCorrelation records the backend correlation id on an assistant entry.
// Rebinding to the same id is a no-op.
func (s *Store) BindCorrelation(id, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.assistantLocked("Store.BindCorrelation", id)
	if err != nil {
		return err
	}
	if e.CorrelationID != "" && e.CorrelationID != correlationID {
		return domain.NewDomainError("Store.BindCorrelation", domain.ErrAlreadyBound, id)
	}
	e.CorrelationID = correlationID
	return nil
}

// Entry returns a copy of the entry with the given id.
func (s *Store) Entry(id string) (domain.ConversationEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.ConversationEntry{}, false
	}
	return *e, true
}

// Last returns a copy of the last entry.
func (s *Store) Last() (domain.ConversationEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lastLocked()
	if e == nil {
		return domain.ConversationEntry{}, false
	}
	return *e, true
}

// Entries returns an ordered snapshot of the log.
func (s *Store) Entries() []domain.ConversationEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConversationEntry, len(s.order))
	for i, id := range s.order {
		out[i] = *s.byID[id]
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) appendLocked(e *domain.ConversationEntry) {
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
}

func (s *Store) lastLocked() *domain.ConversationEntry {
	if len(s.order) == 0 {
		return nil
	}
	return s.byID[s.order[len(s.order)-1]]
}

func (s *Store) assistantLocked(op, id string) (*domain.ConversationEntry, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, domain.NewDomainError(op, domain.ErrEntryNotFound, id)
	}
	if e.Author != domain.AuthorAssistant {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "not an assistant entry: "+id)
	}
	return e, nil
}
