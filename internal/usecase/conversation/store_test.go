package conversation

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/internal/domain"
)

func seqIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("u%d", n)
	}
}

func TestStorePairsUserAndAssistant(t *testing.T) {
	s := NewStore(seqIDs())

	id := s.AppendUserTurn("hello")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(id))

	want := []domain.ConversationEntry{
		{ID: "u1", Author: domain.AuthorUser, Text: "hello"},
		{ID: "response-u1", Author: domain.AuthorAssistant, TriggerID: "u1"},
	}
	if diff := cmp.Diff(want, s.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreEvenLengthAfterManySends(t *testing.T) {
	s := NewStore(seqIDs())
	for i := 0; i < 25; i++ {
		id := s.AppendUserTurn(fmt.Sprintf("msg %d", i))
		require.NoError(t, s.AppendPlaceholderAssistantTurn(id))
		require.NoError(t, s.AppendToOpenAssistantTurn("ok"))
	}

	entries := s.Entries()
	require.Len(t, entries, 50)
	for i := 0; i < len(entries); i += 2 {
		user, asst := entries[i], entries[i+1]
		assert.Equal(t, domain.AuthorUser, user.Author)
		assert.Equal(t, domain.AuthorAssistant, asst.Author)
		assert.Equal(t, "response-"+user.ID, asst.ID)
		assert.Equal(t, user.ID, asst.TriggerID)
	}
}

func TestStorePlaceholderRequiresTrailingUserEntry(t *testing.T) {
	s := NewStore(seqIDs())

	err := s.AppendPlaceholderAssistantTurn("u1")
	assert.ErrorIs(t, err, domain.ErrPairingViolation)

	first := s.AppendUserTurn("a")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(first))
	s.AppendUserTurn("b")

	err = s.AppendPlaceholderAssistantTurn(first)
	assert.ErrorIs(t, err, domain.ErrPairingViolation)
	assert.Equal(t, 3, s.Len())
}

func TestStoreAppendToOpenAssistantTurnIsPositional(t *testing.T) {
	s := NewStore(seqIDs())

	assert.ErrorIs(t, s.AppendToOpenAssistantTurn("x"), domain.ErrNoOpenTurn)

	id := s.AppendUserTurn("hi")
	assert.ErrorIs(t, s.AppendToOpenAssistantTurn("x"), domain.ErrNoOpenTurn)

	require.NoError(t, s.AppendPlaceholderAssistantTurn(id))
	require.NoError(t, s.AppendToOpenAssistantTurn("Hi"))
	require.NoError(t, s.AppendToOpenAssistantTurn("!"))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "Hi!", last.Text)
}

func TestStoreAppendToEntryByID(t *testing.T) {
	s := NewStore(seqIDs())
	a := s.AppendUserTurn("a")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(a))
	b := s.AppendUserTurn("b")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(b))

	require.NoError(t, s.AppendToEntry(domain.ResponseID(a), "first"))

	e, _ := s.Entry(domain.ResponseID(a))
	assert.Equal(t, "first", e.Text)
	e, _ = s.Entry(domain.ResponseID(b))
	assert.Equal(t, "", e.Text)

	assert.ErrorIs(t, s.AppendToEntry("missing", "x"), domain.ErrEntryNotFound)
	assert.ErrorIs(t, s.AppendToEntry(a, "x"), domain.ErrInvalidInput)
}

func TestStoreBindCorrelation(t *testing.T) {
	s := NewStore(seqIDs())
	id := s.AppendUserTurn("a")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(id))
	rid := domain.ResponseID(id)

	require.NoError(t, s.BindCorrelation(rid, "r1"))
	require.NoError(t, s.BindCorrelation(rid, "r1"))
	assert.ErrorIs(t, s.BindCorrelation(rid, "r2"), domain.ErrAlreadyBound)

	e, _ := s.Entry(rid)
	assert.Equal(t, "r1", e.CorrelationID)
}

func TestStoreEntriesIsSnapshot(t *testing.T) {
	s := NewStore(seqIDs())
	id := s.AppendUserTurn("a")
	require.NoError(t, s.AppendPlaceholderAssistantTurn(id))

	snap := s.Entries()
	require.NoError(t, s.AppendToOpenAssistantTurn("later"))
	snap[0].Text = "mutated"

	assert.Equal(t, "", snap[1].Text)
	e, _ := s.Entry(id)
	assert.Equal(t, "a", e.Text)
}

func TestStoreSkipsDuplicateGeneratedIDs(t *testing.T) {
	calls := 0
	gen := func() string {
		calls++
		if calls <= 2 {
			return "same"
		}
		return "fresh"
	}
	s := NewStore(gen)
	assert.Equal(t, "same", s.AppendUserTurn("a"))
	assert.Equal(t, "fresh", s.AppendUserTurn("b"))
}

func listIDs(ids ...string) IDGenerator {
	n := 0
	return func() string {
		id := ids[min(n, len(ids)-1)]
		n++
		return id
	}
}

func TestStoreAppendTurnSkipsTakenResponseID(t *testing.T) {
	s := NewStore(listIDs("response-a", "a", "b"))

	u1, r1, err := s.AppendTurn("first")
	require.NoError(t, err)
	assert.Equal(t, "response-a", u1)
	assert.Equal(t, "response-response-a", r1)

	// "a" would pair with the existing "response-a" entry.
	u2, r2, err := s.AppendTurn("second")
	require.NoError(t, err)
	assert.Equal(t, "b", u2)
	assert.Equal(t, "response-b", r2)

	want := []domain.ConversationEntry{
		{ID: "response-a", Author: domain.AuthorUser, Text: "first"},
		{ID: "response-response-a", Author: domain.AuthorAssistant, TriggerID: "response-a"},
		{ID: "b", Author: domain.AuthorUser, Text: "second"},
		{ID: "response-b", Author: domain.AuthorAssistant, TriggerID: "b"},
	}
	if diff := cmp.Diff(want, s.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreAppendTurnLeavesLogUntouchedWithoutFreeID(t *testing.T) {
	s := NewStore(listIDs("same"))

	_, _, err := s.AppendTurn("first")
	require.NoError(t, err)

	_, _, err = s.AppendTurn("second")
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)
	assert.Equal(t, 2, s.Len())
}

func TestULIDGeneratorUnique(t *testing.T) {
	gen := NewULIDGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
