// Package stream correlates streamed response fragments with the open
// assistant entry and owns the session-wide receiving flag.
package stream

import (
	"chatwidget/internal/domain"
	"chatwidget/internal/usecase/conversation"
)

// Result describes what a single Apply did to the log.
type Result struct {
	EntryID       string
	CorrelationID string
	Appended      int  // bytes appended
	Bound         bool // correlation id bound on this frame
	Completed     bool // terminal marker observed
	Empty         bool // completed with no text at all
}

// Assembler is not safe for concurrent use; the session controller serializes
// every call.
type Assembler struct {
	store *conversation.Store

	receiving bool
	openID    string // open assistant entry, "" when none
	openCorr  string // correlation bound to openID, "" until first fragment
	openLen   int

	// correlation id -> entry id of turns that already completed
	completed map[string]string
}

// New creates an assembler writing into store.
func New(store *conversation.Store) *Assembler {
	return &Assembler{
		store:     store,
		completed: make(map[string]string),
	}
}

// Receiving reports whether a response is in flight.
func (a *Assembler) Receiving() bool { return a.receiving }

// OpenEntry returns the id of the assistant entry open for appending.
func (a *Assembler) OpenEntry() (string, bool) {
	return a.openID, a.openID != ""
}

// Begin marks entryID as the open, not-yet-identified slot and sets receiving.
// A previously open slot is dropped without completion.
func (a *Assembler) Begin(entryID string) {
	a.openID = entryID
	a.openCorr = ""
	a.openLen = 0
	a.receiving = true
}

// Apply appends a fragment to the open slot. The first fragment of a turn
// binds its correlation id to the slot; later fragments must carry the same
// id. A non-empty finish reason closes the turn after its text is appended.
func (a *Assembler) Apply(frame domain.InboundFrame) (Result, error) {
	const op = "Assembler.Apply"

	if frame.ID == "" {
		return Result{}, domain.NewDomainError(op, domain.ErrInvalidFrame, "fragment without id")
	}
	if entryID, ok := a.completed[frame.ID]; ok {
		return Result{}, domain.NewDomainError(op, domain.ErrStaleFragment, frame.ID+" -> "+entryID)
	}
	if a.openID == "" {
		return Result{}, domain.NewDomainError(op, domain.ErrNoOpenTurn, frame.ID)
	}

	res := Result{EntryID: a.openID, CorrelationID: frame.ID}
	switch a.openCorr {
	case "":
		if err := a.store.BindCorrelation(a.openID, frame.ID); err != nil {
			return Result{}, domain.WrapOp(op, err)
		}
		a.openCorr = frame.ID
		res.Bound = true
	case frame.ID:
	default:
		return Result{}, domain.NewDomainError(op, domain.ErrInterleavedStream,
			frame.ID+" while "+a.openCorr+" is open")
	}

	if frame.Text != "" {
		if err := a.store.AppendToEntry(a.openID, frame.Text); err != nil {
			return Result{}, domain.WrapOp(op, err)
		}
		a.openLen += len(frame.Text)
		res.Appended = len(frame.Text)
	}

	if frame.Terminal() {
		res.Completed = true
		res.Empty = a.openLen == 0
		a.completed[a.openCorr] = a.openID
		a.openID = ""
		a.openCorr = ""
		a.openLen = 0
		a.receiving = false
	}
	return res, nil
}

// Abandon drops the open slot and clears receiving without touching the store.
func (a *Assembler) Abandon() {
	a.openID = ""
	a.openCorr = ""
	a.openLen = 0
	a.receiving = false
}
