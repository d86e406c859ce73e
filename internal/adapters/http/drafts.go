package web

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"kinesis/internal/domain/plan"
)

// DraftTTL is how long an untouched draft is kept.
const DraftTTL = 12 * time.Hour

// MaxDraftsPerOwner bounds how many drafts one account can hold open.
const MaxDraftsPerOwner = 10

// Registry errors.
var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrTooManyDrafts = errors.New("too many open drafts")
)

type draftSlot struct {
	mu      sync.Mutex // guards editor
	owner   string
	editor  *plan.Editor
	touched time.Time
}

// DraftRegistry holds the in-progress plan editors, one per handle. Each
// handle belongs to the account that opened it; no other account can see or
// change it. Editors are not safe for concurrent use, so every access runs
// under the draft's own lock. The registry lock only guards the map and is
// never held while an editor is in use.
type DraftRegistry struct {
	mu     sync.Mutex
	drafts map[string]*draftSlot
	now    func() time.Time
}

// NewDraftRegistry creates an empty registry.
func NewDraftRegistry() *DraftRegistry {
	return &DraftRegistry{
		drafts: make(map[string]*draftSlot),
		now:    time.Now,
	}
}

// Open registers ed for owner and returns its handle.
// PRE: owner is non-empty
// POST: ErrTooManyDrafts when owner already holds MaxDraftsPerOwner drafts
func (dr *DraftRegistry) Open(owner string, ed *plan.Editor) (string, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.sweepLocked()

	open := 0
	for _, s := range dr.drafts {
		if s.owner == owner {
			open++
		}
	}
	if open >= MaxDraftsPerOwner {
		return "", ErrTooManyDrafts
	}

	handle := uuid.New().String()
	dr.drafts[handle] = &draftSlot{owner: owner, editor: ed, touched: dr.now()}
	return handle, nil
}

// With runs fn on the editor behind handle while holding that draft's lock.
// Calls on the same handle serialise; other drafts are not blocked.
// POST: ErrDraftNotFound for an unknown, expired, foreign or discarded handle; otherwise fn's error
func (dr *DraftRegistry) With(handle, owner string, fn func(*plan.Editor) error) error {
	slot, err := dr.lookup(handle, owner)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if !dr.holds(handle, slot) {
		return ErrDraftNotFound
	}
	return fn(slot.editor)
}

func (dr *DraftRegistry) lookup(handle, owner string) (*draftSlot, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	slot, ok := dr.drafts[handle]
	if !ok || slot.owner != owner {
		return nil, ErrDraftNotFound
	}
	if dr.now().Sub(slot.touched) > DraftTTL {
		delete(dr.drafts, handle)
		return nil, ErrDraftNotFound
	}
	slot.touched = dr.now()
	return slot, nil
}

// holds reports whether handle still maps to slot, i.e. it was not discarded
// while the caller waited for the draft lock.
func (dr *DraftRegistry) holds(handle string, slot *draftSlot) bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.drafts[handle] == slot
}

// Discard drops a draft. Unknown handles are ignored.
func (dr *DraftRegistry) Discard(handle, owner string) bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	slot, ok := dr.drafts[handle]
	if !ok || slot.owner != owner {
		return false
	}
	delete(dr.drafts, handle)
	return true
}

// DiscardOwner drops every draft of owner, as on logout.
func (dr *DraftRegistry) DiscardOwner(owner string) int {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	n := 0
	for handle, s := range dr.drafts {
		if s.owner == owner {
			delete(dr.drafts, handle)
			n++
		}
	}
	return n
}

// Len returns the number of open drafts.
func (dr *DraftRegistry) Len() int {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return len(dr.drafts)
}

func (dr *DraftRegistry) sweepLocked() {
	now := dr.now()
	for handle, s := range dr.drafts {
		if now.Sub(s.touched) > DraftTTL {
			delete(dr.drafts, handle)
		}
	}
}
