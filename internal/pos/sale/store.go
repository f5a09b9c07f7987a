package sale

import (
	"fmt"
	"sync"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/google/uuid"
)

type ownedDraft struct {
	owner string
	draft *Draft
	// set while a submit of the draft is running
	claimed bool
}

// DraftStore keeps the open drafts of every user in memory.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]ownedDraft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[uuid.UUID]ownedDraft)}
}

// Put stores d for owner, assigning an ID when it has none.
func (s *DraftStore) Put(owner string, d *Draft) *Draft {
	stored := d.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}

	s.mu.Lock()
	s.drafts[stored.ID] = ownedDraft{owner: owner, draft: stored}
	s.mu.Unlock()

	return stored.Clone()
}

// Get returns a copy of the draft.
func (s *DraftStore) Get(owner string, id uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return entry.draft.Clone(), nil
}

// Update applies fn to a copy of the draft and keeps the copy only when fn
// succeeds.
func (s *DraftStore) Update(owner string, id uuid.UUID, fn func(*Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.unclaimed(owner, id)
	if err != nil {
		return nil, err
	}
	next := entry.draft.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.drafts[id] = ownedDraft{owner: owner, draft: next}
	return next.Clone(), nil
}

// Delete discards the draft.
func (s *DraftStore) Delete(owner string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.unclaimed(owner, id); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

// Claim marks the draft as being submitted and returns a copy of it. Until
// Release or Done is called the draft can be read but not claimed again,
// changed or discarded.
func (s *DraftStore) Claim(owner string, id uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.unclaimed(owner, id)
	if err != nil {
		return nil, err
	}
	entry.claimed = true
	s.drafts[id] = entry
	return entry.draft.Clone(), nil
}

// Release hands a claimed draft back unchanged.
func (s *DraftStore) Release(owner string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, err := s.lookup(owner, id); err == nil {
		entry.claimed = false
		s.drafts[id] = entry
	}
}

// Done drops a claimed draft once its submit succeeded.
func (s *DraftStore) Done(owner string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(owner, id); err == nil {
		delete(s.drafts, id)
	}
}

// DiscardOwner drops every draft of owner and returns how many there were.
func (s *DraftStore) DiscardOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, d := range s.drafts {
		if d.owner == owner {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

func (s *DraftStore) lookup(owner string, id uuid.UUID) (ownedDraft, error) {
	d, ok := s.drafts[id]
	if !ok || d.owner != owner {
		return ownedDraft{}, fmt.Errorf("%w: draft %s", e.ErrNotFound, id)
	}
	return d, nil
}

func (s *DraftStore) unclaimed(owner string, id uuid.UUID) (ownedDraft, error) {
	d, err := s.lookup(owner, id)
	if err != nil {
		return ownedDraft{}, err
	}
	if d.claimed {
		return ownedDraft{}, fmt.Errorf("%w: draft %s", e.ErrDraftBusy, id)
	}
	return d, nil
}
