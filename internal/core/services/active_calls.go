package services

import (
	"sync"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"github.com/google/uuid"
)

// ActiveCallIndex answers "is this user already in a call" and "which call
// is this ICE candidate for" in O(1). It is pure bookkeeping: the persisted
// CallSession is the source of truth, and every terminal transition releases
// both participants here within the same logical operation. The periodic
// sweep is the consistency backstop, never the primary mechanism.
type ActiveCallIndex struct {
	mu     sync.RWMutex
	byUser map[string]uuid.UUID
}

func NewActiveCallIndex() *ActiveCallIndex {
	return &ActiveCallIndex{byUser: make(map[string]uuid.UUID)}
}

// Reserve atomically claims both participants for callID. Fails with
// ErrAlreadyInCall when either party is already claimed, leaving the index
// untouched.
func (i *ActiveCallIndex) Reserve(callID uuid.UUID, caller, callee string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.byUser[caller]; busy {
		return domain.ErrAlreadyInCall
	}
	if _, busy := i.byUser[callee]; busy {
		return domain.ErrAlreadyInCall
	}
	i.byUser[caller] = callID
	i.byUser[callee] = callID
	return nil
}

func (i *ActiveCallIndex) Get(userID string) (uuid.UUID, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.byUser[userID]
	return id, ok
}

// Release removes the given users' entries, but only those still pointing at
// callID, so a user who has since joined a different call is untouched.
func (i *ActiveCallIndex) Release(callID uuid.UUID, users ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, u := range users {
		if i.byUser[u] == callID {
			delete(i.byUser, u)
		}
	}
}

// ReleaseUser unconditionally clears one user's entry; used when the
// persisted session is already gone and only a stale entry remains.
func (i *ActiveCallIndex) ReleaseUser(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.byUser, userID)
}
