package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Revocations remembers deactivated users until every access token issued to
// them before deactivation has expired. Refresh and login already check the
// stored active flag, so entries never need to outlive AccessTokenTTL.
//
// The zero value is not usable; a nil *Revocations revokes nobody.
type Revocations struct {
	mu    sync.Mutex
	until map[uuid.UUID]time.Time
	now   func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{until: make(map[uuid.UUID]time.Time), now: time.Now}
}

// Revoke rejects userID's outstanding access tokens.
func (r *Revocations) Revoke(userID uuid.UUID) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until[userID] = r.now().Add(AccessTokenTTL)
}

// Restore lifts a revocation, e.g. when the account is re-activated.
func (r *Revocations) Restore(userID uuid.UUID) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.until, userID)
}

// Revoked reports whether userID's access tokens are currently rejected.
// Expired entries are pruned on the way.
func (r *Revocations) Revoked(userID uuid.UUID) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, t := range r.until {
		if !now.Before(t) {
			delete(r.until, id)
		}
	}
	_, ok := r.until[userID]
	return ok
}
