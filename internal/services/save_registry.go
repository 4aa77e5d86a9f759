package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/huangang/taskdesk/internal/upstream"
)

var ErrSaveInProgress = errors.New("a save with this id is already running")

type saveKey struct {
	owner string
	id    string
}

// SaveRegistry tracks in-flight task saves so a client that closes the task
// modal can abandon the save it started. Saves are scoped to their owner:
// two callers may use the same save id, and only the owner can cancel.
type SaveRegistry struct {
	mu    sync.Mutex
	saves map[saveKey]context.CancelFunc
}

func NewSaveRegistry() *SaveRegistry {
	return &SaveRegistry{saves: make(map[saveKey]context.CancelFunc)}
}

// SaveOwner identifies the caller by a digest of its bearer token. Claims
// inside the token are not verified on these routes, so they cannot name
// the owner; only a holder of the same token can address the save.
func SaveOwner(cred upstream.Credential) string {
	sum := sha256.Sum256([]byte(cred.Token))
	return hex.EncodeToString(sum[:])
}

// Begin registers a save for owner. An empty id gets a generated one. The
// returned done func must be called when the save finishes.
func (r *SaveRegistry) Begin(parent context.Context, owner, saveID string) (context.Context, string, func(), error) {
	if saveID == "" {
		saveID = uuid.NewString()
	}
	key := saveKey{owner: owner, id: saveID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.saves[key]; exists {
		return nil, "", nil, ErrSaveInProgress
	}

	ctx, cancel := context.WithCancel(parent)
	r.saves[key] = cancel

	done := func() {
		r.mu.Lock()
		delete(r.saves, key)
		r.mu.Unlock()
		cancel()
	}
	return ctx, saveID, done, nil
}

// Cancel aborts a running save of owner. It reports false when owner has no
// such save.
func (r *SaveRegistry) Cancel(owner, saveID string) bool {
	r.mu.Lock()
	cancel, ok := r.saves[saveKey{owner: owner, id: saveID}]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active returns the number of saves in flight.
func (r *SaveRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}
