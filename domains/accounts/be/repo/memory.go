package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

// MemoryRepository keeps profiles in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]identity.Profile
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]identity.Profile)}
}

func (r *MemoryRepository) Create(_ context.Context, p identity.Profile) (identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return identity.Profile{}, ErrConflict
	}
	r.byID[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (identity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return identity.Profile{}, ErrNotFound
	}
	return p, nil
}
