package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
)

// MemoryRepository keeps products in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Product
}

var _ service.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.Product)}
}

func (r *MemoryRepository) Create(_ context.Context, p service.Product) (service.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (service.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return service.Product{}, service.ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) ListByTenant(_ context.Context, tenantID string) ([]service.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]service.Product, 0)
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, p service.Product) (service.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return service.Product{}, service.ErrNotFound
	}
	r.byID[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.TenantID != tenantID {
		return service.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
