package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]service.Tenant
}

var _ service.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]service.Tenant)}
}

func (r *MemoryRepository) Create(_ context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID]; exists {
		return service.Tenant{}, service.ErrConflict
	}
	r.byID[t.ID] = clone(t)
	return clone(t), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return clone(t), nil
}

func (r *MemoryRepository) List(_ context.Context, opts service.ListOptions) (service.ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		if opts.Status != nil && t.Status != *opts.Status {
			continue
		}
		items = append(items, clone(t))
	}
	return service.Paginate(items, opts), nil
}

func (r *MemoryRepository) Update(_ context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.ID]; !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	r.byID[t.ID] = clone(t)
	return clone(t), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return service.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func clone(t service.Tenant) service.Tenant {
	out := t
	if t.ExpiryDate != nil {
		v := *t.ExpiryDate
		out.ExpiryDate = &v
	}
	if t.LogoRef != nil {
		v := *t.LogoRef
		out.LogoRef = &v
	}
	if t.ShippingOrigin != nil {
		v := *t.ShippingOrigin
		out.ShippingOrigin = &v
	}
	return out
}
