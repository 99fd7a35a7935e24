package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

// MemoryRepository keeps orders in process. It applies the same conditional status write as
// the Postgres repository.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]service.Order
}

var _ service.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[uuid.UUID]service.Order)}
}

func (r *MemoryRepository) Create(_ context.Context, o service.Order) (service.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o = cloneOrder(o)
	r.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (service.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return service.Order{}, service.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]service.Order, error) {
	return r.filter(func(o service.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *MemoryRepository) ListByTenant(_ context.Context, tenantID string, filter service.ListFilter) ([]service.Order, error) {
	return r.filter(func(o service.Order) bool {
		if o.TenantID != tenantID {
			return false
		}
		return filter.Status == nil || o.Status == *filter.Status
	}), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, change service.StatusChange, at time.Time) (service.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return service.Order{}, service.ErrNotFound
	}
	if o.Status != change.From() {
		return service.Order{}, service.ErrStatusChanged
	}
	o.Status = change.To()
	o.UpdatedAt = at
	r.orders[id] = o
	return cloneOrder(o), nil
}

func (r *MemoryRepository) filter(keep func(service.Order) bool) []service.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]service.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneOrder(o service.Order) service.Order {
	o.Items = append([]service.Item(nil), o.Items...)
	return o
}
