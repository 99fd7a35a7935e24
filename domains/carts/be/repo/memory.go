package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
)

// MemoryStore is an in-process cart store for tests and local runs without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	carts   map[string]service.Cart
	pending map[string]service.PendingItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:   make(map[string]service.Cart),
		pending: make(map[string]service.PendingItem),
	}
}

func (s *MemoryStore) Load(_ context.Context, session string) (service.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[session]
	cart.Lines = append([]service.Line(nil), cart.Lines...)
	return cart, nil
}

func (s *MemoryStore) Save(_ context.Context, session string, cart service.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart.Lines = append([]service.Line(nil), cart.Lines...)
	s.carts[session] = cart
	return nil
}

func (s *MemoryStore) StagePending(_ context.Context, session string, item service.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[session] = item
	return nil
}

func (s *MemoryStore) TakePending(_ context.Context, session string) (service.PendingItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.pending[session]
	delete(s.pending, session)
	return item, ok, nil
}

var _ service.Store = (*MemoryStore)(nil)
