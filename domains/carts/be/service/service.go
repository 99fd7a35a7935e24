package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	catalogservice "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
)

// Errors returned by the carts service.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoSession       = errors.New("cart session is required")
)

// PendingItem is a product a guest tried to add before signing in.
type PendingItem struct {
	ProductID string `json:"productId"`
	TenantID  string `json:"tenantId"`
}

// Store persists carts and staged items per cart session.
type Store interface {
	Load(ctx context.Context, session string) (Cart, error)
	Save(ctx context.Context, session string, cart Cart) error
	StagePending(ctx context.Context, session string, item PendingItem) error
	// TakePending returns the staged item and removes it in the same step.
	TakePending(ctx context.Context, session string) (PendingItem, bool, error)
}

// Products looks up catalog products.
type Products interface {
	Get(ctx context.Context, id uuid.UUID) (catalogservice.Product, error)
}

// Service coordinates cart storage with the catalog.
type Service struct {
	store    Store
	products Products
	logger   *zap.Logger
}

// New constructs a Service.
func New(store Store, products Products, logger *zap.Logger) *Service {
	if store == nil {
		panic("cart store is required")
	}
	if products == nil {
		panic("product lookup is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{store: store, products: products, logger: logger}
}

// NewSessionID returns a fresh opaque cart session id.
func NewSessionID() string {
	return uuid.NewString()
}

func requireSession(session string) error {
	if strings.TrimSpace(session) == "" {
		return ErrNoSession
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, rawID string) (Product, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Product{}, ErrProductNotFound
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalogservice.ErrNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("lookup product: %w", err)
	}
	return Product{ID: p.ID.String(), TenantID: p.TenantID, Name: p.Name, Price: p.Price, Stock: p.Stock}, nil
}

// Current returns the session's cart; an unknown session yields an empty cart.
func (s *Service) Current(ctx context.Context, session string) (Cart, error) {
	if err := requireSession(session); err != nil {
		return Cart{}, err
	}
	return s.store.Load(ctx, session)
}

// AddItem adds one unit of the product.
func (s *Service) AddItem(ctx context.Context, session, productID string) (Cart, error) {
	if err := requireSession(session); err != nil {
		return Cart{}, err
	}
	p, err := s.lookup(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, session, func(c Cart) (Cart, error) { return c.Add(p) })
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, session, productID string, qty int) (Cart, error) {
	if err := requireSession(session); err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, session, func(c Cart) (Cart, error) { return c.SetQuantity(productID, qty) })
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, session, productID string) (Cart, error) {
	if err := requireSession(session); err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, session, func(c Cart) (Cart, error) { return c.Remove(productID), nil })
}

// Clear empties the cart, keeping its store binding.
func (s *Service) Clear(ctx context.Context, session string) (Cart, error) {
	if err := requireSession(session); err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, session, func(c Cart) (Cart, error) { return c.Clear(), nil })
}

// Navigate applies the cross-store guard; the cart is only persisted when it was cleared.
func (s *Service) Navigate(ctx context.Context, session, targetTenantID string, confirmer Confirmer) (NavigationOutcome, Cart, error) {
	if err := requireSession(session); err != nil {
		return "", Cart{}, err
	}
	current, err := s.store.Load(ctx, session)
	if err != nil {
		return "", Cart{}, err
	}
	outcome, next := Navigate(ctx, current, targetTenantID, confirmer)
	if outcome != NavigationCleared {
		return outcome, current, nil
	}
	if err := s.store.Save(ctx, session, next); err != nil {
		return "", Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return outcome, next, nil
}

// StagePending records a product a guest tried to add, to be applied after login.
func (s *Service) StagePending(ctx context.Context, session, productID string) (PendingItem, error) {
	if err := requireSession(session); err != nil {
		return PendingItem{}, err
	}
	p, err := s.lookup(ctx, productID)
	if err != nil {
		return PendingItem{}, err
	}
	item := PendingItem{ProductID: p.ID, TenantID: p.TenantID}
	if err := s.store.StagePending(ctx, session, item); err != nil {
		return PendingItem{}, fmt.Errorf("stage pending item: %w", err)
	}
	return item, nil
}

// ApplyPending takes the staged item out of storage and adds it to the cart. The staged value
// is gone afterwards whether or not the add succeeded, so it is applied at most once.
func (s *Service) ApplyPending(ctx context.Context, customerID, session string) (bool, error) {
	if strings.TrimSpace(session) == "" {
		return false, nil
	}
	item, ok, err := s.store.TakePending(ctx, session)
	if err != nil {
		return false, fmt.Errorf("take pending item: %w", err)
	}
	if !ok {
		return false, nil
	}
	if _, err := s.AddItem(ctx, session, item.ProductID); err != nil {
		return false, fmt.Errorf("apply pending item for %s: %w", customerID, err)
	}
	s.logger.Info("pending cart item applied", zap.String("customer_id", customerID), zap.String("product_id", item.ProductID))
	return true, nil
}

func (s *Service) mutate(ctx context.Context, session string, fn func(Cart) (Cart, error)) (Cart, error) {
	current, err := s.store.Load(ctx, session)
	if err != nil {
		return Cart{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.store.Save(ctx, session, next); err != nil {
		return Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return next, nil
}
