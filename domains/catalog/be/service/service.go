package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// ErrNotFound is returned for missing products and for products owned by another store.
var ErrNotFound = errors.New("product not found")

// Product is owned by exactly one tenant. Stock is advisory: checkout never decrements it.
type Product struct {
	ID          uuid.UUID
	TenantID    string
	Name        string
	Price       int64
	Stock       int
	Weight      int
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input carries the editable product fields. Price is in rupiah, weight in grams.
type Input struct {
	Name        string
	Price       int64
	Stock       int
	Weight      int
	Description string
}

// Repository abstracts product persistence.
type Repository interface {
	Create(ctx context.Context, p Product) (Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
}

// Service implements product management for store admins and the public catalog.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New constructs a Service.
func New(repo Repository) *Service {
	if repo == nil {
		panic("catalog repo is required")
	}
	return &Service{repo: repo, now: time.Now}
}

func validate(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	fields := FieldErrors{}
	if in.Name == "" {
		fields["name"] = append(fields["name"], "is required")
	}
	if in.Price < 0 {
		fields["price"] = append(fields["price"], "must not be negative")
	}
	if in.Stock < 0 {
		fields["stock"] = append(fields["stock"], "must not be negative")
	}
	if in.Weight < 0 {
		fields["weight"] = append(fields["weight"], "must not be negative")
	}
	if len(fields) > 0 {
		return Input{}, &ValidationError{Fields: fields}
	}
	return in, nil
}

// Create adds a product to the tenant's catalog.
func (s *Service) Create(ctx context.Context, tenantID string, in Input) (Product, error) {
	in, err := validate(in)
	if err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	return s.repo.Create(ctx, Product{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        in.Name,
		Price:       in.Price,
		Stock:       in.Stock,
		Weight:      in.Weight,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Get returns any product; used by the public storefront and the cart.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, id)
}

// ListByTenant returns the tenant's products, newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]Product, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// Update replaces the editable fields of one of the tenant's products. Existing orders keep
// their item snapshot.
func (s *Service) Update(ctx context.Context, tenantID string, id uuid.UUID, in Input) (Product, error) {
	in, err := validate(in)
	if err != nil {
		return Product{}, err
	}
	current, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return Product{}, err
	}
	current.Name = in.Name
	current.Price = in.Price
	current.Stock = in.Stock
	current.Weight = in.Weight
	current.Description = in.Description
	current.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, current)
}

// Delete removes one of the tenant's products.
func (s *Service) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	if _, err := s.owned(ctx, tenantID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tenantID, id)
}

func (s *Service) owned(ctx context.Context, tenantID string, id uuid.UUID) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p.TenantID != tenantID {
		return Product{}, ErrNotFound
	}
	return p, nil
}
