package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

const maxImportBytes = 1 << 20

// Service captures the catalog operations used by HTTP handlers.
type Service interface {
	Create(ctx context.Context, tenantID string, in service.Input) (service.Product, error)
	Get(ctx context.Context, id uuid.UUID) (service.Product, error)
	ListByTenant(ctx context.Context, tenantID string) ([]service.Product, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, in service.Input) (service.Product, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	Import(ctx context.Context, tenantID string, r io.Reader) (service.ImportResult, error)
}

// Stores reports whether a storefront is open to customers.
type Stores interface {
	PublicStore(ctx context.Context, id string) (tenantsservice.Tenant, error)
}

// Handler exposes product management and the public catalog.
type Handler struct {
	svc    Service
	stores Stores
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, stores Stores, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("catalog service is required")
	}
	if stores == nil {
		panic("store lookup is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, stores: stores, logger: logger}
}

// AdminRoutes mounts product management for the store admin's own tenant.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/products", h.ListOwn)
	r.Post("/products", h.Create)
	r.Post("/products/import", h.Import)
	r.Put("/products/{productId}", h.Update)
	r.Delete("/products/{productId}", h.Delete)
}

// PublicRoutes mounts the storefront catalog.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/stores/{tenantId}/products", h.ListForStore)
	r.Get("/products/{productId}", h.GetPublic)
}

type productRequest struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

type productResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	Weight      int       `json:"weight"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type listResponse struct {
	Items []productResponse `json:"items"`
}

// ListOwn implements GET /admin/products
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	products, err := h.svc.ListByTenant(r.Context(), space.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toList(products))
}

// Create implements POST /admin/products
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	var body productRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	p, err := h.svc.Create(r.Context(), space.TenantID, toInput(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/products/"+p.ID.String())
	httpjson.Write(w, http.StatusCreated, toProduct(p))
}

// Import implements POST /admin/products/import with a YAML document body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Import(r.Context(), space.TenantID, io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, r, err)
			return
		}
		if len(result.Created) == 0 {
			problems.Write(w, problems.New("Invalid import file", err.Error(), problems.TypeValidation, http.StatusBadRequest, nil))
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toList(result.Created))
}

// Update implements PUT /admin/products/{productId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var body productRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	p, err := h.svc.Update(r.Context(), space.TenantID, id, toInput(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toProduct(p))
}

// Delete implements DELETE /admin/products/{productId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), space.TenantID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForStore implements GET /stores/{tenantId}/products
func (h *Handler) ListForStore(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if _, err := h.stores.PublicStore(r.Context(), tenantID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	products, err := h.svc.ListByTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toList(products))
}

// GetPublic implements GET /products/{productId}
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.stores.PublicStore(r.Context(), p.TenantID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toProduct(p))
}

func requireSpace(w http.ResponseWriter, r *http.Request) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Forbidden", "only store admins manage products", problems.TypeForbidden, http.StatusForbidden, nil))
		return tenant.Space{}, false
	}
	return space, true
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		problems.BadRequest(w, "productId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenantsservice.ErrNotFound):
		problems.Write(w, problems.New("Not found", "store not found", problems.TypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, tenantsservice.ErrInactive), errors.Is(err, tenantsservice.ErrTrialExpired):
		problems.Write(w, problems.New("Store unavailable", "this store is currently closed", problems.Type("store-unavailable"), http.StatusGone, nil))
	default:
		h.writeError(w, r, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		problems.Write(w, problems.New("Validation failed", "invalid product fields", problems.TypeValidation, http.StatusBadRequest, verr.Fields))
	case errors.Is(err, service.ErrNotFound):
		problems.Write(w, problems.New("Not found", err.Error(), problems.TypeNotFound, http.StatusNotFound, nil))
	default:
		platformlogging.FromRequest(r, h.logger).Error("catalog operation failed", zap.Error(err))
		problems.Internal(w)
	}
}

func toInput(body productRequest) service.Input {
	return service.Input{
		Name:        body.Name,
		Price:       body.Price,
		Stock:       body.Stock,
		Weight:      body.Weight,
		Description: body.Description,
	}
}

func toProduct(p service.Product) productResponse {
	return productResponse{
		ID:          p.ID.String(),
		TenantID:    p.TenantID,
		Name:        p.Name,
		Price:       p.Price,
		Stock:       p.Stock,
		Weight:      p.Weight,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toList(products []service.Product) listResponse {
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProduct(p))
	}
	return listResponse{Items: items}
}
