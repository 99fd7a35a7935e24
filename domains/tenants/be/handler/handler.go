package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

const maxLogoBytes = 2 << 20

// Service is the subset of the tenants service used by HTTP handlers.
type Service interface {
	Get(ctx context.Context, id string) (service.Tenant, error)
	List(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
	PublicStore(ctx context.Context, id string) (service.Tenant, error)
	UpdateProfile(ctx context.Context, id string, input service.ProfileInput) (service.Tenant, error)
	UploadLogo(ctx context.Context, id, contentType string, body io.Reader) (service.Tenant, error)
	SetStatus(ctx context.Context, id string, status service.Status) (service.Tenant, error)
	ExtendTrial(ctx context.Context, id string) (service.Tenant, error)
}

// Handler exposes store settings, super-admin store management and the public storefront.
type Handler struct {
	svc    Service
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Handler instance.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

// AdminRoutes mounts the store admin's own settings.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/store", h.GetOwnStore)
	r.Patch("/store", h.UpdateOwnStore)
	r.Put("/store/logo", h.UploadLogo)
}

// SuperAdminRoutes mounts the platform operator's store management.
func (h *Handler) SuperAdminRoutes(r chi.Router) {
	r.Get("/stores", h.ListStores)
	r.Get("/stores/{tenantId}", h.GetStore)
	r.Post("/stores/{tenantId}/status", h.SetStatus)
	r.Post("/stores/{tenantId}/extend-trial", h.ExtendTrial)
}

// PublicRoutes mounts the storefront lookup.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/stores/{tenantId}", h.GetPublicStore)
}

type shippingOrigin struct {
	ProvinceID string `json:"provinceId"`
	CityID     string `json:"cityId"`
}

type storeResponse struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	Name            string          `json:"name"`
	WhatsAppContact string          `json:"whatsappContact"`
	Status          string          `json:"status"`
	Expired         bool            `json:"expired"`
	CreatedAt       time.Time       `json:"createdAt"`
	ExpiryDate      *time.Time      `json:"expiryDate,omitempty"`
	ThemeColor      string          `json:"themeColor"`
	LogoURL         *string         `json:"logoUrl,omitempty"`
	ShippingOrigin  *shippingOrigin `json:"shippingOrigin,omitempty"`
}

type publicStoreResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ThemeColor  string  `json:"themeColor"`
	LogoURL     *string `json:"logoUrl,omitempty"`
	HasWhatsApp bool    `json:"hasWhatsApp"`
}

type listResponse struct {
	Items      []storeResponse `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
}

type updateStoreRequest struct {
	Name            *string `json:"name"`
	WhatsAppContact *string `json:"whatsappContact"`
	ThemeColor      *string `json:"themeColor"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// GetOwnStore implements GET /admin/store
func (h *Handler) GetOwnStore(w http.ResponseWriter, r *http.Request) {
	space, ok := h.requireSpace(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), space.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// UpdateOwnStore implements PATCH /admin/store
func (h *Handler) UpdateOwnStore(w http.ResponseWriter, r *http.Request) {
	space, ok := h.requireSpace(w, r)
	if !ok {
		return
	}
	var body updateStoreRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	t, err := h.svc.UpdateProfile(r.Context(), space.TenantID, service.ProfileInput{
		Name:            body.Name,
		WhatsAppContact: body.WhatsAppContact,
		ThemeColor:      body.ThemeColor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// UploadLogo implements PUT /admin/store/logo with the raw image as body.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	space, ok := h.requireSpace(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxLogoBytes)
	t, err := h.svc.UploadLogo(r.Context(), space.TenantID, r.Header.Get("Content-Type"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			problems.Write(w, problems.New("Logo too large", "logo must be at most 2MB", problems.TypeValidation, http.StatusRequestEntityTooLarge, nil))
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// ListStores implements GET /superadmin/stores
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{Page: 1, PageSize: 20}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			problems.BadRequest(w, "page must be a positive integer")
			return
		}
		opts.Page = page
	}
	if v := q.Get("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 100 {
			problems.BadRequest(w, "pageSize must be between 1 and 100")
			return
		}
		opts.PageSize = size
	}
	if v := q.Get("status"); v != "" {
		status, err := service.ParseStatus(v)
		if err != nil {
			problems.BadRequest(w, err.Error())
			return
		}
		opts.Status = &status
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]storeResponse, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, h.toStore(t))
	}
	httpjson.Write(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// GetStore implements GET /superadmin/stores/{tenantId}
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// SetStatus implements POST /superadmin/stores/{tenantId}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	status, err := service.ParseStatus(body.Status)
	if err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	t, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "tenantId"), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// ExtendTrial implements POST /superadmin/stores/{tenantId}/extend-trial
func (h *Handler) ExtendTrial(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.ExtendTrial(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.toStore(t))
}

// GetPublicStore implements GET /stores/{tenantId}
func (h *Handler) GetPublicStore(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.PublicStore(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		if errors.Is(err, service.ErrInactive) || errors.Is(err, service.ErrTrialExpired) {
			problems.Write(w, problems.New("Store unavailable", "this store is currently closed", problems.Type("store-unavailable"), http.StatusGone, nil))
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, publicStoreResponse{
		ID:          t.ID,
		Name:        t.Name,
		ThemeColor:  t.ThemeColor,
		LogoURL:     t.LogoRef,
		HasWhatsApp: t.HasContactChannel(),
	})
}

func (h *Handler) requireSpace(w http.ResponseWriter, r *http.Request) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Forbidden", "only store admins manage store settings", problems.TypeForbidden, http.StatusForbidden, nil))
		return tenant.Space{}, false
	}
	return space, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		problems.Write(w, problems.New("Validation failed", "invalid store fields", problems.TypeValidation, http.StatusBadRequest, verr.Fields))
	case errors.Is(err, service.ErrNotFound):
		problems.Write(w, problems.New("Not found", err.Error(), problems.TypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrConflict):
		problems.Write(w, problems.New("Conflict", err.Error(), problems.TypeConflict, http.StatusConflict, nil))
	default:
		platformlogging.FromRequest(r, h.logger).Error("tenant operation failed", zap.Error(err))
		problems.Internal(w)
	}
}

func (h *Handler) toStore(t service.Tenant) storeResponse {
	out := storeResponse{
		ID:              t.ID,
		OwnerID:         t.OwnerID,
		Name:            t.Name,
		WhatsAppContact: t.WhatsAppContact,
		Status:          string(t.Status),
		Expired:         t.Expired(h.now()),
		CreatedAt:       t.CreatedAt,
		ExpiryDate:      t.ExpiryDate,
		ThemeColor:      t.ThemeColor,
		LogoURL:         t.LogoRef,
	}
	if t.ShippingOrigin != nil {
		out.ShippingOrigin = &shippingOrigin{ProvinceID: t.ShippingOrigin.ProvinceID, CityID: t.ShippingOrigin.CityID}
	}
	return out
}
