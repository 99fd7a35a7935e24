package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/rajaongkir"
	"github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/service"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

// Service captures the shipping settings operations.
type Service interface {
	Provinces(ctx context.Context) ([]service.Province, error)
	Cities(ctx context.Context, provinceID string) ([]service.City, error)
	Origin(ctx context.Context, tenantID string) (service.Origin, bool, error)
	SetOrigin(ctx context.Context, tenantID, provinceID, cityID string) (service.Origin, error)
}

// Handler serves the admin shipping settings page.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("shipping service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts the shipping settings under the admin area.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/shipping/provinces", h.ListProvinces)
	r.Get("/shipping/provinces/{provinceId}/cities", h.ListCities)
	r.Get("/shipping/origin", h.GetOrigin)
	r.Put("/shipping/origin", h.PutOrigin)
}

type provinceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cityResponse struct {
	ID          string `json:"id"`
	ProvinceID  string `json:"provinceId"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	PostalCode  string `json:"postalCode,omitempty"`
}

type originResponse struct {
	ProvinceID   string `json:"provinceId"`
	ProvinceName string `json:"provinceName,omitempty"`
	CityID       string `json:"cityId"`
	CityName     string `json:"cityName,omitempty"`
}

type originRequest struct {
	ProvinceID string `json:"provinceId"`
	CityID     string `json:"cityId"`
}

// ListProvinces implements GET /admin/shipping/provinces
func (h *Handler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := h.svc.Provinces(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]provinceResponse, 0, len(provinces))
	for _, p := range provinces {
		out = append(out, provinceResponse{ID: p.ID, Name: p.Name})
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"items": out})
}

// ListCities implements GET /admin/shipping/provinces/{provinceId}/cities
func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.svc.Cities(r.Context(), chi.URLParam(r, "provinceId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]cityResponse, 0, len(cities))
	for _, c := range cities {
		out = append(out, cityResponse{
			ID:          c.ID,
			ProvinceID:  c.ProvinceID,
			Type:        c.Type,
			Name:        c.Name,
			DisplayName: c.DisplayName(),
			PostalCode:  c.PostalCode,
		})
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"items": out})
}

// GetOrigin implements GET /admin/shipping/origin
func (h *Handler) GetOrigin(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	origin, found, err := h.svc.Origin(r.Context(), space.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpjson.Write(w, http.StatusOK, toOrigin(origin))
}

// PutOrigin implements PUT /admin/shipping/origin
func (h *Handler) PutOrigin(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	var body originRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	origin, err := h.svc.SetOrigin(r.Context(), space.TenantID, body.ProvinceID, body.CityID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toOrigin(origin))
}

func toOrigin(o service.Origin) originResponse {
	return originResponse{ProvinceID: o.ProvinceID, ProvinceName: o.ProvinceName, CityID: o.CityID, CityName: o.CityName}
}

func requireSpace(w http.ResponseWriter, r *http.Request) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Forbidden", "only store admins manage shipping settings", problems.TypeForbidden, http.StatusForbidden, nil))
		return tenant.Space{}, false
	}
	return space, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *tenantsservice.ValidationError
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		problems.Write(w, problems.New("Shipping not configured", err.Error(), problems.TypeUnavailable, http.StatusServiceUnavailable, nil))
	case errors.Is(err, service.ErrUnknownProvince):
		problems.Write(w, problems.New("Validation failed", err.Error(), problems.TypeValidation, http.StatusBadRequest, map[string][]string{"provinceId": {"is not a known province"}}))
	case errors.Is(err, service.ErrUnknownCity):
		problems.Write(w, problems.New("Validation failed", err.Error(), problems.TypeValidation, http.StatusBadRequest, map[string][]string{"cityId": {"is not in the chosen province"}}))
	case errors.As(err, &verr):
		problems.Write(w, problems.New("Validation failed", "invalid shipping origin", problems.TypeValidation, http.StatusBadRequest, verr.Fields))
	case errors.Is(err, tenantsservice.ErrNotFound):
		problems.Write(w, problems.New("Not found", err.Error(), problems.TypeNotFound, http.StatusNotFound, nil))
	case rajaongkir.IsUpstream(err):
		platformlogging.FromRequest(r, h.logger).Warn("rajaongkir rejected request", zap.Error(err))
		problems.Write(w, problems.New("Bad gateway", err.Error(), problems.Type("shipping-upstream"), http.StatusBadGateway, nil))
	default:
		platformlogging.FromRequest(r, h.logger).Error("shipping operation failed", zap.Error(err))
		problems.Internal(w)
	}
}
