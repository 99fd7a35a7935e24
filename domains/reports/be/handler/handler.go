package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/reports/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service captures the report operations used by HTTP handlers.
type Service interface {
	Summary(ctx context.Context, tenantID string, r service.Range, limit int) (service.Summary, error)
	Export(ctx context.Context, tenantID string, r service.Range, w io.Writer) error
}

// Handler exposes the store admin's sales reports.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("reports service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts the reports under the admin area.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/reports/summary", h.Summary)
	r.Get("/reports/export.xlsx", h.Export)
}

type summaryResponse struct {
	From           *types.Date            `json:"from,omitempty"`
	To             *types.Date            `json:"to,omitempty"`
	Revenue        int64                  `json:"revenue"`
	CompletedCount int                    `json:"completedCount"`
	TopProducts    []service.ProductSales `json:"topProducts"`
	Daily          []service.DailyPoint   `json:"daily"`
}

type params struct {
	From  *types.Date
	To    *types.Date
	Limit *int
}

func bindParams(r *http.Request) (params, error) {
	var p params
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "from", query, &p.From); err != nil {
		return params{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", query, &p.To); err != nil {
		return params{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &p.Limit); err != nil {
		return params{}, err
	}
	return p, nil
}

// Summary implements GET /admin/reports/summary?from=YYYY-MM-DD&to=YYYY-MM-DD&limit=5
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	p, err := bindParams(r)
	if err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	limit := service.DefaultTopLimit
	if p.Limit != nil {
		if *p.Limit < 1 || *p.Limit > 50 {
			problems.BadRequest(w, "limit must be between 1 and 50")
			return
		}
		limit = *p.Limit
	}
	summary, err := h.svc.Summary(r.Context(), space.TenantID, service.Range{Start: p.From, End: p.To}, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, summaryResponse{
		From:           p.From,
		To:             p.To,
		Revenue:        summary.Revenue,
		CompletedCount: summary.CompletedCount,
		TopProducts:    summary.TopProducts,
		Daily:          summary.Daily,
	})
}

// Export implements GET /admin/reports/export.xlsx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	p, err := bindParams(r)
	if err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), space.TenantID, service.Range{Start: p.From, End: p.To}, &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="laporan.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func requireSpace(w http.ResponseWriter, r *http.Request) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Forbidden", "reports are available to store admins", problems.TypeForbidden, http.StatusForbidden, nil))
		return tenant.Space{}, false
	}
	return space, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		problems.Write(w, problems.New("Validation failed", err.Error(), problems.TypeValidation, http.StatusBadRequest, map[string][]string{"to": {"must not be before from"}}))
	default:
		platformlogging.FromRequest(r, h.logger).Error("report failed", zap.Error(err))
		problems.Internal(w)
	}
}
