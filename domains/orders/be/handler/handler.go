package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/feed"
	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

// Service captures the order operations used by HTTP handlers.
type Service interface {
	Checkout(ctx context.Context, customer identity.Profile, cartSession string) (service.Placement, error)
	ListForCustomer(ctx context.Context, customerID string) ([]service.Order, error)
	ForCustomer(ctx context.Context, customerID string, id uuid.UUID) (service.Order, error)
	ContactLink(ctx context.Context, customerID string, id uuid.UUID) (string, error)
	ListForTenant(ctx context.Context, tenantID string, filter service.ListFilter) ([]service.Order, error)
	ForTenant(ctx context.Context, tenantID string, id uuid.UUID) (service.Order, error)
	Board(ctx context.Context, tenantID string) ([]service.Column, error)
	AdvanceStatus(ctx context.Context, tenantID string, id uuid.UUID, to service.Status) (service.Order, error)
	Invoice(ctx context.Context, viewer identity.Profile, id uuid.UUID, w io.Writer) error
}

// Handler exposes checkout, order history, the admin board and live feeds.
type Handler struct {
	svc    Service
	broker feed.Broker
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, broker feed.Broker, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("order service is required")
	}
	if broker == nil {
		panic("order feed broker is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, broker: broker, logger: logger}
}

// CustomerRoutes mounts checkout and the customer's own orders.
func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Post("/orders/checkout", h.Checkout)
	r.Get("/orders", h.ListOwn)
	r.Get("/orders/{orderId}", h.GetOwn)
	r.Get("/orders/{orderId}/contact", h.Contact)
}

// AdminRoutes mounts the store admin's order board and transitions.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/orders", h.ListForStore)
	r.Get("/orders/board", h.Board)
	r.Get("/orders/{orderId}", h.GetForStore)
	r.Post("/orders/{orderId}/status", h.AdvanceStatus)
}

// InvoiceRoutes mounts the invoice, readable by the ordering customer and the store admin.
func (h *Handler) InvoiceRoutes(r chi.Router) {
	r.Get("/orders/{orderId}/invoice", h.Invoice)
}

type itemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type orderResponse struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenantId"`
	CustomerID    string           `json:"customerId"`
	CustomerEmail string           `json:"customerEmail"`
	Items         []itemResponse   `json:"items"`
	TotalPrice    int64            `json:"totalPrice"`
	Status        service.Status   `json:"status"`
	StatusLabel   string           `json:"statusLabel"`
	NextStatuses  []service.Status `json:"nextStatuses"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type listResponse struct {
	Items []orderResponse `json:"items"`
}

type checkoutResponse struct {
	Order        orderResponse `json:"order"`
	WhatsAppLink string        `json:"whatsappLink"`
}

type columnResponse struct {
	Status service.Status  `json:"status"`
	Label  string          `json:"label"`
	Orders []orderResponse `json:"orders"`
}

type boardResponse struct {
	Columns []columnResponse `json:"columns"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type contactResponse struct {
	Link string `json:"link"`
}

// Checkout implements POST /orders/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	session := r.Header.Get(platformmiddleware.CartSessionHeader)
	if session == "" {
		problems.BadRequest(w, platformmiddleware.CartSessionHeader+" header is required")
		return
	}
	placement, err := h.svc.Checkout(r.Context(), *profile, session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+placement.Order.ID.String())
	httpjson.Write(w, http.StatusCreated, checkoutResponse{Order: toOrder(placement.Order), WhatsAppLink: placement.WhatsAppLink})
}

// ListOwn implements GET /orders
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	orders, err := h.svc.ListForCustomer(r.Context(), profile.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toList(orders))
}

// GetOwn implements GET /orders/{orderId}
func (h *Handler) GetOwn(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.ForCustomer(r.Context(), profile.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toOrder(order))
}

// Contact implements GET /orders/{orderId}/contact
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	link, err := h.svc.ContactLink(r.Context(), profile.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, contactResponse{Link: link})
}

// ListForStore implements GET /admin/orders?status=
func (h *Handler) ListForStore(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	var filter service.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := service.ParseStatus(raw)
		if err != nil {
			problems.BadRequest(w, err.Error())
			return
		}
		filter.Status = &status
	}
	orders, err := h.svc.ListForTenant(r.Context(), space.TenantID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toList(orders))
}

// Board implements GET /admin/orders/board
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	columns, err := h.svc.Board(r.Context(), space.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := boardResponse{Columns: make([]columnResponse, 0, len(columns))}
	for _, c := range columns {
		resp.Columns = append(resp.Columns, columnResponse{Status: c.Status, Label: c.Status.Label(), Orders: toList(c.Orders).Items})
	}
	httpjson.Write(w, http.StatusOK, resp)
}

// GetForStore implements GET /admin/orders/{orderId}
func (h *Handler) GetForStore(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.ForTenant(r.Context(), space.TenantID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toOrder(order))
}

// AdvanceStatus implements POST /admin/orders/{orderId}/status
func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var body statusRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	to, err := service.ParseStatus(body.Status)
	if err != nil {
		problems.Write(w, problems.New("Validation failed", err.Error(), problems.TypeValidation, http.StatusBadRequest, map[string][]string{"status": {"unknown status"}}))
		return
	}
	order, err := h.svc.AdvanceStatus(r.Context(), space.TenantID, id, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toOrder(order))
}

// Invoice implements GET /orders/{orderId}/invoice
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Invoice(r.Context(), *profile, id, &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func requireProfile(w http.ResponseWriter, r *http.Request) (*identity.Profile, bool) {
	profile, ok := identity.FromContext(r.Context())
	if !ok || profile == nil {
		problems.Write(w, problems.New("Unauthorized", "sign in to continue", problems.TypeUnauthorized, http.StatusUnauthorized, nil))
		return nil, false
	}
	return profile, true
}

func requireSpace(w http.ResponseWriter, r *http.Request) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Forbidden", "only store admins manage orders", problems.TypeForbidden, http.StatusForbidden, nil))
		return tenant.Space{}, false
	}
	return space, true
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		problems.BadRequest(w, "orderId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var illegal *service.IllegalTransitionError
	switch {
	case errors.As(err, &illegal):
		problems.Write(w, problems.New("Illegal transition", err.Error(), problems.Type("illegal-transition"), http.StatusConflict, nil))
	case errors.Is(err, service.ErrStatusChanged):
		problems.Write(w, problems.New("Conflict", "the order was updated by someone else; reload and try again", problems.TypeConflict, http.StatusConflict, nil))
	case errors.Is(err, service.ErrNotFound):
		problems.Write(w, problems.New("Not found", err.Error(), problems.TypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrCustomerOnly):
		problems.Write(w, problems.New("Forbidden", err.Error(), problems.TypeForbidden, http.StatusForbidden, nil))
	case errors.Is(err, service.ErrEmptyCart):
		problems.Write(w, problems.New("Empty cart", err.Error(), problems.Type("empty-cart"), http.StatusUnprocessableEntity, nil))
	case errors.Is(err, service.ErrNoContactChannel):
		problems.Write(w, problems.New("Store contact missing", err.Error(), problems.Type("no-contact-channel"), http.StatusConflict, nil))
	case errors.Is(err, service.ErrStoreUnavailable):
		problems.Write(w, problems.New("Store unavailable", "this store is currently closed", problems.Type("store-unavailable"), http.StatusGone, nil))
	case errors.Is(err, service.ErrContactClosed):
		problems.Write(w, problems.New("Order closed", err.Error(), problems.Type("order-closed"), http.StatusConflict, nil))
	case errors.Is(err, service.ErrInvoiceNotReady):
		problems.Write(w, problems.New("Invoice not ready", err.Error(), problems.Type("invoice-not-ready"), http.StatusConflict, nil))
	default:
		platformlogging.FromRequest(r, h.logger).Error("order operation failed", zap.Error(err))
		problems.Internal(w)
	}
}

func toOrder(o service.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	next := o.Status.Next()
	if next == nil {
		next = []service.Status{}
	}
	return orderResponse{
		ID:            o.ID.String(),
		TenantID:      o.TenantID,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		StatusLabel:   o.Status.Label(),
		NextStatuses:  next,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toList(orders []service.Order) listResponse {
	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrder(o))
	}
	return listResponse{Items: items}
}
