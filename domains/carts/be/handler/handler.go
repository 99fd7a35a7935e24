package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/access"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

// Service captures the cart operations used by HTTP handlers.
type Service interface {
	Current(ctx context.Context, session string) (service.Cart, error)
	AddItem(ctx context.Context, session, productID string) (service.Cart, error)
	SetQuantity(ctx context.Context, session, productID string, qty int) (service.Cart, error)
	RemoveItem(ctx context.Context, session, productID string) (service.Cart, error)
	Clear(ctx context.Context, session string) (service.Cart, error)
	Navigate(ctx context.Context, session, targetTenantID string, confirmer service.Confirmer) (service.NavigationOutcome, service.Cart, error)
	StagePending(ctx context.Context, session, productID string) (service.PendingItem, error)
}

// Handler exposes the session-keyed cart.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("cart service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the customer's current cart.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(Session)
		r.Get("/carts/current", h.Current)
		r.Delete("/carts/current", h.Clear)
		r.Post("/carts/current/items", h.AddItem)
		r.Patch("/carts/current/items/{productId}", h.SetQuantity)
		r.Delete("/carts/current/items/{productId}", h.RemoveItem)
		r.Post("/carts/current/navigate", h.Navigate)
	})
}

// GuestRoutes mounts pending-item staging for visitors who are not signed in yet.
func (h *Handler) GuestRoutes(r chi.Router) {
	r.With(Session).Post("/carts/pending", h.StagePending)
}

type sessionKey struct{}

// Session makes sure every cart request carries a session id, minting one when the client
// has none. The id is echoed back in the response header.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(platformmiddleware.CartSessionHeader))
		if id == "" {
			id = service.NewSessionID()
		}
		w.Header().Set(platformmiddleware.CartSessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionFrom(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

type lineResponse struct {
	ProductID string `json:"productId"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Stock     int    `json:"stock"`
}

type cartResponse struct {
	Lines         []lineResponse `json:"lines"`
	BoundTenantID string         `json:"boundTenantId,omitempty"`
	Count         int            `json:"count"`
	Total         int64          `json:"total"`
}

type itemRequest struct {
	ProductID string `json:"productId"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type navigateRequest struct {
	TenantID string `json:"tenantId"`
	Confirm  bool   `json:"confirm"`
}

type navigateResponse struct {
	Outcome              service.NavigationOutcome `json:"outcome"`
	ConfirmationRequired bool                      `json:"confirmationRequired"`
	Cart                 cartResponse              `json:"cart"`
}

// Current implements GET /carts/current
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Current(r.Context(), sessionFrom(r))
	h.respond(w, r, cart, err)
}

// AddItem implements POST /carts/current/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body itemRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(body.ProductID) == "" {
		problems.BadRequest(w, "productId is required")
		return
	}
	cart, err := h.svc.AddItem(r.Context(), sessionFrom(r), body.ProductID)
	h.respond(w, r, cart, err)
}

// SetQuantity implements PATCH /carts/current/items/{productId}
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var body quantityRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	cart, err := h.svc.SetQuantity(r.Context(), sessionFrom(r), chi.URLParam(r, "productId"), body.Quantity)
	h.respond(w, r, cart, err)
}

// RemoveItem implements DELETE /carts/current/items/{productId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.RemoveItem(r.Context(), sessionFrom(r), chi.URLParam(r, "productId"))
	h.respond(w, r, cart, err)
}

// Clear implements DELETE /carts/current
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Clear(r.Context(), sessionFrom(r))
	h.respond(w, r, cart, err)
}

// Navigate implements POST /carts/current/navigate. The confirmation is the request's own
// confirm flag, so a client asks once without it and repeats with confirm=true.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var body navigateRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(body.TenantID) == "" {
		problems.BadRequest(w, "tenantId is required")
		return
	}
	confirmer := service.AutoDeny
	if body.Confirm {
		confirmer = service.AutoConfirm
	}
	outcome, cart, err := h.svc.Navigate(r.Context(), sessionFrom(r), body.TenantID, confirmer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, navigateResponse{
		Outcome:              outcome,
		ConfirmationRequired: outcome == service.NavigationCancelled,
		Cart:                 toCart(cart),
	})
}

// StagePending implements POST /carts/pending. The item is kept until the visitor signs in;
// the response tells the client where to go next.
func (h *Handler) StagePending(w http.ResponseWriter, r *http.Request) {
	var body itemRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	item, err := h.svc.StagePending(r.Context(), sessionFrom(r), body.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	decision := access.RedirectTo(access.LoginPath)
	decision.Continuation = "/stores/" + item.TenantID
	httpjson.Write(w, http.StatusAccepted, decision)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, cart service.Cart, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toCart(cart))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rule *service.RuleError
	switch {
	case errors.As(err, &rule):
		status := http.StatusUnprocessableEntity
		if errors.Is(err, service.ErrNotInCart) {
			status = http.StatusNotFound
		}
		problems.Write(w, problems.New("Cart rule violated", rule.Detail, problems.Type(rule.Rule), status, nil))
	case errors.Is(err, service.ErrProductNotFound):
		problems.Write(w, problems.New("Not found", err.Error(), problems.TypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrNoSession):
		problems.BadRequest(w, err.Error())
	default:
		platformlogging.FromRequest(r, h.logger).Error("cart operation failed", zap.Error(err))
		problems.Internal(w)
	}
}

func toCart(c service.Cart) cartResponse {
	lines := make([]lineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, lineResponse{
			ProductID: l.ProductID,
			TenantID:  l.TenantID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.UnitPrice * int64(l.Quantity),
			Stock:     l.Stock,
		})
	}
	return cartResponse{Lines: lines, BoundTenantID: c.BoundTenantID, Count: c.Count(), Total: c.Total()}
}
