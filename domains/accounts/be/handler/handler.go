package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/service"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

// Service captures the accounts operations used by HTTP handlers.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (identity.Profile, error)
	OpenSession(ctx context.Context, in service.SessionInput) (service.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// Handler exposes registration, login admission and password reset.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("accounts service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the /auth endpoints. The session endpoint requires a verified principal.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/password-reset", h.RequestPasswordReset)
	r.With(platformauth.RequirePrincipal).Post("/session", h.OpenSession)
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TenantID  *string   `json:"tenantId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type registerRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	StoreName        string `json:"storeName"`
	WhatsAppContact  string `json:"whatsappContact"`
	SuperAdminSecret string `json:"superAdminSecret"`
}

type sessionRequest struct {
	From string `json:"from"`
}

type sessionResponse struct {
	Profile        profileResponse `json:"profile"`
	RedirectTo     string          `json:"redirectTo"`
	PendingApplied bool            `json:"pendingApplied"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// Register implements POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}

	role := identity.Role(body.Role)
	if body.Role == "" {
		role = identity.RoleCustomer
	}

	profile, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:            body.Email,
		Password:         body.Password,
		Role:             role,
		StoreName:        body.StoreName,
		WhatsAppContact:  body.WhatsAppContact,
		SuperAdminSecret: body.SuperAdminSecret,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toProfile(profile))
}

// OpenSession implements POST /auth/session
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := platformauth.PrincipalFromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Unauthorized", "authentication required", problems.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var body sessionRequest
	if r.ContentLength > 0 {
		if err := httpjson.Decode(r, &body); err != nil {
			problems.BadRequest(w, err.Error())
			return
		}
	}

	session, err := h.svc.OpenSession(r.Context(), service.SessionInput{
		PrincipalID: principal.ID,
		CartSession: r.Header.Get(platformmiddleware.CartSessionHeader),
		From:        body.From,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sessionResponse{
		Profile:        toProfile(session.Profile),
		RedirectTo:     session.RedirectTo,
		PendingApplied: session.PendingApplied,
	})
}

// RequestPasswordReset implements POST /auth/password-reset. It answers 202 for every
// well-formed email so the endpoint does not reveal which accounts exist.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body passwordResetRequest
	if err := httpjson.Decode(r, &body); err != nil {
		problems.BadRequest(w, err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), body.Email); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, r, err)
			return
		}
		platformlogging.FromRequest(r, h.logger).Error("password reset", zap.Error(err))
	}
	w.WriteHeader(http.StatusAccepted)
}

// Me implements GET /me for any signed-in role.
func Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := identity.FromContext(r.Context())
	if !ok {
		problems.Write(w, problems.New("Unauthorized", "authentication required", problems.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}
	httpjson.Write(w, http.StatusOK, toProfile(*profile))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		problems.Write(w, problems.New("Validation failed", "invalid registration fields", problems.TypeValidation, http.StatusBadRequest, verr.Fields))
	case errors.Is(err, service.ErrEmailTaken):
		problems.Write(w, problems.New("Conflict", err.Error(), problems.TypeConflict, http.StatusConflict, nil))
	case errors.Is(err, service.ErrSuperAdminSecret):
		problems.Write(w, problems.New("Forbidden", "registration denied", problems.TypeForbidden, http.StatusForbidden, nil))
	case errors.Is(err, service.ErrInconsistentAccount):
		writeInconsistent(w)
	case errors.Is(err, service.ErrStoreInactive):
		problems.Write(w, problems.New("Store deactivated", "this store has been deactivated, contact the platform administrator", problems.Type("tenant-inactive"), http.StatusForbidden, nil))
	case errors.Is(err, service.ErrStoreTrialExpired):
		problems.Write(w, problems.New("Trial expired", "the trial period of this store has ended, contact the platform administrator", problems.Type("trial-expired"), http.StatusForbidden, nil))
	case errors.Is(err, service.ErrStoreMissing):
		problems.Write(w, problems.New("Store missing", err.Error(), problems.Type("tenant-missing"), http.StatusConflict, nil))
	default:
		platformlogging.FromRequest(r, h.logger).Error("accounts operation failed", zap.Error(err))
		problems.Internal(w)
	}
}

func writeInconsistent(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
	problems.Write(w, problems.New("Session terminated", "please sign in again", problems.Type("inconsistent-account"), http.StatusUnauthorized, nil))
}

func toProfile(p identity.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		TenantID:  p.TenantID,
		CreatedAt: p.CreatedAt,
	}
}
