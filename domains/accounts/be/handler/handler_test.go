package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/service"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

type mockService struct {
	registerFn    func(ctx context.Context, in service.RegisterInput) (identity.Profile, error)
	openSessionFn func(ctx context.Context, in service.SessionInput) (service.Session, error)
	resetFn       func(ctx context.Context, email string) error
}

func (m *mockService) Register(ctx context.Context, in service.RegisterInput) (identity.Profile, error) {
	if m.registerFn == nil {
		panic("registerFn not configured")
	}
	return m.registerFn(ctx, in)
}

func (m *mockService) OpenSession(ctx context.Context, in service.SessionInput) (service.Session, error) {
	if m.openSessionFn == nil {
		panic("openSessionFn not configured")
	}
	return m.openSessionFn(ctx, in)
}

func (m *mockService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.resetFn == nil {
		panic("resetFn not configured")
	}
	return m.resetFn(ctx, email)
}

type resolverFunc func(ctx context.Context, id string) (identity.Profile, error)

func (f resolverFunc) Resolve(ctx context.Context, id string) (identity.Profile, error) { return f(ctx, id) }

func newRouter(t *testing.T, svc Service) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", New(svc, zaptest.NewLogger(t)).Routes)
	return r
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problems.ProblemDetails {
	t.Helper()
	var p problems.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestRegisterDefaultsToCustomer(t *testing.T) {
	t.Parallel()

	svc := &mockService{registerFn: func(ctx context.Context, in service.RegisterInput) (identity.Profile, error) {
		require.Equal(t, identity.RoleCustomer, in.Role)
		return identity.Profile{ID: "p1", Email: in.Email, Role: in.Role}, nil
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"c@x.id","password":"secret1"}`))
	newRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"customer"`)
}

func TestRegisterSecretMismatchIsForbidden(t *testing.T) {
	t.Parallel()

	svc := &mockService{registerFn: func(ctx context.Context, in service.RegisterInput) (identity.Profile, error) {
		return identity.Profile{}, service.ErrSuperAdminSecret
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"r@x.id","password":"secret1","role":"superAdmin","superAdminSecret":"x"}`))
	newRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpenSessionRequiresPrincipal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/session", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOpenSessionPassesCartSessionAndContinuation(t *testing.T) {
	t.Parallel()

	svc := &mockService{openSessionFn: func(ctx context.Context, in service.SessionInput) (service.Session, error) {
		require.Equal(t, "p1", in.PrincipalID)
		require.Equal(t, "cart-1", in.CartSession)
		require.Equal(t, "/stores/t1", in.From)
		return service.Session{Profile: identity.Profile{ID: "p1", Role: identity.RoleCustomer}, RedirectTo: in.From, PendingApplied: true}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"from":"/stores/t1"}`))
	req.Header.Set("X-Cart-Session", "cart-1")
	req = req.WithContext(platformauth.WithPrincipal(req.Context(), &platformauth.Principal{ID: "p1"}))
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/stores/t1", body.RedirectTo)
	require.True(t, body.PendingApplied)
}

func TestOpenSessionTenantProblems(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		problems.Type("trial-expired"):        service.ErrStoreTrialExpired,
		problems.Type("tenant-inactive"):      service.ErrStoreInactive,
		problems.Type("inconsistent-account"): service.ErrInconsistentAccount,
	}
	for wantType, err := range cases {
		wantType, err := wantType, err
		t.Run(wantType, func(t *testing.T) {
			t.Parallel()
			svc := &mockService{openSessionFn: func(ctx context.Context, in service.SessionInput) (service.Session, error) {
				return service.Session{}, err
			}}
			req := httptest.NewRequest(http.MethodPost, "/auth/session", nil)
			req = req.WithContext(platformauth.WithPrincipal(req.Context(), &platformauth.Principal{ID: "p1"}))
			rec := httptest.NewRecorder()
			newRouter(t, svc).ServeHTTP(rec, req)

			require.Equal(t, wantType, decodeProblem(t, rec).Type)
		})
	}
}

func TestPasswordResetAlwaysAccepted(t *testing.T) {
	t.Parallel()

	svc := &mockService{resetFn: func(ctx context.Context, email string) error {
		return errors.New("provider unavailable")
	}}
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/password-reset", strings.NewReader(`{"email":"x@y.id"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestProfileMiddleware(t *testing.T) {
	t.Parallel()

	resolver := resolverFunc(func(ctx context.Context, id string) (identity.Profile, error) {
		if id == "ghost" {
			return identity.Profile{}, service.ErrInconsistentAccount
		}
		return identity.Profile{ID: id, Role: identity.RoleCustomer}, nil
	})
	mw := ProfileMiddleware(resolver, zaptest.NewLogger(t))
	next := http.HandlerFunc(Me)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(platformauth.WithPrincipal(req.Context(), &platformauth.Principal{ID: "p1"}))
	mw(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"p1"`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(platformauth.WithPrincipal(req.Context(), &platformauth.Principal{ID: "ghost"}))
	mw(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, problems.Type("inconsistent-account"), decodeProblem(t, rec).Type)

	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code, "guests have no profile")
}
