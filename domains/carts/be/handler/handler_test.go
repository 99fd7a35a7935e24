package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	cartsrepo "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/repo"
	"github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
	catalogrepo "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/repo"
	catalogservice "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/access"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
)

type fixture struct {
	router  chi.Router
	catalog *catalogservice.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog := catalogservice.New(catalogrepo.NewMemoryRepository())
	svc := service.New(cartsrepo.NewMemoryStore(), catalog, zaptest.NewLogger(t))
	h := New(svc, zaptest.NewLogger(t))
	r := chi.NewRouter()
	h.Routes(r)
	h.GuestRoutes(r)
	return fixture{router: r, catalog: catalog}
}

func (f fixture) product(t *testing.T, tenantID string) string {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), tenantID, catalogservice.Input{Name: "Item " + tenantID, Price: 1500, Stock: 2})
	require.NoError(t, err)
	return p.ID.String()
}

func (f fixture) do(t *testing.T, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if session != "" {
		req.Header.Set(platformmiddleware.CartSessionHeader, session)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSessionIsMintedAndEchoed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/carts/current", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(platformmiddleware.CartSessionHeader))

	rec = f.do(t, http.MethodGet, "/carts/current", "abc", "")
	require.Equal(t, "abc", rec.Header().Get(platformmiddleware.CartSessionHeader))
	require.JSONEq(t, `{"lines":[],"count":0,"total":0}`, rec.Body.String())
}

func TestCartLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.product(t, "t1")

	rec := f.do(t, http.MethodPost, "/carts/current/items", "s", `{"productId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/carts/current/items/"+id, "s", `{"quantity":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Equal(t, int64(6000), cart.Total)
	require.Equal(t, 4, cart.Count)

	rec = f.do(t, http.MethodDelete, "/carts/current", "s", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Empty(t, cart.Lines)
	require.Equal(t, "t1", cart.BoundTenantID)
}

func TestCrossTenantAddIsRuleViolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/carts/current/items", "s", `{"productId":"`+f.product(t, "t1")+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/carts/current/items", "s", `{"productId":"`+f.product(t, "t2")+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "same-tenant-only")
}

func TestNavigateRequiresConfirmation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.do(t, http.MethodPost, "/carts/current/items", "s", `{"productId":"`+f.product(t, "t1")+`"}`)

	rec := f.do(t, http.MethodPost, "/carts/current/navigate", "s", `{"tenantId":"t2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp navigateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, service.NavigationCancelled, resp.Outcome)
	require.True(t, resp.ConfirmationRequired)
	require.Len(t, resp.Cart.Lines, 1)

	rec = f.do(t, http.MethodPost, "/carts/current/navigate", "s", `{"tenantId":"t2","confirm":true}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, service.NavigationCleared, resp.Outcome)
	require.Empty(t, resp.Cart.Lines)
}

func TestStagePendingPointsToLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/carts/pending", "guest", `{"productId":"`+f.product(t, "t9")+`"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var decision access.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	require.Equal(t, access.LoginPath, decision.RedirectTo)
	require.Equal(t, "/stores/t9", decision.Continuation)

	rec = f.do(t, http.MethodGet, "/carts/current", "guest", "")
	require.JSONEq(t, `{"lines":[],"count":0,"total":0}`, rec.Body.String())
}

func TestUnknownProductIsNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/carts/current/items", "s", `{"productId":"00000000-0000-0000-0000-000000000001"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
