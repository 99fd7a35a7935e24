package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	accountshandler "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/handler"
	accountsrepo "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	accountsservice "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/service"
	cartshandler "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/handler"
	cartsrepo "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/repo"
	cartsservice "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
	cataloghandler "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/handler"
	catalogrepo "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/repo"
	catalogservice "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/feed"
	ordershandler "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/handler"
	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/notify"
	ordersrepo "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/repo"
	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	reportshandler "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/handler"
	reportsservice "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/service"
	shippinghandler "github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/handler"
	shippingservice "github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/access"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/auth/devtoken"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/tenant/middleware"
)

const testSuperAdminSecret = "let-me-in"

// newTestAPI serves the full /api/v1 router over in-memory repositories with unsigned dev tokens.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New("storefront_test")

	identities := platformauth.NewMemoryIdentityProvider()
	profiles := accountsrepo.NewMemoryRepository()

	tenantService := tenantsservice.New(tenantsrepo.NewMemoryRepository(), nil, tenantsservice.Config{EnvKey: "test"})
	tenantCache := tenantmiddleware.NewCache(time.Minute)
	tenantService.OnChange(tenantCache.Invalidate)

	catalogService := catalogservice.New(catalogrepo.NewMemoryRepository())
	cartService := cartsservice.New(cartsrepo.NewMemoryStore(), catalogService, logger)

	resolver := accountsservice.NewResolver(profiles, identities, accountsservice.RetryPolicy{Delay: time.Millisecond}, logger)
	accountService := accountsservice.New(accountsservice.Deps{
		Profiles:   profiles,
		Identities: identities,
		Resolver:   resolver,
		Tenants:    tenantService,
		Pending:    cartService,
		Recorder:   m,
		Logger:     logger,
	}, accountsservice.Config{SuperAdminSecret: testSuperAdminSecret})

	broker := feed.NewMemory()
	orderService := ordersservice.New(ordersservice.Deps{
		Orders:    ordersrepo.NewMemoryRepository(),
		Carts:     cartService,
		Stores:    tenantService,
		Notifier:  notify.NewLogNotifier(logger),
		Publisher: broker,
		Recorder:  m,
		Logger:    logger,
	})

	api := newAPIRouter(apiDeps{
		Logger:         logger,
		JWT:            platformauth.JWT(platformauth.UnsignedTokenVerifier(), platformauth.DefaultPrincipalExtractor),
		Validate:       mustContractValidators(logger, "auth", "carts", "orders", "shipping", "reports"),
		RequestTimeout: 5 * time.Second,
		Profiles:       resolver,
		Spaces:         tenantService,
		SpaceCache:     tenantCache,
		EnvKey:         "test",
		Accounts:       accountshandler.New(accountService, logger),
		Tenants:        tenantshandler.New(tenantService, logger),
		Catalog:        cataloghandler.New(catalogService, tenantService, logger),
		Carts:          cartshandler.New(cartService, logger),
		Orders:         ordershandler.New(orderService, broker, logger),
		Reports:        reportshandler.New(reportsservice.New(orderService, time.UTC), logger),
		Shipping:       shippinghandler.New(shippingservice.New(nil, tenantService, logger), logger),
	})

	root := chi.NewRouter()
	root.Mount("/api/v1", api)
	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)
	return srv
}

type apiCall struct {
	method  string
	path    string
	token   string
	session string
	body    any
}

func do(t *testing.T, srv *httptest.Server, c apiCall) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(c.method, srv.URL+c.path, reader)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(platformmiddleware.CartSessionHeader, c.session)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// signUp registers through the API and returns a dev token for the new principal.
func signUp(t *testing.T, srv *httptest.Server, body map[string]string) (string, string) {
	t.Helper()
	resp, raw := do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/auth/register", body: body})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var profile struct {
		ID       string  `json:"id"`
		TenantID *string `json:"tenantId"`
	}
	require.NoError(t, json.Unmarshal(raw, &profile))
	require.NotEmpty(t, profile.ID)

	token, err := devtoken.BuildUnsignedFirebaseToken(devtoken.Params{
		ProjectID: "storefront-test",
		UserID:    profile.ID,
		Email:     body["email"],
	}, time.Now())
	require.NoError(t, err)
	return profile.ID, token
}

type sessionBody struct {
	RedirectTo     string `json:"redirectTo"`
	PendingApplied bool   `json:"pendingApplied"`
}

type cartBody struct {
	Lines []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
}

func TestPendingItemIsAppliedOnceAcrossSessions(t *testing.T) {
	t.Parallel()
	srv := newTestAPI(t)

	_, adminToken := signUp(t, srv, map[string]string{
		"email":           "owner@kopi.test",
		"password":        "secret123",
		"role":            "storeAdmin",
		"storeName":       "Kopi Kita",
		"whatsappContact": "6281234567890",
	})
	resp, raw := do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/admin/products", token: adminToken, body: map[string]any{
		"name": "Kopi Susu", "price": 25000, "stock": 5, "weight": 250,
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var product struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &product))

	const cartSession = "guest-session-1"
	resp, raw = do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/carts/pending", session: cartSession, body: map[string]string{
		"productId": product.ID,
	}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	_, customerToken := signUp(t, srv, map[string]string{"email": "buyer@kopi.test", "password": "secret123"})

	resp, raw = do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/auth/session", token: customerToken, session: cartSession, body: map[string]string{}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var first sessionBody
	require.NoError(t, json.Unmarshal(raw, &first))
	require.True(t, first.PendingApplied)
	require.Equal(t, access.CustomerHome, first.RedirectTo)

	resp, raw = do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/auth/session", token: customerToken, session: cartSession, body: map[string]string{}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var second sessionBody
	require.NoError(t, json.Unmarshal(raw, &second))
	require.False(t, second.PendingApplied)

	resp, raw = do(t, srv, apiCall{method: http.MethodGet, path: "/api/v1/carts/current", token: customerToken, session: cartSession})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var cart cartBody
	require.NoError(t, json.Unmarshal(raw, &cart))
	require.Len(t, cart.Lines, 1)
	require.Equal(t, product.ID, cart.Lines[0].ProductID)
	require.Equal(t, 1, cart.Lines[0].Quantity)

	resp, raw = do(t, srv, apiCall{method: http.MethodPost, path: "/api/v1/orders/checkout", token: customerToken, session: cartSession})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, srv, apiCall{method: http.MethodGet, path: "/api/v1/admin/orders", token: adminToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var orders struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &orders))
	require.Len(t, orders.Items, 1)
}

func TestAPIRouterGatesEachArea(t *testing.T) {
	t.Parallel()
	srv := newTestAPI(t)

	_, customerToken := signUp(t, srv, map[string]string{"email": "buyer@kopi.test", "password": "secret123"})
	_, adminToken := signUp(t, srv, map[string]string{
		"email":           "owner@kopi.test",
		"password":        "secret123",
		"role":            "storeAdmin",
		"storeName":       "Kopi Kita",
		"whatsappContact": "6281234567890",
	})
	_, superToken := signUp(t, srv, map[string]string{
		"email":            "root@kopi.test",
		"password":         "secret123",
		"role":             "superAdmin",
		"superAdminSecret": testSuperAdminSecret,
	})

	tests := []struct {
		name     string
		call     apiCall
		status   int
		location string
	}{
		{name: "guest reads navigation", call: apiCall{method: http.MethodGet, path: "/api/v1/navigation?area=guest"}, status: http.StatusOK},
		{name: "guest sent to login from cart", call: apiCall{method: http.MethodGet, path: "/api/v1/carts/current"}, status: http.StatusSeeOther, location: access.LoginPath},
		{name: "customer reads own orders", call: apiCall{method: http.MethodGet, path: "/api/v1/orders", token: customerToken}, status: http.StatusOK},
		{name: "customer kept out of admin", call: apiCall{method: http.MethodGet, path: "/api/v1/admin/store", token: customerToken}, status: http.StatusSeeOther, location: access.CustomerHome},
		{name: "signed-in customer cannot stage pending", call: apiCall{method: http.MethodPost, path: "/api/v1/carts/pending", token: customerToken, body: map[string]string{"productId": "x"}}, status: http.StatusSeeOther, location: access.CustomerHome},
		{name: "store admin reads own store", call: apiCall{method: http.MethodGet, path: "/api/v1/admin/store", token: adminToken}, status: http.StatusOK},
		{name: "store admin kept out of superadmin", call: apiCall{method: http.MethodGet, path: "/api/v1/superadmin/stores", token: adminToken}, status: http.StatusSeeOther, location: access.GuestHome},
		{name: "super admin lists stores", call: apiCall{method: http.MethodGet, path: "/api/v1/superadmin/stores", token: superToken}, status: http.StatusOK},
		{name: "malformed token rejected", call: apiCall{method: http.MethodGet, path: "/api/v1/me", token: "not-a-token"}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := do(t, srv, tt.call)
			require.Equal(t, tt.status, resp.StatusCode, string(raw))
			if tt.location != "" {
				require.Equal(t, tt.location, resp.Header.Get("Location"))
			}
		})
	}
}
