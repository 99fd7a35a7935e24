package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

type resolverFunc func(ctx context.Context, id string) (tenant.Space, error)

func (f resolverFunc) ResolveTenantSpace(ctx context.Context, id string) (tenant.Space, error) {
	return f(ctx, id)
}

func serve(t *testing.T, h http.Handler, profile *identity.Profile) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	if profile != nil {
		req = req.WithContext(identity.WithProfile(req.Context(), *profile))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func storeAdmin(id string) *identity.Profile {
	return &identity.Profile{ID: id, Role: identity.RoleStoreAdmin, TenantID: &id}
}

func TestWithTenantSpaceAttachesSpace(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	resolver := resolverFunc(func(ctx context.Context, id string) (tenant.Space, error) {
		calls.Add(1)
		return tenant.Space{TenantID: id, BasePrefix: tenant.BuildBasePrefix("dev", id)}, nil
	})

	var seen string
	h := WithTenantSpace(resolver, Config{EnvKey: "dev", Cache: NewCache(time.Minute)})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		space, ok := tenant.FromContext(r.Context())
		require.True(t, ok)
		seen = space.TenantID
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, serve(t, h, storeAdmin("store-1")).Code)
	require.Equal(t, "store-1", seen)
	require.Equal(t, http.StatusOK, serve(t, h, storeAdmin("store-1")).Code)
	require.Equal(t, int32(1), calls.Load())
}

func TestWithTenantSpaceDeniesInadmissible(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"inactive": tenant.ErrInactive,
		"expired":  tenant.ErrTrialExpired,
		"missing":  tenant.ErrNotFound,
	}
	for name, resolveErr := range cases {
		resolveErr := resolveErr
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resolver := resolverFunc(func(ctx context.Context, id string) (tenant.Space, error) {
				return tenant.Space{}, resolveErr
			})
			h := WithTenantSpace(resolver, Config{EnvKey: "dev"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			require.Equal(t, http.StatusForbidden, serve(t, h, storeAdmin("store-1")).Code)
		})
	}
}

func TestWithTenantSpaceEnvMismatch(t *testing.T) {
	t.Parallel()

	resolver := resolverFunc(func(ctx context.Context, id string) (tenant.Space, error) {
		return tenant.Space{TenantID: id, BasePrefix: "prod/" + id + "/"}, nil
	})
	h := WithTenantSpace(resolver, Config{EnvKey: "dev"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.Equal(t, http.StatusForbidden, serve(t, h, storeAdmin("store-1")).Code)
}

func TestWithTenantSpaceSuperAdminPassesThrough(t *testing.T) {
	t.Parallel()

	resolver := resolverFunc(func(ctx context.Context, id string) (tenant.Space, error) {
		t.Fatal("resolver must not be called")
		return tenant.Space{}, nil
	})
	h := WithTenantSpace(resolver, Config{EnvKey: "dev"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := tenant.FromContext(r.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, serve(t, h, &identity.Profile{ID: "root", Role: identity.RoleSuperAdmin}).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, h, nil).Code)
}

func TestCacheExpiryAndInvalidate(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.put(tenant.Space{TenantID: "a"})
	_, ok := c.get("a")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("a")
	require.False(t, ok)

	c.put(tenant.Space{TenantID: "a"})
	c.Invalidate("a")
	_, ok = c.get("a")
	require.False(t, ok)

	require.Nil(t, NewCache(0))
	var nilCache *Cache
	nilCache.Invalidate("a")
}

func TestCacheStopsAtTrialExpiry(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	trialEnds := now.Add(10 * time.Minute)
	c.put(tenant.Space{TenantID: "a", ExpiresAt: &trialEnds})
	_, ok := c.get("a")
	require.True(t, ok)

	now = trialEnds.Add(time.Second)
	_, ok = c.get("a")
	require.False(t, ok, "a lapsed trial must be re-resolved")

	later := now.Add(48 * time.Hour)
	c.put(tenant.Space{TenantID: "b", ExpiresAt: &later})
	now = now.Add(time.Hour + time.Second)
	_, ok = c.get("b")
	require.False(t, ok, "the TTL still applies to long trials")
}

func TestWithTenantSpaceRechecksAfterTrialLapses(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	now := start
	trialEnds := start.Add(5 * time.Minute)

	var calls atomic.Int32
	resolver := resolverFunc(func(ctx context.Context, id string) (tenant.Space, error) {
		calls.Add(1)
		if now.After(trialEnds) {
			return tenant.Space{}, tenant.ErrTrialExpired
		}
		return tenant.Space{TenantID: id, BasePrefix: tenant.BuildBasePrefix("dev", id), ExpiresAt: &trialEnds}, nil
	})

	cache := NewCache(time.Hour)
	cache.now = func() time.Time { return now }
	h := WithTenantSpace(resolver, Config{EnvKey: "dev", Cache: cache})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, serve(t, h, storeAdmin("store-1")).Code)
	now = start.Add(time.Minute)
	require.Equal(t, http.StatusOK, serve(t, h, storeAdmin("store-1")).Code)
	require.Equal(t, int32(1), calls.Load())

	now = trialEnds.Add(time.Second)
	require.Equal(t, http.StatusForbidden, serve(t, h, storeAdmin("store-1")).Code)
	require.Equal(t, int32(2), calls.Load())
}
