package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

// Resolver loads a tenant Space and enforces admissibility (inactive, expired trial).
// Implemented by the tenant registry service.
type Resolver interface {
	ResolveTenantSpace(ctx context.Context, tenantID string) (tenant.Space, error)
}

// Config controls middleware behavior.
type Config struct {
	EnvKey string
	// Cache is optional; nil disables caching.
	Cache *Cache
}

// WithTenantSpace attaches the store admin's tenant Space to the context.
// Super admins pass through without a Space. Other roles never reach admin routes.
func WithTenantSpace(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	if cfg.EnvKey == "" {
		panic("tenant middleware: envKey is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := identity.FromContext(r.Context())
			if !ok {
				problems.Write(w, problems.New("Unauthorized", "profile required", problems.TypeUnauthorized, http.StatusUnauthorized, nil))
				return
			}
			if profile.Role != identity.RoleStoreAdmin {
				next.ServeHTTP(w, r)
				return
			}

			tenantID := profile.Tenant()
			if tenantID == "" {
				problems.Write(w, problems.New("Forbidden", "store admin without tenant", problems.TypeForbidden, http.StatusForbidden, nil))
				return
			}

			if space, ok := cfg.Cache.get(tenantID); ok {
				next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), space)))
				return
			}

			space, err := resolver.ResolveTenantSpace(r.Context(), tenantID)
			if err != nil {
				writeAdmissionProblem(w, r, err)
				return
			}

			if !strings.HasPrefix(space.BasePrefix, cfg.EnvKey+"/") {
				problems.Write(w, problems.New("Forbidden", "tenant env mismatch", problems.TypeForbidden, http.StatusForbidden, nil))
				return
			}

			cfg.Cache.put(space)
			next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), space)))
		})
	}
}

func writeAdmissionProblem(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrInactive):
		problems.Write(w, problems.New("Store deactivated", err.Error(), problems.Type("tenant-inactive"), http.StatusForbidden, nil))
	case errors.Is(err, tenant.ErrTrialExpired):
		problems.Write(w, problems.New("Trial expired", err.Error(), problems.Type("trial-expired"), http.StatusForbidden, nil))
	case errors.Is(err, tenant.ErrNotFound):
		problems.Write(w, problems.New("Store missing", err.Error(), problems.Type("tenant-missing"), http.StatusForbidden, nil))
	default:
		if logger := platformlogging.FromRequest(r, nil); logger != nil {
			logger.Error("resolve tenant space", zap.Error(err))
		}
		problems.Internal(w)
	}
}

// Cache is a small TTL cache of admitted tenant spaces.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

// NewCache returns a cache; ttl <= 0 returns nil, which disables caching.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{ttl: ttl, now: time.Now, items: make(map[string]cacheItem)}
}

// Invalidate drops a tenant so its next request re-checks admissibility.
func (c *Cache) Invalidate(tenantID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, tenantID)
	c.mu.Unlock()
}

func (c *Cache) get(id string) (tenant.Space, bool) {
	if c == nil {
		return tenant.Space{}, false
	}
	c.mu.RLock()
	item, ok := c.items[id]
	c.mu.RUnlock()
	if !ok || c.now().After(item.expiresAt) {
		return tenant.Space{}, false
	}
	return item.space, true
}

func (c *Cache) put(space tenant.Space) {
	if c == nil {
		return
	}
	// A trial ending inside the TTL bounds the entry.
	expiresAt := c.now().Add(c.ttl)
	if space.ExpiresAt != nil && space.ExpiresAt.Before(expiresAt) {
		expiresAt = *space.ExpiresAt
	}
	c.mu.Lock()
	c.items[space.TenantID] = cacheItem{space: space, expiresAt: expiresAt}
	c.mu.Unlock()
}
