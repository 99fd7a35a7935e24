package tenant

import (
	"context"
	"time"
)

// Space captures the resolved tenant routing metadata for a request. The tenant middleware
// attaches it once a store admin's tenant has been resolved and admitted.
type Space struct {
	TenantID   string
	Name       string
	Status     string
	BasePrefix string
	// ExpiresAt is the end of a trial; nil when admission does not lapse on its own.
	ExpiresAt *time.Time
}

type ctxKey string

const spaceKey ctxKey = "PALMYRA_TENANT_SPACE"

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	space, ok := ctx.Value(spaceKey).(Space)
	return space, ok
}
