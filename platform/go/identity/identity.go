package identity

import (
	"context"
	"fmt"
	"time"
)

// Role is the closed set of principal roles. A principal holds exactly one role for its lifetime.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleStoreAdmin Role = "storeAdmin"
	RoleSuperAdmin Role = "superAdmin"
)

// ParseRole converts a stored or submitted role name into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleCustomer, RoleStoreAdmin, RoleSuperAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether the role may enter the admin area.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleStoreAdmin, RoleSuperAdmin:
		return true
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// Profile is the role-tagged record of a principal.
// TenantID is set only for store admins.
type Profile struct {
	ID        string
	Email     string
	Role      Role
	TenantID  *string
	CreatedAt time.Time
}

// Tenant returns the owned tenant id, or "" for roles without one.
func (p Profile) Tenant() string {
	if p.TenantID == nil {
		return ""
	}
	return *p.TenantID
}

type ctxKey string

const profileKey ctxKey = "PALMYRA_PROFILE"

// WithProfile stores the resolved profile on the context.
func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// FromContext returns the resolved profile, if any. Guests have none.
func FromContext(ctx context.Context) (*Profile, bool) {
	p, ok := ctx.Value(profileKey).(Profile)
	if !ok {
		return nil, false
	}
	return &p, true
}
