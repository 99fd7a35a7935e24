// Package access decides whether a principal may enter an area of the storefront,
// and where to send it otherwise.
package access

import (
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

// Well-known navigation targets.
const (
	GuestHome      = "/"
	LoginPath      = "/login"
	CustomerHome   = "/profile"
	AdminHome      = "/dashboard"
	SuperAdminHome = "/superadmin"
)

// Decision is the outcome of a policy check. When Allowed is false RedirectTo is set.
// Continuation carries the originally requested location for post-login resume.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	RedirectTo   string `json:"redirectTo,omitempty"`
	Continuation string `json:"continuation,omitempty"`
}

// Allow grants entry.
func Allow() Decision { return Decision{Allowed: true} }

// RedirectTo denies entry and names the destination.
func RedirectTo(path string) Decision { return Decision{RedirectTo: path} }

// Policy is a pure function from an optional profile to a Decision.
// A nil profile means an unauthenticated guest.
type Policy interface {
	Name() string
	Decide(profile *identity.Profile, requested string) Decision
}

// HomeFor returns the landing page for a profile after login.
func HomeFor(profile *identity.Profile) string {
	if profile == nil {
		return GuestHome
	}
	switch profile.Role {
	case identity.RoleSuperAdmin:
		return SuperAdminHome
	case identity.RoleStoreAdmin:
		return AdminHome
	case identity.RoleCustomer:
		return CustomerHome
	default:
		return GuestHome
	}
}

type guestOnly struct{}

// GuestOnly admits only unauthenticated visitors (login, registration).
func GuestOnly() Policy { return guestOnly{} }

func (guestOnly) Name() string { return "guest" }

func (guestOnly) Decide(profile *identity.Profile, _ string) Decision {
	if profile == nil {
		return Allow()
	}
	switch profile.Role {
	case identity.RoleStoreAdmin, identity.RoleSuperAdmin:
		return RedirectTo(AdminHome)
	case identity.RoleCustomer:
		return RedirectTo(CustomerHome)
	default:
		return RedirectTo(GuestHome)
	}
}

type customerOnly struct{}

// CustomerOnly admits customers; guests are sent to login with a continuation.
func CustomerOnly() Policy { return customerOnly{} }

func (customerOnly) Name() string { return "customer" }

func (customerOnly) Decide(profile *identity.Profile, requested string) Decision {
	if profile == nil {
		return Decision{RedirectTo: LoginPath, Continuation: requested}
	}
	switch profile.Role {
	case identity.RoleCustomer:
		return Allow()
	case identity.RoleStoreAdmin, identity.RoleSuperAdmin:
		return RedirectTo(AdminHome)
	default:
		return RedirectTo(GuestHome)
	}
}

type adminOnly struct{}

// AdminOnly admits store admins and super admins.
func AdminOnly() Policy { return adminOnly{} }

func (adminOnly) Name() string { return "admin" }

func (adminOnly) Decide(profile *identity.Profile, _ string) Decision {
	if profile == nil {
		return RedirectTo(LoginPath)
	}
	switch profile.Role {
	case identity.RoleStoreAdmin, identity.RoleSuperAdmin:
		return Allow()
	case identity.RoleCustomer:
		return RedirectTo(CustomerHome)
	default:
		return RedirectTo(GuestHome)
	}
}

type superAdminOnly struct{}

// SuperAdminOnly admits the platform super admin; everyone else goes home.
func SuperAdminOnly() Policy { return superAdminOnly{} }

func (superAdminOnly) Name() string { return "superadmin" }

func (superAdminOnly) Decide(profile *identity.Profile, _ string) Decision {
	if profile == nil {
		return RedirectTo(GuestHome)
	}
	switch profile.Role {
	case identity.RoleSuperAdmin:
		return Allow()
	case identity.RoleCustomer, identity.RoleStoreAdmin:
		return RedirectTo(GuestHome)
	default:
		return RedirectTo(GuestHome)
	}
}

// ByName looks up a policy by the area name used in navigation queries.
func ByName(name string) (Policy, bool) {
	switch name {
	case "guest":
		return GuestOnly(), true
	case "customer":
		return CustomerOnly(), true
	case "admin":
		return AdminOnly(), true
	case "superadmin":
		return SuperAdminOnly(), true
	default:
		return nil, false
	}
}
