package repo

import (
	"context"
	"errors"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

// Errors returned by profile repositories.
var (
	ErrNotFound = errors.New("profile not found")
	ErrConflict = errors.New("profile already exists")
)

// Repository stores role-tagged profiles keyed by principal id. Profiles are immutable
// once written: the role never changes after registration.
type Repository interface {
	Create(ctx context.Context, p identity.Profile) (identity.Profile, error)
	Get(ctx context.Context, id string) (identity.Profile, error)
}
