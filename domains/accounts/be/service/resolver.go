package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

// ErrInconsistentAccount means a verified principal has no readable profile. Its sessions
// have been revoked and the client must authenticate again.
var ErrInconsistentAccount = errors.New("account has no profile")

// RetryPolicy bounds how long a missing profile is waited for after sign-up.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy waits up to three extra times, one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Delay: time.Second}
}

// Resolver maps a verified principal to its profile.
type Resolver struct {
	profiles   repo.Repository
	identities platformauth.IdentityProvider
	policy     RetryPolicy
	logger     *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(profiles repo.Repository, identities platformauth.IdentityProvider, policy RetryPolicy, logger *zap.Logger) *Resolver {
	if profiles == nil {
		panic("profile repository is required")
	}
	if identities == nil {
		panic("identity provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Resolver{profiles: profiles, identities: identities, policy: policy, logger: logger}
}

// Resolve returns the principal's profile. A profile still missing after 1+MaxRetries reads,
// or any read failure, revokes the principal's sessions and yields ErrInconsistentAccount.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (identity.Profile, error) {
	var cause error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		profile, err := r.profiles.Get(ctx, principalID)
		if err == nil {
			return profile, nil
		}
		cause = err
		if !errors.Is(err, repo.ErrNotFound) {
			break
		}
		if attempt == r.policy.MaxRetries {
			break
		}

		timer := time.NewTimer(r.policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return identity.Profile{}, ctx.Err()
		case <-timer.C:
		}
	}

	r.logger.Warn("terminating sessions of principal without profile",
		zap.String("principal_id", principalID), zap.Error(cause))
	if err := r.identities.RevokeSessions(ctx, principalID); err != nil {
		r.logger.Error("revoke sessions", zap.String("principal_id", principalID), zap.Error(err))
	}
	return identity.Profile{}, fmt.Errorf("%w: %v", ErrInconsistentAccount, cause)
}
