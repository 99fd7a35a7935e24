package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/service"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

// ProfileResolver maps a verified principal to its profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, principalID string) (identity.Profile, error)
}

// ProfileMiddleware attaches the caller's profile after token verification. Guests pass
// through without one.
func ProfileMiddleware(resolver ProfileResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("profile resolver is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := platformauth.PrincipalFromContext(r.Context())
			if !ok || principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			profile, err := resolver.Resolve(r.Context(), principal.ID)
			if err != nil {
				if errors.Is(err, service.ErrInconsistentAccount) {
					writeInconsistent(w)
					return
				}
				platformlogging.FromRequest(r, logger).Error("resolve profile", zap.Error(err))
				problems.Internal(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithProfile(r.Context(), profile)))
		})
	}
}
