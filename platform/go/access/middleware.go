package access

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/httpjson"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

// Require gates a route group behind a policy. Denials are answered with 303 and a Location
// header; the JSON body repeats the decision for API clients.
func Require(policy Policy) func(http.Handler) http.Handler {
	if policy == nil {
		panic("access.Require: policy is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, _ := identity.FromContext(r.Context())
			decision := policy.Decide(profile, r.URL.RequestURI())
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if logger := platformlogging.FromRequest(r, nil); logger != nil {
				logger.Debug("access redirected",
					zap.String("policy", policy.Name()),
					zap.String("redirect_to", decision.RedirectTo),
				)
			}

			w.Header().Set("Location", decision.RedirectTo)
			httpjson.Write(w, http.StatusSeeOther, decision)
		})
	}
}

// NavigationHandler answers GET ?area=<name>&path=<requested> with the decision,
// for clients that perform routing themselves.
func NavigationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policy, ok := ByName(r.URL.Query().Get("area"))
		if !ok {
			problems.BadRequest(w, "area must be one of guest, customer, admin, superadmin")
			return
		}
		profile, _ := identity.FromContext(r.Context())
		httpjson.Write(w, http.StatusOK, policy.Decide(profile, r.URL.Query().Get("path")))
	}
}
