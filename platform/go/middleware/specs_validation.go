package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
)

// ValidateAuthenticationViaSwagger satisfies the security requirements declared in the contracts.
// Token verification itself happens in the JWT middleware; this only checks presence.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}

	switch input.SecuritySchemeName {
	case "bearerAuth":
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fmt.Errorf("missing or invalid Authorization header")
		}
	case "cartSession":
		if strings.TrimSpace(r.Header.Get(CartSessionHeader)) == "" {
			return fmt.Errorf("missing %s header", CartSessionHeader)
		}
	}
	return nil
}
