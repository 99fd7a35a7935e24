package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/problems"
)

// ValidateContract validates requests against doc. Requests for paths the document does not
// describe are passed through untouched, so several contracts can share one router.
// doc must already be matched against full request paths (see contracts.Rebase).
func ValidateContract(doc *openapi3.T) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build contract router: %w", err)
	}

	validator := oapimiddleware.OapiRequestValidatorWithOptions(doc, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			problemType := problems.TypeValidation
			title := "Validation failed"
			if statusCode == http.StatusUnauthorized {
				problemType, title = problems.TypeUnauthorized, "Unauthorized"
			}
			problems.Write(w, problems.New(title, message, problemType, statusCode, nil))
		},
	})

	return func(next http.Handler) http.Handler {
		validated := validator(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, _, err := router.FindRoute(r); err != nil {
				if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
					next.ServeHTTP(w, r)
					return
				}
			}
			validated.ServeHTTP(w, r)
		})
	}, nil
}
