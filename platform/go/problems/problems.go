package problems

import (
	"encoding/json"
	"net/http"
)

const typeBase = "https://palmyra.pro/problems/"

// Common problem types shared by every domain handler.
const (
	TypeValidation   = typeBase + "validation-error"
	TypeNotFound     = typeBase + "not-found"
	TypeConflict     = typeBase + "conflict"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeForbidden    = typeBase + "forbidden"
	TypeUnavailable  = typeBase + "service-unavailable"
	TypeInternal     = typeBase + "internal-error"
)

// Type builds a domain-specific problem type URI from a slug, e.g. Type("trial-expired").
func Type(slug string) string {
	return typeBase + slug
}

// ProblemDetails is the RFC 7807 payload returned for every failed request.
type ProblemDetails struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// New builds a ProblemDetails value.
func New(title, detail, problemType string, status int, errs map[string][]string) ProblemDetails {
	return ProblemDetails{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Errors: errs,
	}
}

// Write renders the problem with the application/problem+json media type.
func Write(w http.ResponseWriter, p ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest is a shorthand for malformed input that never reached a service.
func BadRequest(w http.ResponseWriter, detail string) {
	Write(w, New("Invalid request", detail, TypeValidation, http.StatusBadRequest, nil))
}

// Internal writes a generic 500 without leaking the cause.
func Internal(w http.ResponseWriter) {
	Write(w, New("Internal error", "internal error", TypeInternal, http.StatusInternalServerError, nil))
}
