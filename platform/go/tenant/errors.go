package tenant

import "errors"

// Admission errors shared by the tenant registry and the tenant middleware.
var (
	ErrNotFound     = errors.New("tenant not found")
	ErrInactive     = errors.New("tenant is deactivated")
	ErrTrialExpired = errors.New("tenant trial has expired")
)
