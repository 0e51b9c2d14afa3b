package registry

import "errors"

var (
	// ErrNotFound covers both "does not exist" and "exists but the caller
	// cannot access it"; the two must be indistinguishable across tenants.
	ErrNotFound = errors.New("registry: not found")

	ErrConflict     = errors.New("registry: resource conflict")
	ErrInvalidInput = errors.New("registry: invalid input")
	ErrForbidden    = errors.New("registry: forbidden")
)
