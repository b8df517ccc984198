package registry

import "errors"

var (
	// ErrNotFound indicates a lookup against a missing subdomain name
	ErrNotFound = errors.New("subdomain not found")

	// ErrConflict indicates a uniqueness violation detected by the storage
	// layer, beneath the lifecycle-level duplicate check
	ErrConflict = errors.New("subdomain name already exists")

	// ErrNoFields indicates an update whose allowed field set is empty
	ErrNoFields = errors.New("no updatable fields provided")
)
