package lifecycle

import (
	"errors"

	"subdns/internal/registry"
)

var (
	// ErrInvalidName indicates a name failing DNS label syntax or length
	ErrInvalidName = errors.New("invalid subdomain name")

	// ErrAlreadyExists indicates a duplicate registration attempt
	ErrAlreadyExists = errors.New("subdomain already registered")

	// ErrNotFound mirrors the registry sentinel for callers that only
	// import this package
	ErrNotFound = registry.ErrNotFound
)
