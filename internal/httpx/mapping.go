package httpx

import (
	"errors"

	"subdns/internal/certprov"
	"subdns/internal/certstore"
	"subdns/internal/lifecycle"
	"subdns/internal/registry"
)

// FromError translates lifecycle/registry/certificate error kinds into the
// boundary's status codes. Unknown errors map to a generic internal error
// with the cause kept for logging only.
func FromError(err error) *AppError {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidName):
		return ErrInvalidName(err.Error())
	case errors.Is(err, lifecycle.ErrAlreadyExists):
		return ErrAlreadyExists(err.Error())
	case errors.Is(err, registry.ErrNotFound):
		return ErrNotFound("")
	case errors.Is(err, certstore.ErrNotFound):
		return ErrNotFound("certificate not found")
	case errors.Is(err, registry.ErrNoFields):
		return ErrParamMissing(err.Error())
	case errors.Is(err, registry.ErrConflict):
		return ErrConflict(err.Error(), nil)
	case errors.Is(err, certprov.ErrIssuance):
		return ErrIssuanceError("", err)
	case errors.Is(err, certstore.ErrStorage):
		return ErrStorageError("", err)
	default:
		return ErrInternalError("", err)
	}
}
