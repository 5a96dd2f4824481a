package services

import (
	"errors"
	"fmt"

	apperrors "cardash/internal/errors"
)

var (
	// ErrDatasetUnavailable wraps any failure to load the transaction export
	ErrDatasetUnavailable = errors.New("transaction dataset unavailable")

	// ErrBrandNotFound is returned when a brand does not occur in the dataset
	ErrBrandNotFound = errors.New("brand not found")

	// ErrUnsupportedView is returned by Render for a View it cannot dispatch
	ErrUnsupportedView = errors.New("unsupported view")
)

// UnknownBrandError names the brand that was looked up. It matches
// ErrBrandNotFound with errors.Is.
type UnknownBrandError struct {
	Brand string
}

func (e *UnknownBrandError) Error() string {
	return fmt.Sprintf("%v: %q", ErrBrandNotFound, e.Brand)
}

func (e *UnknownBrandError) Is(target error) bool {
	return target == ErrBrandNotFound
}

// ToAPIError maps service failures onto their API error so handlers can
// pass the result straight to the error handler. Errors without a mapping
// are returned unchanged.
func ToAPIError(err error) error {
	var unknown *UnknownBrandError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDatasetUnavailable):
		return apperrors.DataUnavailableError(err)
	case errors.As(err, &unknown):
		return apperrors.BrandNotFoundError(unknown.Brand)
	case errors.Is(err, ErrBrandNotFound):
		return apperrors.ErrBrandNotFound
	case errors.Is(err, ErrUnsupportedView):
		return apperrors.ErrViewNotFound
	default:
		return err
	}
}
