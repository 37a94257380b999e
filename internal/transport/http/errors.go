package http

import (
	"errors"

	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/services"
)

// mapServiceError translates pipeline sentinels into API errors. Anything
// else is passed through for the error handler to classify.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoDataSource):
		return apierrors.ErrNoDataSource.Wrap(err)
	case errors.Is(err, services.ErrSessionNotFound):
		return apierrors.ErrSessionNotFound.Wrap(err)
	case errors.Is(err, services.ErrEmptyResult):
		return apierrors.ErrNoDataForFilters.Wrap(err)
	case errors.Is(err, services.ErrMalformedInput):
		return apierrors.MalformedInput(err)
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.ErrValidation("format", err.Error())
	default:
		return err
	}
}
