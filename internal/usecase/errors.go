package usecase

import (
	"context"
	"errors"
	"net/http"

	domrepo "PriceTrack/internal/domain/repository"
	"PriceTrack/internal/services/analytics"
	"PriceTrack/internal/services/dataset"
	"PriceTrack/internal/services/forecast"
	xhttp "PriceTrack/pkg/http"
)

// MapError translates domain errors into HTTP application errors. Unknown
// errors pass through and render as 500.
func MapError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError("resource not found").WithError(err)
	case errors.Is(err, domrepo.ErrConflict):
		return xhttp.ConflictError("product is already tracked").WithError(err)
	case errors.Is(err, forecast.ErrInsufficientData):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, forecast.ErrModelNotReady):
		return xhttp.ConflictError("model not ready").WithError(err)
	case errors.Is(err, forecast.ErrDegenerateScale), errors.Is(err, forecast.ErrInvalidModelOutput):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, analytics.ErrRateLimited):
		return xhttp.TooManyRequestsError(analytics.ErrRateLimited.Error()).WithError(err)
	case errors.Is(err, analytics.ErrPaymentRequired):
		return xhttp.PaymentRequiredError(analytics.ErrPaymentRequired.Error()).WithError(err)
	case errors.Is(err, analytics.ErrNotConfigured):
		return xhttp.InternalError(analytics.ErrNotConfigured.Error()).WithError(err)
	case errors.Is(err, analytics.ErrGateway),
		errors.Is(err, analytics.ErrInvalidResult),
		errors.Is(err, analytics.ErrClassifierOffline):
		return xhttp.BadGatewayError(rootMessage(err)).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "upstream timed out", http.StatusGatewayTimeout).WithError(err)
	}
	return err
}

func rootMessage(err error) string {
	for _, s := range []error{analytics.ErrGateway, analytics.ErrInvalidResult, analytics.ErrClassifierOffline} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
