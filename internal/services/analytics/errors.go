package analytics

import "errors"

var (
	ErrRateLimited       = errors.New("Rate limit exceeded. Please try again later.")
	ErrPaymentRequired   = errors.New("Payment required. Please add credits to continue.")
	ErrGateway           = errors.New("AI gateway error")
	ErrNotConfigured     = errors.New("AI gateway api key is not configured")
	ErrInvalidResult     = errors.New("invalid result from model")
	ErrClassifierOffline = errors.New("sentiment classifier unavailable")
)
