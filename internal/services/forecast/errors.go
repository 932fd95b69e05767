package forecast

import "errors"

var (
	// ErrInsufficientData is returned when there are too few prices to train
	// on, or the seed window is shorter than the trained lookback.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelNotReady is returned when a forecast is requested before a
	// training run has completed.
	ErrModelNotReady = errors.New("model not ready")

	// ErrDegenerateScale is returned for scales that cannot map prices onto
	// [0,1]: non-finite bounds or max < min.
	ErrDegenerateScale = errors.New("degenerate scale")

	// ErrInvalidModelOutput is returned when a model does not answer with a
	// single finite scalar.
	ErrInvalidModelOutput = errors.New("invalid model output")
)

// MinTrainingPrices is the smallest usable history a model can be trained on.
const MinTrainingPrices = 10

// MaxLookback caps the window width regardless of history length.
const MaxLookback = 7
