package forecast

import (
	"context"
	"fmt"
	"math"
)

// Model maps a lookback-wide window of normalized prices to the next
// normalized price. Implementations must return exactly one value and
// must not modify window.
type Model interface {
	Predict(ctx context.Context, window []float64) ([]float64, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(ctx context.Context, window []float64) ([]float64, error)

// Predict calls f.
func (f ModelFunc) Predict(ctx context.Context, window []float64) ([]float64, error) {
	return f(ctx, window)
}

// Trained bundles everything one training run produced. The lookback is
// carried here so inference never re-derives it from the seed length.
type Trained struct {
	Model    Model
	Scale    Scale
	Lookback int
}

// Forecast runs the model autoregressively with the trained scale and lookback.
func (t *Trained) Forecast(ctx context.Context, recent []float64, daysAhead int) ([]float64, error) {
	if t == nil {
		return nil, ErrModelNotReady
	}
	return Forecast(ctx, t.Model, t.Scale, t.Lookback, recent, daysAhead)
}

// Forecast produces daysAhead denormalized predictions. Each step feeds the
// normalized prediction back into the window, so steps run strictly in order.
func Forecast(ctx context.Context, model Model, scale Scale, lookback int, recent []float64, daysAhead int) ([]float64, error) {
	if model == nil {
		return nil, ErrModelNotReady
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: lookback %d", ErrModelNotReady, lookback)
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	if len(recent) < lookback {
		return nil, fmt.Errorf("%w: need %d recent prices, got %d", ErrInsufficientData, lookback, len(recent))
	}
	if daysAhead <= 0 {
		return []float64{}, nil
	}

	buf := make([]float64, 0, lookback+daysAhead)
	buf = append(buf, scale.Normalize(recent[len(recent)-lookback:])...)

	out := make([]float64, 0, daysAhead)
	for step := 0; step < daysAhead; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := buf[len(buf)-lookback:]
		pred, err := model.Predict(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("predict step %d: %w", step+1, err)
		}
		if len(pred) != 1 {
			return nil, fmt.Errorf("%w: step %d returned %d values", ErrInvalidModelOutput, step+1, len(pred))
		}
		v := pred[0]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: step %d returned %v", ErrInvalidModelOutput, step+1, v)
		}
		out = append(out, scale.Denormalize(v))
		buf = append(buf, v)
	}
	return out, nil
}
