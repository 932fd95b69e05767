package forecast

import "fmt"

// Example is one training pair: a window of normalized prices and the
// normalized price that immediately follows it.
type Example struct {
	Window []float64
	Target float64
}

// ChooseLookback shrinks the window for small datasets instead of failing.
// Callers enforce n >= MinTrainingPrices.
func ChooseLookback(n int) int {
	return min(MaxLookback, n/3)
}

// FrameSequences slides a lookback-wide window over normalized and returns
// len(normalized)-lookback examples in time order. Windows share no memory
// with the input.
func FrameSequences(normalized []float64, lookback int) ([]Example, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}
	if len(normalized) <= lookback {
		return nil, fmt.Errorf("%w: %d prices cannot frame a window of %d", ErrInsufficientData, len(normalized), lookback)
	}

	out := make([]Example, 0, len(normalized)-lookback)
	for i := lookback; i < len(normalized); i++ {
		w := make([]float64, lookback)
		copy(w, normalized[i-lookback:i])
		out = append(out, Example{Window: w, Target: normalized[i]})
	}
	return out, nil
}
