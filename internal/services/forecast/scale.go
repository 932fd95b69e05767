package forecast

import (
	"fmt"
	"math"
)

// degenerateValue is what every price maps to when the history is constant.
const degenerateValue = 0.5

// Scale holds the min/max pair of one training run. It must be reused,
// unmodified, for every normalize/denormalize call tied to that run.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ComputeScale returns the min/max of prices.
func ComputeScale(prices []float64) (Scale, error) {
	if len(prices) == 0 {
		return Scale{}, fmt.Errorf("%w: no prices to scale", ErrInsufficientData)
	}
	s := Scale{Min: math.Inf(1), Max: math.Inf(-1)}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Scale{}, fmt.Errorf("%w: price %d is not finite", ErrDegenerateScale, i)
		}
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
	}
	return s, nil
}

// Validate rejects scales that would produce NaN or Inf.
func (s Scale) Validate() error {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return fmt.Errorf("%w: bounds must be finite", ErrDegenerateScale)
	}
	if s.Max < s.Min {
		return fmt.Errorf("%w: max %v below min %v", ErrDegenerateScale, s.Max, s.Min)
	}
	return nil
}

// Flat reports whether every training price was identical.
func (s Scale) Flat() bool { return s.Max == s.Min }

// NormalizeValue maps v onto the [0,1] range of the training set.
// A flat scale maps everything to 0.5.
func (s Scale) NormalizeValue(v float64) float64 {
	if s.Flat() {
		return degenerateValue
	}
	return (v - s.Min) / (s.Max - s.Min)
}

// Normalize maps every price with NormalizeValue into a new slice.
func (s Scale) Normalize(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = s.NormalizeValue(p)
	}
	return out
}

// Denormalize is the left inverse of NormalizeValue. A flat scale has
// range zero, so the constant price comes back for any v.
func (s Scale) Denormalize(v float64) float64 {
	return v*(s.Max-s.Min) + s.Min
}
