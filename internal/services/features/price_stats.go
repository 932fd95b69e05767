package features

import (
	"PriceTrack/internal/domain/models"

	"gonum.org/v1/gonum/floats"
)

// Price trend labels.
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// Trend compares the last point with the first one. A history of one point
// or less is stable; a flat history counts as decreasing.
func Trend(history []models.PricePoint) string {
	if len(history) <= 1 {
		return TrendStable
	}
	if history[len(history)-1].Price > history[0].Price {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// Prices extracts the price column.
func Prices(history []models.PricePoint) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.Price
	}
	return out
}

// Range returns the lowest and highest price of history, or fallback for
// both when history is empty.
func Range(history []models.PricePoint, fallback float64) (low, high float64) {
	if len(history) == 0 {
		return fallback, fallback
	}
	prices := Prices(history)
	return floats.Min(prices), floats.Max(prices)
}
