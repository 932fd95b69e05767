package features

import (
	"testing"

	"PriceTrack/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func points(prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{ProductID: "p", Price: p}
	}
	return out
}

func TestTrend(t *testing.T) {
	assert.Equal(t, TrendStable, Trend(nil))
	assert.Equal(t, TrendStable, Trend(points(10)))
	assert.Equal(t, TrendIncreasing, Trend(points(10, 8, 12)))
	assert.Equal(t, TrendDecreasing, Trend(points(10, 12, 9)))
	assert.Equal(t, TrendDecreasing, Trend(points(10, 10)))
}

func TestRange(t *testing.T) {
	low, high := Range(points(12, 8, 15, 9), 100)
	assert.Equal(t, 8.0, low)
	assert.Equal(t, 15.0, high)

	low, high = Range(nil, 42)
	assert.Equal(t, 42.0, low)
	assert.Equal(t, 42.0, high)
}

func TestPrices(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Prices(points(1, 2, 3)))
	assert.Empty(t, Prices(nil))
}
