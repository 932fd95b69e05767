package training

import (
	"context"
	"math"
	"testing"

	"PriceTrack/internal/services/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/4) + float64(i)*0.5
	}
	return out
}

func TestTrainRequiresTenPrices(t *testing.T) {
	tr := NewTrainer(WithEpochs(2))

	_, err := tr.Train(context.Background(), series(9), nil)
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)

	got, err := tr.Train(context.Background(), series(10), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Lookback)
	assert.NotNil(t, got.Model)
}

func TestTrainLookbackFromSize(t *testing.T) {
	got, err := NewTrainer(WithEpochs(1)).Train(context.Background(), series(40), nil)
	require.NoError(t, err)
	assert.Equal(t, forecast.MaxLookback, got.Lookback)
	assert.Equal(t, forecast.MaxLookback, got.Model.(*Regressor).Lookback())
}

func TestTrainProgress(t *testing.T) {
	var seen []Progress
	_, err := NewTrainer().Train(context.Background(), series(30), func(p Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, seen, 50)

	assert.Equal(t, 2, seen[0].Percent)
	assert.Equal(t, 100, seen[len(seen)-1].Percent)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Percent, seen[i-1].Percent)
		assert.Equal(t, i+1, seen[i].Epoch)
		assert.False(t, math.IsNaN(seen[i].Loss))
	}
}

func TestTrainReducesLoss(t *testing.T) {
	var first, last Progress
	tr := NewTrainer(WithEpochs(150), WithLearningRate(0.01), WithDropout(0), WithBatchSize(8))
	_, err := tr.Train(context.Background(), series(80), func(p Progress) {
		if p.Epoch == 1 {
			first = p
		}
		last = p
	})
	require.NoError(t, err)
	assert.Less(t, last.Loss, first.Loss)
}

func TestTrainDeterministic(t *testing.T) {
	prices := series(25)
	a, err := NewTrainer(WithEpochs(5), WithSeed(7)).Train(context.Background(), prices, nil)
	require.NoError(t, err)
	b, err := NewTrainer(WithEpochs(5), WithSeed(7)).Train(context.Background(), prices, nil)
	require.NoError(t, err)

	fa, err := a.Forecast(context.Background(), prices, 4)
	require.NoError(t, err)
	fb, err := b.Forecast(context.Background(), prices, 4)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestTrainFlatHistory(t *testing.T) {
	prices := make([]float64, 12)
	for i := range prices {
		prices[i] = 499
	}
	got, err := NewTrainer(WithEpochs(3)).Train(context.Background(), prices, nil)
	require.NoError(t, err)

	out, err := got.Forecast(context.Background(), prices, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{499, 499, 499}, out)
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := NewTrainer(WithEpochs(10)).Train(ctx, series(20), func(Progress) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}

func TestRegressorRejectsWrongWidth(t *testing.T) {
	got, err := NewTrainer(WithEpochs(1)).Train(context.Background(), series(10), nil)
	require.NoError(t, err)

	_, err = got.Model.Predict(context.Background(), []float64{0.1, 0.2})
	assert.Error(t, err)

	out, err := got.Model.Predict(context.Background(), []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
