package forecast

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meanModel() Model {
	return ModelFunc(func(_ context.Context, w []float64) ([]float64, error) {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return []float64{sum / float64(len(w))}, nil
	})
}

func TestForecastMeanModel(t *testing.T) {
	seed := []float64{100, 102, 101, 105, 107, 106, 110}
	scale, err := ComputeScale(seed)
	require.NoError(t, err)

	got, err := Forecast(context.Background(), meanModel(), scale, 7, seed, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	window := scale.Normalize(seed)
	want := make([]float64, 0, 3)
	for i := 0; i < 3; i++ {
		sum := 0.0
		for _, v := range window[len(window)-7:] {
			sum += v
		}
		next := sum / 7
		want = append(want, scale.Denormalize(next))
		window = append(window, next)
	}
	assert.InDeltaSlice(t, want, got, 1e-9)

	// first step is the plain mean of the seed
	assert.InDelta(t, 104.428571428, got[0], 1e-6)
}

func TestForecastDeterministic(t *testing.T) {
	seed := []float64{100, 102, 101, 105, 107, 106, 110}
	scale, _ := ComputeScale(seed)

	a, err := Forecast(context.Background(), meanModel(), scale, 7, seed, 5)
	require.NoError(t, err)
	b, err := Forecast(context.Background(), meanModel(), scale, 7, seed, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForecastUsesTrailingWindow(t *testing.T) {
	var seen [][]float64
	m := ModelFunc(func(_ context.Context, w []float64) ([]float64, error) {
		seen = append(seen, append([]float64(nil), w...))
		return []float64{1}, nil
	})
	scale := Scale{Min: 0, Max: 10}

	got, err := Forecast(context.Background(), m, scale, 3, []float64{0, 1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10}, got)
	require.Len(t, seen, 2)
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.4}, seen[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, 0.4, 1}, seen[1], 1e-12)
}

func TestForecastShortSeed(t *testing.T) {
	_, err := Forecast(context.Background(), meanModel(), Scale{Min: 1, Max: 5}, 7, []float64{1, 2, 3, 4, 5}, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestForecastNilModel(t *testing.T) {
	_, err := Forecast(context.Background(), nil, Scale{Min: 1, Max: 5}, 3, []float64{1, 2, 3}, 1)
	assert.ErrorIs(t, err, ErrModelNotReady)

	var tr *Trained
	_, err = tr.Forecast(context.Background(), []float64{1, 2, 3}, 1)
	assert.ErrorIs(t, err, ErrModelNotReady)
}

func TestForecastInvalidOutput(t *testing.T) {
	scale := Scale{Min: 0, Max: 1}
	seed := []float64{0.1, 0.2, 0.3}

	twoValues := ModelFunc(func(context.Context, []float64) ([]float64, error) { return []float64{1, 2}, nil })
	_, err := Forecast(context.Background(), twoValues, scale, 3, seed, 1)
	assert.ErrorIs(t, err, ErrInvalidModelOutput)

	empty := ModelFunc(func(context.Context, []float64) ([]float64, error) { return nil, nil })
	_, err = Forecast(context.Background(), empty, scale, 3, seed, 1)
	assert.ErrorIs(t, err, ErrInvalidModelOutput)

	nan := ModelFunc(func(context.Context, []float64) ([]float64, error) { return []float64{math.NaN()}, nil })
	_, err = Forecast(context.Background(), nan, scale, 3, seed, 1)
	assert.ErrorIs(t, err, ErrInvalidModelOutput)
}

func TestForecastStopsOnModelError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	m := ModelFunc(func(context.Context, []float64) ([]float64, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return []float64{0.5}, nil
	})
	got, err := Forecast(context.Background(), m, Scale{Min: 0, Max: 1}, 2, []float64{0, 1}, 4)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.Equal(t, 2, calls)
}

func TestForecastCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Forecast(ctx, meanModel(), Scale{Min: 0, Max: 1}, 2, []float64{0, 1}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainedForecastThreadsLookback(t *testing.T) {
	tr := &Trained{Model: meanModel(), Scale: Scale{Min: 0, Max: 10}, Lookback: 3}

	_, err := tr.Forecast(context.Background(), []float64{1, 2}, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)

	got, err := tr.Forecast(context.Background(), []float64{9, 9, 2, 4, 6}, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4}, got, 1e-9)
}
