package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	"PriceTrack/internal/services/forecast"
	"PriceTrack/internal/services/training"
	"PriceTrack/pkg/cache"
	applogger "PriceTrack/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	return out
}

type forecastFixture struct {
	uc      *ForecastUseCase
	job     *TrainingJob
	pub     *fakePublisher
	hist    *memHistory
	cache   *cache.MemoryCache
	metrics *nopMetrics
}

func newForecastFixture(t *testing.T, trainer *training.Trainer) *forecastFixture {
	t.Helper()
	f := &forecastFixture{
		pub:     &fakePublisher{},
		hist:    newMemHistory(),
		cache:   newMemoryCache(t),
		metrics: &nopMetrics{},
	}
	f.uc = NewForecastUseCase(trainer, f.hist, f.pub, f.cache, NewModelRegistry(2), f.metrics, time.Hour, applogger.Nop())
	f.job = NewTrainingJob(f.uc)
	return f
}

func (f *forecastFixture) runQueued(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, f.pub.jobs)
	for _, j := range f.pub.jobs {
		require.Equal(t, f.job.Type(), j.msgType)
		require.NoError(t, f.job.Handle(context.Background(), j.payload))
	}
	f.pub.jobs = nil
}

func TestForecastSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(4), training.WithSeed(7)))

	s, err := f.uc.StartTraining(ctx, StartTrainingParams{Prices: wave(40)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionQueued, s.Status)
	assert.Equal(t, 40, s.Points)
	assert.Equal(t, 4, s.Epochs)

	_, err = f.uc.Predict(ctx, s.ID, nil, 3)
	assert.ErrorIs(t, err, forecast.ErrModelNotReady)

	f.runQueued(t)

	done, err := f.uc.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 4, done.Epoch)
	assert.Equal(t, 7, done.Lookback)
	assert.Equal(t, []int{25, 50, 75, 100}, f.metrics.progress)

	res, err := f.uc.Predict(ctx, s.ID, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Lookback)
	require.Len(t, res.Predictions, 5)
	for i, p := range res.Predictions {
		assert.Equal(t, i+1, p.Day)
		assert.False(t, math.IsNaN(p.Price))
	}

	_, err = f.uc.Predict(ctx, s.ID, []float64{100, 101}, 5)
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)

	again, err := f.uc.Predict(ctx, s.ID, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, res.Predictions, again.Predictions)
}

func TestStartTrainingFromProductHistory(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(2)))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range wave(12) {
		require.NoError(t, f.hist.Append(ctx, models.PricePoint{ProductID: "p1", Price: p, RecordedAt: base.AddDate(0, 0, i)}))
	}

	s, err := f.uc.StartTraining(ctx, StartTrainingParams{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 12, s.Points)
	assert.Equal(t, "p1", s.ProductID)
	require.Len(t, f.pub.jobs, 1)
}

func TestStartTrainingInsufficientData(t *testing.T) {
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(1)))

	_, err := f.uc.StartTraining(context.Background(), StartTrainingParams{Prices: wave(9)})
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)

	_, err = f.uc.StartTraining(context.Background(), StartTrainingParams{ProductID: "empty"})
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
	assert.Empty(t, f.pub.jobs)
}

func TestStartTrainingEnqueueFailureMarksSession(t *testing.T) {
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(1)))
	f.pub.err = errBoom

	_, err := f.uc.StartTraining(context.Background(), StartTrainingParams{Prices: wave(20)})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"training"}, f.metrics.errors)
}

func TestRunTrainingFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(1)))

	s, err := f.uc.StartTraining(ctx, StartTrainingParams{Prices: wave(20)})
	require.NoError(t, err)

	bad := wave(20)
	bad[3] = math.Inf(1)
	require.NoError(t, f.uc.RunTraining(ctx, s.ID, bad))

	failed, err := f.uc.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)

	_, err = f.uc.Predict(ctx, s.ID, nil, 1)
	assert.ErrorIs(t, err, forecast.ErrModelNotReady)
}

func TestInterruptedTrainingIsRequeued(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(2)))

	s, err := f.uc.StartTraining(ctx, StartTrainingParams{Prices: wave(20)})
	require.NoError(t, err)
	require.Len(t, f.pub.jobs, 1)
	payload := f.pub.jobs[0].payload

	stopped, cancel := context.WithCancel(ctx)
	cancel()
	err = f.job.Handle(stopped, payload)
	assert.ErrorIs(t, err, context.Canceled)

	waiting, err := f.uc.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionQueued, waiting.Status)
	assert.Empty(t, waiting.Error)
	assert.Empty(t, f.metrics.errors)

	require.NoError(t, f.job.Handle(ctx, payload))
	done, err := f.uc.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, done.Status)
}

func TestRunTrainingSkipsLockedSession(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, training.NewTrainer(training.WithEpochs(1)))

	s, err := f.uc.StartTraining(ctx, StartTrainingParams{Prices: wave(20)})
	require.NoError(t, err)

	ok, err := f.cache.TryLock(ctx, cache.GenerateKey(sessionLockPrefix, s.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.uc.RunTraining(ctx, s.ID, wave(20)))
	still, err := f.uc.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionQueued, still.Status)
}

func TestSessionUnknown(t *testing.T) {
	f := newForecastFixture(t, training.NewTrainer())
	_, err := f.uc.Session(context.Background(), "nope")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestTrainingJobRejectsEmptyPayload(t *testing.T) {
	f := newForecastFixture(t, training.NewTrainer())
	assert.Error(t, f.job.Handle(context.Background(), nil))
}

func TestModelRegistryEvictsOldest(t *testing.T) {
	r := NewModelRegistry(2)
	tr := &forecast.Trained{Lookback: 1}
	r.Put("a", tr, []float64{1})
	r.Put("b", tr, []float64{2})
	r.Put("a", tr, []float64{3})
	r.Put("c", tr, []float64{4})

	assert.Equal(t, 2, r.Len())
	_, _, ok := r.Get("a")
	assert.False(t, ok)
	_, tail, ok := r.Get("c")
	require.True(t, ok)
	assert.Equal(t, []float64{4}, tail)
}
