package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	"PriceTrack/internal/domain/service"
	"PriceTrack/internal/services/forecast"
	"PriceTrack/internal/services/training"
	"PriceTrack/pkg/cache"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/queue"

	"github.com/google/uuid"
)

const (
	sessionCachePrefix = "forecast:session"
	sessionLockPrefix  = "forecast:lock"
)

// TrainingPayload is the queued job body.
type TrainingPayload struct {
	SessionID string    `json:"session_id"`
	Prices    []float64 `json:"prices"`
}

// ForecastUseCase runs training sessions on the job queue and serves
// predictions from the trained bundles.
type ForecastUseCase struct {
	trainer    service.PriceTrainer
	history    domrepo.PriceHistoryStore
	publisher  queue.Publisher
	cache      cache.Service
	registry   *ModelRegistry
	metrics    domrepo.Metrics
	sessionTTL time.Duration
	l          *applogger.Logger
	now        func() time.Time
}

func NewForecastUseCase(
	trainer service.PriceTrainer,
	history domrepo.PriceHistoryStore,
	publisher queue.Publisher,
	c cache.Service,
	registry *ModelRegistry,
	metrics domrepo.Metrics,
	sessionTTL time.Duration,
	l *applogger.Logger,
) *ForecastUseCase {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &ForecastUseCase{
		trainer:    trainer,
		history:    history,
		publisher:  publisher,
		cache:      c,
		registry:   registry,
		metrics:    metrics,
		sessionTTL: sessionTTL,
		l:          l,
		now:        time.Now,
	}
}

// StartTrainingParams selects the training data: explicit prices win over
// a product's stored history.
type StartTrainingParams struct {
	ProductID string
	Prices    []float64
}

func (uc *ForecastUseCase) StartTraining(ctx context.Context, p StartTrainingParams) (*models.TrainingSession, error) {
	prices := p.Prices
	if len(prices) == 0 && p.ProductID != "" {
		points, err := uc.history.History(ctx, p.ProductID, time.Time{}, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		prices = make([]float64, 0, len(points))
		for _, pt := range points {
			prices = append(prices, pt.Price)
		}
	}
	if len(prices) < forecast.MinTrainingPrices {
		return nil, fmt.Errorf("%w: need at least %d prices, got %d",
			forecast.ErrInsufficientData, forecast.MinTrainingPrices, len(prices))
	}

	now := uc.now().UTC()
	s := &models.TrainingSession{
		ID:        uuid.NewString(),
		ProductID: p.ProductID,
		Status:    models.SessionQueued,
		Points:    len(prices),
		Epochs:    uc.trainer.Epochs(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.saveSession(ctx, s); err != nil {
		return nil, err
	}
	if err := uc.publisher.Enqueue(ctx, TrainingJobType, TrainingPayload{SessionID: s.ID, Prices: prices}); err != nil {
		uc.fail(ctx, s, err)
		return nil, fmt.Errorf("enqueue training: %w", err)
	}
	uc.l.Info("training session queued",
		applogger.String("session_id", s.ID),
		applogger.String("product_id", p.ProductID),
		applogger.Int("points", len(prices)))
	return s, nil
}

// RunTraining is the job body. Failures are recorded on the session rather
// than returned, so a bad dataset is not retried.
func (uc *ForecastUseCase) RunTraining(ctx context.Context, sessionID string, prices []float64) error {
	lockKey := cache.GenerateKey(sessionLockPrefix, sessionID)
	ok, err := uc.cache.TryLock(ctx, lockKey, uc.sessionTTL)
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		uc.l.Warn("training session already running", applogger.String("session_id", sessionID))
		return nil
	}
	defer func() { _ = uc.cache.Unlock(context.WithoutCancel(ctx), lockKey) }()

	s, err := uc.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Done() {
		return nil
	}
	s.Status = models.SessionTraining
	s.Points = len(prices)
	if err := uc.saveSession(ctx, s); err != nil {
		return err
	}

	start := time.Now()
	trained, err := uc.trainer.Train(ctx, prices, func(p training.Progress) {
		s.Epoch = p.Epoch
		s.Epochs = p.Epochs
		s.Progress = p.Percent
		s.Loss = p.Loss
		s.ValLoss = p.ValLoss
		uc.metrics.RecordTrainingProgress(p.Percent)
		if err := uc.saveSession(ctx, s); err != nil {
			uc.l.Warn("training progress not saved", applogger.String("session_id", s.ID), applogger.Error(err))
		}
	})
	uc.metrics.RecordLatency("training_seconds", time.Since(start).Seconds())
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Interrupted by shutdown: back to queued so the requeued job reruns it.
		uc.requeued(context.WithoutCancel(ctx), s)
		return err
	}
	if err != nil {
		uc.fail(context.WithoutCancel(ctx), s, err)
		return nil
	}

	tail := prices
	if len(tail) > trained.Lookback {
		tail = tail[len(tail)-trained.Lookback:]
	}
	uc.registry.Put(s.ID, trained, tail)

	s.Status = models.SessionReady
	s.Lookback = trained.Lookback
	s.Progress = 100
	if err := uc.saveSession(context.WithoutCancel(ctx), s); err != nil {
		return err
	}
	uc.l.Info("training session ready",
		applogger.String("session_id", s.ID),
		applogger.Int("lookback", trained.Lookback),
		applogger.Float64("loss", s.Loss),
		applogger.Float64("val_loss", s.ValLoss),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

// Session returns domrepo.ErrNotFound for unknown or expired ids.
func (uc *ForecastUseCase) Session(ctx context.Context, id string) (*models.TrainingSession, error) {
	var s models.TrainingSession
	if err := uc.cache.Get(ctx, cache.GenerateKey(sessionCachePrefix, id), &s); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

// Predict forecasts daysAhead prices. Without recent prices the session's
// own training tail seeds the window.
func (uc *ForecastUseCase) Predict(ctx context.Context, id string, recent []float64, daysAhead int) (*models.ForecastResult, error) {
	trained, tail, ok := uc.registry.Get(id)
	if !ok {
		return nil, forecast.ErrModelNotReady
	}
	if len(recent) == 0 {
		recent = tail
	}
	preds, err := trained.Forecast(ctx, recent, daysAhead)
	if err != nil {
		return nil, err
	}
	uc.metrics.RecordForecast(daysAhead)

	res := &models.ForecastResult{
		SessionID:   id,
		Lookback:    trained.Lookback,
		Predictions: make([]models.PricePrediction, len(preds)),
	}
	for i, p := range preds {
		res.Predictions[i] = models.PricePrediction{Day: i + 1, Price: p}
	}
	return res, nil
}

func (uc *ForecastUseCase) saveSession(ctx context.Context, s *models.TrainingSession) error {
	s.UpdatedAt = uc.now().UTC()
	if err := uc.cache.Set(ctx, cache.GenerateKey(sessionCachePrefix, s.ID), s, uc.sessionTTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (uc *ForecastUseCase) requeued(ctx context.Context, s *models.TrainingSession) {
	uc.l.Warn("training session interrupted", applogger.String("session_id", s.ID))
	s.Status = models.SessionQueued
	s.Epoch, s.Progress = 0, 0
	s.Loss, s.ValLoss = 0, 0
	if err := uc.saveSession(ctx, s); err != nil {
		uc.l.Error("interrupted session not saved", applogger.String("session_id", s.ID), applogger.Error(err))
	}
}

func (uc *ForecastUseCase) fail(ctx context.Context, s *models.TrainingSession, cause error) {
	uc.metrics.RecordError("training")
	uc.l.Error("training session failed", applogger.String("session_id", s.ID), applogger.Error(cause))
	s.Status = models.SessionFailed
	s.Error = cause.Error()
	if err := uc.saveSession(ctx, s); err != nil {
		uc.l.Error("failed session not saved", applogger.String("session_id", s.ID), applogger.Error(err))
	}
}
