package usecase

import (
	"context"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	"PriceTrack/internal/domain/service"
	"PriceTrack/internal/services/analytics"
	"PriceTrack/internal/services/features"
	"PriceTrack/pkg/cache"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/util"
)

const (
	analysisCachePrefix = "analysis"
	analysisWindowDays  = 30
)

// AnalysisUseCase runs and stores AI buying recommendations.
type AnalysisUseCase struct {
	products domrepo.ProductRepository
	history  domrepo.PriceHistoryStore
	analyses domrepo.AnalysisRepository
	analyzer service.ProductAnalyzer
	metrics  domrepo.Metrics
	cache    cache.Service
	ttl      time.Duration
	l        *applogger.Logger
	now      func() time.Time
}

// NewAnalysisUseCase accepts a nil analyzer; Analyze then reports
// analytics.ErrNotConfigured.
func NewAnalysisUseCase(
	products domrepo.ProductRepository,
	history domrepo.PriceHistoryStore,
	analyses domrepo.AnalysisRepository,
	analyzer service.ProductAnalyzer,
	metrics domrepo.Metrics,
	c cache.Service,
	ttl time.Duration,
	l *applogger.Logger,
) *AnalysisUseCase {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnalysisUseCase{
		products: products,
		history:  history,
		analyses: analyses,
		analyzer: analyzer,
		metrics:  metrics,
		cache:    c,
		ttl:      ttl,
		l:        l,
		now:      time.Now,
	}
}

func (uc *AnalysisUseCase) Analyze(ctx context.Context, productID string) (*models.ProductAnalysis, error) {
	if uc.analyzer == nil {
		return nil, analytics.ErrNotConfigured
	}
	p, err := uc.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	from, to := util.DayRange(uc.now(), analysisWindowDays)
	history, err := uc.history.History(ctx, productID, from, to)
	if err != nil {
		return nil, err
	}
	low, high := features.Range(history, p.CurrentPrice)

	start := time.Now()
	res, err := uc.analyzer.Analyze(ctx, models.AnalysisInput{
		ProductName:  p.Name,
		Description:  p.Description,
		CurrentPrice: p.CurrentPrice,
		LowestPrice:  low,
		HighestPrice: high,
		PriceHistory: history,
	})
	uc.metrics.RecordLatency("ai_analysis_seconds", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("ai_analysis")
		return nil, err
	}

	a := &models.ProductAnalysis{
		ProductID:       productID,
		SentimentScore:  res.SentimentScore,
		Recommendation:  res.Recommendation,
		AnalysisSummary: res.Summary,
		UpdatedAt:       uc.now().UTC(),
	}
	if err := uc.analyses.Upsert(ctx, a); err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, cache.GenerateKey(analysisCachePrefix, productID), a, uc.ttl); err != nil {
		uc.l.Warn("analysis cache write failed", applogger.String("product_id", productID), applogger.Error(err))
	}
	uc.l.Info("product analyzed",
		applogger.String("product_id", productID),
		applogger.Float64("sentiment_score", a.SentimentScore))
	return a, nil
}

func (uc *AnalysisUseCase) Get(ctx context.Context, productID string) (*models.ProductAnalysis, error) {
	key := cache.GenerateKey(analysisCachePrefix, productID)
	return cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, func(ctx context.Context) (*models.ProductAnalysis, error) {
		return uc.analyses.Get(ctx, productID)
	})
}
