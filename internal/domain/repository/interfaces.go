package repository

import (
	"context"
	"time"

	"PriceTrack/internal/domain/models"
)

// ProductRepository stores the catalog.
type ProductRepository interface {
	List(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Similar(ctx context.Context, p *models.Product, limit int) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, p *models.Product) error
	UpdatePrice(ctx context.Context, id string, price float64, at time.Time) error
}

// StoreRepository stores per-store offers.
type StoreRepository interface {
	ListByProduct(ctx context.Context, productID string) ([]models.StoreOffer, error)
	Upsert(ctx context.Context, o *models.StoreOffer) error
}

// TrackingRepository stores tracked products and user preferences.
type TrackingRepository interface {
	Create(ctx context.Context, t *models.TrackedProduct) error
	Delete(ctx context.Context, userID, id string) error
	Find(ctx context.Context, userID, productID string) (*models.TrackedProduct, error)
	ListByUser(ctx context.Context, userID string) ([]models.TrackedItem, error)
	ListWatchers(ctx context.Context, productID string) ([]models.TrackedProduct, error)
	UpsertPreference(ctx context.Context, p *models.UserPreference) error
}

// AnalysisRepository stores AI analyses, one per product.
type AnalysisRepository interface {
	Get(ctx context.Context, productID string) (*models.ProductAnalysis, error)
	Upsert(ctx context.Context, a *models.ProductAnalysis) error
}

// PriceHistoryStore is the time-series side of the catalog.
type PriceHistoryStore interface {
	Append(ctx context.Context, points ...models.PricePoint) error
	History(ctx context.Context, productID string, from, to time.Time) ([]models.PricePoint, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertPublisher emits price drop alerts.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.PriceDropAlert) error
	Close() error
}

// Metrics records operational counters.
type Metrics interface {
	RecordObservation(source string)
	RecordError(kind string)
	RecordLastPrice(productID string, price float64)
	RecordLatency(op string, seconds float64)
	RecordTrainingProgress(percent int)
	RecordForecast(days int)
}
