package usecase

import (
	"context"
	"errors"
	"fmt"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	applogger "PriceTrack/pkg/logger"

	"github.com/shopspring/decimal"
)

// defaultTargetRatio is applied to the current price when no target is given.
var defaultTargetRatio = decimal.RequireFromString("0.9")

// TrackingUseCase manages users' watch lists.
type TrackingUseCase struct {
	products domrepo.ProductRepository
	tracking domrepo.TrackingRepository
	l        *applogger.Logger
}

func NewTrackingUseCase(products domrepo.ProductRepository, tracking domrepo.TrackingRepository, l *applogger.Logger) *TrackingUseCase {
	return &TrackingUseCase{products: products, tracking: tracking, l: l}
}

// TrackParams are the inputs of Track. Nil fields take their defaults.
type TrackParams struct {
	UserID       string
	ProductID    string
	TargetPrice  *float64
	NotifyOnDrop *bool
}

// DefaultTargetPrice is 90% of price, rounded to cents.
func DefaultTargetPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Mul(defaultTargetRatio).Round(2).InexactFloat64()
}

func (uc *TrackingUseCase) Track(ctx context.Context, p TrackParams) (*models.TrackedProduct, error) {
	product, err := uc.products.Get(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}

	row := &models.TrackedProduct{
		UserID:       p.UserID,
		ProductID:    p.ProductID,
		TargetPrice:  DefaultTargetPrice(product.CurrentPrice),
		NotifyOnDrop: true,
	}
	if p.TargetPrice != nil {
		row.TargetPrice = *p.TargetPrice
	}
	if p.NotifyOnDrop != nil {
		row.NotifyOnDrop = *p.NotifyOnDrop
	}
	if err := uc.tracking.Create(ctx, row); err != nil {
		return nil, err
	}

	if product.Category != "" {
		pref := &models.UserPreference{UserID: p.UserID, Category: product.Category, InterestScore: 1}
		if err := uc.tracking.UpsertPreference(ctx, pref); err != nil {
			uc.l.Warn("user preference update failed",
				applogger.String("user_id", p.UserID),
				applogger.String("category", product.Category),
				applogger.Error(err))
		}
	}
	uc.l.Info("product tracked",
		applogger.String("user_id", p.UserID),
		applogger.String("product_id", p.ProductID),
		applogger.Float64("target_price", row.TargetPrice))
	return row, nil
}

func (uc *TrackingUseCase) Untrack(ctx context.Context, userID, trackedID string) error {
	return uc.tracking.Delete(ctx, userID, trackedID)
}

func (uc *TrackingUseCase) IsTracked(ctx context.Context, userID, productID string) (bool, error) {
	_, err := uc.tracking.Find(ctx, userID, productID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find tracked product: %w", err)
	}
	return true, nil
}

func (uc *TrackingUseCase) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	items, err := uc.tracking.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{Items: items, Stats: DashboardStats(items)}, nil
}

// DashboardStats counts alerts and sums how far current prices sit above
// their targets.
func DashboardStats(items []models.TrackedItem) models.DashboardStats {
	stats := models.DashboardStats{Tracked: len(items)}
	savings := decimal.Zero
	for _, it := range items {
		if it.NotifyOnDrop {
			stats.AlertsEnabled++
		}
		current := decimal.NewFromFloat(it.Product.CurrentPrice)
		target := decimal.NewFromFloat(it.TargetPrice)
		if current.LessThanOrEqual(target) {
			stats.AtOrBelowTarget++
			continue
		}
		savings = savings.Add(current.Sub(target))
	}
	stats.PotentialSavings = savings.Round(2).InexactFloat64()
	return stats
}
