package usecase

import (
	"context"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	applogger "PriceTrack/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductUseCase(t *testing.T) (*ProductUseCase, *memHistory, *models.Product) {
	t.Helper()
	cat := newCatalog(t)
	hist := newMemHistory()
	uc := NewProductUseCase(cat.Products(), cat.Stores(), cat.Analyses(), hist, newMemoryCache(t), time.Minute, applogger.Nop())

	laptop := &models.Product{ID: "p1", Name: "Laptop", Category: "electronics", CurrentPrice: 900}
	require.NoError(t, uc.Upsert(context.Background(), laptop))
	require.NoError(t, uc.Upsert(context.Background(), &models.Product{ID: "p2", Name: "Tablet", Category: "electronics", CurrentPrice: 300}))
	require.NoError(t, uc.Upsert(context.Background(), &models.Product{ID: "p3", Name: "Kettle", Category: "kitchen", CurrentPrice: 40}))
	return uc, hist, laptop
}

func TestProductDetailAggregates(t *testing.T) {
	ctx := context.Background()
	uc, hist, _ := newProductUseCase(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hist.points["p1"] = []models.PricePoint{
		{ProductID: "p1", Price: 1000, RecordedAt: base},
		{ProductID: "p1", Price: 850, RecordedAt: base.Add(24 * time.Hour)},
		{ProductID: "p1", Price: 900, RecordedAt: base.Add(48 * time.Hour)},
	}
	require.NoError(t, uc.UpsertStoreOffer(ctx, &models.StoreOffer{ProductID: "p1", StoreName: "A", Price: 910}))

	d, err := uc.Detail(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Laptop", d.Product.Name)
	assert.Len(t, d.History, 3)
	assert.Len(t, d.Stores, 1)
	assert.Nil(t, d.Analysis)
	require.Len(t, d.Similar, 1)
	assert.Equal(t, "p2", d.Similar[0].ID)
	assert.Equal(t, 850.0, d.LowestPrice)
	assert.Equal(t, 1000.0, d.HighestPrice)
	assert.Equal(t, "decreasing", d.Trend)
	assert.Nil(t, d.Errors)
}

func TestProductDetailReportsPartialFailures(t *testing.T) {
	uc, hist, _ := newProductUseCase(t)
	hist.err = errBoom

	d, err := uc.Detail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "boom", d.Errors["history"])
	assert.Equal(t, 900.0, d.LowestPrice)
	assert.Equal(t, 900.0, d.HighestPrice)
	assert.Equal(t, "stable", d.Trend)
}

func TestProductDetailUnknown(t *testing.T) {
	uc, _, _ := newProductUseCase(t)
	_, err := uc.Detail(context.Background(), "missing")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestProductListIsCachedUntilUpsert(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newProductUseCase(t)

	list, err := uc.List(ctx, models.ProductFilter{Category: "electronics", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, uc.products.Upsert(ctx, &models.Product{ID: "p4", Name: "Phone", Category: "electronics", CurrentPrice: 500}))
	cached, err := uc.List(ctx, models.ProductFilter{Category: "electronics", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	require.NoError(t, uc.Upsert(ctx, &models.Product{ID: "p5", Name: "Watch", Category: "electronics", CurrentPrice: 200}))
	fresh, err := uc.List(ctx, models.ProductFilter{Category: "electronics", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, fresh, 4)

	cats, err := uc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "kitchen"}, cats)
}

func TestProductUpsertRecordsPrice(t *testing.T) {
	uc, hist, _ := newProductUseCase(t)
	h, err := uc.History(context.Background(), "p3", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, 40.0, h[0].Price)
	assert.Len(t, hist.points["p1"], 1)
}

func TestUpsertStoreOfferUnknownProduct(t *testing.T) {
	uc, _, _ := newProductUseCase(t)
	err := uc.UpsertStoreOffer(context.Background(), &models.StoreOffer{ProductID: "nope", StoreName: "A", Price: 1})
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}
