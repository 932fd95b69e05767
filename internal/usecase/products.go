package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	"PriceTrack/internal/services/features"
	"PriceTrack/pkg/cache"
	applogger "PriceTrack/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	productsCachePrefix = "products"
	similarLimit        = 4
)

// ProductUseCase serves the catalog.
type ProductUseCase struct {
	products domrepo.ProductRepository
	stores   domrepo.StoreRepository
	analyses domrepo.AnalysisRepository
	history  domrepo.PriceHistoryStore
	cache    cache.Service
	ttl      time.Duration
	timeout  time.Duration
	l        *applogger.Logger
}

func NewProductUseCase(
	products domrepo.ProductRepository,
	stores domrepo.StoreRepository,
	analyses domrepo.AnalysisRepository,
	history domrepo.PriceHistoryStore,
	c cache.Service,
	ttl time.Duration,
	l *applogger.Logger,
) *ProductUseCase {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ProductUseCase{
		products: products,
		stores:   stores,
		analyses: analyses,
		history:  history,
		cache:    c,
		ttl:      ttl,
		timeout:  10 * time.Second,
		l:        l,
	}
}

func (uc *ProductUseCase) List(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Category == "all" {
		f.Category = ""
	}
	filter := fmt.Sprintf("%s|%s|%d|%d", f.Search, f.Category, f.Limit, f.Offset)
	key := cache.GenerateKeyWithParams(productsCachePrefix, "list", cache.HashKey(filter))
	return cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, func(ctx context.Context) ([]models.Product, error) {
		return uc.products.List(ctx, f)
	})
}

func (uc *ProductUseCase) Categories(ctx context.Context) ([]string, error) {
	key := cache.GenerateKey(productsCachePrefix, "categories")
	return cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, uc.products.Categories)
}

// Detail loads a product and fans out for its history, offers, analysis and
// similar products. A failing part is reported in Errors instead of failing
// the whole page.
func (uc *ProductUseCase) Detail(ctx context.Context, id string) (*models.ProductDetail, error) {
	p, err := uc.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.ProductDetail{
		Product: *p,
		History: []models.PricePoint{},
		Stores:  []models.StoreOffer{},
		Similar: []models.Product{},
		Errors:  map[string]string{},
	}
	var mu sync.Mutex
	fail := func(part string, err error) {
		uc.l.Warn("product detail part failed",
			applogger.String("product_id", id),
			applogger.String("part", part),
			applogger.Error(err))
		mu.Lock()
		res.Errors[part] = err.Error()
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		h, err := uc.history.History(ctx, id, time.Time{}, time.Time{})
		if err != nil {
			fail("history", err)
			return nil
		}
		res.History = h
		return nil
	})
	g.Go(func() error {
		s, err := uc.stores.ListByProduct(ctx, id)
		if err != nil {
			fail("stores", err)
			return nil
		}
		res.Stores = s
		return nil
	})
	g.Go(func() error {
		a, err := uc.analyses.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, domrepo.ErrNotFound) {
				fail("analysis", err)
			}
			return nil
		}
		res.Analysis = a
		return nil
	})
	g.Go(func() error {
		s, err := uc.products.Similar(ctx, p, similarLimit)
		if err != nil {
			fail("similar", err)
			return nil
		}
		res.Similar = s
		return nil
	})
	_ = g.Wait()

	res.LowestPrice, res.HighestPrice = features.Range(res.History, p.CurrentPrice)
	res.Trend = features.Trend(res.History)
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

func (uc *ProductUseCase) History(ctx context.Context, id string, from, to time.Time) ([]models.PricePoint, error) {
	if _, err := uc.products.Get(ctx, id); err != nil {
		return nil, err
	}
	return uc.history.History(ctx, id, from, to)
}

// Upsert writes the product and records its current price in the history.
func (uc *ProductUseCase) Upsert(ctx context.Context, p *models.Product) error {
	if err := uc.products.Upsert(ctx, p); err != nil {
		return err
	}
	if err := uc.history.Append(ctx, models.PricePoint{ProductID: p.ID, Price: p.CurrentPrice, RecordedAt: p.UpdatedAt}); err != nil {
		return fmt.Errorf("record price: %w", err)
	}
	uc.invalidate(ctx)
	return nil
}

func (uc *ProductUseCase) UpsertStoreOffer(ctx context.Context, o *models.StoreOffer) error {
	if _, err := uc.products.Get(ctx, o.ProductID); err != nil {
		return err
	}
	return uc.stores.Upsert(ctx, o)
}

func (uc *ProductUseCase) invalidate(ctx context.Context) {
	if err := uc.cache.DeleteByPattern(ctx, productsCachePrefix+":*"); err != nil {
		uc.l.Warn("product cache invalidation failed", applogger.Error(err))
	}
}
