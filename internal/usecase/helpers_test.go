package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/repository"
	"PriceTrack/pkg/cache"

	"github.com/stretchr/testify/require"
)

type memHistory struct {
	mu     sync.Mutex
	points map[string][]models.PricePoint
	err    error
}

func newMemHistory() *memHistory {
	return &memHistory{points: map[string][]models.PricePoint{}}
}

func (h *memHistory) Append(_ context.Context, points ...models.PricePoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	for _, p := range points {
		h.points[p.ProductID] = append(h.points[p.ProductID], p)
	}
	return nil
}

func (h *memHistory) History(_ context.Context, productID string, from, to time.Time) ([]models.PricePoint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	out := []models.PricePoint{}
	for _, p := range h.points[productID] {
		if !from.IsZero() && p.RecordedAt.Before(from) {
			continue
		}
		if !to.IsZero() && p.RecordedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (h *memHistory) Health(context.Context) error { return nil }
func (h *memHistory) Close() error                 { return nil }

type nopMetrics struct {
	mu       sync.Mutex
	errors   []string
	progress []int
}

func (m *nopMetrics) RecordObservation(string)        {}
func (m *nopMetrics) RecordLastPrice(string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64)   {}
func (m *nopMetrics) RecordForecast(int)              {}

func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

func (m *nopMetrics) RecordTrainingProgress(p int) {
	m.mu.Lock()
	m.progress = append(m.progress, p)
	m.mu.Unlock()
}

type recordedJob struct {
	msgType string
	payload json.RawMessage
}

type fakePublisher struct {
	jobs []recordedJob
	err  error
}

func (p *fakePublisher) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.jobs = append(p.jobs, recordedJob{msgType: msgType, payload: b})
	return nil
}

type fakeAlerts struct {
	sent []models.PriceDropAlert
	err  error
}

func (a *fakeAlerts) PublishAlerts(_ context.Context, alerts []models.PriceDropAlert) error {
	if a.err != nil {
		return a.err
	}
	a.sent = append(a.sent, alerts...)
	return nil
}

func (a *fakeAlerts) Close() error { return nil }

var errBoom = errors.New("boom")

func newCatalog(t *testing.T) *repository.Catalog {
	t.Helper()
	c, err := repository.OpenCatalog(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func newMemoryCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	return c
}

func mustUpsert(t *testing.T, c *repository.Catalog, p models.Product) *models.Product {
	t.Helper()
	require.NoError(t, c.Products().Upsert(context.Background(), &p))
	return &p
}
