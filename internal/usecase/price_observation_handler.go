package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	xhttp "PriceTrack/pkg/http"
	pkgkafka "PriceTrack/pkg/kafka"
	applogger "PriceTrack/pkg/logger"
)

// PriceObservationHandler consumes scraper observations, records them and
// emits drop alerts for watchers whose target has been reached.
type PriceObservationHandler struct {
	topic    string
	products domrepo.ProductRepository
	stores   domrepo.StoreRepository
	tracking domrepo.TrackingRepository
	history  domrepo.PriceHistoryStore
	alerts   domrepo.AlertPublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*PriceObservationHandler)(nil)

func NewPriceObservationHandler(
	topic string,
	products domrepo.ProductRepository,
	stores domrepo.StoreRepository,
	tracking domrepo.TrackingRepository,
	history domrepo.PriceHistoryStore,
	alerts domrepo.AlertPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *PriceObservationHandler {
	return &PriceObservationHandler{
		topic:    topic,
		products: products,
		stores:   stores,
		tracking: tracking,
		history:  history,
		alerts:   alerts,
		metrics:  metrics,
		l:        l,
	}
}

func (h *PriceObservationHandler) Topic() string { return h.topic }

// Handle decodes one {product_id, price, recorded_at, store_name?, store_url?}
// message.
func (h *PriceObservationHandler) Handle(ctx context.Context, b []byte) error {
	var m models.PriceObservation
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("observation_unmarshal")
		return err
	}
	return h.Observe(ctx, m)
}

func (h *PriceObservationHandler) Observe(ctx context.Context, m models.PriceObservation) error {
	if err := xhttp.Validate(&m); err != nil {
		h.metrics.RecordError("observation_invalid")
		return fmt.Errorf("invalid observation: %w", err)
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	// History stores milliseconds; the redelivery check compares at that precision.
	m.RecordedAt = m.RecordedAt.UTC().Truncate(time.Millisecond)
	h.metrics.RecordLatency("observation_e2e_seconds", time.Since(m.RecordedAt).Seconds())

	product, err := h.products.Get(ctx, m.ProductID)
	if err != nil {
		h.metrics.RecordError("observation_product")
		return fmt.Errorf("product %s: %w", m.ProductID, err)
	}

	if err := h.record(ctx, m); err != nil {
		h.metrics.RecordError("observation_history")
		return err
	}
	if err := h.products.UpdatePrice(ctx, m.ProductID, m.Price, m.RecordedAt); err != nil {
		h.metrics.RecordError("observation_price")
		return err
	}
	if m.StoreName != "" {
		offer := &models.StoreOffer{
			ProductID: m.ProductID,
			StoreName: m.StoreName,
			Price:     m.Price,
			StoreURL:  m.StoreURL,
			UpdatedAt: m.RecordedAt,
		}
		if err := h.stores.Upsert(ctx, offer); err != nil {
			h.metrics.RecordError("observation_store")
			return err
		}
	}
	h.metrics.RecordObservation(sourceOf(m))
	h.metrics.RecordLastPrice(m.ProductID, m.Price)

	return h.notify(ctx, product, m)
}

// record appends the observation unless a redelivery already stored a point
// for the same product and instant. Later steps may fail and the consumer
// retries the whole message.
func (h *PriceObservationHandler) record(ctx context.Context, m models.PriceObservation) error {
	existing, err := h.history.History(ctx, m.ProductID, m.RecordedAt, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("check history: %w", err)
	}
	if len(existing) > 0 {
		h.l.Debug("observation already recorded",
			applogger.String("product_id", m.ProductID),
			applogger.String("recorded_at", m.RecordedAt.Format(time.RFC3339Nano)))
		return nil
	}

	start := time.Now()
	err = h.history.Append(ctx, models.PricePoint{ProductID: m.ProductID, Price: m.Price, RecordedAt: m.RecordedAt})
	h.metrics.RecordLatency("history_append_seconds", time.Since(start).Seconds())
	return err
}

func (h *PriceObservationHandler) notify(ctx context.Context, product *models.Product, m models.PriceObservation) error {
	watchers, err := h.tracking.ListWatchers(ctx, m.ProductID)
	if err != nil {
		h.metrics.RecordError("observation_watchers")
		return err
	}
	alerts := DropAlerts(product, watchers, m.Price, m.RecordedAt)
	if len(alerts) == 0 {
		return nil
	}
	if err := h.alerts.PublishAlerts(ctx, alerts); err != nil {
		h.metrics.RecordError("alert_publish")
		return err
	}
	h.l.Info("price drop alerts published",
		applogger.String("product_id", m.ProductID),
		applogger.Float64("price", m.Price),
		applogger.Int("alerts", len(alerts)))
	return nil
}

// DropAlerts selects watchers with notifications on and a target at or
// above price.
func DropAlerts(product *models.Product, watchers []models.TrackedProduct, price float64, at time.Time) []models.PriceDropAlert {
	var out []models.PriceDropAlert
	for _, w := range watchers {
		if !w.NotifyOnDrop || price > w.TargetPrice {
			continue
		}
		out = append(out, models.PriceDropAlert{
			TrackedID:   w.ID,
			UserID:      w.UserID,
			ProductID:   w.ProductID,
			ProductName: product.Name,
			Price:       price,
			TargetPrice: w.TargetPrice,
			ObservedAt:  at,
		})
	}
	return out
}

func sourceOf(m models.PriceObservation) string {
	if m.StoreName != "" {
		return m.StoreName
	}
	return "unknown"
}
