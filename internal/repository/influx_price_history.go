package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	applogger "PriceTrack/pkg/logger"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const influxMeasurement = "product_price"

// InfluxPriceHistory stores price points in an InfluxDB bucket.
type InfluxPriceHistory struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	l      *applogger.Logger
}

var _ domrepo.PriceHistoryStore = (*InfluxPriceHistory)(nil)

// NewInfluxPriceHistory connects to url with token and targets org/bucket.
func NewInfluxPriceHistory(url, token, org, bucket string, l *applogger.Logger) *InfluxPriceHistory {
	client := influxdb2.NewClient(url, token)
	return &InfluxPriceHistory{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		query:  client.QueryAPI(org),
		bucket: bucket,
		l:      l,
	}
}

func (s *InfluxPriceHistory) Append(ctx context.Context, points ...models.PricePoint) error {
	pts := make([]*write.Point, 0, len(points))
	for _, p := range points {
		if p.ProductID == "" || p.Price <= 0 {
			continue
		}
		at := p.RecordedAt
		if at.IsZero() {
			at = time.Now()
		}
		pts = append(pts, influxdb2.NewPoint(
			influxMeasurement,
			map[string]string{"product_id": p.ProductID},
			map[string]interface{}{"price": p.Price},
			at.UTC(),
		))
	}
	if len(pts) == 0 {
		return nil
	}
	if err := s.write.WritePoint(ctx, pts...); err != nil {
		s.l.Error("influx price write error", applogger.Int("points", len(pts)), applogger.Error(err))
		return fmt.Errorf("append price history: %w", err)
	}
	return nil
}

func (s *InfluxPriceHistory) History(ctx context.Context, productID string, from, to time.Time) ([]models.PricePoint, error) {
	result, err := s.query.Query(ctx, fluxHistory(s.bucket, productID, from, to))
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer result.Close()

	out := make([]models.PricePoint, 0, 64)
	for result.Next() {
		record := result.Record()
		price, ok := record.ValueByKey("price").(float64)
		if !ok {
			continue
		}
		out = append(out, models.PricePoint{ProductID: productID, Price: price, RecordedAt: record.Time()})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read price history: %w", err)
	}
	return out, nil
}

// fluxHistory builds the range query. Flux needs a start, so an open lower
// bound becomes the epoch.
func fluxHistory(bucket, productID string, from, to time.Time) string {
	start := "0"
	if !from.IsZero() {
		start = from.UTC().Format(time.RFC3339Nano)
	}
	stop := "now()"
	if !to.IsZero() {
		// range stop is exclusive
		stop = to.UTC().Add(time.Nanosecond).Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r.product_id == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: false)`,
		bucket, start, stop, influxMeasurement, escapeFlux(productID))
}

func escapeFlux(s string) string {
	return strings.NewReplacer(`\`, ``, `"`, ``).Replace(s)
}

func (s *InfluxPriceHistory) Health(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb not ready")
	}
	return nil
}

func (s *InfluxPriceHistory) Close() error {
	s.client.Close()
	return nil
}
