package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	pkgch "PriceTrack/pkg/clickhouse"
	applogger "PriceTrack/pkg/logger"
)

const priceHistoryTable = "price_history"

// PriceHistorySchema is applied at startup; it is idempotent. One row is
// kept per (product_id, recorded_at), so redelivered observations collapse.
var PriceHistorySchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + priceHistoryTable + ` (
		product_id  String,
		price       Float64,
		recorded_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY (product_id, recorded_at)`,
}

// CHPriceHistory stores price points in ClickHouse.
type CHPriceHistory struct {
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.PriceHistoryStore = (*CHPriceHistory)(nil)

// NewCHPriceHistory wraps an open ClickHouse client.
func NewCHPriceHistory(ch *pkgch.Client, l *applogger.Logger) *CHPriceHistory {
	return &CHPriceHistory{db: ch.DB(), l: l}
}

// Append inserts points in chunks of multi-row VALUES.
func (s *CHPriceHistory) Append(ctx context.Context, points ...models.PricePoint) error {
	const chunkSize = 2000
	for start := 0; start < len(points); start += chunkSize {
		end := min(start+chunkSize, len(points))
		q, args := insertPricePoints(points[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse price_history insert error",
				applogger.Int("rows", len(args)/3),
				applogger.Error(err))
			return fmt.Errorf("append price history: %w", err)
		}
	}
	return nil
}

func insertPricePoints(points []models.PricePoint) (string, []interface{}) {
	values := make([]string, 0, len(points))
	args := make([]interface{}, 0, len(points)*3)
	for _, p := range points {
		if p.ProductID == "" || p.Price <= 0 {
			continue
		}
		at := p.RecordedAt
		if at.IsZero() {
			at = time.Now()
		}
		values = append(values, "(?, ?, ?)")
		args = append(args, p.ProductID, p.Price, at.UTC())
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (product_id, price, recorded_at) VALUES %s",
		priceHistoryTable, strings.Join(values, ","))
	return q, args
}

// History returns points in ascending time order. Zero bounds are open.
// FINAL merges rows not yet collapsed in the background.
func (s *CHPriceHistory) History(ctx context.Context, productID string, from, to time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	q, args := historyQuery(productID, from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse price_history query error",
			applogger.String("product_id", productID),
			applogger.Error(err))
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 64)
	for rows.Next() {
		p := models.PricePoint{ProductID: productID}
		if err := rows.Scan(&p.Price, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse price_history ok",
		applogger.String("product_id", productID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func historyQuery(productID string, from, to time.Time) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT price, recorded_at FROM ")
	b.WriteString(priceHistoryTable)
	b.WriteString(" FINAL WHERE product_id = ?")
	args := []interface{}{productID}
	if !from.IsZero() {
		b.WriteString(" AND recorded_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		b.WriteString(" AND recorded_at <= ?")
		args = append(args, to.UTC())
	}
	b.WriteString(" ORDER BY recorded_at ASC")
	return b.String(), args
}

func (s *CHPriceHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the client owns the pool.
func (s *CHPriceHistory) Close() error {
	return nil
}
