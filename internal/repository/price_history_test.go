package repository

import (
	"strings"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertPricePointsSkipsInvalidRows(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	q, args := insertPricePoints([]models.PricePoint{
		{ProductID: "p1", Price: 10, RecordedAt: at},
		{ProductID: "", Price: 11, RecordedAt: at},
		{ProductID: "p1", Price: 0, RecordedAt: at},
		{ProductID: "p2", Price: 12.5, RecordedAt: at},
	})

	assert.Equal(t, "INSERT INTO price_history (product_id, price, recorded_at) VALUES (?, ?, ?),(?, ?, ?)", q)
	assert.Equal(t, []interface{}{"p1", 10.0, at, "p2", 12.5, at}, args)
}

func TestInsertPricePointsEmpty(t *testing.T) {
	q, args := insertPricePoints([]models.PricePoint{{ProductID: "p", Price: -1}})
	assert.Empty(t, q)
	assert.Nil(t, args)
}

func TestHistoryQueryBounds(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	q, args := historyQuery("p1", time.Time{}, time.Time{})
	assert.Equal(t, "SELECT price, recorded_at FROM price_history FINAL WHERE product_id = ? ORDER BY recorded_at ASC", q)
	assert.Equal(t, []interface{}{"p1"}, args)

	q, args = historyQuery("p1", from, time.Time{})
	assert.Contains(t, q, "recorded_at >= ?")
	assert.NotContains(t, q, "recorded_at <= ?")
	assert.Equal(t, []interface{}{"p1", from}, args)
}

func TestPriceHistorySchemaCollapsesDuplicates(t *testing.T) {
	require.Len(t, PriceHistorySchema, 1)
	assert.Contains(t, PriceHistorySchema[0], "ENGINE = ReplacingMergeTree")
	assert.Contains(t, PriceHistorySchema[0], "ORDER BY (product_id, recorded_at)")
}

func TestFluxHistory(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	q := fluxHistory("prices", `p"1`, from, to)
	assert.True(t, strings.HasPrefix(q, `from(bucket: "prices")`))
	assert.Contains(t, q, "range(start: 2024-01-01T00:00:00Z, stop: 2024-02-01T00:00:00.000000001Z)")
	assert.Contains(t, q, `r.product_id == "p1"`)
	assert.Contains(t, q, `r._measurement == "product_price"`)

	open := fluxHistory("prices", "p1", time.Time{}, time.Time{})
	assert.Contains(t, open, "range(start: 0, stop: now())")
}
