package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/repository"
	"PriceTrack/internal/service/ratelimit"
	"PriceTrack/internal/services/training"
	"PriceTrack/internal/usecase"
	"PriceTrack/pkg/cache"
	xhttp "PriceTrack/pkg/http"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/queue"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "6f1c1f4e-8d5b-4b0e-9a53-2f4f0c2f8a11"

type memHistory struct{ points []models.PricePoint }

func (h *memHistory) Append(_ context.Context, pts ...models.PricePoint) error {
	h.points = append(h.points, pts...)
	return nil
}

func (h *memHistory) History(_ context.Context, id string, _, _ time.Time) ([]models.PricePoint, error) {
	out := []models.PricePoint{}
	for _, p := range h.points {
		if p.ProductID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (h *memHistory) Health(context.Context) error { return nil }
func (h *memHistory) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordObservation(string)        {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordTrainingProgress(int)      {}
func (nopMetrics) RecordForecast(int)              {}

// inlineQueue runs jobs synchronously on Enqueue.
type inlineQueue struct {
	jobs map[string]queue.Job
}

func (q *inlineQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.jobs[msgType].Handle(ctx, b)
}

type stubClassifier struct{}

func (stubClassifier) AnalyzeText(_ context.Context, text string) (models.Sentiment, error) {
	return models.Sentiment{Label: strings.ToUpper(text), Score: 0.9}, nil
}

func (s stubClassifier) AnalyzeBatch(ctx context.Context, texts []string) ([]models.Sentiment, error) {
	out := make([]models.Sentiment, len(texts))
	for i, t := range texts {
		out[i], _ = s.AnalyzeText(ctx, t)
	}
	return out, nil
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	cat, err := repository.OpenCatalog(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	hist := &memHistory{}
	l := applogger.Nop()

	products := usecase.NewProductUseCase(cat.Products(), cat.Stores(), cat.Analyses(), hist, mem, time.Minute, l)
	analysis := usecase.NewAnalysisUseCase(cat.Products(), hist, cat.Analyses(), nil, nopMetrics{}, mem, time.Minute, l)
	tracking := usecase.NewTrackingUseCase(cat.Products(), cat.Tracking(), l)
	q := &inlineQueue{jobs: map[string]queue.Job{}}
	fc := usecase.NewForecastUseCase(training.NewTrainer(training.WithEpochs(2)), hist, q, mem, usecase.NewModelRegistry(4), nopMetrics{}, time.Hour, l)
	q.jobs[usecase.TrainingJobType] = usecase.NewTrainingJob(fc)

	fh := NewForecastHandler(l, fc, 1<<20, []string{"https://app.example"})
	fh.pollEvery = 10 * time.Millisecond

	e := echo.New()
	for _, h := range []xhttp.Handler{
		NewProductsHandler(l, products, analysis, ratelimit.New(1, 0)),
		NewTrackingHandler(l, tracking),
		NewSentimentHandler(l, stubClassifier{}),
		fh,
	} {
		h.RegisterRoutes(e)
	}
	return e
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Status int `json:"status"`
		Data   T   `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func TestProductRoutes(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPost, "/api/products", `{"id":"p1","name":"Laptop","category":"electronics","current_price":900}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/products", `{"name":"","current_price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/products?category=electronics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[xhttp.ListDataResponse](t, rec)
	assert.EqualValues(t, 1, list.Total)

	rec = do(e, http.MethodGet, "/api/products/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[models.ProductDetail](t, rec)
	assert.Equal(t, "Laptop", detail.Product.Name)
	assert.Equal(t, "stable", detail.Trend)

	rec = do(e, http.MethodGet, "/api/products/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/api/products/p1/stores", `{"store_name":"Shop","price":899}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/products/p1/history?from=2020-01-01&to=2019-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/products/categories", "")
	assert.Equal(t, []string{"electronics"}, decode[[]string](t, rec))
}

func TestAnalysisRouteIsRateLimited(t *testing.T) {
	e := newTestEcho(t)
	do(e, http.MethodPost, "/api/products", `{"id":"p1","name":"Laptop","current_price":900}`)

	rec := do(e, http.MethodPost, "/api/products/p1/analysis", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(e, http.MethodPost, "/api/products/p1/analysis", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(e, http.MethodGet, "/api/products/p1/analysis", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackingRoutes(t *testing.T) {
	e := newTestEcho(t)
	do(e, http.MethodPost, "/api/products", `{"id":"p1","name":"Laptop","current_price":1000}`)

	rec := do(e, http.MethodPost, "/api/tracking", `{"product_id":"p1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/tracking", `{"product_id":"p1"}`, HeaderUserID, testUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	row := decode[models.TrackedProduct](t, rec)
	assert.Equal(t, 900.0, row.TargetPrice)

	rec = do(e, http.MethodPost, "/api/tracking", `{"product_id":"p1"}`, HeaderUserID, testUser)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, "/api/tracking/dashboard", "", HeaderUserID, testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[models.Dashboard](t, rec)
	assert.Equal(t, 1, dash.Stats.Tracked)
	assert.Equal(t, 100.0, dash.Stats.PotentialSavings)

	rec = do(e, http.MethodGet, "/api/tracking/products/p1", "", HeaderUserID, testUser)
	assert.Equal(t, map[string]bool{"tracked": true}, decode[map[string]bool](t, rec))

	rec = do(e, http.MethodDelete, "/api/tracking/"+row.ID, "", HeaderUserID, testUser)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/api/tracking/products/p1", "", HeaderUserID, testUser)
	assert.Equal(t, map[string]bool{"tracked": false}, decode[map[string]bool](t, rec))
}

func TestSentimentRoutes(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPost, "/api/sentiment", `{"text":"great"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GREAT", decode[models.Sentiment](t, rec).Label)

	rec = do(e, http.MethodPost, "/api/sentiment/batch", `{"texts":["a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Sentiment](t, rec), 2)

	rec = do(e, http.MethodPost, "/api/sentiment/batch", `{"texts":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func priceRecords(n int) string {
	recs := make([]map[string]any, n)
	for i := range recs {
		recs[i] = map[string]any{"price": float64(100 + i%5), "date": "2024-01-01"}
	}
	recs[0]["price"] = "$1,234.50"
	b, _ := json.Marshal(map[string]any{"records": recs})
	return string(b)
}

func TestForecastRoutes(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPost, "/api/forecast/sessions", priceRecords(5))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPost, "/api/forecast/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/forecast/sessions", priceRecords(30))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	s := decode[models.TrainingSession](t, rec)

	rec = do(e, http.MethodGet, "/api/forecast/sessions/"+s.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionReady, decode[models.TrainingSession](t, rec).Status)

	rec = do(e, http.MethodPost, "/api/forecast/sessions/"+s.ID+"/predict", `{"days_ahead":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[models.ForecastResult](t, rec).Predictions, 3)

	rec = do(e, http.MethodPost, "/api/forecast/sessions/unknown/predict", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, "/api/forecast/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForecastUpload(t *testing.T) {
	e := newTestEcho(t)

	upload := func(name, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(uploadField, name)
		require.NoError(t, err)
		_, _ = fw.Write([]byte(content))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/forecast/sessions/upload", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	var csv strings.Builder
	csv.WriteString("date,price\n")
	for i := 0; i < 15; i++ {
		csv.WriteString("2024-01-01,")
		csv.WriteString([]string{"10", "11", "12"}[i%3])
		csv.WriteString("\n")
	}
	rec := upload("prices.csv", csv.String())
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, 15, decode[models.TrainingSession](t, rec).Points)

	rec = upload("prices.xlsx", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/forecast/sessions/upload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastStream(t *testing.T) {
	e := newTestEcho(t)
	rec := do(e, http.MethodPost, "/api/forecast/sessions", priceRecords(20))
	require.Equal(t, http.StatusAccepted, rec.Code)
	s := decode[models.TrainingSession](t, rec)

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/forecast/sessions/" + s.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got models.TrainingSession
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.SessionReady, got.Status)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "%v", err)
}

func TestForecastStreamChecksOrigin(t *testing.T) {
	e := newTestEcho(t)
	rec := do(e, http.MethodPost, "/api/forecast/sessions", priceRecords(20))
	require.Equal(t, http.StatusAccepted, rec.Code)
	s := decode[models.TrainingSession](t, rec)

	srv := httptest.NewServer(e)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/forecast/sessions/" + s.ID + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	defer conn.Close()
	var got models.TrainingSession
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, s.ID, got.ID)
}
