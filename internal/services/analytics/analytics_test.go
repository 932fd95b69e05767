package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"PriceTrack/internal/domain/models"
	applogger "PriceTrack/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentimentServer(t *testing.T, health *atomic.Int32, classify func(text string) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			health.Add(1)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/sentiment":
			var body struct {
				Text string `json:"text"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			status, payload := classify(body.Text)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSentimentAnalyzeTextChecksReadinessOnce(t *testing.T) {
	var health atomic.Int32
	srv := sentimentServer(t, &health, func(text string) (int, any) {
		return http.StatusOK, []models.Sentiment{{Label: "POSITIVE", Score: 0.98}}
	})
	c := NewSentimentClient(NewHTTPServiceBase(srv.URL, time.Second), 1, 4, applogger.Nop())

	for i := 0; i < 3; i++ {
		res, err := c.AnalyzeText(context.Background(), "great value")
		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", res.Label)
		assert.InDelta(t, 0.98, res.Score, 1e-9)
	}
	assert.Equal(t, int32(1), health.Load())
}

func TestSentimentEmptyResultIsInvalid(t *testing.T) {
	var health atomic.Int32
	srv := sentimentServer(t, &health, func(string) (int, any) {
		return http.StatusOK, []models.Sentiment{}
	})
	c := NewSentimentClient(NewHTTPServiceBase(srv.URL, time.Second), 1, 4, applogger.Nop())

	_, err := c.AnalyzeText(context.Background(), "meh")
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestSentimentBatchKeepsOrder(t *testing.T) {
	var health atomic.Int32
	srv := sentimentServer(t, &health, func(text string) (int, any) {
		if strings.Contains(text, "bad") {
			return http.StatusOK, []models.Sentiment{{Label: "NEGATIVE", Score: 0.9}}
		}
		return http.StatusOK, []models.Sentiment{{Label: "POSITIVE", Score: 0.8}}
	})
	c := NewSentimentClient(NewHTTPServiceBase(srv.URL, time.Second), 1, 2, applogger.Nop())

	res, err := c.AnalyzeBatch(context.Background(), []string{"good", "bad", "fine", "really bad"})
	require.NoError(t, err)
	require.Len(t, res, 4)
	assert.Equal(t, []string{"POSITIVE", "NEGATIVE", "POSITIVE", "NEGATIVE"},
		[]string{res[0].Label, res[1].Label, res[2].Label, res[3].Label})
}

func TestSentimentBatchFailsOnFirstError(t *testing.T) {
	var health atomic.Int32
	srv := sentimentServer(t, &health, func(text string) (int, any) {
		if text == "boom" {
			return http.StatusBadRequest, map[string]string{"error": "bad input"}
		}
		return http.StatusOK, []models.Sentiment{{Label: "POSITIVE", Score: 0.8}}
	})
	c := NewSentimentClient(NewHTTPServiceBase(srv.URL, time.Second), 3, 2, applogger.Nop())

	_, err := c.AnalyzeBatch(context.Background(), []string{"ok", "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSentimentUnavailableSidecar(t *testing.T) {
	c := NewSentimentClient(NewHTTPServiceBase("http://127.0.0.1:1", 200*time.Millisecond), 1, 1, applogger.Nop())
	_, err := c.AnalyzeText(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClassifierOffline)
}

func TestPostJSONWithRetryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := NewHTTPServiceBase(srv.URL, time.Second).PostJSONWithRetry(context.Background(), "/x", map[string]int{"a": 1}, &out, 3)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func gatewayServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "google/gemini-2.5-flash",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testInput() models.AnalysisInput {
	return models.AnalysisInput{
		ProductName:  "Laptop",
		Description:  "14 inch",
		CurrentPrice: 900,
		LowestPrice:  850,
		HighestPrice: 1000,
		PriceHistory: []models.PricePoint{{Price: 1000}, {Price: 900}},
	}
}

func TestChatProductAnalyzerParsesJSON(t *testing.T) {
	srv := gatewayServer(t, http.StatusOK, "```json\n{\"sentimentScore\":0.8,\"recommendation\":\"Buy now\",\"summary\":\"Good deal\"}\n```")
	a, err := NewChatProductAnalyzer(srv.URL, "key", "google/gemini-2.5-flash", time.Second, applogger.Nop())
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisResult{SentimentScore: 0.8, Recommendation: "Buy now", Summary: "Good deal"}, res)
}

func TestChatProductAnalyzerFallsBackOnProse(t *testing.T) {
	srv := gatewayServer(t, http.StatusOK, "Looks like a fair price.")
	a, err := NewChatProductAnalyzer(srv.URL, "key", "m", time.Second, applogger.Nop())
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.SentimentScore)
	assert.Equal(t, "Looks like a fair price.", res.Recommendation)
	assert.Equal(t, "AI analysis available", res.Summary)
}

func TestChatProductAnalyzerMapsGatewayErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusTooManyRequests:     ErrRateLimited,
		http.StatusPaymentRequired:     ErrPaymentRequired,
		http.StatusInternalServerError: ErrGateway,
	}
	for status, want := range cases {
		srv := gatewayServer(t, status, "")
		a, err := NewChatProductAnalyzer(srv.URL, "key", "m", time.Second, applogger.Nop())
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), testInput())
		assert.Truef(t, errors.Is(err, want), "status %d: got %v", status, err)
	}
}

func TestChatProductAnalyzerRequiresKey(t *testing.T) {
	_, err := NewChatProductAnalyzer("http://x", "", "m", time.Second, applogger.Nop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildAnalysisPrompt(t *testing.T) {
	p := buildAnalysisPrompt(testInput())
	assert.Contains(t, p, "Product: Laptop")
	assert.Contains(t, p, "Lowest Price (30 days): ₹850")
	assert.Contains(t, p, "Price Trend: decreasing")
	assert.Contains(t, p, "keys: sentimentScore, recommendation, summary")
}
