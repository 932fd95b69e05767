package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/domain/service"
	applogger "PriceTrack/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// SentimentClient calls the text classifier sidecar.
//
//	GET  /health     readiness
//	POST /sentiment  {"text": "..."} -> [{"label": "POSITIVE", "score": 0.99}]
type SentimentClient struct {
	base       *HTTPServiceBase
	retries    int
	batchLimit int
	l          *applogger.Logger

	mu    sync.Mutex
	ready bool
}

var _ service.SentimentClassifier = (*SentimentClient)(nil)

func NewSentimentClient(base *HTTPServiceBase, retries, batchLimit int, l *applogger.Logger) *SentimentClient {
	if batchLimit <= 0 {
		batchLimit = 8
	}
	return &SentimentClient{base: base, retries: retries, batchLimit: batchLimit, l: l}
}

// ensureReady checks the sidecar once; only success is remembered.
func (s *SentimentClient) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	start := time.Now()
	if err := s.base.GetJSON(ctx, "/health", nil); err != nil {
		s.l.Warn("sentiment classifier not ready", applogger.Error(err))
		return fmt.Errorf("%w: %v", ErrClassifierOffline, err)
	}
	s.ready = true
	s.l.Info("sentiment classifier ready", applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

func (s *SentimentClient) classify(ctx context.Context, text string) (models.Sentiment, error) {
	var out []models.Sentiment
	if err := s.base.PostJSONWithRetry(ctx, "/sentiment", map[string]string{"text": text}, &out, s.retries); err != nil {
		return models.Sentiment{}, err
	}
	if len(out) == 0 || out[0].Label == "" {
		return models.Sentiment{}, ErrInvalidResult
	}
	return out[0], nil
}

func (s *SentimentClient) AnalyzeText(ctx context.Context, text string) (models.Sentiment, error) {
	if err := s.ensureReady(ctx); err != nil {
		return models.Sentiment{}, err
	}
	res, err := s.classify(ctx, text)
	if err != nil {
		s.l.Error("sentiment analysis error", applogger.Error(err))
	}
	return res, err
}

// AnalyzeBatch classifies texts concurrently; results keep input order and
// the first failure cancels the rest.
func (s *SentimentClient) AnalyzeBatch(ctx context.Context, texts []string) ([]models.Sentiment, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	out := make([]models.Sentiment, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, text := range texts {
		g.Go(func() error {
			res, err := s.classify(gctx, text)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.l.Error("batch sentiment analysis error", applogger.Int("texts", len(texts)), applogger.Error(err))
		return nil, err
	}
	return out, nil
}
