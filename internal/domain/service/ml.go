package service

import (
	"context"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/services/forecast"
	"PriceTrack/internal/services/training"
)

// SentimentClassifier labels free text.
type SentimentClassifier interface {
	AnalyzeText(ctx context.Context, text string) (models.Sentiment, error)
	AnalyzeBatch(ctx context.Context, texts []string) ([]models.Sentiment, error)
}

// ProductAnalyzer produces buy/no-buy summaries.
type ProductAnalyzer interface {
	Analyze(ctx context.Context, in models.AnalysisInput) (models.AnalysisResult, error)
}

// PriceTrainer fits a forecasting model on a price history.
type PriceTrainer interface {
	Train(ctx context.Context, prices []float64, progress training.ProgressFunc) (*forecast.Trained, error)
	Epochs() int
}
