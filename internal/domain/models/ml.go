package models

import "time"

// Sentiment is a classifier verdict.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// AnalysisInput is what the AI analyzer sees about a product.
type AnalysisInput struct {
	ProductName  string       `json:"productName"`
	Description  string       `json:"description"`
	CurrentPrice float64      `json:"currentPrice"`
	LowestPrice  float64      `json:"lowestPrice"`
	HighestPrice float64      `json:"highestPrice"`
	PriceHistory []PricePoint `json:"priceHistory"`
}

// AnalysisResult is the analyzer's structured answer.
type AnalysisResult struct {
	SentimentScore float64 `json:"sentimentScore"`
	Recommendation string  `json:"recommendation"`
	Summary        string  `json:"summary"`
}

// Training session states.
const (
	SessionQueued   = "queued"
	SessionTraining = "training"
	SessionReady    = "ready"
	SessionFailed   = "failed"
)

// TrainingSession is the externally visible state of one training run.
type TrainingSession struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id,omitempty"`
	Status    string    `json:"status"`
	Points    int       `json:"points"`
	Lookback  int       `json:"lookback,omitempty"`
	Epoch     int       `json:"epoch"`
	Epochs    int       `json:"epochs"`
	Progress  int       `json:"progress"`
	Loss      float64   `json:"loss"`
	ValLoss   float64   `json:"val_loss"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the session reached a final state.
func (s *TrainingSession) Done() bool {
	return s.Status == SessionReady || s.Status == SessionFailed
}

// PricePrediction is one forecast day.
type PricePrediction struct {
	Day   int     `json:"day"`
	Price float64 `json:"price"`
}

// ForecastResult is the answer to a predict call.
type ForecastResult struct {
	SessionID   string            `json:"session_id"`
	Lookback    int               `json:"lookback"`
	Predictions []PricePrediction `json:"predictions"`
}
