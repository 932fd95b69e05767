package models

import "time"

// Product is a scraped listing.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ProductURL   string    `json:"product_url,omitempty"`
	CurrentPrice float64   `json:"current_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PricePoint is one row of price_history.
type PricePoint struct {
	ProductID  string    `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StoreOffer is one row of product_stores.
type StoreOffer struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	StoreName string    `json:"store_name"`
	Price     float64   `json:"price"`
	StoreURL  string    `json:"store_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrackedProduct is a user's watch on a product.
type TrackedProduct struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    string    `json:"product_id"`
	TargetPrice  float64   `json:"target_price"`
	NotifyOnDrop bool      `json:"notify_on_drop"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrackedItem is a tracked row joined with its product.
type TrackedItem struct {
	TrackedProduct
	Product Product `json:"product"`
}

// ProductAnalysis is the stored AI summary, one per product.
type ProductAnalysis struct {
	ProductID       string    `json:"product_id"`
	SentimentScore  float64   `json:"sentiment_score"`
	Recommendation  string    `json:"recommendation"`
	AnalysisSummary string    `json:"analysis_summary"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserPreference tracks interest in a category.
type UserPreference struct {
	UserID        string    `json:"user_id"`
	Category      string    `json:"category"`
	InterestScore float64   `json:"interest_score"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// ProductDetail aggregates everything the product page shows.
type ProductDetail struct {
	Product      Product           `json:"product"`
	History      []PricePoint      `json:"history"`
	Stores       []StoreOffer      `json:"stores"`
	Analysis     *ProductAnalysis  `json:"analysis,omitempty"`
	Similar      []Product         `json:"similar"`
	LowestPrice  float64           `json:"lowest_price"`
	HighestPrice float64           `json:"highest_price"`
	Trend        string            `json:"trend"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// DashboardStats summarises a user's tracking list.
type DashboardStats struct {
	Tracked          int     `json:"tracked"`
	AlertsEnabled    int     `json:"alerts_enabled"`
	AtOrBelowTarget  int     `json:"at_or_below_target"`
	PotentialSavings float64 `json:"potential_savings"`
}

// Dashboard is the tracked list of one user.
type Dashboard struct {
	Items []TrackedItem  `json:"items"`
	Stats DashboardStats `json:"stats"`
}
