package models

import "time"

// PriceObservation is what scrapers publish for every price they see.
type PriceObservation struct {
	ProductID  string    `json:"product_id" validate:"required"`
	Price      float64   `json:"price" validate:"gt=0"`
	RecordedAt time.Time `json:"recorded_at"`
	StoreName  string    `json:"store_name,omitempty"`
	StoreURL   string    `json:"store_url,omitempty"`
}

// PriceDropAlert is published when an observation reaches a user's target.
type PriceDropAlert struct {
	TrackedID   string    `json:"tracked_id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `json:"price"`
	TargetPrice float64   `json:"target_price"`
	ObservedAt  time.Time `json:"observed_at"`
}
