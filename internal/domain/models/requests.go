package models

// Requests for the HTTP API. Bound and validated through pkg/http.

type ListProductsRequest struct {
	Search   string `query:"search" json:"search" validate:"max=200"`
	Category string `query:"category" json:"category" default:"all"`
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
	Offset   int    `query:"offset" json:"offset" validate:"gte=0"`
}

type ProductIDRequest struct {
	ID string `param:"id" validate:"required"`
}

type HistoryRequest struct {
	ID   string `param:"id" validate:"required"`
	From string `query:"from"`
	To   string `query:"to"`
}

type UpsertProductRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name" validate:"required,max=300"`
	Description  string  `json:"description"`
	Category     string  `json:"category" validate:"max=100"`
	ImageURL     string  `json:"image_url" validate:"omitempty,url"`
	ProductURL   string  `json:"product_url" validate:"omitempty,url"`
	CurrentPrice float64 `json:"current_price" validate:"gt=0"`
}

type UpsertStoreRequest struct {
	ID        string  `param:"id" validate:"required"`
	StoreName string  `json:"store_name" validate:"required,max=100"`
	Price     float64 `json:"price" validate:"gt=0"`
	StoreURL  string  `json:"store_url" validate:"omitempty,url"`
}

type TrackRequest struct {
	ProductID    string   `json:"product_id" validate:"required"`
	TargetPrice  *float64 `json:"target_price" validate:"omitempty,gte=0"`
	NotifyOnDrop *bool    `json:"notify_on_drop"`
}

type TrackingStatusRequest struct {
	ProductID string `param:"product_id" validate:"required"`
}

type UntrackRequest struct {
	ID string `param:"id" validate:"required"`
}

type SentimentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type SentimentBatchRequest struct {
	Texts []string `json:"texts" validate:"required,min=1,max=100,dive,required,max=5000"`
}

type PriceRecordInput struct {
	Price any    `json:"price"`
	Date  string `json:"date"`
}

type StartTrainingRequest struct {
	ProductID string             `json:"product_id"`
	Records   []PriceRecordInput `json:"records" validate:"required_without=ProductID"`
}

type SessionRequest struct {
	ID string `param:"id" validate:"required"`
}

type PredictRequest struct {
	ID           string    `param:"id" validate:"required"`
	RecentPrices []float64 `json:"recent_prices" validate:"omitempty,dive,gt=0"`
	DaysAhead    int       `json:"days_ahead" default:"7" validate:"gte=1,lte=90"`
}
