package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	trainingProgress prometheus.Histogram
	forecastDays     prometheus.Counter
}

// New registers the recorder's collectors with reg. A nil reg uses the
// default registry, which /metrics serves.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrack_price_observations_total",
				Help: "Total number of price observations ingested",
			},
			[]string{"source"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrack_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricetrack_last_price",
				Help: "Last observed price for a product",
			},
			[]string{"product_id"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricetrack_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		trainingProgress: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricetrack_training_progress_percent",
				Help:    "Reported training progress per epoch",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		forecastDays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pricetrack_forecast_days_total",
				Help: "Total number of forecast days produced",
			},
		),
	}
}

// RecordObservation counts an ingested price observation.
func (r *Recorder) RecordObservation(source string) {
	r.observations.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a product.
func (r *Recorder) RecordLastPrice(productID string, price float64) {
	r.lastPrice.WithLabelValues(productID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordTrainingProgress(percent int) {
	r.trainingProgress.Observe(float64(percent))
}

func (r *Recorder) RecordForecast(days int) {
	r.forecastDays.Add(float64(days))
}
