//go:build wireinject
// +build wireinject

package di

import (
	"PriceTrack/pkg/config"
	"PriceTrack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideCatalog,
		ProvideProductRepository,
		ProvideStoreRepository,
		ProvideTrackingRepository,
		ProvideAnalysisRepository,
		ProvideClickHouseClient,
		ProvidePriceHistory,

		// Cache and job queue
		ProvideRedisCache,
		ProvideCache,
		ProvideQueue,
		ProvideJobPublisher,

		// Kafka
		ProvideKafkaProducer,
		ProvideAlertPublisher,
		ProvideKafkaConsumer,
		ProvideObservationHandler,
		ProvideKafkaHandlers,

		// ML and AI
		ProvideTrainer,
		ProvideModelRegistry,
		ProvideProductAnalyzer,
		ProvideSentimentClassifier,
		ProvideAnalysisLimiter,

		// Use cases
		ProvideProductUseCase,
		ProvideAnalysisUseCase,
		ProvideTrackingUseCase,
		ProvideForecastUseCase,

		// HTTP and application
		ProvideHTTPHandlers,
		ProvideHTTPServer,
		ProvideResources,
		ProvideApp,
	)
	return &server.App{}, nil
}
