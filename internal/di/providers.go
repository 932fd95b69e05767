package di

import (
	"context"
	"fmt"
	"time"

	"PriceTrack/internal/domain/repository"
	"PriceTrack/internal/domain/service"
	"PriceTrack/internal/handler/api"
	internalrepo "PriceTrack/internal/repository"
	"PriceTrack/internal/service/ratelimit"
	"PriceTrack/internal/services/analytics"
	"PriceTrack/internal/services/training"
	"PriceTrack/internal/usecase"
	"PriceTrack/pkg/cache"
	pkgch "PriceTrack/pkg/clickhouse"
	"PriceTrack/pkg/config"
	xhttp "PriceTrack/pkg/http"
	pkgkafka "PriceTrack/pkg/kafka"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/metrics"
	"PriceTrack/pkg/queue"
	"PriceTrack/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCatalog opens the SQLite catalog and applies its schema.
func ProvideCatalog(cfg *config.Config) (*internalrepo.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cat, err := internalrepo.OpenCatalog(ctx, cfg.Catalog.DSN)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return cat, nil
}

func ProvideProductRepository(c *internalrepo.Catalog) repository.ProductRepository {
	return c.Products()
}

func ProvideStoreRepository(c *internalrepo.Catalog) repository.StoreRepository {
	return c.Stores()
}

func ProvideTrackingRepository(c *internalrepo.Catalog) repository.TrackingRepository {
	return c.Tracking()
}

func ProvideAnalysisRepository(c *internalrepo.Catalog) repository.AnalysisRepository {
	return c.Analyses()
}

// ProvideClickHouseClient connects to ClickHouse when it backs price history.
// Returns nil for any other backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.History.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.PriceHistorySchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceHistory selects the time-series store named by history.backend.
func ProvidePriceHistory(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.PriceHistoryStore {
	if ch != nil {
		return internalrepo.NewCHPriceHistory(ch, l)
	}
	return internalrepo.NewInfluxPriceHistory(cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket, l)
}

// ProvideRedisCache connects the shared cache. Sessions, locks and the job
// queue all live in this Redis.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache puts an in-process layer in front of Redis.
func ProvideCache(rc *cache.RedisCache, cfg *config.Config) cache.Service {
	opts := []cache.LayeredOption{}
	if cfg.Cache.MemorySize > 0 {
		opts = append(opts, cache.WithLayeredMemorySize(cfg.Cache.MemorySize))
	}
	return cache.NewLayeredCache(rc, opts...)
}

// ProvideQueue builds the Redis job queue on the cache connection.
func ProvideQueue(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

func ProvideJobPublisher(q *queue.RedisQueue) queue.Publisher {
	return q
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher publishes price-drop alerts to Kafka when a producer
// and topic are configured.
func ProvideAlertPublisher(p *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if p == nil || cfg.Kafka.AlertsTopic == "" {
		return internalrepo.NopAlertPublisher{}
	}
	return internalrepo.NewKafkaAlertPublisher(p, cfg.Kafka.AlertsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	l.Info("kafka consumer configured",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("group_id", cfg.Kafka.Consumer.GroupID))
	return consumer, nil
}

// ProvideObservationHandler ingests scraped prices from the observations topic.
func ProvideObservationHandler(
	cfg *config.Config,
	products repository.ProductRepository,
	stores repository.StoreRepository,
	tracking repository.TrackingRepository,
	history repository.PriceHistoryStore,
	alerts repository.AlertPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PriceObservationHandler {
	return usecase.NewPriceObservationHandler(cfg.Kafka.ObservationsTopic, products, stores, tracking, history, alerts, m, l)
}

func ProvideKafkaHandlers(h *usecase.PriceObservationHandler) []pkgkafka.MessageHandler {
	return []pkgkafka.MessageHandler{h}
}

// ProvideTrainer builds the forecasting trainer from forecast.* settings.
func ProvideTrainer(cfg *config.Config) service.PriceTrainer {
	opts := []training.Option{
		training.WithEpochs(cfg.Forecast.Epochs),
		training.WithBatchSize(cfg.Forecast.BatchSize),
		training.WithLearningRate(cfg.Forecast.LearningRate),
		training.WithValidationSplit(cfg.Forecast.ValidationSplit),
	}
	if cfg.Forecast.Dropout > 0 {
		opts = append(opts, training.WithDropout(cfg.Forecast.Dropout))
	}
	if cfg.Forecast.Seed != 0 {
		opts = append(opts, training.WithSeed(cfg.Forecast.Seed))
	}
	return training.NewTrainer(opts...)
}

func ProvideModelRegistry(cfg *config.Config) *usecase.ModelRegistry {
	return usecase.NewModelRegistry(cfg.Forecast.MaxSessions)
}

// ProvideProductAnalyzer returns nil when the AI gateway is disabled or has
// no key, and the analysis endpoint then answers 500.
func ProvideProductAnalyzer(cfg *config.Config, l *applogger.Logger) service.ProductAnalyzer {
	if !cfg.AI.Enabled {
		return nil
	}
	a, err := analytics.NewChatProductAnalyzer(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, l)
	if err != nil {
		l.Warn("product analyzer disabled", applogger.Error(err))
		return nil
	}
	return a
}

func ProvideSentimentClassifier(cfg *config.Config, l *applogger.Logger) service.SentimentClassifier {
	base := analytics.NewHTTPServiceBase(cfg.Sentiment.ServiceURL, cfg.Sentiment.Timeout)
	return analytics.NewSentimentClient(base, cfg.Sentiment.Retries, cfg.Sentiment.BatchLimit, l)
}

func ProvideAnalysisLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.AnalysisBurst, cfg.RateLimit.AnalysisPerSec)
}

func ProvideProductUseCase(
	cfg *config.Config,
	products repository.ProductRepository,
	stores repository.StoreRepository,
	analyses repository.AnalysisRepository,
	history repository.PriceHistoryStore,
	c cache.Service,
	l *applogger.Logger,
) *usecase.ProductUseCase {
	return usecase.NewProductUseCase(products, stores, analyses, history, c, cfg.Cache.ProductsTTL, l)
}

func ProvideAnalysisUseCase(
	cfg *config.Config,
	products repository.ProductRepository,
	history repository.PriceHistoryStore,
	analyses repository.AnalysisRepository,
	analyzer service.ProductAnalyzer,
	m repository.Metrics,
	c cache.Service,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(products, history, analyses, analyzer, m, c, cfg.Cache.AnalysisTTL, l)
}

func ProvideTrackingUseCase(products repository.ProductRepository, tracking repository.TrackingRepository, l *applogger.Logger) *usecase.TrackingUseCase {
	return usecase.NewTrackingUseCase(products, tracking, l)
}

// ProvideForecastUseCase also registers the training job on the queue so
// enqueued sessions are picked up by this process.
func ProvideForecastUseCase(
	cfg *config.Config,
	trainer service.PriceTrainer,
	history repository.PriceHistoryStore,
	q *queue.RedisQueue,
	publisher queue.Publisher,
	c cache.Service,
	registry *usecase.ModelRegistry,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	uc := usecase.NewForecastUseCase(trainer, history, publisher, c, registry, m, cfg.Cache.SessionTTL, l)
	q.RegisterJob(usecase.NewTrainingJob(uc))
	return uc
}

// ProvideHTTPHandlers lists every route group served by the API.
func ProvideHTTPHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	products *usecase.ProductUseCase,
	analysis *usecase.AnalysisUseCase,
	tracking *usecase.TrackingUseCase,
	forecast *usecase.ForecastUseCase,
	classifier service.SentimentClassifier,
	limiter *ratelimit.Limiter,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewProductsHandler(l, products, analysis, limiter),
		api.NewTrackingHandler(l, tracking),
		api.NewSentimentHandler(l, classifier),
		api.NewForecastHandler(l, forecast, cfg.Forecast.MaxUploadBytes, cfg.Server.AllowedOrigins),
	}
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithAllowOrigins(cfg.Server.AllowedOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideResources lists what the app closes on shutdown, in construction
// order, and what /readyz probes.
func ProvideResources(
	catalog *internalrepo.Catalog,
	ch *pkgch.Client,
	history repository.PriceHistoryStore,
	c cache.Service,
	producer *pkgkafka.Producer,
) []server.Resource {
	res := []server.Resource{
		{Name: "catalog", Closer: catalog, Check: catalog.Health},
		{Name: "history", Closer: history, Check: history.Health},
	}
	if ch != nil {
		res = append(res, server.Resource{Name: "clickhouse", Closer: ch})
	}
	res = append(res, server.Resource{Name: "cache", Closer: c})
	if producer != nil {
		res = append(res, server.Resource{Name: "kafka-producer", Closer: producer})
	}
	return res
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	resources []server.Resource,
) *server.App {
	return server.New(cfg, l, srv, q, consumer, handlers, resources)
}
