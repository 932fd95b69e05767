package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceTrack/pkg/config"
	xhttp "PriceTrack/pkg/http"
	pkgkafka "PriceTrack/pkg/kafka"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/queue"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// Resource is a named dependency that is closed on shutdown and, when Check
// is set, probed by /readyz.
type Resource struct {
	Name   string
	Closer io.Closer
	Check  func(context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	queue      *queue.RedisQueue
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	resources  []Resource
}

// New creates a new App instance. consumer may be nil when Kafka is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	resources []Resource,
) *App {
	a := &App{
		cfg:        cfg,
		logger:     l,
		httpServer: httpServer,
		queue:      q,
		consumer:   consumer,
		handlers:   handlers,
		resources:  resources,
	}
	httpServer.Echo().GET("/readyz", a.ready)
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.queue.Start(); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}

	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			a.logger.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("pricetrack started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(context.Background())
}

// shutdown stops intake first, then workers, then closes resources in
// reverse order of construction.
func (a *App) shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.logger.Warn("queue stop error", applogger.Error(err))
	}

	a.closeResources()

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeResources() {
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if r.Closer == nil {
			continue
		}
		if err := r.Closer.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", r.Name), applogger.Error(err))
		}
	}
}

func (a *App) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := make([]string, len(a.resources))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range a.resources {
		if r.Check == nil {
			status[i] = "ok"
			continue
		}
		g.Go(func() error {
			if err := r.Check(gctx); err != nil {
				status[i] = err.Error()
				return fmt.Errorf("%s: %w", r.Name, err)
			}
			status[i] = "ok"
			return nil
		})
	}
	err := g.Wait()

	out := make(map[string]string, len(a.resources))
	for i, r := range a.resources {
		if status[i] != "" {
			out[r.Name] = status[i]
		}
	}
	if err != nil {
		a.logger.Warn("readiness check failed", applogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, out)
	}
	return xhttp.SuccessResponse(c, out)
}
