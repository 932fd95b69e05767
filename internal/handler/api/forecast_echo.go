package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/services/dataset"
	"PriceTrack/internal/usecase"
	xhttp "PriceTrack/pkg/http"
	"PriceTrack/pkg/http/middleware"
	applogger "PriceTrack/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const uploadField = "file"

// ForecastHandler starts training sessions, streams their progress and
// serves predictions.
type ForecastHandler struct {
	logger    *applogger.Logger
	forecast  *usecase.ForecastUseCase
	maxUpload int64
	pollEvery time.Duration
	upgrader  websocket.Upgrader
}

var _ xhttp.Handler = (*ForecastHandler)(nil)

// NewForecastHandler serves the forecast routes. allowedOrigins gates the
// progress websocket the same way CORS gates the rest of the API.
func NewForecastHandler(logger *applogger.Logger, forecast *usecase.ForecastUseCase, maxUpload int64, allowedOrigins []string) *ForecastHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &ForecastHandler{
		logger:    logger,
		forecast:  forecast,
		maxUpload: maxUpload,
		pollEvery: 500 * time.Millisecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin admits clients that send no Origin, which browsers always do.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get(echo.HeaderOrigin)
		return origin == "" || middleware.OriginAllowed(allowed, origin)
	}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/forecast/sessions")
	g.POST("", h.Start)
	g.POST("/upload", h.Upload)
	g.GET("/:id", h.Session)
	g.GET("/:id/ws", h.Stream)
	g.POST("/:id/predict", h.Predict)
}

func (h *ForecastHandler) Start(c echo.Context) error {
	req := &models.StartTrainingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	prices := make([]float64, 0, len(req.Records))
	for _, r := range req.Records {
		if p, ok := dataset.Coerce(r.Price); ok {
			prices = append(prices, p)
		}
	}
	s, err := h.forecast.StartTraining(c.Request().Context(), usecase.StartTrainingParams{
		ProductID: req.ProductID,
		Prices:    prices,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.AcceptedResponse(c, s)
}

// Upload accepts a csv, json or parquet dataset as multipart field "file".
func (h *ForecastHandler) Upload(c echo.Context) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUpload)
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_TOO_LARGE", uploadField, "dataset too large", http.StatusRequestEntityTooLarge))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("multipart field \"file\" is required").WithError(err))
	}
	f, err := fh.Open()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("cannot open upload").WithError(err))
	}
	defer f.Close()

	ds, err := dataset.Load(fh.Filename, f)
	if err != nil {
		h.logger.Warn("dataset rejected", applogger.String("file", fh.Filename), applogger.Error(err))
		if errors.Is(err, dataset.ErrUnsupportedFormat) {
			return xhttp.AppErrorResponse(c, usecase.MapError(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("cannot parse dataset").WithError(err))
	}
	h.logger.Info("dataset uploaded",
		applogger.String("file", fh.Filename),
		applogger.Int("records", len(ds.Records)),
		applogger.Int("dropped", ds.Dropped))

	s, err := h.forecast.StartTraining(c.Request().Context(), usecase.StartTrainingParams{Prices: ds.Prices()})
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.AcceptedResponse(c, s)
}

func (h *ForecastHandler) Session(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.forecast.Session(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, s)
}

// Stream pushes the session every time it changes and closes once training
// reaches a final state.
func (h *ForecastHandler) Stream(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	s, err := h.forecast.Session(ctx, id)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// drain client frames; a read error means the peer went away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollEvery)
	defer ticker.Stop()
	var sent time.Time
	for {
		if !s.UpdatedAt.Equal(sent) {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s); err != nil {
				return nil
			}
			sent = s.UpdatedAt
		}
		if s.Done() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, s.Status),
				time.Now().Add(time.Second))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		next, err := h.forecast.Session(ctx, id)
		if err != nil {
			h.logger.Warn("session poll failed", applogger.String("session_id", id), applogger.Error(err))
			return nil
		}
		s = next
	}
}

func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.forecast.Predict(c.Request().Context(), req.ID, req.RecentPrices, req.DaysAhead)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
