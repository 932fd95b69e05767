package api

import (
	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/usecase"
	xhttp "PriceTrack/pkg/http"
	applogger "PriceTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrackingHandler serves a user's watch list. Every route needs X-User-ID.
type TrackingHandler struct {
	logger   *applogger.Logger
	tracking *usecase.TrackingUseCase
}

var _ xhttp.Handler = (*TrackingHandler)(nil)

func NewTrackingHandler(logger *applogger.Logger, tracking *usecase.TrackingUseCase) *TrackingHandler {
	return &TrackingHandler{logger: logger, tracking: tracking}
}

func (h *TrackingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/tracking", RequireUser())
	g.POST("", h.Track)
	g.DELETE("/:id", h.Untrack)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/products/:product_id", h.Status)
}

func (h *TrackingHandler) Track(c echo.Context) error {
	req := &models.TrackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	row, err := h.tracking.Track(c.Request().Context(), usecase.TrackParams{
		UserID:       userID(c),
		ProductID:    req.ProductID,
		TargetPrice:  req.TargetPrice,
		NotifyOnDrop: req.NotifyOnDrop,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.CreatedResponse(c, row)
}

func (h *TrackingHandler) Untrack(c echo.Context) error {
	req := &models.UntrackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.tracking.Untrack(c.Request().Context(), userID(c), req.ID); err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *TrackingHandler) Dashboard(c echo.Context) error {
	res, err := h.tracking.Dashboard(c.Request().Context(), userID(c))
	if err != nil {
		h.logger.Error("dashboard error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TrackingHandler) Status(c echo.Context) error {
	req := &models.TrackingStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tracked, err := h.tracking.IsTracked(c.Request().Context(), userID(c), req.ProductID)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, map[string]bool{"tracked": tracked})
}
