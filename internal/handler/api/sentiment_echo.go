package api

import (
	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/domain/service"
	"PriceTrack/internal/usecase"
	xhttp "PriceTrack/pkg/http"
	applogger "PriceTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

type SentimentHandler struct {
	logger     *applogger.Logger
	classifier service.SentimentClassifier
}

var _ xhttp.Handler = (*SentimentHandler)(nil)

func NewSentimentHandler(logger *applogger.Logger, classifier service.SentimentClassifier) *SentimentHandler {
	return &SentimentHandler{logger: logger, classifier: classifier}
}

func (h *SentimentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sentiment")
	g.POST("", h.Analyze)
	g.POST("/batch", h.AnalyzeBatch)
}

func (h *SentimentHandler) Analyze(c echo.Context) error {
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.classifier.AnalyzeText(c.Request().Context(), req.Text)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SentimentHandler) AnalyzeBatch(c echo.Context) error {
	req := &models.SentimentBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.classifier.AnalyzeBatch(c.Request().Context(), req.Texts)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
