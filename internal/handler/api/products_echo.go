package api

import (
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/service/ratelimit"
	"PriceTrack/internal/usecase"
	xhttp "PriceTrack/pkg/http"
	applogger "PriceTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ProductsHandler serves the catalog and AI analyses.
type ProductsHandler struct {
	logger   *applogger.Logger
	products *usecase.ProductUseCase
	analysis *usecase.AnalysisUseCase
	limiter  *ratelimit.Limiter
}

var _ xhttp.Handler = (*ProductsHandler)(nil)

func NewProductsHandler(logger *applogger.Logger, products *usecase.ProductUseCase, analysis *usecase.AnalysisUseCase, limiter *ratelimit.Limiter) *ProductsHandler {
	return &ProductsHandler{logger: logger, products: products, analysis: analysis, limiter: limiter}
}

func (h *ProductsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/products")
	g.GET("", h.List)
	g.GET("/categories", h.Categories)
	g.GET("/:id", h.Detail)
	g.GET("/:id/history", h.History)
	g.POST("", h.Upsert)
	g.POST("/:id/stores", h.UpsertStore)
	g.POST("/:id/analysis", h.Analyze, h.limiter.Middleware())
	g.GET("/:id/analysis", h.GetAnalysis)
}

func (h *ProductsHandler) List(c echo.Context) error {
	req := &models.ListProductsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.products.List(c.Request().Context(), models.ProductFilter{
		Search:   req.Search,
		Category: req.Category,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		h.logger.Error("list products error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ProductsHandler) Categories(c echo.Context) error {
	cats, err := h.products.Categories(c.Request().Context())
	if err != nil {
		h.logger.Error("categories error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, cats)
}

func (h *ProductsHandler) Detail(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.products.Detail(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ProductsHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Time{})
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must not be before from"))
	}
	res, err := h.products.History(c.Request().Context(), req.ID, from, to)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ProductsHandler) Upsert(c echo.Context) error {
	req := &models.UpsertProductRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := &models.Product{
		ID:           req.ID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		ProductURL:   req.ProductURL,
		CurrentPrice: req.CurrentPrice,
	}
	if err := h.products.Upsert(c.Request().Context(), p); err != nil {
		h.logger.Error("upsert product error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *ProductsHandler) UpsertStore(c echo.Context) error {
	req := &models.UpsertStoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o := &models.StoreOffer{ProductID: req.ID, StoreName: req.StoreName, Price: req.Price, StoreURL: req.StoreURL}
	if err := h.products.UpsertStoreOffer(c.Request().Context(), o); err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, o)
}

func (h *ProductsHandler) Analyze(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analysis.Analyze(c.Request().Context(), req.ID)
	if err != nil {
		h.logger.Error("analyze product error", applogger.String("product_id", req.ID), applogger.Error(err))
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ProductsHandler) GetAnalysis(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analysis.Get(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, usecase.MapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
