package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/market"
	"CoinPulse/internal/stream"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"
)

// MarketsEchoHandler serves the asset listing, detail and watchlist routes.
// Every listing read drives one simulation tick before responding.
type MarketsEchoHandler struct {
	logger *xlogger.Logger
	engine *market.Engine
	hub    *stream.Hub
}

func NewMarketsEchoHandler(logger *xlogger.Logger, engine *market.Engine, hub *stream.Hub) *MarketsEchoHandler {
	return &MarketsEchoHandler{logger: logger, engine: engine, hub: hub}
}

func (h *MarketsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/markets", h.List)
	g.GET("/markets/:symbol", h.Detail)
	g.POST("/watchlist/:symbol", h.ToggleWatch)
	if h.hub != nil {
		g.GET("/markets/stream", h.Stream)
	}
}

func (h *MarketsEchoHandler) List(c echo.Context) error {
	req := &MarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quotes, err := h.engine.ListAssets(c.Request().Context(), market.Filter{
		Category: market.Category(req.Category),
		Query:    req.Query,
	})
	if err != nil {
		h.logger.Error("market listing failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	rows := make([]AssetResponse, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, toAssetResponse(q))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketsEchoHandler) Detail(c echo.Context) error {
	symbol := c.Param("symbol")

	detail, err := h.engine.GetAsset(c.Request().Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s not found", symbol))
		}
		h.logger.Error("asset detail failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, toAssetDetailResponse(detail))
}

func (h *MarketsEchoHandler) ToggleWatch(c echo.Context) error {
	symbol := c.Param("symbol")

	if err := h.engine.ToggleWatch(c.Request().Context(), symbol); err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s not found", symbol))
		}
		h.logger.Error("watch toggle failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, "watchlist updated")
}

func (h *MarketsEchoHandler) Stream(c echo.Context) error {
	return h.hub.Serve(c)
}
