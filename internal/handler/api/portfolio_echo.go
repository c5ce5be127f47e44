package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/ledger"
	"CoinPulse/internal/service/ratelimit"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"
)

// PortfolioEchoHandler serves the trade and wallet routes. All routes
// require an authenticated user; trades are rate limited per user.
type PortfolioEchoHandler struct {
	logger     *xlogger.Logger
	ledger     *ledger.Service
	limiter    *ratelimit.Limiter
	tradeRPS   float64
	tradeBurst float64
}

func NewPortfolioEchoHandler(logger *xlogger.Logger, svc *ledger.Service, limiter *ratelimit.Limiter, rps, burst float64) *PortfolioEchoHandler {
	return &PortfolioEchoHandler{
		logger:     logger,
		ledger:     svc,
		limiter:    limiter,
		tradeRPS:   rps,
		tradeBurst: burst,
	}
}

func (h *PortfolioEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", RequireUser())
	g.POST("/trade/buy", h.Buy)
	g.POST("/trade/sell", h.Sell)
	g.GET("/wallet", h.Wallet)
}

func (h *PortfolioEchoHandler) Buy(c echo.Context) error {
	req := &BuyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	userID := UserID(c)
	if !h.allowTrade(userID) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many trades")
	}

	if err := h.ledger.Buy(c.Request().Context(), userID, req.Symbol, req.Amount); err != nil {
		return h.tradeErrorResponse(c, "buy", err)
	}
	return xhttp.SuccessResponse(c, "purchase successful")
}

func (h *PortfolioEchoHandler) Sell(c echo.Context) error {
	req := &SellRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	userID := UserID(c)
	if !h.allowTrade(userID) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many trades")
	}

	if err := h.ledger.Sell(c.Request().Context(), userID, req.Symbol, req.Quantity); err != nil {
		return h.tradeErrorResponse(c, "sell", err)
	}
	return xhttp.SuccessResponse(c, "sale successful")
}

func (h *PortfolioEchoHandler) Wallet(c echo.Context) error {
	userID := UserID(c)

	wallet, err := h.ledger.Wallet(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("wallet derivation failed", xlogger.String("user", userID), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, toWalletResponse(wallet))
}

func (h *PortfolioEchoHandler) allowTrade(userID string) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow("trade:"+userID, h.tradeBurst, h.tradeRPS)
}

func (h *PortfolioEchoHandler) tradeErrorResponse(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrAssetNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("coin not found"))
	case errors.Is(err, models.ErrInvalidAmount):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("amount must be positive"))
	case errors.Is(err, models.ErrInsufficientBalance):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("insufficient balance"))
	case errors.Is(err, models.ErrInsufficientHoldings):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("insufficient holdings"))
	default:
		h.logger.Error("trade failed", xlogger.String("op", op), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
