package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/repository"
)

// Router composes all API handlers behind one route registration.
type Router struct {
	markets   *MarketsEchoHandler
	portfolio *PortfolioEchoHandler
	archive   repository.TickArchive
}

func NewRouter(markets *MarketsEchoHandler, portfolio *PortfolioEchoHandler, archive repository.TickArchive) *Router {
	return &Router{markets: markets, portfolio: portfolio, archive: archive}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.markets.RegisterRoutes(e)
	r.portfolio.RegisterRoutes(e)
	e.GET("/healthz", r.health)
}

func (r *Router) health(c echo.Context) error {
	if r.archive != nil {
		if err := r.archive.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
