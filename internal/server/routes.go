package server

import (
	"github.com/andleeb4898/pantry/internal/metrics"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h Handlers, m *metrics.Metrics) {
	h.Health.RegisterRoutes(e)
	h.Items.RegisterRoutes(e)
	h.Page.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}
