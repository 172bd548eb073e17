package router

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/adapter/api/handler"
)

func Setup(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
}
