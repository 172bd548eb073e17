package router

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/adapter/api/handler"
	"mercadito/internal/adapter/api/middleware"
)

func SetupRecommendationRouter(e *echo.Echo, recommendationHandler *handler.RecommendationHandler, authMiddleware *middleware.AuthMiddleware) {
	e.POST("/v1/recommendations", recommendationHandler.Recommend, authMiddleware.Authenticate)
}
