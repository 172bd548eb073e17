package router

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/adapter/api/handler"
	"mercadito/internal/adapter/api/middleware"
)

func SetupProductRouter(e *echo.Echo, productHandler *handler.ProductHandler, authMiddleware *middleware.AuthMiddleware) {
	// Browsing the catalog needs no session
	productGroup := e.Group("/v1/products")
	productGroup.GET("", productHandler.List)
	productGroup.GET("/categories", productHandler.Categories)

	// Listing management requires one
	productGroup.GET("/mine", productHandler.ListMine, authMiddleware.Authenticate)
	productGroup.POST("", productHandler.Create, authMiddleware.Authenticate)
	productGroup.PUT("/:id", productHandler.Update, authMiddleware.Authenticate)
	productGroup.DELETE("/:id", productHandler.Delete, authMiddleware.Authenticate)

	// Registered after /categories and /mine so those are not shadowed
	productGroup.GET("/:id", productHandler.GetByID)
}
