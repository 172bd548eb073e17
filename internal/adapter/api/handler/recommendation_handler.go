package handler

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/usecase"
	"mercadito/pkg/response"
)

type RecommendationHandler struct {
	recommendationUseCase *usecase.RecommendationUseCase
}

func NewRecommendationHandler(recommendationUseCase *usecase.RecommendationUseCase) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationUseCase: recommendationUseCase,
	}
}

type recommendRequest struct {
	SearchQuery string `json:"search_query" validate:"required"`
}

func (h *RecommendationHandler) Recommend(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	products, err := h.recommendationUseCase.Recommend(c.Request().Context(), uid, req.SearchQuery)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, products)
}
