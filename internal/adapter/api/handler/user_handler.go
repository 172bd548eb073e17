package handler

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/usecase"
	"mercadito/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type updateProfileRequest struct {
	FirstName       string `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName        string `json:"last_name" validate:"omitempty,min=2,max=50"`
	Username        string `json:"username" validate:"omitempty,min=3,max=30"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid := c.Get("uid").(string)

	user, err := h.userUseCase.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), uid, usecase.UpdateProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
