package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandlers handles user management requests
type UserHandlers struct {
	userService services.UserService
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// ListUsers handles listing users in the caller's scope
func (h *UserHandlers) ListUsers(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	limit, skip, err := pagination(c, services.DefaultUserLimit)
	if err != nil {
		return err
	}
	users, err := h.userService.List(c.Request().Context(), tc, limit, skip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser handles creating a user
func (h *UserHandlers) CreateUser(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	var req services.UserInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, err := h.userService.Create(c.Request().Context(), tc, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// GetUser handles getting a user by ID
func (h *UserHandlers) GetUser(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "user_id")
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser handles updating a user
func (h *UserHandlers) UpdateUser(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "user_id")
	if err != nil {
		return err
	}
	var req services.UserPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, err := h.userService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles deleting a user
func (h *UserHandlers) DeleteUser(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "user_id")
	if err != nil {
		return err
	}
	if err := h.userService.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "User deleted successfully")
}
