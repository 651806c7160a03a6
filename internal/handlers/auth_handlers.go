package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles registration, login and the caller's own account
type AuthHandlers struct {
	authService services.AuthService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Register godoc
// @Summary Register a company and its first user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Registration"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} common.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandlers) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	token, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

// RegisterCompany accepts the older company-keyed registration body
func (h *AuthHandlers) RegisterCompany(c echo.Context) error {
	var req models.CompanyRegisterRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	token, err := h.authService.RegisterCompany(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} common.ErrorResponse
// @Failure 429 {object} common.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	token, err := h.authService.Login(c.Request().Context(), req, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

// Me godoc
// @Summary Current user and company
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MeResponse
// @Router /auth/me [get]
func (h *AuthHandlers) Me(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	me, err := h.authService.Me(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

// Company returns the older company-centric account view
func (h *AuthHandlers) Company(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	account, err := h.authService.CompanyAccount(tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}
