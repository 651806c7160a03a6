package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxAssetBytes = 10 << 20

// ThemeHandlers serve both /api/themes (user token) and /device/themes
// (device token); the service scopes by whichever principal is present.
type ThemeHandlers struct {
	themeService services.ThemeService
}

func NewThemeHandlers(themeService services.ThemeService) *ThemeHandlers {
	return &ThemeHandlers{themeService: themeService}
}

// ThemeCreatedResponse is returned after a theme is stored.
type ThemeCreatedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BuiltinActivationRequest selects an app-bundled theme by name.
type BuiltinActivationRequest struct {
	Name      string     `json:"name"`
	CompanyID *uuid.UUID `json:"companyId"`
}

func (h *ThemeHandlers) ListThemes(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	companyID, err := queryUUID(c, "companyId")
	if err != nil {
		return err
	}
	themes, err := h.themeService.List(c.Request().Context(), p, companyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, themes)
}

// CreateTheme godoc
// @Summary Create a kiosk theme
// @Tags themes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ThemeInput true "Theme"
// @Success 200 {object} ThemeCreatedResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /api/themes [post]
func (h *ThemeHandlers) CreateTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	var req services.ThemeInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	theme, err := h.themeService.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ThemeCreatedResponse{ID: theme.ID, Message: "Theme created successfully"})
}

func (h *ThemeHandlers) GetTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	theme, err := h.themeService.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, theme)
}

func (h *ThemeHandlers) UpdateTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	var req services.ThemeInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if _, err := h.themeService.Update(c.Request().Context(), p, c.Param("id"), req); err != nil {
		return err
	}
	return message(c, "Theme updated successfully")
}

func (h *ThemeHandlers) DeleteTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	if err := h.themeService.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, "Theme deleted successfully")
}

func (h *ThemeHandlers) ActivateTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	if err := h.themeService.Activate(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, "Theme activated successfully")
}

func (h *ThemeHandlers) ActivateBuiltinTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	var req BuiltinActivationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return err
	}
	if err := h.themeService.ActivateBuiltin(c.Request().Context(), p, req.Name, req.CompanyID); err != nil {
		return err
	}
	return message(c, "Theme activated successfully")
}

// ActiveTheme godoc
// @Summary The company's active theme
// @Description Returns a custom theme document, a builtin reference, or null.
// @Tags themes
// @Produce json
// @Param companyId query string false "Company (super admin only)"
// @Success 200 {object} services.ActiveTheme
// @Router /api/themes/active [get]
func (h *ThemeHandlers) ActiveTheme(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	companyID, err := queryUUID(c, "companyId")
	if err != nil {
		return err
	}
	active, err := h.themeService.Active(c.Request().Context(), p, companyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, active)
}

// UploadThemeAsset stores a multipart "file" into the image slot named by
// the "slot" form field.
func (h *ThemeHandlers) UploadThemeAsset(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return common.Unprocessable("file is required")
	}
	if header.Size > maxAssetBytes {
		return common.Validation("File is too large")
	}
	file, err := header.Open()
	if err != nil {
		return common.Validation("Unable to read uploaded file")
	}
	defer file.Close()

	url, err := h.themeService.UploadAsset(c.Request().Context(), p, c.Param("id"), services.AssetUpload{
		Slot:        c.FormValue("slot"),
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url, "slot": c.FormValue("slot")})
}
