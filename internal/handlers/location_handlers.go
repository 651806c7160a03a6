package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// LocationHandlers handles HTTP requests for locations
type LocationHandlers struct {
	locationService services.LocationService
}

// NewLocationHandlers creates a new location handlers instance
func NewLocationHandlers(locationService services.LocationService) *LocationHandlers {
	return &LocationHandlers{locationService: locationService}
}

func (h *LocationHandlers) ListLocations(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	locations, err := h.locationService.List(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, locations)
}

func (h *LocationHandlers) GetLocation(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "location_id")
	if err != nil {
		return err
	}
	location, err := h.locationService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, location)
}

func (h *LocationHandlers) UpdateLocation(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "location_id")
	if err != nil {
		return err
	}
	var req services.LocationPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	location, err := h.locationService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, location)
}

func (h *LocationHandlers) DeleteLocation(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "location_id")
	if err != nil {
		return err
	}
	if err := h.locationService.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Location deactivated successfully")
}

// LinkByCode godoc
// @Summary Provision a kiosk from a location linking code
// @Tags locations
// @Produce json
// @Param code path string true "Linking code"
// @Success 200 {object} services.LinkedDevice
// @Failure 402 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /locations/by-code/{code} [get]
func (h *LocationHandlers) LinkByCode(c echo.Context) error {
	linked, err := h.locationService.LinkDevice(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linked)
}
