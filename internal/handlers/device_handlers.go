package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// DeviceHandlers handles HTTP requests for kiosk devices
type DeviceHandlers struct {
	deviceService services.DeviceService
}

// NewDeviceHandlers creates a new device handlers instance
func NewDeviceHandlers(deviceService services.DeviceService) *DeviceHandlers {
	return &DeviceHandlers{deviceService: deviceService}
}

func (h *DeviceHandlers) ListDevices(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	locationID, err := queryUUID(c, "location_id")
	if err != nil {
		return err
	}
	devices, err := h.deviceService.List(c.Request().Context(), tc, locationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, devices)
}

// CreateDevice godoc
// @Summary Register a device at a location
// @Description Requires a live subscription and free device quota on the location.
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Location ID"
// @Param body body services.DeviceInput true "Device"
// @Success 200 {object} services.DeviceView
// @Failure 402 {object} common.ErrorResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /locations/{id}/devices [post]
func (h *DeviceHandlers) CreateDevice(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	locationID, err := pathID(c, "id", "location_id")
	if err != nil {
		return err
	}
	var req services.DeviceInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	device, err := h.deviceService.Create(c.Request().Context(), tc, locationID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

func (h *DeviceHandlers) GetDevice(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "device_id")
	if err != nil {
		return err
	}
	device, err := h.deviceService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

func (h *DeviceHandlers) UpdateDevice(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "device_id")
	if err != nil {
		return err
	}
	var req services.DevicePatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	device, err := h.deviceService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

func (h *DeviceHandlers) DeleteDevice(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "device_id")
	if err != nil {
		return err
	}
	if err := h.deviceService.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Device deactivated successfully")
}

// Heartbeat always acknowledges, even for unknown devices
func (h *DeviceHandlers) Heartbeat(c echo.Context) error {
	h.deviceService.Heartbeat(c.Request().Context(), c.Param("id"))
	return message(c, "Heartbeat recorded successfully")
}
