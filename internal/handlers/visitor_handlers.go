package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// VisitorHandlers handles check-ins from the dashboard and from kiosks
type VisitorHandlers struct {
	visitorService services.VisitorService
}

// NewVisitorHandlers creates a new visitor handlers instance
func NewVisitorHandlers(visitorService services.VisitorService) *VisitorHandlers {
	return &VisitorHandlers{visitorService: visitorService}
}

// CreateVisitor godoc
// @Summary Check a visitor in
// @Tags visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.VisitorInput true "Check-in"
// @Success 200 {object} services.VisitorView
// @Failure 402 {object} common.ErrorResponse
// @Failure 403 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /visitors [post]
func (h *VisitorHandlers) CreateVisitor(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	var req services.VisitorInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	visitor, err := h.visitorService.Create(c.Request().Context(), tc, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitor)
}

// ListVisitors godoc
// @Summary List visitors in the caller's locations
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param status query string false "checked_in or checked_out"
// @Param limit query int false "Page size" default(100)
// @Param skip query int false "Offset"
// @Success 200 {array} services.VisitorView
// @Router /visitors [get]
func (h *VisitorHandlers) ListVisitors(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	limit, skip, err := pagination(c, services.DefaultVisitorLimit)
	if err != nil {
		return err
	}
	visitors, err := h.visitorService.List(c.Request().Context(), tc, c.QueryParam("status"), limit, skip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitors)
}

func (h *VisitorHandlers) ActiveVisitors(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	visitors, err := h.visitorService.Active(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitors)
}

func (h *VisitorHandlers) GetVisitor(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "visitor_id")
	if err != nil {
		return err
	}
	visitor, err := h.visitorService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitor)
}

func (h *VisitorHandlers) UpdateVisitor(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "visitor_id")
	if err != nil {
		return err
	}
	var req services.VisitorPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	visitor, err := h.visitorService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitor)
}

func (h *VisitorHandlers) CheckoutVisitor(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "visitor_id")
	if err != nil {
		return err
	}
	if _, err := h.visitorService.Checkout(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Visitor checked out successfully")
}

// DeviceCreateVisitor checks a visitor in from a kiosk bound to the location
func (h *VisitorHandlers) DeviceCreateVisitor(c echo.Context) error {
	device, err := middleware.Device(c)
	if err != nil {
		return err
	}
	var req services.VisitorInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	visitor, err := h.visitorService.CreateForDevice(c.Request().Context(), device, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitor)
}

func (h *VisitorHandlers) DeviceListVisitors(c echo.Context) error {
	device, err := middleware.Device(c)
	if err != nil {
		return err
	}
	limit, skip, err := pagination(c, services.DefaultVisitorLimit)
	if err != nil {
		return err
	}
	visitors, err := h.visitorService.ListForDevice(c.Request().Context(), device, c.QueryParam("status"), limit, skip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitors)
}

func (h *VisitorHandlers) DeviceCheckoutVisitor(c echo.Context) error {
	device, err := middleware.Device(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "visitor_id")
	if err != nil {
		return err
	}
	visitor, err := h.visitorService.CheckoutForDevice(c.Request().Context(), device, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visitor)
}
