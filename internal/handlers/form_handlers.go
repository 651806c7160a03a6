package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// FormHandlers serves check-in forms to users and kiosks alike
type FormHandlers struct {
	formService services.FormService
}

func NewFormHandlers(formService services.FormService) *FormHandlers {
	return &FormHandlers{formService: formService}
}

func (h *FormHandlers) ListForms(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	forms, err := h.formService.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, forms)
}

// CreateForm godoc
// @Summary Create a check-in form
// @Description Accepts a user bearer token or an X-Device-Token.
// @Tags forms
// @Accept json
// @Produce json
// @Param body body services.FormInput true "Form"
// @Success 200 {object} models.Form
// @Failure 422 {object} common.ErrorResponse
// @Router /forms [post]
func (h *FormHandlers) CreateForm(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	var req services.FormInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	form, err := h.formService.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, form)
}

func (h *FormHandlers) GetForm(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "form_id")
	if err != nil {
		return err
	}
	form, err := h.formService.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, form)
}

func (h *FormHandlers) UpdateForm(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "form_id")
	if err != nil {
		return err
	}
	var req services.FormInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	form, err := h.formService.Update(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, form)
}

func (h *FormHandlers) DeleteForm(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "form_id")
	if err != nil {
		return err
	}
	if err := h.formService.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return message(c, "Form deleted successfully")
}

func (h *FormHandlers) DeviceListForms(c echo.Context) error {
	device, err := middleware.Device(c)
	if err != nil {
		return err
	}
	forms, err := h.formService.ListForDevice(c.Request().Context(), device)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, forms)
}
