package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// WorkflowHandlers handles check-in automation rules
type WorkflowHandlers struct {
	workflowService services.WorkflowService
}

func NewWorkflowHandlers(workflowService services.WorkflowService) *WorkflowHandlers {
	return &WorkflowHandlers{workflowService: workflowService}
}

func (h *WorkflowHandlers) ListWorkflows(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	workflows, err := h.workflowService.List(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}

func (h *WorkflowHandlers) CreateWorkflow(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	var req services.WorkflowInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	workflow, err := h.workflowService.Create(c.Request().Context(), tc, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflow)
}

func (h *WorkflowHandlers) GetWorkflow(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "workflow_id")
	if err != nil {
		return err
	}
	workflow, err := h.workflowService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflow)
}

func (h *WorkflowHandlers) UpdateWorkflow(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "workflow_id")
	if err != nil {
		return err
	}
	var req services.WorkflowInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	workflow, err := h.workflowService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflow)
}

func (h *WorkflowHandlers) DeleteWorkflow(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "workflow_id")
	if err != nil {
		return err
	}
	if err := h.workflowService.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Workflow deleted successfully")
}

func (h *WorkflowHandlers) DeviceListWorkflows(c echo.Context) error {
	device, err := middleware.Device(c)
	if err != nil {
		return err
	}
	workflows, err := h.workflowService.ListForDevice(c.Request().Context(), device)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}
