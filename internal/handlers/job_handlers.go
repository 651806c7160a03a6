package handlers

import (
	"context"
	"net/http"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/middleware"

	"github.com/labstack/echo/v4"
)

// JobRunner is the operator surface of the background scheduler.
type JobRunner interface {
	JobStatus() map[string]interface{}
	ExpireTrials(ctx context.Context) (int, error)
	MarkDevicesOffline(ctx context.Context) (int64, error)
}

// JobHandlers lets super admins inspect and trigger maintenance sweeps
type JobHandlers struct {
	jobs JobRunner
}

func NewJobHandlers(jobs JobRunner) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

func requireSuperAdmin(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	if !tc.IsSuperAdmin() {
		return common.Forbidden("Super admin access required")
	}
	return nil
}

// JobStatus lists scheduled jobs and their next run
func (h *JobHandlers) JobStatus(c echo.Context) error {
	if err := requireSuperAdmin(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.jobs.JobStatus())
}

// RunTrialSweep expires lapsed trials immediately
func (h *JobHandlers) RunTrialSweep(c echo.Context) error {
	if err := requireSuperAdmin(c); err != nil {
		return err
	}
	moved, err := h.jobs.ExpireTrials(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"expired": moved})
}

// RunPresenceSweep marks silent devices offline immediately
func (h *JobHandlers) RunPresenceSweep(c echo.Context) error {
	if err := requireSuperAdmin(c); err != nil {
		return err
	}
	n, err := h.jobs.MarkDevicesOffline(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"marked_offline": n})
}
