package handlers

import (
	"context"
	"net/http"

	"github.com/geoyang/Visitor/internal/analytics"
	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/models"

	"github.com/labstack/echo/v4"
)

// AnalyticsProvider is the read side of the analytics service.
type AnalyticsProvider interface {
	Summary(ctx context.Context, tc *models.TenantContext) (*analytics.Summary, error)
	Company(ctx context.Context, tc *models.TenantContext) (map[string]interface{}, error)
}

type AnalyticsHandlers struct {
	analytics AnalyticsProvider
}

func NewAnalyticsHandlers(analytics AnalyticsProvider) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics}
}

// Summary godoc
// @Summary Visitor counters for the caller's scope
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} analytics.Summary
// @Router /analytics/summary [get]
func (h *AnalyticsHandlers) Summary(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	summary, err := h.analytics.Summary(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandlers) Company(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	data, err := h.analytics.Company(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}
