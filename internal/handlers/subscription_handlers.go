package handlers

import (
	"net/http"

	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers handles HTTP requests for subscriptions
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
}

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(subscriptionService services.SubscriptionService) *SubscriptionHandlers {
	return &SubscriptionHandlers{subscriptionService: subscriptionService}
}

// ListSubscriptions handles GET /subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	subs, err := h.subscriptionService.List(c.Request().Context(), tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

// CreateSubscription godoc
// @Summary Open a trial subscription
// @Description Starts a 14 day trial; with a payment method a provider subscription is created too.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SubscriptionInput true "Subscription"
// @Success 200 {object} models.Subscription
// @Failure 400 {object} common.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandlers) CreateSubscription(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	var req services.SubscriptionInput
	if err := bindBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptionService.Create(c.Request().Context(), tc, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// GetSubscription handles GET /subscriptions/:id
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "subscription_id")
	if err != nil {
		return err
	}
	sub, err := h.subscriptionService.Get(c.Request().Context(), tc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// UpdateSubscription handles PUT /subscriptions/:id
func (h *SubscriptionHandlers) UpdateSubscription(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "subscription_id")
	if err != nil {
		return err
	}
	var req services.SubscriptionPatch
	if err := bindBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptionService.Update(c.Request().Context(), tc, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// CancelSubscription handles POST /subscriptions/:id/cancel
func (h *SubscriptionHandlers) CancelSubscription(c echo.Context) error {
	tc, err := middleware.Tenant(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "subscription_id")
	if err != nil {
		return err
	}
	if err := h.subscriptionService.Cancel(c.Request().Context(), tc, id); err != nil {
		return err
	}
	return message(c, "Subscription canceled successfully")
}

// ListPlans handles GET /subscriptions/plans
func (h *SubscriptionHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, h.subscriptionService.Plans())
}
