package handlers

import (
	"io"
	"net/http"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/labstack/echo/v4"
)

const stripeSignatureHeader = "Stripe-Signature"

// WebhookHandlers handles payment provider callbacks
type WebhookHandlers struct {
	webhookService services.WebhookService
	publishableKey string
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(webhookService services.WebhookService, publishableKey string) *WebhookHandlers {
	return &WebhookHandlers{
		webhookService: webhookService,
		publishableKey: publishableKey,
	}
}

// StripeWebhook godoc
// @Summary Payment provider event sink
// @Description The raw body is verified against Stripe-Signature when a webhook secret is configured.
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} common.ErrorResponse
// @Router /stripe/webhook [post]
func (h *WebhookHandlers) StripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return common.Validation("Failed to read request body")
	}
	if err := h.webhookService.Handle(c.Request().Context(), body, c.Request().Header.Get(stripeSignatureHeader)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// StripeConfig exposes the publishable key to browser checkouts
func (h *WebhookHandlers) StripeConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"publishable_key": h.publishableKey})
}
