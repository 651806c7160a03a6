package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const webhookTimeout = 10 * time.Second

// NotificationService delivers workflow actions. Email, SMS and push have no
// provider wired yet and are logged; webhooks are real HTTP POSTs.
type NotificationService interface {
	SendEmail(ctx context.Context, companyID uuid.UUID, recipient, template string, payload map[string]interface{}) error
	SendSMS(ctx context.Context, companyID uuid.UUID, phone, message string) error
	SendPush(ctx context.Context, companyID uuid.UUID, config map[string]interface{}, payload map[string]interface{}) error
	SendWebhook(ctx context.Context, companyID uuid.UUID, url string, payload map[string]interface{}) error
}

type notificationService struct {
	httpClient *http.Client
	log        *zap.Logger
}

func NewNotificationService(httpClient *http.Client, log *zap.Logger) NotificationService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: webhookTimeout}
	}
	return &notificationService{httpClient: httpClient, log: log}
}

func (s *notificationService) SendEmail(ctx context.Context, companyID uuid.UUID, recipient, template string, payload map[string]interface{}) error {
	if recipient == "" {
		return fmt.Errorf("email action has no recipient")
	}
	s.log.Info("email notification",
		zap.String("company_id", companyID.String()),
		zap.String("recipient", recipient),
		zap.String("template", template),
		zap.Any("visitor_id", payload["id"]),
	)
	return nil
}

func (s *notificationService) SendSMS(ctx context.Context, companyID uuid.UUID, phone, message string) error {
	if phone == "" {
		return fmt.Errorf("sms action has no phone number")
	}
	s.log.Info("sms notification",
		zap.String("company_id", companyID.String()),
		zap.String("phone", phone),
		zap.String("message", message),
	)
	return nil
}

func (s *notificationService) SendPush(ctx context.Context, companyID uuid.UUID, config map[string]interface{}, payload map[string]interface{}) error {
	s.log.Info("push notification",
		zap.String("company_id", companyID.String()),
		zap.Any("config", config),
		zap.Any("visitor_id", payload["id"]),
	)
	return nil
}

// SendWebhook posts payload as JSON; any status of 400 or above is an error.
func (s *notificationService) SendWebhook(ctx context.Context, companyID uuid.UUID, url string, payload map[string]interface{}) error {
	if url == "" {
		return fmt.Errorf("webhook action has no url")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-ID", companyID.String())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned non-success status: %d", resp.StatusCode)
	}

	s.log.Info("webhook delivered",
		zap.String("company_id", companyID.String()),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
