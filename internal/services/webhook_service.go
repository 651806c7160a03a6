package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/jonboulle/clockwork"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const (
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	webhookOutcomeApplied = "applied"
	webhookOutcomeIgnored = "ignored"
	webhookOutcomeInvalid = "invalid"
	webhookOutcomeFailed  = "failed"
)

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("no matching signature")
	ErrStaleSignature   = errors.New("timestamp outside tolerance")
)

// WebhookEvent is the part of a provider event the service acts on.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID           string `json:"id"`
			Subscription string `json:"subscription"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookService applies payment provider events to subscriptions.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) error
}

type webhookService struct {
	subscriptions repositories.SubscriptionRepository
	secret        string
	tolerance     time.Duration
	clock         clockwork.Clock
	metrics       *metrics.Metrics
	log           *zap.Logger
}

// NewWebhookService verifies signatures only when secret is set.
func NewWebhookService(subscriptions repositories.SubscriptionRepository, secret string, tolerance time.Duration,
	clock clockwork.Clock, m *metrics.Metrics, log *zap.Logger) WebhookService {
	return &webhookService{
		subscriptions: subscriptions,
		secret:        secret,
		tolerance:     tolerance,
		clock:         clock,
		metrics:       m,
		log:           log,
	}
}

func (s *webhookService) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.secret != "" {
		if err := VerifyStripeSignature(payload, signatureHeader, s.secret, s.tolerance); err != nil {
			s.metrics.RecordWebhook("unknown", webhookOutcomeInvalid)
			s.log.Warn("rejected webhook", zap.Error(err))
			return common.Validation("Invalid webhook signature")
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.metrics.RecordWebhook("unknown", webhookOutcomeInvalid)
		return common.Validation("Invalid webhook payload")
	}

	var (
		providerID string
		status     string
		canceledAt *time.Time
	)
	switch event.Type {
	case EventPaymentSucceeded:
		providerID, status = event.Data.Object.Subscription, models.SubscriptionStatusActive
	case EventPaymentFailed:
		providerID, status = event.Data.Object.Subscription, models.SubscriptionStatusPastDue
	case EventSubscriptionDeleted:
		now := s.clock.Now().UTC()
		providerID, status, canceledAt = event.Data.Object.ID, models.SubscriptionStatusCanceled, &now
	default:
		s.metrics.RecordWebhook(event.Type, webhookOutcomeIgnored)
		s.log.Debug("ignoring webhook event", zap.String("type", event.Type))
		return nil
	}

	outcome, err := s.apply(ctx, providerID, status, canceledAt)
	s.metrics.RecordWebhook(event.Type, outcome)
	if err != nil {
		return err
	}
	s.log.Info("webhook processed",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.String("outcome", outcome),
	)
	return nil
}

func (s *webhookService) apply(ctx context.Context, providerID, status string, canceledAt *time.Time) (string, error) {
	if providerID == "" {
		return webhookOutcomeIgnored, nil
	}

	sub, err := s.subscriptions.GetByStripeID(ctx, providerID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.Warn("webhook for unknown subscription", zap.String("stripe_subscription_id", providerID))
		return webhookOutcomeIgnored, nil
	}
	if err != nil {
		return webhookOutcomeFailed, fmt.Errorf("load subscription: %w", err)
	}

	if !models.CanTransition(sub.Status, status) {
		s.log.Warn("webhook status change not allowed",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("from", sub.Status),
			zap.String("to", status),
		)
		return webhookOutcomeIgnored, nil
	}

	if err := s.subscriptions.UpdateStatus(ctx, sub.ID, status, canceledAt); err != nil {
		return webhookOutcomeFailed, fmt.Errorf("update subscription status: %w", err)
	}
	return webhookOutcomeApplied, nil
}

// VerifyStripeSignature checks a provider signature header against payload.
// A tolerance of zero accepts any timestamp.
func VerifyStripeSignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if header == "" {
		return ErrMissingSignature
	}
	var err error
	if tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, secret)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrTooOld):
		return ErrStaleSignature
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
