package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	NoActiveSubscriptionDetail = "No active subscription found for this location. Please assign a subscription to continue."
	TrialExpiredDetail         = "Trial period has expired. Please add a payment method to continue."
)

// SubscriptionInfo is the result of a passed subscription check, reused by the
// device quota check.
type SubscriptionInfo struct {
	Location     *models.Location
	Subscription *models.Subscription
}

// SubscriptionGate blocks work on locations without a live subscription.
type SubscriptionGate interface {
	CheckSubscriptionActive(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID) (*SubscriptionInfo, error)
	CheckLocationSubscription(ctx context.Context, location *models.Location) (*SubscriptionInfo, error)
}

type subscriptionGate struct {
	guard         AccessGuard
	subscriptions repositories.SubscriptionRepository
	clock         clockwork.Clock
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewSubscriptionGate(guard AccessGuard, subscriptions repositories.SubscriptionRepository, clock clockwork.Clock, m *metrics.Metrics, log *zap.Logger) SubscriptionGate {
	return &subscriptionGate{
		guard:         guard,
		subscriptions: subscriptions,
		clock:         clock,
		metrics:       m,
		log:           log,
	}
}

// CheckSubscriptionActive loads the location (404), checks ownership (403) and
// then the subscription (402). Super admins skip only the ownership step.
func (g *subscriptionGate) CheckSubscriptionActive(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID) (*SubscriptionInfo, error) {
	location, err := g.guard.AuthorizeLocation(ctx, tc, locationID)
	if err != nil {
		g.record(err)
		return nil, err
	}
	// Super admins are not exempt here: a lapsed location answers 402 for them too.
	return g.CheckLocationSubscription(ctx, location)
}

// CheckLocationSubscription runs the subscription check for an already
// authorized location.
func (g *subscriptionGate) CheckLocationSubscription(ctx context.Context, location *models.Location) (*SubscriptionInfo, error) {
	if location.SubscriptionID == nil {
		g.deny(location, "no_subscription")
		return nil, common.PaymentRequired(NoActiveSubscriptionDetail)
	}

	sub, err := g.subscriptions.GetLiveByID(ctx, *location.SubscriptionID)
	if errors.Is(err, repositories.ErrNotFound) {
		g.deny(location, "no_subscription")
		return nil, common.PaymentRequired(NoActiveSubscriptionDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load location subscription: %w", err)
	}

	if sub.Status == models.SubscriptionStatusTrialing && sub.TrialEnd != nil {
		if sub.TrialEnd.UTC().Before(g.clock.Now().UTC()) {
			g.deny(location, "trial_expired")
			return nil, common.PaymentRequired(TrialExpiredDetail)
		}
	}

	g.metrics.RecordGate("subscription", "allowed")
	return &SubscriptionInfo{Location: location, Subscription: sub}, nil
}

func (g *subscriptionGate) deny(location *models.Location, reason string) {
	g.metrics.RecordGate("subscription", reason)
	g.log.Info("subscription gate denied",
		zap.String("location_id", location.ID.String()),
		zap.String("company_id", location.CompanyID.String()),
		zap.String("reason", reason),
	)
}

func (g *subscriptionGate) record(err error) {
	switch common.StatusOf(err) {
	case 404:
		g.metrics.RecordGate("subscription", "not_found")
	case 403:
		g.metrics.RecordGate("subscription", "forbidden")
	}
}
