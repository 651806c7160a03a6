package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	subscriptionNotFoundDetail = "Subscription not found"
	invalidPlanDetail          = "Invalid subscription plan"
	locationCoveredDetail      = "Location already has an active subscription"
	trialDays                  = 14
)

// SubscriptionInput opens a subscription, optionally linked to a location.
type SubscriptionInput struct {
	CompanyID       *uuid.UUID `json:"company_id"`
	LocationID      *uuid.UUID `json:"location_id"`
	Plan            string     `json:"plan"`
	PriceID         string     `json:"price_id"`
	PaymentMethodID string     `json:"payment_method_id"`
}

// SubscriptionPatch changes the plan or the cancel-at-period-end flag.
type SubscriptionPatch struct {
	CancelAtPeriodEnd *bool   `json:"cancel_at_period_end"`
	Plan              *string `json:"plan"`
}

// SubscriptionService handles subscription-related business logic
type SubscriptionService interface {
	List(ctx context.Context, tc *models.TenantContext) ([]*models.SubscriptionView, error)
	Create(ctx context.Context, tc *models.TenantContext, in SubscriptionInput) (*models.Subscription, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Subscription, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch SubscriptionPatch) (*models.Subscription, error)
	Cancel(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
	Plans() []Plan
}

type subscriptionService struct {
	subscriptions repositories.SubscriptionRepository
	companies     repositories.CompanyRepository
	locations     repositories.LocationRepository
	users         repositories.UserRepository
	stripe        StripeService
	clock         clockwork.Clock
	log           *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(
	subscriptions repositories.SubscriptionRepository,
	companies repositories.CompanyRepository,
	locations repositories.LocationRepository,
	users repositories.UserRepository,
	stripe StripeService,
	clock clockwork.Clock,
	log *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		subscriptions: subscriptions,
		companies:     companies,
		locations:     locations,
		users:         users,
		stripe:        stripe,
		clock:         clock,
		log:           log,
	}
}

func (s *subscriptionService) List(ctx context.Context, tc *models.TenantContext) ([]*models.SubscriptionView, error) {
	subs, err := s.subscriptions.List(ctx, CompanyScope(tc))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if subs == nil {
		subs = []*models.SubscriptionView{}
	}
	return subs, nil
}

// Create starts a trial on the chosen plan. The company gets a provider
// customer on first use; a payment method also opens a provider subscription.
func (s *subscriptionService) Create(ctx context.Context, tc *models.TenantContext, in SubscriptionInput) (*models.Subscription, error) {
	companyID := tc.CompanyID
	if in.CompanyID != nil {
		companyID = *in.CompanyID
	}
	if companyID == uuid.Nil {
		return nil, common.Unprocessable("company_id is required")
	}
	if err := Authorize(tc, companyID); err != nil {
		return nil, err
	}

	plan, ok := LookupPlan(in.Plan)
	if !ok {
		return nil, common.Validation(invalidPlanDetail)
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(companyNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	if in.LocationID != nil {
		if err := s.checkLocationFree(ctx, companyID, *in.LocationID); err != nil {
			return nil, err
		}
	}

	customerID, err := s.ensureCustomer(ctx, company)
	if err != nil {
		return nil, err
	}

	priceID := in.PriceID
	if priceID == "" {
		priceID = plan.PriceID
	}
	now := s.clock.Now().UTC()
	trialEnd := now.AddDate(0, 0, trialDays)

	sub := &models.Subscription{
		ID:               uuid.New(),
		CompanyID:        companyID,
		LocationID:       in.LocationID,
		Plan:             plan.ID,
		Status:           models.SubscriptionStatusTrialing,
		StripeCustomerID: &customerID,
		StripePriceID:    priceID,
		TrialEnd:         &trialEnd,
		MonthlyPrice:     plan.MonthlyPrice,
		Currency:         plan.Currency,
		Metadata:         map[string]interface{}{"max_devices": plan.MaxDevices},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if in.PaymentMethodID != "" {
		provider, err := s.stripe.CreateSubscription(ctx, ProviderSubscriptionRequest{
			CompanyID:       companyID,
			LocationID:      in.LocationID,
			CustomerID:      customerID,
			PriceID:         priceID,
			PaymentMethodID: in.PaymentMethodID,
			TrialDays:       trialDays,
		})
		if err != nil {
			return nil, common.Validation(fmt.Sprintf("Stripe error: %v", err))
		}
		sub.StripeSubscriptionID = &provider.ID
		sub.CurrentPeriodStart = &provider.CurrentPeriodStart
		sub.CurrentPeriodEnd = &provider.CurrentPeriodEnd
		if provider.Status != "" {
			sub.Status = provider.Status
		}
	}

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, common.Validation(locationCoveredDetail)
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("plan", sub.Plan),
		zap.String("status", sub.Status),
	)
	return sub, nil
}

func (s *subscriptionService) checkLocationFree(ctx context.Context, companyID, locationID uuid.UUID) error {
	location, err := s.locations.GetByID(ctx, locationID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("load location: %w", err)
	}
	if location == nil || location.CompanyID != companyID {
		return common.NotFound("Location not found or not owned by company")
	}

	live, err := s.subscriptions.HasLiveForLocation(ctx, locationID)
	if err != nil {
		return fmt.Errorf("check location subscription: %w", err)
	}
	if live {
		return common.Validation(locationCoveredDetail)
	}
	return nil
}

func (s *subscriptionService) ensureCustomer(ctx context.Context, company *models.Company) (string, error) {
	if company.StripeCustomerID != nil && *company.StripeCustomerID != "" {
		return *company.StripeCustomerID, nil
	}

	email := ""
	admin, err := s.users.FirstCompanyAdmin(ctx, company.ID)
	if err == nil {
		email = admin.Email
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("load billing contact: %w", err)
	}

	customerID, err := s.stripe.CreateCustomer(ctx, company.ID, email, company.Name)
	if err != nil {
		return "", common.Validation(fmt.Sprintf("Stripe error: %v", err))
	}
	if err := s.companies.SetStripeCustomerID(ctx, company.ID, customerID); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}
	return customerID, nil
}

func (s *subscriptionService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Subscription, error) {
	return s.load(ctx, tc, id)
}

func (s *subscriptionService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch SubscriptionPatch) (*models.Subscription, error) {
	sub, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.CancelAtPeriodEnd != nil {
		if sub.StripeSubscriptionID != nil {
			if err := s.stripe.SetCancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID, *patch.CancelAtPeriodEnd); err != nil {
				return nil, common.Validation(fmt.Sprintf("Stripe error: %v", err))
			}
		}
		sub.CancelAtPeriodEnd = *patch.CancelAtPeriodEnd
		if sub.CancelAtPeriodEnd {
			now := s.clock.Now().UTC()
			sub.CanceledAt = &now
		} else {
			sub.CanceledAt = nil
		}
	}

	if patch.Plan != nil {
		plan, ok := LookupPlan(*patch.Plan)
		if !ok {
			return nil, common.Validation(invalidPlanDetail)
		}
		if sub.StripeSubscriptionID != nil && plan.ID != sub.Plan {
			if err := s.stripe.ChangePrice(ctx, *sub.StripeSubscriptionID, plan.PriceID); err != nil {
				return nil, common.Validation(fmt.Sprintf("Stripe error: %v", err))
			}
		}
		sub.Plan = plan.ID
		sub.MonthlyPrice = plan.MonthlyPrice
		sub.StripePriceID = plan.PriceID
		if sub.Metadata == nil {
			sub.Metadata = map[string]interface{}{}
		}
		sub.Metadata["max_devices"] = plan.MaxDevices
	}

	sub.UpdatedAt = s.clock.Now().UTC()
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(subscriptionNotFoundDetail)
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return sub, nil
}

// Cancel ends the subscription immediately. The location keeps its link to
// the canceled row so a new subscription can be opened for it.
func (s *subscriptionService) Cancel(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	sub, err := s.load(ctx, tc, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(sub.Status, models.SubscriptionStatusCanceled) {
		return common.Validation(fmt.Sprintf("Cannot cancel a subscription with status '%s'", sub.Status))
	}

	if sub.StripeSubscriptionID != nil {
		if err := s.stripe.CancelSubscription(ctx, *sub.StripeSubscriptionID); err != nil {
			return common.Validation(fmt.Sprintf("Stripe error: %v", err))
		}
	}

	now := s.clock.Now().UTC()
	if err := s.subscriptions.UpdateStatus(ctx, sub.ID, models.SubscriptionStatusCanceled, &now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(subscriptionNotFoundDetail)
		}
		return fmt.Errorf("cancel subscription: %w", err)
	}

	s.log.Info("subscription canceled", zap.String("subscription_id", sub.ID.String()))
	return nil
}

func (s *subscriptionService) Plans() []Plan {
	return Plans()
}

func (s *subscriptionService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(subscriptionNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	// Other companies' subscriptions are reported as missing.
	if !tc.IsSuperAdmin() && sub.CompanyID != tc.CompanyID {
		return nil, common.NotFound(subscriptionNotFoundDetail)
	}
	return sub, nil
}
