package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

const devPeriodDays = 30

// StripeService talks to the payment provider. In dev mode every call is
// answered locally with deterministic ids.
type StripeService interface {
	CreateCustomer(ctx context.Context, companyID uuid.UUID, email, name string) (string, error)
	CreateSubscription(ctx context.Context, req ProviderSubscriptionRequest) (*ProviderSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error
	ChangePrice(ctx context.Context, subscriptionID, priceID string) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
	DevMode() bool
}

// ProviderSubscriptionRequest starts a provider subscription for a customer.
type ProviderSubscriptionRequest struct {
	CompanyID       uuid.UUID
	LocationID      *uuid.UUID
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	TrialDays       int
}

// ProviderSubscription is the provider's view of a created subscription.
type ProviderSubscription struct {
	ID                 string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

type stripeService struct {
	api     *client.API
	devMode bool
	clock   clockwork.Clock
	log     *zap.Logger
}

// NewStripeService creates the provider client. An empty baseURL uses the
// provider's default endpoint; httpClient may be nil.
func NewStripeService(secretKey, baseURL string, devMode bool, httpClient *http.Client, clock clockwork.Clock, log *zap.Logger) StripeService {
	cfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     log.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(1),
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &stripeService{
		api:     api,
		devMode: devMode,
		clock:   clock,
		log:     log,
	}
}

func (s *stripeService) DevMode() bool {
	return s.devMode
}

func (s *stripeService) CreateCustomer(ctx context.Context, companyID uuid.UUID, email, name string) (string, error) {
	if s.devMode {
		return fmt.Sprintf("cus_dev_%s_%d", companyID, s.clock.Now().Unix()), nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("company_id", companyID.String())

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %s", stripeMessage(err))
	}
	return customer.ID, nil
}

func (s *stripeService) CreateSubscription(ctx context.Context, req ProviderSubscriptionRequest) (*ProviderSubscription, error) {
	if s.devMode {
		now := s.clock.Now().UTC()
		return &ProviderSubscription{
			ID:                 fmt.Sprintf("sub_dev_%s_%d", req.CompanyID, now.Unix()),
			Status:             "trialing",
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 0, devPeriodDays),
		}, nil
	}

	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(req.CustomerID)}
	attach.Context = ctx
	if _, err := s.api.PaymentMethods.Attach(req.PaymentMethodID, attach); err != nil {
		return nil, fmt.Errorf("attach payment method: %s", stripeMessage(err))
	}

	params := &stripe.SubscriptionParams{
		Customer:             stripe.String(req.CustomerID),
		Items:                []*stripe.SubscriptionItemsParams{{Price: stripe.String(req.PriceID)}},
		DefaultPaymentMethod: stripe.String(req.PaymentMethodID),
		PaymentBehavior:      stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddMetadata("company_id", req.CompanyID.String())
	if req.LocationID != nil {
		params.AddMetadata("location_id", req.LocationID.String())
	}
	if req.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(req.TrialDays))
	}

	sub, err := s.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %s", stripeMessage(err))
	}
	s.log.Debug("provider subscription created", zap.String("stripe_subscription_id", sub.ID), zap.String("status", string(sub.Status)))
	return &ProviderSubscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}, nil
}

func (s *stripeService) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	if s.devMode {
		return nil
	}
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	if _, err := s.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("update subscription: %s", stripeMessage(err))
	}
	return nil
}

// ChangePrice swaps the price of the subscription's first item.
func (s *stripeService) ChangePrice(ctx context.Context, subscriptionID, priceID string) error {
	if s.devMode {
		return nil
	}

	get := &stripe.SubscriptionParams{}
	get.Context = ctx
	current, err := s.api.Subscriptions.Get(subscriptionID, get)
	if err != nil {
		return fmt.Errorf("load subscription: %s", stripeMessage(err))
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.Items.Data[0].ID),
			Price: stripe.String(priceID),
		}},
	}
	params.Context = ctx
	if _, err := s.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("change subscription price: %s", stripeMessage(err))
	}
	return nil
}

func (s *stripeService) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if s.devMode {
		return nil
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := s.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("cancel subscription: %s", stripeMessage(err))
	}
	return nil
}

// stripeMessage prefers the provider's human readable message over the
// serialized error.
func stripeMessage(err error) string {
	var apiErr *stripe.Error
	if errors.As(err, &apiErr) && apiErr.Msg != "" {
		return apiErr.Msg
	}
	return err.Error()
}
