package repositories

import (
	"context"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetLiveByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	List(ctx context.Context, scope *uuid.UUID) ([]*models.SubscriptionView, error)
	ListAvailable(ctx context.Context, companyID uuid.UUID) ([]*models.Subscription, error)
	HasLiveForLocation(ctx context.Context, locationID uuid.UUID) (bool, error)
	Update(ctx context.Context, subscription *models.Subscription) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, canceledAt *time.Time) error
	ListExpiredTrials(ctx context.Context, now time.Time) ([]*models.Subscription, error)
}

const subscriptionColumns = `s.id, s.company_id, s.location_id, s.plan, s.status, s.stripe_subscription_id, s.stripe_customer_id, s.stripe_price_id,
		s.current_period_start, s.current_period_end, s.trial_end, s.cancel_at_period_end, s.canceled_at, s.monthly_price, s.currency,
		s.metadata, s.created_at, s.updated_at`

// mirrorLocationSQL copies a subscription's status and plan onto its linked location.
const mirrorLocationSQL = `
		UPDATE locations
		SET subscription_id = $1, subscription_status = $2, subscription_plan = $3, updated_at = NOW()
		WHERE id = $4
	`

type subscriptionRepo struct {
	db DBTX
}

func NewSubscriptionRepo(db DBTX) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func subscriptionDest(s *models.Subscription) []any {
	return []any{&s.ID, &s.CompanyID, &s.LocationID, &s.Plan, &s.Status, &s.StripeSubscriptionID, &s.StripeCustomerID, &s.StripePriceID,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.TrialEnd, &s.CancelAtPeriodEnd, &s.CanceledAt, &s.MonthlyPrice, &s.Currency,
		&s.Metadata, &s.CreatedAt, &s.UpdatedAt}
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	s := &models.Subscription{}
	if err := row.Scan(subscriptionDest(s)...); err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	defer rows.Close()
	var subs []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Create inserts the subscription and mirrors it onto its location when linked.
// A second live subscription for the same location fails with ErrDuplicate.
func (r *subscriptionRepo) Create(ctx context.Context, s *models.Subscription) error {
	insert := `
		INSERT INTO subscriptions (id, company_id, location_id, plan, status, stripe_subscription_id, stripe_customer_id, stripe_price_id,
			current_period_start, current_period_end, trial_end, cancel_at_period_end, monthly_price, currency, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insert, s.ID, s.CompanyID, s.LocationID, s.Plan, s.Status, s.StripeSubscriptionID, s.StripeCustomerID, s.StripePriceID,
			s.CurrentPeriodStart, s.CurrentPeriodEnd, s.TrialEnd, s.CancelAtPeriodEnd, s.MonthlyPrice, s.Currency, settingsOrEmpty(s.Metadata))
		if err != nil {
			return duplicate(err)
		}
		if s.LocationID == nil {
			return nil
		}
		return affected(tx.Exec(ctx, mirrorLocationSQL, s.ID, s.Status, s.Plan, *s.LocationID))
	})
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// GetLiveByID only returns the subscription while it is active, trialing or past due.
func (r *subscriptionRepo) GetLiveByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1 AND s.status = ANY($2)`
	return scanSubscription(r.db.QueryRow(ctx, query, id, models.LiveSubscriptionStatuses))
}

func (r *subscriptionRepo) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.stripe_subscription_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID))
}

func (r *subscriptionRepo) List(ctx context.Context, scope *uuid.UUID) ([]*models.SubscriptionView, error) {
	query := `
		SELECT ` + subscriptionColumns + `, l.name
		FROM subscriptions s
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE ($1::uuid IS NULL OR s.company_id = $1)
		ORDER BY s.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SubscriptionView
	for rows.Next() {
		v := &models.SubscriptionView{}
		dest := append(subscriptionDest(&v.Subscription), &v.LocationName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAvailable returns live subscriptions of a company that no location has claimed.
func (r *subscriptionRepo) ListAvailable(ctx context.Context, companyID uuid.UUID) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		WHERE s.company_id = $1 AND s.location_id IS NULL AND s.status = ANY($2)
		ORDER BY s.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, companyID, models.LiveSubscriptionStatuses)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

func (r *subscriptionRepo) HasLiveForLocation(ctx context.Context, locationID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE location_id = $1 AND status = ANY($2))`
	err := r.db.QueryRow(ctx, query, locationID, models.LiveSubscriptionStatuses).Scan(&exists)
	return exists, err
}

// Update persists plan, price and cancellation changes and mirrors them onto the location.
func (r *subscriptionRepo) Update(ctx context.Context, s *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan = $1, status = $2, stripe_price_id = $3, monthly_price = $4, metadata = $5, cancel_at_period_end = $6,
			canceled_at = $7, stripe_subscription_id = $8, stripe_customer_id = $9, updated_at = NOW()
		WHERE id = $10
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := affected(tx.Exec(ctx, query, s.Plan, s.Status, s.StripePriceID, s.MonthlyPrice, settingsOrEmpty(s.Metadata), s.CancelAtPeriodEnd,
			s.CanceledAt, s.StripeSubscriptionID, s.StripeCustomerID, s.ID)); err != nil {
			return err
		}
		if s.LocationID == nil {
			return nil
		}
		_, err := tx.Exec(ctx, mirrorLocationSQL, s.ID, s.Status, s.Plan, *s.LocationID)
		return err
	})
}

// UpdateStatus sets the status, and canceled_at when given, then mirrors the
// status onto the linked location.
func (r *subscriptionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, canceledAt *time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $1, canceled_at = COALESCE($2, canceled_at), updated_at = NOW()
		WHERE id = $3
		RETURNING location_id
	`
	mirror := `UPDATE locations SET subscription_status = $1, updated_at = NOW() WHERE id = $2`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		var locationID *uuid.UUID
		if err := tx.QueryRow(ctx, query, status, canceledAt, id).Scan(&locationID); err != nil {
			return notFound(err)
		}
		if locationID == nil {
			return nil
		}
		_, err := tx.Exec(ctx, mirror, status, *locationID)
		return err
	})
}

// ListExpiredTrials finds trialing subscriptions past trial_end that have no
// provider subscription to move them forward.
func (r *subscriptionRepo) ListExpiredTrials(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		WHERE s.status = 'trialing' AND s.trial_end IS NOT NULL AND s.trial_end < $1 AND s.stripe_subscription_id IS NULL
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}
