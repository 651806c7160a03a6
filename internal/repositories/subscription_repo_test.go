package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	repo       SubscriptionRepository
	companyID  uuid.UUID
	locationID uuid.UUID
	ctx        context.Context
}

func (s *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(s.T(), err)
	s.mock = mock
	s.repo = NewSubscriptionRepo(mock)
	s.companyID = uuid.New()
	s.locationID = uuid.New()
	s.ctx = context.Background()
}

func (s *SubscriptionRepoTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (s *SubscriptionRepoTestSuite) TestCreate_MirrorsOntoLocation() {
	sub := &models.Subscription{
		ID:           uuid.New(),
		CompanyID:    s.companyID,
		LocationID:   &s.locationID,
		Plan:         models.PlanBasic,
		Status:       models.SubscriptionStatusTrialing,
		MonthlyPrice: 29.99,
		Currency:     "usd",
		Metadata:     map[string]interface{}{"max_devices": 5},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mock.ExpectExec(`UPDATE locations\s+SET subscription_id = \$1, subscription_status = \$2, subscription_plan = \$3`).
		WithArgs(sub.ID, models.SubscriptionStatusTrialing, models.PlanBasic, s.locationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.repo.Create(s.ctx, sub))
}

func (s *SubscriptionRepoTestSuite) TestCreate_UnknownLocationRollsBack() {
	sub := &models.Subscription{
		ID:         uuid.New(),
		CompanyID:  s.companyID,
		LocationID: &s.locationID,
		Plan:       models.PlanBasic,
		Status:     models.SubscriptionStatusTrialing,
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mock.ExpectExec(`UPDATE locations`).
		WithArgs(sub.ID, sub.Status, sub.Plan, s.locationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	s.mock.ExpectRollback()

	assert.ErrorIs(s.T(), s.repo.Create(s.ctx, sub), ErrNotFound)
}

func (s *SubscriptionRepoTestSuite) TestCreate_SecondLiveSubscriptionIsDuplicate() {
	sub := &models.Subscription{
		ID:         uuid.New(),
		CompanyID:  s.companyID,
		LocationID: &s.locationID,
		Plan:       models.PlanBasic,
		Status:     models.SubscriptionStatusTrialing,
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_subscriptions_live_location"})
	s.mock.ExpectRollback()

	err := s.repo.Create(s.ctx, sub)
	assert.ErrorIs(s.T(), err, ErrDuplicate)
	assert.Contains(s.T(), err.Error(), "idx_subscriptions_live_location")
}

func (s *SubscriptionRepoTestSuite) TestUpdateStatus_MirrorsLinkedLocation() {
	id := uuid.New()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE subscriptions\s+SET status = \$1, canceled_at = COALESCE\(\$2, canceled_at\)`).
		WithArgs(models.SubscriptionStatusCanceled, &at, id).
		WillReturnRows(pgxmock.NewRows([]string{"location_id"}).AddRow(&s.locationID))
	s.mock.ExpectExec(`UPDATE locations SET subscription_status = \$1`).
		WithArgs(models.SubscriptionStatusCanceled, s.locationID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.repo.UpdateStatus(s.ctx, id, models.SubscriptionStatusCanceled, &at))
}

func (s *SubscriptionRepoTestSuite) TestUpdateStatus_UnlinkedSkipsMirror() {
	id := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(models.SubscriptionStatusActive, (*time.Time)(nil), id).
		WillReturnRows(pgxmock.NewRows([]string{"location_id"}).AddRow((*uuid.UUID)(nil)))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.repo.UpdateStatus(s.ctx, id, models.SubscriptionStatusActive, nil))
}

func (s *SubscriptionRepoTestSuite) TestUpdateStatus_Missing() {
	id := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(models.SubscriptionStatusActive, (*time.Time)(nil), id).
		WillReturnError(pgx.ErrNoRows)
	s.mock.ExpectRollback()

	assert.ErrorIs(s.T(), s.repo.UpdateStatus(s.ctx, id, models.SubscriptionStatusActive, nil), ErrNotFound)
}

func (s *SubscriptionRepoTestSuite) TestHasLiveForLocation() {
	s.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM subscriptions WHERE location_id = \$1 AND status = ANY\(\$2\)\)`).
		WithArgs(s.locationID, models.LiveSubscriptionStatuses).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	live, err := s.repo.HasLiveForLocation(s.ctx, s.locationID)
	require.NoError(s.T(), err)
	assert.True(s.T(), live)
}

func (s *SubscriptionRepoTestSuite) TestBeginFailure() {
	s.mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err := s.repo.UpdateStatus(s.ctx, uuid.New(), models.SubscriptionStatusActive, nil)
	assert.ErrorContains(s.T(), err, "begin transaction")
}
