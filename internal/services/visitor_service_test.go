package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type firedEvent struct {
	visitorID uuid.UUID
	trigger   string
}

type recordingTrigger struct {
	fired []firedEvent
}

func (r *recordingTrigger) Fire(_ context.Context, visitor *models.Visitor, trigger string) {
	r.fired = append(r.fired, firedEvent{visitorID: visitor.ID, trigger: trigger})
}

type VisitorServiceTestSuite struct {
	suite.Suite
	visitors      *MockVisitorRepository
	locations     *MockLocationRepository
	forms         *MockFormRepository
	subscriptions *MockSubscriptionRepository
	trigger       *recordingTrigger
	clock         *clockwork.FakeClock
	service       VisitorService

	tenant   *models.TenantContext
	location *models.Location
	sub      *models.Subscription
}

func (suite *VisitorServiceTestSuite) SetupTest() {
	suite.visitors = &MockVisitorRepository{}
	suite.locations = &MockLocationRepository{}
	suite.forms = &MockFormRepository{}
	suite.subscriptions = &MockSubscriptionRepository{}
	suite.trigger = &recordingTrigger{}
	suite.clock = clockwork.NewFakeClockAt(time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC))

	log := zap.NewNop()
	guard := NewAccessGuard(suite.locations)
	gate := NewSubscriptionGate(guard, suite.subscriptions, suite.clock, nil, log)
	suite.service = NewVisitorService(suite.visitors, suite.locations, suite.forms, gate, suite.trigger, suite.clock, log)

	companyID := uuid.New()
	subID := uuid.New()
	suite.tenant = &models.TenantContext{UserID: uuid.New(), CompanyID: companyID, Role: models.RoleCompanyAdmin}
	suite.location = &models.Location{ID: uuid.New(), CompanyID: companyID, Name: "Lobby", SubscriptionID: &subID}
	suite.sub = &models.Subscription{ID: subID, CompanyID: companyID, Plan: models.PlanBasic, Status: models.SubscriptionStatusActive}
}

func (suite *VisitorServiceTestSuite) TearDownTest() {
	suite.visitors.AssertExpectations(suite.T())
	suite.locations.AssertExpectations(suite.T())
	suite.forms.AssertExpectations(suite.T())
	suite.subscriptions.AssertExpectations(suite.T())
}

func TestVisitorServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VisitorServiceTestSuite))
}

func (suite *VisitorServiceTestSuite) visitor(status string) *models.Visitor {
	return &models.Visitor{
		ID:          uuid.New(),
		CompanyID:   suite.location.CompanyID,
		FormID:      models.DefaultFormKey,
		LocationID:  suite.location.ID,
		Data:        map[string]interface{}{"full_name": "Ada Lovelace"},
		CheckInTime: suite.clock.Now().Add(-time.Hour),
		Status:      status,
	}
}

func (suite *VisitorServiceTestSuite) TestCreate_DefaultFormForcesCheckedIn() {
	ctx := context.Background()
	suite.locations.On("GetByID", ctx, suite.location.ID).Return(suite.location, nil).Once()
	suite.subscriptions.On("GetLiveByID", ctx, suite.sub.ID).Return(suite.sub, nil).Once()
	suite.visitors.On("Create", ctx, mock.MatchedBy(func(v *models.Visitor) bool {
		return v.Status == models.VisitorStatusCheckedIn && v.CompanyID == suite.location.CompanyID
	})).Return(nil).Once()

	view, err := suite.service.Create(ctx, suite.tenant, VisitorInput{
		FormID:     models.DefaultFormKey,
		LocationID: suite.location.ID.String(),
		Data:       map[string]interface{}{"full_name": "Ada Lovelace", "host_name": "Grace"},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Ada Lovelace", view.FullName)
	assert.Equal(suite.T(), "Grace", view.HostName)
	assert.Nil(suite.T(), view.Email)
	assert.Equal(suite.T(), suite.clock.Now().UTC(), view.CheckInTime)
	require.Len(suite.T(), suite.trigger.fired, 1)
	assert.Equal(suite.T(), models.TriggerOnCheckin, suite.trigger.fired[0].trigger)
}

func (suite *VisitorServiceTestSuite) TestCreate_RequiredFields() {
	_, err := suite.service.Create(context.Background(), suite.tenant, VisitorInput{LocationID: suite.location.ID.String()})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, common.StatusOf(err))

	_, err = suite.service.Create(context.Background(), suite.tenant, VisitorInput{FormID: "default"})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, common.StatusOf(err))
}

func (suite *VisitorServiceTestSuite) TestCreate_UnknownForm404() {
	ctx := context.Background()
	formID := uuid.New()
	suite.locations.On("GetByID", ctx, suite.location.ID).Return(suite.location, nil).Once()
	suite.subscriptions.On("GetLiveByID", ctx, suite.sub.ID).Return(suite.sub, nil).Once()
	suite.forms.On("GetByID", ctx, formID).Return(nil, repositories.ErrNotFound).Once()

	_, err := suite.service.Create(ctx, suite.tenant, VisitorInput{FormID: formID.String(), LocationID: suite.location.ID.String()})
	assert.Equal(suite.T(), http.StatusNotFound, common.StatusOf(err))
	assert.Empty(suite.T(), suite.trigger.fired)
}

func (suite *VisitorServiceTestSuite) TestCreate_NoSubscription402() {
	ctx := context.Background()
	suite.location.SubscriptionID = nil
	suite.locations.On("GetByID", ctx, suite.location.ID).Return(suite.location, nil).Once()

	_, err := suite.service.Create(ctx, suite.tenant, VisitorInput{FormID: "default", LocationID: suite.location.ID.String()})
	assert.Equal(suite.T(), http.StatusPaymentRequired, common.StatusOf(err))
}

func (suite *VisitorServiceTestSuite) TestCreateForDevice_OtherLocation403() {
	device := &models.Device{ID: uuid.New(), LocationID: uuid.New()}

	_, err := suite.service.CreateForDevice(context.Background(), device, VisitorInput{FormID: "default", LocationID: suite.location.ID.String()})
	assert.Equal(suite.T(), http.StatusForbidden, common.StatusOf(err))
}

func (suite *VisitorServiceTestSuite) TestCheckout_SetsStatusAndTimeTogether() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	now := suite.clock.Now().UTC()
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()
	suite.visitors.On("Checkout", ctx, v.ID, now).Return(nil).Once()

	view, err := suite.service.Checkout(ctx, suite.tenant, v.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.VisitorStatusCheckedOut, view.Status)
	require.NotNil(suite.T(), view.CheckOutTime)
	assert.Equal(suite.T(), now, *view.CheckOutTime)
	require.Len(suite.T(), suite.trigger.fired, 1)
	assert.Equal(suite.T(), models.TriggerOnCheckout, suite.trigger.fired[0].trigger)
}

func (suite *VisitorServiceTestSuite) TestCheckout_AlreadyCheckedOut() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedOut)
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()

	_, err := suite.service.Checkout(ctx, suite.tenant, v.ID)
	appErr, ok := common.AsAppError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), alreadyCheckedOutDetail, appErr.Detail)
	assert.Empty(suite.T(), suite.trigger.fired)
}

func (suite *VisitorServiceTestSuite) TestUpdate_InvalidStatus() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()

	_, err := suite.service.Update(ctx, suite.tenant, v.ID, VisitorPatch{Status: common.StringPtr("gone")})
	assert.Equal(suite.T(), http.StatusBadRequest, common.StatusOf(err))
}

func (suite *VisitorServiceTestSuite) TestUpdate_StatusCheckedOutChecksOut() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()
	suite.visitors.On("Update", ctx, v).Return(nil).Once()
	suite.visitors.On("Checkout", ctx, v.ID, suite.clock.Now().UTC()).Return(nil).Once()

	view, err := suite.service.Update(ctx, suite.tenant, v.ID, VisitorPatch{
		Status: common.StringPtr(models.VisitorStatusCheckedOut),
		Notes:  common.StringPtr("left early"),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "left early", *view.Notes)
	assert.True(suite.T(), view.CheckedOut())
}

func (suite *VisitorServiceTestSuite) TestGet_OtherCompany403() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	v.CompanyID = uuid.New()
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()

	_, err := suite.service.Get(ctx, suite.tenant, v.ID)
	assert.Equal(suite.T(), http.StatusForbidden, common.StatusOf(err))
}

func (suite *VisitorServiceTestSuite) TestGet_SurvivesDeletedLocation() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedOut)
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()

	view, err := suite.service.Get(ctx, suite.tenant, v.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), v.ID, view.ID)
	suite.locations.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)

	admin := &models.TenantContext{UserID: uuid.New(), Role: models.RoleSuperAdmin, BypassAll: true}
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()
	_, err = suite.service.Get(ctx, admin, v.ID)
	require.NoError(suite.T(), err)
}

func (suite *VisitorServiceTestSuite) TestCheckout_AfterLocationDeleted() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	now := suite.clock.Now().UTC()
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()
	suite.visitors.On("Checkout", ctx, v.ID, now).Return(nil).Once()

	view, err := suite.service.Checkout(ctx, suite.tenant, v.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), view.CheckedOut())
}

func (suite *VisitorServiceTestSuite) TestList_ScopedToCompanyLocations() {
	ctx := context.Background()
	suite.locations.On("ListIDs", ctx, suite.tenant.CompanyID).Return(nil, nil).Once()
	suite.visitors.On("List", ctx, mock.MatchedBy(func(f models.VisitorFilter) bool {
		return f.LocationIDs != nil && len(f.LocationIDs) == 0 && f.Limit == DefaultVisitorLimit && f.Status == "checked_in"
	})).Return([]*models.Visitor{}, nil).Once()

	out, err := suite.service.List(ctx, suite.tenant, "checked_in", 0, 0)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), out)
	assert.Empty(suite.T(), out)
}

func (suite *VisitorServiceTestSuite) TestCheckoutForDevice_WrongLocation() {
	ctx := context.Background()
	v := suite.visitor(models.VisitorStatusCheckedIn)
	suite.visitors.On("GetByID", ctx, v.ID).Return(v, nil).Once()

	_, err := suite.service.CheckoutForDevice(ctx, &models.Device{LocationID: uuid.New()}, v.ID)
	assert.Equal(suite.T(), http.StatusForbidden, common.StatusOf(err))
}
