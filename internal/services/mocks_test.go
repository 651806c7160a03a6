package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *MockCompanyRepository) CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error {
	return m.Called(ctx, company, admin).Error(0)
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockCompanyRepository) List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.Company, error) {
	args := m.Called(ctx, scope, limit, offset)
	out, _ := args.Get(0).([]*models.Company)
	return out, args.Error(1)
}

func (m *MockCompanyRepository) Update(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *MockCompanyRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockCompanyRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return m.Called(ctx, id, customerID).Error(0)
}

func (m *MockCompanyRepository) CountDependents(ctx context.Context, id uuid.UUID) (*repositories.CompanyDependents, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.CompanyDependents), args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) GetByLinkingCode(ctx context.Context, code string) (*models.Location, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) LinkingCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocationRepository) List(ctx context.Context, scope *uuid.UUID) ([]*models.LocationSummary, error) {
	args := m.Called(ctx, scope)
	out, _ := args.Get(0).([]*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationRepository) ListIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, companyID)
	out, _ := args.Get(0).([]uuid.UUID)
	return out, args.Error(1)
}

func (m *MockLocationRepository) CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockLocationRepository) Update(ctx context.Context, location *models.Location) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockLocationRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockLocationRepository) CountDependents(ctx context.Context, id uuid.UUID) (*repositories.LocationDependents, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.LocationDependents), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FirstCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, scope, limit, offset)
	out, _ := args.Get(0).([]*models.User)
	return out, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *MockDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *MockDeviceRepository) GetByToken(ctx context.Context, token string) (*models.Device, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *MockDeviceRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockDeviceRepository) List(ctx context.Context, scope *uuid.UUID, locationID *uuid.UUID) ([]*models.Device, error) {
	args := m.Called(ctx, scope, locationID)
	out, _ := args.Get(0).([]*models.Device)
	return out, args.Error(1)
}

func (m *MockDeviceRepository) CountActiveByLocation(ctx context.Context, locationID uuid.UUID) (int, error) {
	args := m.Called(ctx, locationID)
	return args.Int(0), args.Error(1)
}

func (m *MockDeviceRepository) Update(ctx context.Context, device *models.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *MockDeviceRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockDeviceRepository) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeviceRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeviceRepository) Counts(ctx context.Context, scope *uuid.UUID, onlineSince time.Time) (int, int, error) {
	args := m.Called(ctx, scope, onlineSince)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	return m.Called(ctx, subscription).Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetLiveByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) List(ctx context.Context, scope *uuid.UUID) ([]*models.SubscriptionView, error) {
	args := m.Called(ctx, scope)
	out, _ := args.Get(0).([]*models.SubscriptionView)
	return out, args.Error(1)
}

func (m *MockSubscriptionRepository) ListAvailable(ctx context.Context, companyID uuid.UUID) ([]*models.Subscription, error) {
	args := m.Called(ctx, companyID)
	out, _ := args.Get(0).([]*models.Subscription)
	return out, args.Error(1)
}

func (m *MockSubscriptionRepository) HasLiveForLocation(ctx context.Context, locationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, locationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	return m.Called(ctx, subscription).Error(0)
}

func (m *MockSubscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, canceledAt *time.Time) error {
	return m.Called(ctx, id, status, canceledAt).Error(0)
}

func (m *MockSubscriptionRepository) ListExpiredTrials(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, now)
	out, _ := args.Get(0).([]*models.Subscription)
	return out, args.Error(1)
}

type MockVisitorRepository struct {
	mock.Mock
}

func (m *MockVisitorRepository) Create(ctx context.Context, visitor *models.Visitor) error {
	return m.Called(ctx, visitor).Error(0)
}

func (m *MockVisitorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Visitor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Visitor), args.Error(1)
}

func (m *MockVisitorRepository) List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visitor, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*models.Visitor)
	return out, args.Error(1)
}

func (m *MockVisitorRepository) Update(ctx context.Context, visitor *models.Visitor) error {
	return m.Called(ctx, visitor).Error(0)
}

func (m *MockVisitorRepository) Checkout(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockVisitorRepository) CountByForm(ctx context.Context, formID string) (int, error) {
	args := m.Called(ctx, formID)
	return args.Int(0), args.Error(1)
}

func (m *MockVisitorRepository) Stats(ctx context.Context, locationIDs []uuid.UUID, dayStart time.Time) (*repositories.VisitorStats, error) {
	args := m.Called(ctx, locationIDs, dayStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.VisitorStats), args.Error(1)
}

type MockFormRepository struct {
	mock.Mock
}

func (m *MockFormRepository) Create(ctx context.Context, form *models.Form) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockFormRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Form), args.Error(1)
}

func (m *MockFormRepository) GetGlobalByName(ctx context.Context, name string) (*models.Form, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Form), args.Error(1)
}

func (m *MockFormRepository) List(ctx context.Context, scope *uuid.UUID) ([]*models.Form, error) {
	args := m.Called(ctx, scope)
	out, _ := args.Get(0).([]*models.Form)
	return out, args.Error(1)
}

func (m *MockFormRepository) ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Form, error) {
	args := m.Called(ctx, companyID, locationID)
	out, _ := args.Get(0).([]*models.Form)
	return out, args.Error(1)
}

func (m *MockFormRepository) Update(ctx context.Context, form *models.Form) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockFormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	return m.Called(ctx, workflow).Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) List(ctx context.Context, scope *uuid.UUID) ([]*models.Workflow, error) {
	args := m.Called(ctx, scope)
	out, _ := args.Get(0).([]*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	return m.Called(ctx, workflow).Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWorkflowRepository) ListActiveForForm(ctx context.Context, companyID uuid.UUID, formID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, companyID, formID)
	out, _ := args.Get(0).([]*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowRepository) ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Workflow, error) {
	args := m.Called(ctx, companyID, locationID)
	out, _ := args.Get(0).([]*models.Workflow)
	return out, args.Error(1)
}

type MockThemeRepository struct {
	mock.Mock
}

func (m *MockThemeRepository) Create(ctx context.Context, theme *models.Theme) error {
	return m.Called(ctx, theme).Error(0)
}

func (m *MockThemeRepository) GetByID(ctx context.Context, id string) (*models.Theme, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Theme), args.Error(1)
}

func (m *MockThemeRepository) List(ctx context.Context, companyID uuid.UUID) ([]*models.Theme, error) {
	args := m.Called(ctx, companyID)
	out, _ := args.Get(0).([]*models.Theme)
	return out, args.Error(1)
}

func (m *MockThemeRepository) Update(ctx context.Context, theme *models.Theme) error {
	return m.Called(ctx, theme).Error(0)
}

func (m *MockThemeRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockThemeRepository) GetActivation(ctx context.Context, companyID uuid.UUID) (*models.ThemeActivation, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ThemeActivation), args.Error(1)
}

func (m *MockThemeRepository) UpsertActivation(ctx context.Context, activation *models.ThemeActivation) error {
	return m.Called(ctx, activation).Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetCompanyAnalytics(ctx context.Context, scope string) (map[string]interface{}, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockCacheService) SetCompanyAnalytics(ctx context.Context, scope string, analytics map[string]interface{}, ttl time.Duration) error {
	return m.Called(ctx, scope, analytics, ttl).Error(0)
}

func (m *MockCacheService) GetActiveTheme(ctx context.Context, companyID uuid.UUID) (json.RawMessage, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockCacheService) SetActiveTheme(ctx context.Context, companyID uuid.UUID, payload interface{}, ttl time.Duration) error {
	return m.Called(ctx, companyID, payload, ttl).Error(0)
}

func (m *MockCacheService) DeleteActiveTheme(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}

func (m *MockCacheService) InvalidateCompanyCache(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) ResetRateLimit(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockStripeService struct {
	mock.Mock
}

func (m *MockStripeService) CreateCustomer(ctx context.Context, companyID uuid.UUID, email, name string) (string, error) {
	args := m.Called(ctx, companyID, email, name)
	return args.String(0), args.Error(1)
}

func (m *MockStripeService) CreateSubscription(ctx context.Context, req ProviderSubscriptionRequest) (*ProviderSubscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderSubscription), args.Error(1)
}

func (m *MockStripeService) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	return m.Called(ctx, subscriptionID, cancel).Error(0)
}

func (m *MockStripeService) ChangePrice(ctx context.Context, subscriptionID, priceID string) error {
	return m.Called(ctx, subscriptionID, priceID).Error(0)
}

func (m *MockStripeService) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *MockStripeService) DevMode() bool {
	return m.Called().Bool(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendEmail(ctx context.Context, companyID uuid.UUID, recipient, template string, payload map[string]interface{}) error {
	return m.Called(ctx, companyID, recipient, template, payload).Error(0)
}

func (m *MockNotificationService) SendSMS(ctx context.Context, companyID uuid.UUID, phone, message string) error {
	return m.Called(ctx, companyID, phone, message).Error(0)
}

func (m *MockNotificationService) SendPush(ctx context.Context, companyID uuid.UUID, config map[string]interface{}, payload map[string]interface{}) error {
	return m.Called(ctx, companyID, config, payload).Error(0)
}

func (m *MockNotificationService) SendWebhook(ctx context.Context, companyID uuid.UUID, url string, payload map[string]interface{}) error {
	return m.Called(ctx, companyID, url, payload).Error(0)
}

type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) UploadAsset(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockAssetStore) DeleteAsset(ctx context.Context, objectName string) error {
	return m.Called(ctx, objectName).Error(0)
}

func (m *MockAssetStore) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockActionDispatcher struct {
	mock.Mock
}

func (m *MockActionDispatcher) Dispatch(ctx context.Context, task ActionTask) error {
	return m.Called(ctx, task).Error(0)
}
