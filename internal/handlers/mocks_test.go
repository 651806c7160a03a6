package handlers

import (
	"context"

	"github.com/geoyang/Visitor/internal/analytics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTenantResolver struct{ mock.Mock }

func (m *MockTenantResolver) ResolveUser(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	out, _ := args.Get(0).(*models.User)
	return out, args.Error(1)
}

func (m *MockTenantResolver) ResolveCompany(ctx context.Context, user *models.User) (*models.TenantContext, error) {
	args := m.Called(ctx, user)
	out, _ := args.Get(0).(*models.TenantContext)
	return out, args.Error(1)
}

func (m *MockTenantResolver) Resolve(ctx context.Context, token string) (*models.TenantContext, error) {
	args := m.Called(ctx, token)
	out, _ := args.Get(0).(*models.TenantContext)
	return out, args.Error(1)
}

func (m *MockTenantResolver) ResolveDevice(ctx context.Context, token string) (*models.Device, error) {
	args := m.Called(ctx, token)
	out, _ := args.Get(0).(*models.Device)
	return out, args.Error(1)
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*models.TokenResponse)
	return out, args.Error(1)
}

func (m *MockAuthService) RegisterCompany(ctx context.Context, req models.CompanyRegisterRequest) (*models.TokenResponse, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*models.TokenResponse)
	return out, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req models.LoginRequest, clientIP string) (*models.TokenResponse, error) {
	args := m.Called(ctx, req, clientIP)
	out, _ := args.Get(0).(*models.TokenResponse)
	return out, args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, tc *models.TenantContext) (*models.MeResponse, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).(*models.MeResponse)
	return out, args.Error(1)
}

func (m *MockAuthService) CompanyAccount(tc *models.TenantContext) (*models.CompanyAccount, error) {
	args := m.Called(tc)
	out, _ := args.Get(0).(*models.CompanyAccount)
	return out, args.Error(1)
}

type MockCompanyService struct{ mock.Mock }

func (m *MockCompanyService) List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*services.CompanyView, error) {
	args := m.Called(ctx, tc, limit, offset)
	out, _ := args.Get(0).([]*services.CompanyView)
	return out, args.Error(1)
}

func (m *MockCompanyService) Create(ctx context.Context, tc *models.TenantContext, patch services.CompanyPatch) (*services.CompanyView, error) {
	args := m.Called(ctx, tc, patch)
	out, _ := args.Get(0).(*services.CompanyView)
	return out, args.Error(1)
}

func (m *MockCompanyService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*services.CompanyView, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*services.CompanyView)
	return out, args.Error(1)
}

func (m *MockCompanyService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.CompanyPatch) (*services.CompanyView, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*services.CompanyView)
	return out, args.Error(1)
}

func (m *MockCompanyService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}

func (m *MockCompanyService) Validate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Company)
	return out, args.Error(1)
}

func (m *MockCompanyService) AvailableSubscriptions(ctx context.Context, tc *models.TenantContext, id uuid.UUID) ([]*models.Subscription, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).([]*models.Subscription)
	return out, args.Error(1)
}

type MockLocationService struct{ mock.Mock }

func (m *MockLocationService) List(ctx context.Context, tc *models.TenantContext) ([]*models.LocationSummary, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).([]*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationService) ListForCompany(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID) ([]*models.LocationSummary, error) {
	args := m.Called(ctx, tc, companyID)
	out, _ := args.Get(0).([]*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationService) Create(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID, in services.LocationInput) (*models.LocationSummary, error) {
	args := m.Called(ctx, tc, companyID, in)
	out, _ := args.Get(0).(*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.LocationSummary, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.LocationPatch) (*models.LocationSummary, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*models.LocationSummary)
	return out, args.Error(1)
}

func (m *MockLocationService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}

func (m *MockLocationService) LinkDevice(ctx context.Context, code string) (*services.LinkedDevice, error) {
	args := m.Called(ctx, code)
	out, _ := args.Get(0).(*services.LinkedDevice)
	return out, args.Error(1)
}

type MockDeviceService struct{ mock.Mock }

func (m *MockDeviceService) List(ctx context.Context, tc *models.TenantContext, locationID *uuid.UUID) ([]*services.DeviceView, error) {
	args := m.Called(ctx, tc, locationID)
	out, _ := args.Get(0).([]*services.DeviceView)
	return out, args.Error(1)
}

func (m *MockDeviceService) Create(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID, in services.DeviceInput) (*services.DeviceView, error) {
	args := m.Called(ctx, tc, locationID, in)
	out, _ := args.Get(0).(*services.DeviceView)
	return out, args.Error(1)
}

func (m *MockDeviceService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*services.DeviceView, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*services.DeviceView)
	return out, args.Error(1)
}

func (m *MockDeviceService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.DevicePatch) (*services.DeviceView, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*services.DeviceView)
	return out, args.Error(1)
}

func (m *MockDeviceService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}

func (m *MockDeviceService) Heartbeat(ctx context.Context, id string) {
	m.Called(ctx, id)
}

type MockVisitorService struct{ mock.Mock }

func (m *MockVisitorService) Create(ctx context.Context, tc *models.TenantContext, in services.VisitorInput) (*services.VisitorView, error) {
	args := m.Called(ctx, tc, in)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) List(ctx context.Context, tc *models.TenantContext, status string, limit, offset int) ([]*services.VisitorView, error) {
	args := m.Called(ctx, tc, status, limit, offset)
	out, _ := args.Get(0).([]*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) Active(ctx context.Context, tc *models.TenantContext) ([]*services.VisitorView, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).([]*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*services.VisitorView, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.VisitorPatch) (*services.VisitorView, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) Checkout(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*services.VisitorView, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) CreateForDevice(ctx context.Context, device *models.Device, in services.VisitorInput) (*services.VisitorView, error) {
	args := m.Called(ctx, device, in)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) ListForDevice(ctx context.Context, device *models.Device, status string, limit, offset int) ([]*services.VisitorView, error) {
	args := m.Called(ctx, device, status, limit, offset)
	out, _ := args.Get(0).([]*services.VisitorView)
	return out, args.Error(1)
}

func (m *MockVisitorService) CheckoutForDevice(ctx context.Context, device *models.Device, id uuid.UUID) (*services.VisitorView, error) {
	args := m.Called(ctx, device, id)
	out, _ := args.Get(0).(*services.VisitorView)
	return out, args.Error(1)
}

type MockFormService struct{ mock.Mock }

func (m *MockFormService) List(ctx context.Context, p services.Principal) ([]*models.Form, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).([]*models.Form)
	return out, args.Error(1)
}

func (m *MockFormService) Create(ctx context.Context, p services.Principal, in services.FormInput) (*models.Form, error) {
	args := m.Called(ctx, p, in)
	out, _ := args.Get(0).(*models.Form)
	return out, args.Error(1)
}

func (m *MockFormService) Get(ctx context.Context, p services.Principal, id uuid.UUID) (*models.Form, error) {
	args := m.Called(ctx, p, id)
	out, _ := args.Get(0).(*models.Form)
	return out, args.Error(1)
}

func (m *MockFormService) Update(ctx context.Context, p services.Principal, id uuid.UUID, in services.FormInput) (*models.Form, error) {
	args := m.Called(ctx, p, id, in)
	out, _ := args.Get(0).(*models.Form)
	return out, args.Error(1)
}

func (m *MockFormService) Delete(ctx context.Context, p services.Principal, id uuid.UUID) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockFormService) ListForDevice(ctx context.Context, device *models.Device) ([]*models.Form, error) {
	args := m.Called(ctx, device)
	out, _ := args.Get(0).([]*models.Form)
	return out, args.Error(1)
}

func (m *MockFormService) SeedDefaultForm(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockThemeService struct{ mock.Mock }

func (m *MockThemeService) List(ctx context.Context, p services.Principal, companyID *uuid.UUID) ([]*models.Theme, error) {
	args := m.Called(ctx, p, companyID)
	out, _ := args.Get(0).([]*models.Theme)
	return out, args.Error(1)
}

func (m *MockThemeService) Create(ctx context.Context, p services.Principal, in services.ThemeInput) (*models.Theme, error) {
	args := m.Called(ctx, p, in)
	out, _ := args.Get(0).(*models.Theme)
	return out, args.Error(1)
}

func (m *MockThemeService) Get(ctx context.Context, p services.Principal, id string) (*models.Theme, error) {
	args := m.Called(ctx, p, id)
	out, _ := args.Get(0).(*models.Theme)
	return out, args.Error(1)
}

func (m *MockThemeService) Update(ctx context.Context, p services.Principal, id string, in services.ThemeInput) (*models.Theme, error) {
	args := m.Called(ctx, p, id, in)
	out, _ := args.Get(0).(*models.Theme)
	return out, args.Error(1)
}

func (m *MockThemeService) Delete(ctx context.Context, p services.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockThemeService) Activate(ctx context.Context, p services.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockThemeService) ActivateBuiltin(ctx context.Context, p services.Principal, name string, companyID *uuid.UUID) error {
	return m.Called(ctx, p, name, companyID).Error(0)
}

func (m *MockThemeService) Active(ctx context.Context, p services.Principal, companyID *uuid.UUID) (*services.ActiveTheme, error) {
	args := m.Called(ctx, p, companyID)
	out, _ := args.Get(0).(*services.ActiveTheme)
	return out, args.Error(1)
}

func (m *MockThemeService) UploadAsset(ctx context.Context, p services.Principal, id string, asset services.AssetUpload) (string, error) {
	args := m.Called(ctx, p, id, asset)
	return args.String(0), args.Error(1)
}

type MockSubscriptionService struct{ mock.Mock }

func (m *MockSubscriptionService) List(ctx context.Context, tc *models.TenantContext) ([]*models.SubscriptionView, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).([]*models.SubscriptionView)
	return out, args.Error(1)
}

func (m *MockSubscriptionService) Create(ctx context.Context, tc *models.TenantContext, in services.SubscriptionInput) (*models.Subscription, error) {
	args := m.Called(ctx, tc, in)
	out, _ := args.Get(0).(*models.Subscription)
	return out, args.Error(1)
}

func (m *MockSubscriptionService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*models.Subscription)
	return out, args.Error(1)
}

func (m *MockSubscriptionService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.SubscriptionPatch) (*models.Subscription, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*models.Subscription)
	return out, args.Error(1)
}

func (m *MockSubscriptionService) Cancel(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}

func (m *MockSubscriptionService) Plans() []services.Plan {
	out, _ := m.Called().Get(0).([]services.Plan)
	return out
}

type MockWebhookService struct{ mock.Mock }

func (m *MockWebhookService) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	return m.Called(ctx, payload, signatureHeader).Error(0)
}

type MockAnalytics struct{ mock.Mock }

func (m *MockAnalytics) Summary(ctx context.Context, tc *models.TenantContext) (*analytics.Summary, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).(*analytics.Summary)
	return out, args.Error(1)
}

func (m *MockAnalytics) Company(ctx context.Context, tc *models.TenantContext) (map[string]interface{}, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).(map[string]interface{})
	return out, args.Error(1)
}

type MockJobRunner struct{ mock.Mock }

func (m *MockJobRunner) JobStatus() map[string]interface{} {
	out, _ := m.Called().Get(0).(map[string]interface{})
	return out
}

func (m *MockJobRunner) ExpireTrials(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRunner) MarkDevicesOffline(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(int64)
	return out, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type MockWorkflowService struct{ mock.Mock }

func (m *MockWorkflowService) List(ctx context.Context, tc *models.TenantContext) ([]*models.Workflow, error) {
	args := m.Called(ctx, tc)
	out, _ := args.Get(0).([]*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowService) Create(ctx context.Context, tc *models.TenantContext, in services.WorkflowInput) (*models.Workflow, error) {
	args := m.Called(ctx, tc, in)
	out, _ := args.Get(0).(*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Workflow, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, in services.WorkflowInput) (*models.Workflow, error) {
	args := m.Called(ctx, tc, id, in)
	out, _ := args.Get(0).(*models.Workflow)
	return out, args.Error(1)
}

func (m *MockWorkflowService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}

func (m *MockWorkflowService) ListForDevice(ctx context.Context, device *models.Device) ([]*models.Workflow, error) {
	args := m.Called(ctx, device)
	out, _ := args.Get(0).([]*models.Workflow)
	return out, args.Error(1)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*services.UserView, error) {
	args := m.Called(ctx, tc, limit, offset)
	out, _ := args.Get(0).([]*services.UserView)
	return out, args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, tc *models.TenantContext, in services.UserInput) (*services.UserView, error) {
	args := m.Called(ctx, tc, in)
	out, _ := args.Get(0).(*services.UserView)
	return out, args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*services.UserView, error) {
	args := m.Called(ctx, tc, id)
	out, _ := args.Get(0).(*services.UserView)
	return out, args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch services.UserPatch) (*services.UserView, error) {
	args := m.Called(ctx, tc, id, patch)
	out, _ := args.Get(0).(*services.UserView)
	return out, args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	return m.Called(ctx, tc, id).Error(0)
}
