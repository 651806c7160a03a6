package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

const (
	linkingCodeCharset  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	linkingCodeLength   = 5
	linkingCodeAttempts = 20

	alreadyLinkedDetail = "Subscription is already linked to another location"
)

// LocationInput is the body of POST /companies/{id}/locations.
type LocationInput struct {
	Name           string                 `json:"name"`
	SubscriptionID string                 `json:"subscription_id"`
	Address        *string                `json:"address"`
	Latitude       *float64               `json:"latitude"`
	Longitude      *float64               `json:"longitude"`
	Timezone       *string                `json:"timezone"`
	Status         *string                `json:"status"`
	Settings       map[string]interface{} `json:"settings"`
	WorkingHours   map[string]interface{} `json:"working_hours"`
	ContactInfo    map[string]interface{} `json:"contact_info"`
}

// LocationPatch carries the editable location fields; nil means unchanged.
type LocationPatch struct {
	Name         *string                `json:"name"`
	Address      *string                `json:"address"`
	Latitude     *float64               `json:"latitude"`
	Longitude    *float64               `json:"longitude"`
	Timezone     *string                `json:"timezone"`
	Status       *string                `json:"status"`
	Settings     map[string]interface{} `json:"settings"`
	WorkingHours map[string]interface{} `json:"working_hours"`
	ContactInfo  map[string]interface{} `json:"contact_info"`
}

func (p LocationPatch) empty() bool {
	return p.Name == nil && p.Address == nil && p.Latitude == nil && p.Longitude == nil && p.Timezone == nil &&
		p.Status == nil && p.Settings == nil && p.WorkingHours == nil && p.ContactInfo == nil
}

// LinkedDevice is the answer to a linking code lookup.
type LinkedDevice struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name"`
	CompanyID    uuid.UUID `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	DeviceToken  string    `json:"device_token"`
	DeviceID     string    `json:"device_id"`
}

type LocationService interface {
	List(ctx context.Context, tc *models.TenantContext) ([]*models.LocationSummary, error)
	ListForCompany(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID) ([]*models.LocationSummary, error)
	Create(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID, in LocationInput) (*models.LocationSummary, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.LocationSummary, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch LocationPatch) (*models.LocationSummary, error)
	Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
	LinkDevice(ctx context.Context, code string) (*LinkedDevice, error)
}

type locationService struct {
	locations     repositories.LocationRepository
	companies     repositories.CompanyRepository
	subscriptions repositories.SubscriptionRepository
	devices       repositories.DeviceRepository
	guard         AccessGuard
	gate          SubscriptionGate
	quota         DeviceQuota
	clock         clockwork.Clock
	log           *zap.Logger
}

func NewLocationService(
	locations repositories.LocationRepository,
	companies repositories.CompanyRepository,
	subscriptions repositories.SubscriptionRepository,
	devices repositories.DeviceRepository,
	guard AccessGuard,
	gate SubscriptionGate,
	quota DeviceQuota,
	clock clockwork.Clock,
	log *zap.Logger,
) LocationService {
	return &locationService{
		locations:     locations,
		companies:     companies,
		subscriptions: subscriptions,
		devices:       devices,
		guard:         guard,
		gate:          gate,
		quota:         quota,
		clock:         clock,
		log:           log,
	}
}

func (s *locationService) List(ctx context.Context, tc *models.TenantContext) ([]*models.LocationSummary, error) {
	out, err := s.locations.List(ctx, CompanyScope(tc))
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if out == nil {
		out = []*models.LocationSummary{}
	}
	return out, nil
}

func (s *locationService) ListForCompany(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID) ([]*models.LocationSummary, error) {
	if _, err := s.company(ctx, tc, companyID); err != nil {
		return nil, err
	}
	out, err := s.locations.List(ctx, &companyID)
	if err != nil {
		return nil, fmt.Errorf("list company locations: %w", err)
	}
	if out == nil {
		out = []*models.LocationSummary{}
	}
	return out, nil
}

// Create validates the subscription the new location will consume, then
// inserts the location and claims the subscription for it.
func (s *locationService) Create(ctx context.Context, tc *models.TenantContext, companyID uuid.UUID, in LocationInput) (*models.LocationSummary, error) {
	company, err := s.company(ctx, tc, companyID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.Unprocessable("Field 'name' is required")
	}
	if strings.TrimSpace(in.SubscriptionID) == "" {
		return nil, common.Unprocessable("Field 'subscription_id' is required")
	}

	subID, err := uuid.Parse(in.SubscriptionID)
	if err != nil {
		return nil, common.NotFound("Subscription not found")
	}
	sub, err := s.subscriptions.GetByID(ctx, subID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound("Subscription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub.CompanyID != company.ID {
		return nil, common.Validation("Subscription does not belong to this company")
	}
	if !models.IsLiveSubscriptionStatus(sub.Status) {
		return nil, common.Validation(fmt.Sprintf(
			"Subscription status '%s' is not valid for creating locations. Must be one of: %s",
			sub.Status, strings.Join(models.LiveSubscriptionStatuses, ", ")))
	}
	if sub.LocationID != nil {
		return nil, common.Validation(alreadyLinkedDetail)
	}

	count, err := s.locations.CountByCompany(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("count company locations: %w", err)
	}
	if count >= company.LocationLimit() {
		return nil, common.Validation(fmt.Sprintf("Company has reached maximum location limit (%d)", company.LocationLimit()))
	}

	code, err := s.uniqueLinkingCode(ctx)
	if err != nil {
		return nil, err
	}

	plan := sub.Plan
	status := sub.Status
	location := &models.Location{
		ID:                 uuid.New(),
		CompanyID:          company.ID,
		Name:               strings.TrimSpace(in.Name),
		Address:            in.Address,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		Timezone:           "UTC",
		Status:             models.LocationStatusActive,
		LinkingCode:        code,
		SubscriptionID:     &sub.ID,
		SubscriptionStatus: &status,
		SubscriptionPlan:   &plan,
		Settings:           in.Settings,
		WorkingHours:       in.WorkingHours,
		ContactInfo:        in.ContactInfo,
	}
	if in.Timezone != nil && *in.Timezone != "" {
		location.Timezone = *in.Timezone
	}
	if in.Status != nil && *in.Status != "" {
		location.Status = *in.Status
	}
	if len(location.WorkingHours) == 0 {
		location.WorkingHours = models.DefaultWorkingHours()
	}

	if err := s.locations.Create(ctx, location); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// lost the race for the subscription
			return nil, common.Validation(alreadyLinkedDetail)
		}
		return nil, fmt.Errorf("create location: %w", err)
	}
	now := s.clock.Now().UTC()
	location.CreatedAt, location.UpdatedAt = now, now

	s.log.Info("location created",
		zap.String("location_id", location.ID.String()),
		zap.String("company_id", company.ID.String()),
		zap.String("subscription_id", sub.ID.String()),
	)
	return &models.LocationSummary{Location: *location, CompanyName: company.Name}, nil
}

func (s *locationService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.LocationSummary, error) {
	location, err := s.guard.AuthorizeLocation(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, location)
}

func (s *locationService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch LocationPatch) (*models.LocationSummary, error) {
	location, err := s.guard.AuthorizeLocation(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, common.Validation("No valid fields to update")
	}

	if patch.Name != nil {
		location.Name = *patch.Name
	}
	if patch.Address != nil {
		location.Address = patch.Address
	}
	if patch.Latitude != nil {
		location.Latitude = patch.Latitude
	}
	if patch.Longitude != nil {
		location.Longitude = patch.Longitude
	}
	if patch.Timezone != nil {
		location.Timezone = *patch.Timezone
	}
	if patch.Status != nil {
		location.Status = *patch.Status
	}
	if patch.Settings != nil {
		location.Settings = patch.Settings
	}
	if patch.WorkingHours != nil {
		location.WorkingHours = patch.WorkingHours
	}
	if patch.ContactInfo != nil {
		location.ContactInfo = patch.ContactInfo
	}

	if err := s.locations.Update(ctx, location); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(locationNotFoundDetail)
		}
		return nil, fmt.Errorf("update location: %w", err)
	}
	location.UpdatedAt = s.clock.Now().UTC()
	return s.summary(ctx, location)
}

func (s *locationService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	if _, err := s.guard.AuthorizeLocation(ctx, tc, id); err != nil {
		return err
	}

	deps, err := s.locations.CountDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("count location dependents: %w", err)
	}
	if deps.Devices > 0 {
		return common.Validation(fmt.Sprintf("Cannot delete location. It has %d active device(s). Please remove devices first.", deps.Devices))
	}
	if deps.ActiveVisitors > 0 {
		return common.Validation(fmt.Sprintf("Cannot delete location. It has %d active visitor(s). Please check out visitors first.", deps.ActiveVisitors))
	}

	if err := s.locations.SoftDelete(ctx, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(locationNotFoundDetail)
		}
		return fmt.Errorf("delete location: %w", err)
	}
	s.log.Info("location deactivated", zap.String("location_id", id.String()))
	return nil
}

// LinkDevice provisions a mobile device for the location behind a linking code.
// The new device counts against the plan's device limit.
func (s *locationService) LinkDevice(ctx context.Context, code string) (*LinkedDevice, error) {
	location, err := s.locations.GetByLinkingCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound("Invalid linking code")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup linking code: %w", err)
	}

	company, err := s.companies.GetByID(ctx, location.CompanyID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(companyNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	info, err := s.gate.CheckLocationSubscription(ctx, location)
	if err != nil {
		return nil, err
	}
	if _, err := s.quota.CheckDeviceQuota(ctx, info); err != nil {
		return nil, err
	}

	token, err := newDeviceToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	device := &models.Device{
		ID:          uuid.New(),
		CompanyID:   location.CompanyID,
		LocationID:  location.ID,
		Name:        fmt.Sprintf("%s mobile", location.Name),
		DeviceType:  models.DeviceTypeMobile,
		DeviceID:    fmt.Sprintf("DEVICE-%d", now.Unix()),
		DeviceToken: &token,
		Status:      models.DeviceStatusActive,
		LastSeen:    &now,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("create linked device: %w", err)
	}

	s.log.Info("device linked by code",
		zap.String("location_id", location.ID.String()),
		zap.String("device_id", device.DeviceID),
	)
	return &LinkedDevice{
		LocationID:   location.ID,
		LocationName: location.Name,
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		DeviceToken:  token,
		DeviceID:     device.DeviceID,
	}, nil
}

func (s *locationService) company(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Company, error) {
	if err := Authorize(tc, id); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(companyNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	return company, nil
}

func (s *locationService) summary(ctx context.Context, location *models.Location) (*models.LocationSummary, error) {
	deps, err := s.locations.CountDependents(ctx, location.ID)
	if err != nil {
		return nil, fmt.Errorf("count location dependents: %w", err)
	}
	out := &models.LocationSummary{
		Location:       *location,
		CompanyName:    "Unknown Company",
		DeviceCount:    deps.Devices,
		ActiveVisitors: deps.ActiveVisitors,
	}
	if company, err := s.companies.GetByID(ctx, location.CompanyID); err == nil {
		out.CompanyName = company.Name
	}
	return out, nil
}

func (s *locationService) uniqueLinkingCode(ctx context.Context) (string, error) {
	for i := 0; i < linkingCodeAttempts; i++ {
		code := random.String(linkingCodeLength, linkingCodeCharset)
		exists, err := s.locations.LinkingCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check linking code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free linking code after %d attempts", linkingCodeAttempts)
}
