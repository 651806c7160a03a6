package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	deviceNotFoundDetail = "Device not found"
	deviceTokenBytes     = 32
)

// DeviceView is a device with its owner names and the derived online flag.
type DeviceView struct {
	*models.Device
	CompanyName  string     `json:"company_name"`
	LocationName string     `json:"location_name"`
	Quota        *QuotaInfo `json:"quota,omitempty"`
}

// DeviceInput is the body of POST /locations/{id}/devices.
type DeviceInput struct {
	Name       string                 `json:"name"`
	DeviceType string                 `json:"device_type"`
	DeviceID   string                 `json:"device_id"`
	Status     string                 `json:"status"`
	Settings   map[string]interface{} `json:"settings"`
}

// DevicePatch carries the editable device fields; nil means unchanged.
type DevicePatch struct {
	Name       *string                `json:"name"`
	DeviceType *string                `json:"device_type"`
	DeviceID   *string                `json:"device_id"`
	Status     *string                `json:"status"`
	Settings   map[string]interface{} `json:"settings"`
}

func (p DevicePatch) empty() bool {
	return p.Name == nil && p.DeviceType == nil && p.DeviceID == nil && p.Status == nil && p.Settings == nil
}

type DeviceService interface {
	List(ctx context.Context, tc *models.TenantContext, locationID *uuid.UUID) ([]*DeviceView, error)
	Create(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID, in DeviceInput) (*DeviceView, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*DeviceView, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch DevicePatch) (*DeviceView, error)
	Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
	Heartbeat(ctx context.Context, id string)
}

type deviceService struct {
	devices   repositories.DeviceRepository
	locations repositories.LocationRepository
	companies repositories.CompanyRepository
	gate      SubscriptionGate
	quota     DeviceQuota
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewDeviceService(
	devices repositories.DeviceRepository,
	locations repositories.LocationRepository,
	companies repositories.CompanyRepository,
	gate SubscriptionGate,
	quota DeviceQuota,
	clock clockwork.Clock,
	log *zap.Logger,
) DeviceService {
	return &deviceService{
		devices:   devices,
		locations: locations,
		companies: companies,
		gate:      gate,
		quota:     quota,
		clock:     clock,
		log:       log,
	}
}

func (s *deviceService) List(ctx context.Context, tc *models.TenantContext, locationID *uuid.UUID) ([]*DeviceView, error) {
	devices, err := s.devices.List(ctx, CompanyScope(tc), locationID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	companyNames := map[uuid.UUID]string{}
	locationNames := map[uuid.UUID]string{}
	views := make([]*DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, s.viewCached(ctx, d, companyNames, locationNames))
	}
	return views, nil
}

// Create registers a device after the location passes the subscription gate
// and still has room under its plan's device limit.
func (s *deviceService) Create(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID, in DeviceInput) (*DeviceView, error) {
	info, err := s.gate.CheckSubscriptionActive(ctx, tc, locationID)
	if err != nil {
		return nil, err
	}
	quota, err := s.quota.CheckDeviceQuota(ctx, info)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, common.Unprocessable("Field 'name' is required")
	}
	if in.DeviceType == "" {
		in.DeviceType = models.DeviceTypeTablet
	}
	if in.DeviceID == "" {
		in.DeviceID = fmt.Sprintf("DEVICE-%d", s.clock.Now().Unix())
	}
	if in.Status == "" {
		in.Status = models.DeviceStatusActive
	}

	device := &models.Device{
		ID:         uuid.New(),
		CompanyID:  info.Location.CompanyID,
		LocationID: info.Location.ID,
		Name:       strings.TrimSpace(in.Name),
		DeviceType: in.DeviceType,
		DeviceID:   in.DeviceID,
		Status:     in.Status,
		Settings:   in.Settings,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	now := s.clock.Now().UTC()
	device.CreatedAt, device.UpdatedAt = now, now

	s.log.Info("device created",
		zap.String("device_id", device.ID.String()),
		zap.String("location_id", info.Location.ID.String()),
		zap.Int("current_devices", quota.CurrentDevices+1),
		zap.Int("max_devices", quota.MaxDevices),
	)

	view := s.view(ctx, device)
	view.LocationName = info.Location.Name
	view.Quota = quota
	return view, nil
}

func (s *deviceService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*DeviceView, error) {
	device, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, device), nil
}

func (s *deviceService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch DevicePatch) (*DeviceView, error) {
	device, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, common.Validation("No valid fields to update")
	}

	if patch.Name != nil {
		device.Name = *patch.Name
	}
	if patch.DeviceType != nil {
		device.DeviceType = *patch.DeviceType
	}
	if patch.DeviceID != nil {
		device.DeviceID = *patch.DeviceID
	}
	if patch.Status != nil {
		device.Status = *patch.Status
	}
	if patch.Settings != nil {
		device.Settings = patch.Settings
	}

	if err := s.devices.Update(ctx, device); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(deviceNotFoundDetail)
		}
		return nil, fmt.Errorf("update device: %w", err)
	}
	device.UpdatedAt = s.clock.Now().UTC()
	return s.view(ctx, device), nil
}

func (s *deviceService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	if _, err := s.load(ctx, tc, id); err != nil {
		return err
	}
	if err := s.devices.Deactivate(ctx, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(deviceNotFoundDetail)
		}
		return fmt.Errorf("deactivate device: %w", err)
	}
	s.log.Info("device deactivated", zap.String("device_id", id.String()))
	return nil
}

// Heartbeat records liveness. Kiosks retry blindly, so unknown ids and store
// failures are only logged.
func (s *deviceService) Heartbeat(ctx context.Context, id string) {
	deviceID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		s.log.Debug("heartbeat for malformed device id", zap.String("device_id", id))
		return
	}
	found, err := s.devices.Heartbeat(ctx, deviceID, s.clock.Now().UTC())
	if err != nil {
		s.log.Warn("failed to record heartbeat", zap.String("device_id", id), zap.Error(err))
		return
	}
	if !found {
		s.log.Debug("heartbeat for unknown device", zap.String("device_id", id))
	}
}

func (s *deviceService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(deviceNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if err := Authorize(tc, device.CompanyID); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) view(ctx context.Context, d *models.Device) *DeviceView {
	return s.viewCached(ctx, d, map[uuid.UUID]string{}, map[uuid.UUID]string{})
}

func (s *deviceService) viewCached(ctx context.Context, d *models.Device, companyNames, locationNames map[uuid.UUID]string) *DeviceView {
	d.IsOnline = d.OnlineAt(s.clock.Now().UTC())

	companyName, ok := companyNames[d.CompanyID]
	if !ok {
		companyName = "Unknown Company"
		if c, err := s.companies.GetByID(ctx, d.CompanyID); err == nil {
			companyName = c.Name
		}
		companyNames[d.CompanyID] = companyName
	}
	locationName, ok := locationNames[d.LocationID]
	if !ok {
		locationName = "Unknown Location"
		if l, err := s.locations.GetByID(ctx, d.LocationID); err == nil {
			locationName = l.Name
		}
		locationNames[d.LocationID] = locationName
	}
	return &DeviceView{Device: d, CompanyName: companyName, LocationName: locationName}
}

// newDeviceToken returns 32 random bytes as unpadded URL-safe base64.
func newDeviceToken() (string, error) {
	b := make([]byte, deviceTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
