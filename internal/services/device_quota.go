package services

import (
	"context"
	"fmt"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"go.uber.org/zap"
)

// QuotaInfo describes device usage of a location. DevicesRemaining is an int,
// or "unlimited" on the enterprise plan.
type QuotaInfo struct {
	CurrentDevices   int         `json:"current_devices"`
	MaxDevices       int         `json:"max_devices"`
	PlanType         string      `json:"plan_type"`
	DevicesRemaining interface{} `json:"devices_remaining"`
}

// DeviceQuota enforces the per-location device cap of the subscription plan.
type DeviceQuota interface {
	CheckDeviceQuota(ctx context.Context, info *SubscriptionInfo) (*QuotaInfo, error)
}

type deviceQuota struct {
	devices repositories.DeviceRepository
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewDeviceQuota(devices repositories.DeviceRepository, m *metrics.Metrics, log *zap.Logger) DeviceQuota {
	return &deviceQuota{devices: devices, metrics: m, log: log}
}

// MaxDevicesFor resolves the cap: metadata.max_devices when set, else the plan table.
func MaxDevicesFor(sub *models.Subscription) int {
	if n, ok := sub.MetadataMaxDevices(); ok && n > 0 {
		return n
	}
	return PlanDeviceLimit(sub.Plan)
}

func (q *deviceQuota) CheckDeviceQuota(ctx context.Context, info *SubscriptionInfo) (*QuotaInfo, error) {
	plan := info.Subscription.Plan
	if plan == "" {
		plan = models.PlanBasic
	}
	maxDevices := MaxDevicesFor(info.Subscription)

	count, err := q.devices.CountActiveByLocation(ctx, info.Location.ID)
	if err != nil {
		return nil, fmt.Errorf("count location devices: %w", err)
	}

	if count >= maxDevices {
		q.metrics.RecordGate("device_quota", "limit_reached")
		q.log.Info("device limit reached",
			zap.String("location_id", info.Location.ID.String()),
			zap.String("plan", plan),
			zap.Int("max_devices", maxDevices),
			zap.Int("current_devices", count),
		)
		return nil, common.Forbidden(fmt.Sprintf(
			"Device limit reached. Your %s plan allows %d devices per location. Please upgrade your plan or remove inactive devices.",
			plan, maxDevices))
	}

	q.metrics.RecordGate("device_quota", "allowed")
	quota := &QuotaInfo{
		CurrentDevices:   count,
		MaxDevices:       maxDevices,
		PlanType:         plan,
		DevicesRemaining: maxDevices - count,
	}
	if plan == models.PlanEnterprise {
		quota.DevicesRemaining = unlimitedDevices
	}
	return quota, nil
}
