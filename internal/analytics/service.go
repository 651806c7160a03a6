package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/geoyang/Visitor/internal/caching"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	ScopeGlobal  = "global"
	ScopeCompany = "company"

	allCompaniesScope = "all"
	companyCacheTTL   = time.Minute
)

// AnalyticsService counts visitors, locations and devices for the dashboards.
type AnalyticsService struct {
	visitors  repositories.VisitorRepository
	locations repositories.LocationRepository
	devices   repositories.DeviceRepository
	cache     caching.CacheService
	clock     clockwork.Clock
	log       *zap.Logger
}

// Summary is the visitor counter block of GET /analytics/summary.
type Summary struct {
	TotalVisitors  int       `json:"total_visitors"`
	ActiveVisitors int       `json:"active_visitors"`
	TodayVisitors  int       `json:"today_visitors"`
	Timestamp      time.Time `json:"timestamp"`
	Scope          string    `json:"scope"`
}

// NewAnalyticsService wires the counters. cache may be nil.
func NewAnalyticsService(visitors repositories.VisitorRepository, locations repositories.LocationRepository, devices repositories.DeviceRepository,
	cache caching.CacheService, clock clockwork.Clock, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		visitors:  visitors,
		locations: locations,
		devices:   devices,
		cache:     cache,
		clock:     clock,
		log:       log,
	}
}

// Summary counts visitors across the caller's locations, or everywhere for super admins.
func (a *AnalyticsService) Summary(ctx context.Context, tc *models.TenantContext) (*Summary, error) {
	now := a.clock.Now().UTC()
	locationIDs, err := a.locationIDs(ctx, tc)
	if err != nil {
		return nil, err
	}

	stats, err := a.visitors.Stats(ctx, locationIDs, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}

	scope := ScopeCompany
	if tc.IsSuperAdmin() {
		scope = ScopeGlobal
	}
	return &Summary{
		TotalVisitors:  stats.Total,
		ActiveVisitors: stats.Active,
		TodayVisitors:  stats.Today,
		Timestamp:      now,
		Scope:          scope,
	}, nil
}

// Company adds location and device counts to the visitor counters. Results
// are cached per company for a minute.
func (a *AnalyticsService) Company(ctx context.Context, tc *models.TenantContext) (map[string]interface{}, error) {
	cacheKey := allCompaniesScope
	if !tc.IsSuperAdmin() {
		cacheKey = tc.CompanyID.String()
	}

	if a.cache != nil {
		cached, err := a.cache.GetCompanyAnalytics(ctx, cacheKey)
		if err != nil {
			a.log.Warn("analytics cache read failed", zap.String("scope", cacheKey), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	data, err := a.calculateCompany(ctx, tc)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.SetCompanyAnalytics(ctx, cacheKey, data, companyCacheTTL); err != nil {
			a.log.Warn("analytics cache write failed", zap.String("scope", cacheKey), zap.Error(err))
		}
	}
	return data, nil
}

func (a *AnalyticsService) calculateCompany(ctx context.Context, tc *models.TenantContext) (map[string]interface{}, error) {
	now := a.clock.Now().UTC()

	var scope *uuid.UUID
	companyID := "all_companies"
	totalLocations := 0
	var locationIDs []uuid.UUID

	if tc.IsSuperAdmin() {
		locations, err := a.locations.List(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		totalLocations = len(locations)
	} else {
		id := tc.CompanyID
		scope = &id
		companyID = id.String()

		ids, err := a.locations.ListIDs(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list location ids: %w", err)
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		locationIDs = ids
		totalLocations = len(ids)
	}

	stats, err := a.visitors.Stats(ctx, locationIDs, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}

	totalDevices, onlineDevices, err := a.devices.Counts(ctx, scope, now.Add(-models.OnlineWindow))
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}

	return map[string]interface{}{
		"company_id":      companyID,
		"total_visitors":  stats.Total,
		"active_visitors": stats.Active,
		"today_visitors":  stats.Today,
		"total_locations": totalLocations,
		"total_devices":   totalDevices,
		"online_devices":  onlineDevices,
	}, nil
}

// locationIDs returns nil for super admins, meaning every location.
func (a *AnalyticsService) locationIDs(ctx context.Context, tc *models.TenantContext) ([]uuid.UUID, error) {
	if tc.IsSuperAdmin() {
		return nil, nil
	}
	ids, err := a.locations.ListIDs(ctx, tc.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list location ids: %w", err)
	}
	if ids == nil {
		// a company without locations must not widen to every location
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
