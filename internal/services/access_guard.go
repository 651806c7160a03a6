package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
)

const (
	accessDeniedDetail         = "Access denied"
	locationNotFoundDetail     = "Location not found"
	locationAccessDeniedDetail = "Access denied to this location"
)

// Authorize allows super admins everywhere and everyone else inside their own company.
func Authorize(tc *models.TenantContext, targetCompanyID uuid.UUID) error {
	if tc == nil {
		return common.Unauthorized(invalidCredentialsDetail)
	}
	if tc.IsSuperAdmin() || tc.CompanyID == targetCompanyID {
		return nil
	}
	return common.Forbidden(accessDeniedDetail)
}

// CompanyScope is the company filter for list queries; nil lists every company.
func CompanyScope(tc *models.TenantContext) *uuid.UUID {
	if tc.IsSuperAdmin() {
		return nil
	}
	id := tc.CompanyID
	return &id
}

// AccessGuard checks ownership of rows that have to be loaded first.
type AccessGuard interface {
	AuthorizeLocation(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID) (*models.Location, error)
}

type accessGuard struct {
	locations repositories.LocationRepository
}

func NewAccessGuard(locations repositories.LocationRepository) AccessGuard {
	return &accessGuard{locations: locations}
}

func (g *accessGuard) AuthorizeLocation(ctx context.Context, tc *models.TenantContext, locationID uuid.UUID) (*models.Location, error) {
	location, err := g.locations.GetByID(ctx, locationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(locationNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	if !tc.IsSuperAdmin() && location.CompanyID != tc.CompanyID {
		return nil, common.Forbidden(locationAccessDeniedDetail)
	}
	return location, nil
}
