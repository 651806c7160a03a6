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
	"go.uber.org/zap"
)

// TenantResolver turns request credentials into principals.
type TenantResolver interface {
	ResolveUser(ctx context.Context, token string) (*models.User, error)
	ResolveCompany(ctx context.Context, user *models.User) (*models.TenantContext, error)
	Resolve(ctx context.Context, token string) (*models.TenantContext, error)
	ResolveDevice(ctx context.Context, deviceToken string) (*models.Device, error)
}

type tenantResolver struct {
	tokens    TokenService
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	devices   repositories.DeviceRepository
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewTenantResolver(tokens TokenService, users repositories.UserRepository, companies repositories.CompanyRepository,
	devices repositories.DeviceRepository, clock clockwork.Clock, log *zap.Logger) TenantResolver {
	return &tenantResolver{
		tokens:    tokens,
		users:     users,
		companies: companies,
		devices:   devices,
		clock:     clock,
		log:       log,
	}
}

// ResolveUser validates the bearer token and loads its user. Inactive users
// still resolve; only login refuses them.
func (r *tenantResolver) ResolveUser(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.Unauthorized("Not authenticated")
	}

	claims, err := r.tokens.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load token user: %w", err)
	}
	return user, nil
}

// ResolveCompany builds the tenant context. Super admins get a synthetic
// context without a backing company row.
func (r *tenantResolver) ResolveCompany(ctx context.Context, user *models.User) (*models.TenantContext, error) {
	if user.IsSuperAdmin() {
		return &models.TenantContext{
			UserID:    user.ID,
			CompanyID: uuid.Nil,
			Role:      models.RoleSuperAdmin,
			BypassAll: true,
			User:      user,
		}, nil
	}

	if user.CompanyID == nil || *user.CompanyID == uuid.Nil {
		return nil, common.Unauthorized("User not associated with a company")
	}

	company, err := r.companies.GetByID(ctx, *user.CompanyID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.Unauthorized("Company not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user company: %w", err)
	}

	return &models.TenantContext{
		UserID:    user.ID,
		CompanyID: company.ID,
		Role:      user.Role,
		User:      user,
		Company:   company,
	}, nil
}

func (r *tenantResolver) Resolve(ctx context.Context, token string) (*models.TenantContext, error) {
	user, err := r.ResolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return r.ResolveCompany(ctx, user)
}

// ResolveDevice authenticates a kiosk by its device token and stamps last_seen.
func (r *tenantResolver) ResolveDevice(ctx context.Context, deviceToken string) (*models.Device, error) {
	if strings.TrimSpace(deviceToken) == "" {
		return nil, common.Unauthorized("Device token required")
	}

	device, err := r.devices.GetByToken(ctx, deviceToken)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.Unauthorized("Invalid device token")
	}
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	now := r.clock.Now().UTC()
	if err := r.devices.TouchLastSeen(ctx, device.ID, now); err != nil {
		r.log.Warn("failed to update device last_seen", zap.String("device_id", device.ID.String()), zap.Error(err))
	} else {
		device.LastSeen = &now
	}
	return device, nil
}
