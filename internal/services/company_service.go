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

const companyNotFoundDetail = "Company not found"

// CompanyView is a company decorated with child counts.
type CompanyView struct {
	*models.Company
	LocationsCount      int `json:"locations_count"`
	DevicesCount        int `json:"devices_count"`
	ActiveVisitorsCount int `json:"active_visitors_count"`
}

// CompanyPatch carries the editable company fields; nil means unchanged.
type CompanyPatch struct {
	Name         *string                `json:"name"`
	Domain       *string                `json:"domain"`
	Status       *string                `json:"status"`
	MaxLocations *int                   `json:"max_locations"`
	Settings     map[string]interface{} `json:"settings"`
}

func (p CompanyPatch) empty() bool {
	return p.Name == nil && p.Domain == nil && p.Status == nil && p.MaxLocations == nil && p.Settings == nil
}

type CompanyService interface {
	List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*CompanyView, error)
	Create(ctx context.Context, tc *models.TenantContext, patch CompanyPatch) (*CompanyView, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*CompanyView, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch CompanyPatch) (*CompanyView, error)
	Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
	Validate(ctx context.Context, id uuid.UUID) (*models.Company, error)
	AvailableSubscriptions(ctx context.Context, tc *models.TenantContext, id uuid.UUID) ([]*models.Subscription, error)
}

type companyService struct {
	companies     repositories.CompanyRepository
	subscriptions repositories.SubscriptionRepository
	clock         clockwork.Clock
	log           *zap.Logger
}

func NewCompanyService(companies repositories.CompanyRepository, subscriptions repositories.SubscriptionRepository, clock clockwork.Clock, log *zap.Logger) CompanyService {
	return &companyService{
		companies:     companies,
		subscriptions: subscriptions,
		clock:         clock,
		log:           log,
	}
}

func (s *companyService) List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*CompanyView, error) {
	companies, err := s.companies.List(ctx, CompanyScope(tc), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	views := make([]*CompanyView, 0, len(companies))
	for _, c := range companies {
		v, err := s.view(ctx, c)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Create adds a company without users; only super admins may do this.
func (s *companyService) Create(ctx context.Context, tc *models.TenantContext, patch CompanyPatch) (*CompanyView, error) {
	if !tc.IsSuperAdmin() {
		return nil, common.Forbidden("Only super admins can create companies")
	}
	if patch.Name == nil || strings.TrimSpace(*patch.Name) == "" {
		return nil, common.Validation("Field 'name' is required")
	}

	company := &models.Company{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(*patch.Name),
		Domain:       patch.Domain,
		Status:       models.CompanyStatusActive,
		MaxLocations: models.DefaultMaxLocations,
		Settings:     patch.Settings,
	}
	if patch.Status != nil {
		company.Status = *patch.Status
	}
	if patch.MaxLocations != nil {
		company.MaxLocations = *patch.MaxLocations
	}

	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	now := s.clock.Now().UTC()
	company.CreatedAt, company.UpdatedAt = now, now

	s.log.Info("company created", zap.String("company_id", company.ID.String()))
	return &CompanyView{Company: company}, nil
}

func (s *companyService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*CompanyView, error) {
	company, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, company)
}

func (s *companyService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch CompanyPatch) (*CompanyView, error) {
	company, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, common.Validation("No valid fields to update")
	}

	if patch.Name != nil {
		company.Name = *patch.Name
	}
	if patch.Domain != nil {
		company.Domain = patch.Domain
	}
	if patch.Status != nil {
		company.Status = *patch.Status
	}
	if patch.MaxLocations != nil {
		if !tc.IsSuperAdmin() {
			return nil, common.Forbidden("Only super admins can change location limits")
		}
		company.MaxLocations = *patch.MaxLocations
	}
	if patch.Settings != nil {
		company.Settings = patch.Settings
	}

	if err := s.companies.Update(ctx, company); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(companyNotFoundDetail)
		}
		return nil, fmt.Errorf("update company: %w", err)
	}
	company.UpdatedAt = s.clock.Now().UTC()
	return s.view(ctx, company)
}

// Delete soft-deletes a company that no longer has locations, devices or users.
func (s *companyService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	if _, err := s.load(ctx, tc, id); err != nil {
		return err
	}

	deps, err := s.companies.CountDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("count company dependents: %w", err)
	}
	switch {
	case deps.Locations > 0:
		return common.Validation(fmt.Sprintf("Cannot delete company. It has %d location(s). Please remove locations first.", deps.Locations))
	case deps.Devices > 0:
		return common.Validation(fmt.Sprintf("Cannot delete company. It has %d device(s). Please remove devices first.", deps.Devices))
	case deps.Users > 0:
		return common.Validation(fmt.Sprintf("Cannot delete company. It has %d user(s). Please remove users first.", deps.Users))
	}

	if err := s.companies.SoftDelete(ctx, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(companyNotFoundDetail)
		}
		return fmt.Errorf("delete company: %w", err)
	}
	s.log.Info("company deactivated", zap.String("company_id", id.String()))
	return nil
}

// Validate is the unauthenticated existence check used by kiosk setup screens.
func (s *companyService) Validate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && !company.IsActive()) {
		return nil, common.NotFound("Company not found or inactive")
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	return company, nil
}

func (s *companyService) AvailableSubscriptions(ctx context.Context, tc *models.TenantContext, id uuid.UUID) ([]*models.Subscription, error) {
	if _, err := s.load(ctx, tc, id); err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListAvailable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list available subscriptions: %w", err)
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	return subs, nil
}

// load fetches the company (404) and then checks the caller owns it (403).
func (s *companyService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(companyNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	if err := Authorize(tc, company.ID); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *companyService) view(ctx context.Context, c *models.Company) (*CompanyView, error) {
	deps, err := s.companies.CountDependents(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("count company dependents: %w", err)
	}
	return &CompanyView{
		Company:             c,
		LocationsCount:      deps.Locations,
		DevicesCount:        deps.Devices,
		ActiveVisitorsCount: deps.ActiveVisitors,
	}, nil
}
