package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/caching"
	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

const (
	themeNotFoundDetail       = "Theme not found"
	themeDeviceNotFoundDetail = "Theme not found or access denied"
	themeAccessDeniedDetail   = "Access denied to this theme"
	activeThemeTTL            = 5 * time.Minute
)

// ThemeInput carries create and update fields. Nil fields are left unchanged
// on update.
type ThemeInput struct {
	CompanyID   *uuid.UUID `json:"companyId"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Status      *string    `json:"status"`

	models.ThemeSections
}

// ActiveTheme is the kiosk's view of the company's current theme.
type ActiveTheme struct {
	Theme    interface{} `json:"theme"`
	IsActive bool        `json:"isActive"`
}

// BuiltinThemeRef names an app-bundled theme in the active theme response.
type BuiltinThemeRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AssetUpload is an image pushed into a theme's images section.
type AssetUpload struct {
	Slot        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ThemeService interface {
	List(ctx context.Context, p Principal, companyID *uuid.UUID) ([]*models.Theme, error)
	Create(ctx context.Context, p Principal, in ThemeInput) (*models.Theme, error)
	Get(ctx context.Context, p Principal, id string) (*models.Theme, error)
	Update(ctx context.Context, p Principal, id string, in ThemeInput) (*models.Theme, error)
	Delete(ctx context.Context, p Principal, id string) error
	Activate(ctx context.Context, p Principal, id string) error
	ActivateBuiltin(ctx context.Context, p Principal, name string, companyID *uuid.UUID) error
	Active(ctx context.Context, p Principal, companyID *uuid.UUID) (*ActiveTheme, error)
	UploadAsset(ctx context.Context, p Principal, id string, asset AssetUpload) (string, error)
}

type themeService struct {
	themes repositories.ThemeRepository
	cache  caching.CacheService
	assets AssetStore
	clock  clockwork.Clock
	log    *zap.Logger
}

// NewThemeService wires theme storage. cache and assets are optional.
func NewThemeService(themes repositories.ThemeRepository, cache caching.CacheService, assets AssetStore,
	clock clockwork.Clock, log *zap.Logger) ThemeService {
	return &themeService{
		themes: themes,
		cache:  cache,
		assets: assets,
		clock:  clock,
		log:    log,
	}
}

// companyFor resolves whose themes a request is about. Devices are pinned to
// their own company; users may name a company they belong to.
func (s *themeService) companyFor(p Principal, requested *uuid.UUID) (uuid.UUID, error) {
	if p.Device != nil {
		return p.Device.CompanyID, nil
	}
	tc := p.Tenant
	if requested != nil {
		if !tc.IsSuperAdmin() && *requested != tc.CompanyID {
			return uuid.Nil, common.Forbidden("Access denied to company themes")
		}
		return *requested, nil
	}
	if tc.IsSuperAdmin() {
		return uuid.Nil, common.Validation("companyId is required for super admins")
	}
	return tc.CompanyID, nil
}

func (s *themeService) List(ctx context.Context, p Principal, companyID *uuid.UUID) ([]*models.Theme, error) {
	company, err := s.companyFor(p, companyID)
	if err != nil {
		return nil, err
	}
	themes, err := s.themes.List(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return themes, nil
}

func (s *themeService) Create(ctx context.Context, p Principal, in ThemeInput) (*models.Theme, error) {
	company, err := s.companyFor(p, in.CompanyID)
	if err != nil {
		if common.StatusOf(err) == http.StatusForbidden {
			return nil, common.Forbidden("Access denied to create theme for this company")
		}
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, common.Unprocessable("Theme name is required")
	}

	category := models.ThemeCategoryCustom
	if in.Category != nil {
		category = *in.Category
	}
	if !models.IsValidThemeCategory(category) {
		return nil, common.Validation(fmt.Sprintf("Invalid theme category '%s'", category))
	}
	status := models.ThemeStatusDraft
	if in.Status != nil {
		status = *in.Status
	}
	if !models.IsValidThemeStatus(status) {
		return nil, common.Validation(fmt.Sprintf("Invalid theme status '%s'", status))
	}

	now := s.clock.Now().UTC()
	theme := &models.Theme{
		ID:            fmt.Sprintf("theme_%d_%s", now.Unix(), random.String(4, random.Numeric)),
		CompanyID:     company,
		Name:          strings.TrimSpace(*in.Name),
		Description:   in.Description,
		Category:      category,
		Status:        status,
		CreatedBy:     common.StringPtr(themeActor(p)),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		ThemeSections: in.ThemeSections,
	}
	theme.ApplyDefaults()

	if err := s.themes.Create(ctx, theme); err != nil {
		return nil, fmt.Errorf("create theme: %w", err)
	}
	s.log.Info("theme created", zap.String("theme_id", theme.ID), zap.String("company_id", company.String()))
	return theme, nil
}

func (s *themeService) Get(ctx context.Context, p Principal, id string) (*models.Theme, error) {
	return s.load(ctx, p, id)
}

func (s *themeService) Update(ctx context.Context, p Principal, id string, in ThemeInput) (*models.Theme, error) {
	theme, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, common.Unprocessable("Theme name is required")
		}
		theme.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		theme.Description = in.Description
	}
	if in.Category != nil {
		if !models.IsValidThemeCategory(*in.Category) {
			return nil, common.Validation(fmt.Sprintf("Invalid theme category '%s'", *in.Category))
		}
		theme.Category = *in.Category
	}
	if in.Status != nil {
		if !models.IsValidThemeStatus(*in.Status) {
			return nil, common.Validation(fmt.Sprintf("Invalid theme status '%s'", *in.Status))
		}
		theme.Status = *in.Status
	}
	theme.Merge(in.ThemeSections)
	theme.Version++
	theme.UpdatedAt = s.clock.Now().UTC()

	if err := s.save(ctx, theme); err != nil {
		return nil, err
	}
	return theme, nil
}

func (s *themeService) Delete(ctx context.Context, p Principal, id string) error {
	theme, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}

	activation, err := s.themes.GetActivation(ctx, theme.CompanyID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("load theme activation: %w", err)
	}
	if activation != nil && activation.ThemeType == models.ThemeTypeCustom &&
		activation.ThemeID != nil && *activation.ThemeID == theme.ID {
		return common.Validation("Cannot delete active theme. Please activate a different theme first.")
	}

	if err := s.themes.Delete(ctx, theme.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(themeNotFoundDetail)
		}
		return fmt.Errorf("delete theme: %w", err)
	}
	s.invalidate(ctx, theme.CompanyID)
	s.log.Info("theme deleted", zap.String("theme_id", theme.ID))
	return nil
}

func (s *themeService) Activate(ctx context.Context, p Principal, id string) error {
	theme, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	themeID := theme.ID
	return s.activate(ctx, p, &models.ThemeActivation{
		CompanyID: theme.CompanyID,
		ThemeID:   &themeID,
		ThemeType: models.ThemeTypeCustom,
	})
}

func (s *themeService) ActivateBuiltin(ctx context.Context, p Principal, name string, companyID *uuid.UUID) error {
	company, err := s.companyFor(p, companyID)
	if err != nil {
		return err
	}
	if _, ok := models.BuiltinThemes[name]; !ok {
		return common.Validation(fmt.Sprintf("Unknown builtin theme '%s'", name))
	}
	return s.activate(ctx, p, &models.ThemeActivation{
		CompanyID:        company,
		ThemeType:        models.ThemeTypeBuiltin,
		BuiltinThemeName: &name,
	})
}

func (s *themeService) activate(ctx context.Context, p Principal, activation *models.ThemeActivation) error {
	activation.ActivatedAt = s.clock.Now().UTC()
	activation.ActivatedBy = common.StringPtr(themeActor(p))

	if err := s.themes.UpsertActivation(ctx, activation); err != nil {
		return fmt.Errorf("activate theme: %w", err)
	}
	s.invalidate(ctx, activation.CompanyID)
	s.log.Info("theme activated",
		zap.String("company_id", activation.CompanyID.String()),
		zap.String("theme_type", activation.ThemeType),
	)
	return nil
}

func (s *themeService) Active(ctx context.Context, p Principal, companyID *uuid.UUID) (*ActiveTheme, error) {
	company, err := s.companyFor(p, companyID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		raw, err := s.cache.GetActiveTheme(ctx, company)
		if err != nil {
			s.log.Warn("active theme cache read failed", zap.Error(err))
		} else if raw != nil {
			var cached ActiveTheme
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	active, err := s.resolveActive(ctx, company)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetActiveTheme(ctx, company, active, activeThemeTTL); err != nil {
			s.log.Warn("active theme cache write failed", zap.Error(err))
		}
	}
	return active, nil
}

func (s *themeService) resolveActive(ctx context.Context, company uuid.UUID) (*ActiveTheme, error) {
	activation, err := s.themes.GetActivation(ctx, company)
	if errors.Is(err, repositories.ErrNotFound) {
		return &ActiveTheme{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load theme activation: %w", err)
	}

	if activation.ThemeType == models.ThemeTypeBuiltin && activation.BuiltinThemeName != nil {
		return &ActiveTheme{
			Theme:    BuiltinThemeRef{Name: *activation.BuiltinThemeName, Type: models.ThemeTypeBuiltin},
			IsActive: true,
		}, nil
	}
	if activation.ThemeID == nil {
		return &ActiveTheme{}, nil
	}

	theme, err := s.themes.GetByID(ctx, *activation.ThemeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &ActiveTheme{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active theme: %w", err)
	}
	return &ActiveTheme{Theme: theme, IsActive: true}, nil
}

// UploadAsset stores an image and points the theme's image slot at it.
func (s *themeService) UploadAsset(ctx context.Context, p Principal, id string, asset AssetUpload) (string, error) {
	if s.assets == nil {
		return "", common.Internal(errors.New("asset storage is not configured"))
	}
	if strings.TrimSpace(asset.Slot) == "" {
		return "", common.Unprocessable("Asset slot is required")
	}
	if !strings.HasPrefix(asset.ContentType, "image/") {
		return "", common.Validation("Only image uploads are allowed")
	}

	theme, err := s.load(ctx, p, id)
	if err != nil {
		return "", err
	}

	now := s.clock.Now().UTC()
	objectName := fmt.Sprintf("themes/%s/%s/%s-%d%s", theme.CompanyID, theme.ID, asset.Slot, now.Unix(), path.Ext(asset.Filename))
	url, err := s.assets.UploadAsset(ctx, objectName, asset.Body, asset.Size, asset.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload theme asset: %w", err)
	}

	if theme.Images == nil {
		theme.Images = map[string]interface{}{}
	}
	theme.Images[asset.Slot] = url
	theme.Version++
	theme.UpdatedAt = now
	if err := s.save(ctx, theme); err != nil {
		return "", err
	}
	return url, nil
}

func (s *themeService) save(ctx context.Context, theme *models.Theme) error {
	if err := s.themes.Update(ctx, theme); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(themeNotFoundDetail)
		}
		return fmt.Errorf("update theme: %w", err)
	}
	s.invalidate(ctx, theme.CompanyID)
	return nil
}

// load fetches a theme and checks it belongs to the caller's company.
func (s *themeService) load(ctx context.Context, p Principal, id string) (*models.Theme, error) {
	theme, err := s.themes.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load theme: %w", err)
	}

	if p.Device != nil {
		if theme == nil || theme.CompanyID != p.Device.CompanyID {
			return nil, common.NotFound(themeDeviceNotFoundDetail)
		}
		return theme, nil
	}
	if theme == nil {
		return nil, common.NotFound(themeNotFoundDetail)
	}
	if !p.Tenant.IsSuperAdmin() && theme.CompanyID != p.Tenant.CompanyID {
		return nil, common.Forbidden(themeAccessDeniedDetail)
	}
	return theme, nil
}

func (s *themeService) invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteActiveTheme(ctx, companyID); err != nil {
		s.log.Warn("active theme cache invalidation failed", zap.String("company_id", companyID.String()), zap.Error(err))
	}
}

func themeActor(p Principal) string {
	if p.Device != nil {
		return "device_" + p.Device.ID.String()
	}
	return p.ActorID()
}
