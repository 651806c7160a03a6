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

const (
	formNotFoundDetail  = "Form not found"
	defaultFormCategory = "visitor"
)

// FormInput is both the create body and the partial update body of a form.
type FormInput struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Category    *string                `json:"category"`
	Status      *string                `json:"status"`
	Fields      []models.FormField     `json:"fields"`
	Layout      map[string]interface{} `json:"layout"`
	Theme       map[string]interface{} `json:"theme"`
	Settings    map[string]interface{} `json:"settings"`
	LocationIDs []uuid.UUID            `json:"location_ids"`
}

type FormService interface {
	List(ctx context.Context, p Principal) ([]*models.Form, error)
	Create(ctx context.Context, p Principal, in FormInput) (*models.Form, error)
	Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Form, error)
	Update(ctx context.Context, p Principal, id uuid.UUID, in FormInput) (*models.Form, error)
	Delete(ctx context.Context, p Principal, id uuid.UUID) error
	ListForDevice(ctx context.Context, device *models.Device) ([]*models.Form, error)
	SeedDefaultForm(ctx context.Context) error
}

type formService struct {
	forms    repositories.FormRepository
	visitors repositories.VisitorRepository
	clock    clockwork.Clock
	log      *zap.Logger
}

func NewFormService(forms repositories.FormRepository, visitors repositories.VisitorRepository, clock clockwork.Clock, log *zap.Logger) FormService {
	return &formService{forms: forms, visitors: visitors, clock: clock, log: log}
}

func (s *formService) List(ctx context.Context, p Principal) ([]*models.Form, error) {
	forms, err := s.forms.List(ctx, p.Scope())
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	if forms == nil {
		forms = []*models.Form{}
	}
	return forms, nil
}

func (s *formService) Create(ctx context.Context, p Principal, in FormInput) (*models.Form, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, common.Unprocessable("Form name is required")
	}
	if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
		return nil, common.Unprocessable("Form category is required")
	}

	status := models.FormStatusDraft
	if in.Status != nil {
		if !validFormStatus(*in.Status) {
			return nil, common.Validation(fmt.Sprintf("Invalid form status '%s'", *in.Status))
		}
		status = *in.Status
	}

	now := s.clock.Now().UTC()
	actor := p.ActorID()
	form := &models.Form{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID(),
		Name:        strings.TrimSpace(*in.Name),
		Description: in.Description,
		Category:    strings.TrimSpace(*in.Category),
		Status:      status,
		Fields:      in.Fields,
		Layout:      in.Layout,
		Theme:       in.Theme,
		Settings:    in.Settings,
		Version:     1,
		LocationIDs: in.LocationIDs,
		CreatedBy:   &actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}

	s.log.Info("form created", zap.String("form_id", form.ID.String()), zap.String("created_by", actor))
	return form, nil
}

func (s *formService) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Form, error) {
	form, err := s.forms.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(formNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	// global forms are readable by everyone
	if form.CompanyID != nil && !p.Owns(form.CompanyID) {
		return nil, common.NotFound(formNotFoundDetail)
	}
	return form, nil
}

// Update applies the present fields and bumps the version.
func (s *formService) Update(ctx context.Context, p Principal, id uuid.UUID, in FormInput) (*models.Form, error) {
	form, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, common.Unprocessable("Form name is required")
		}
		form.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		form.Description = in.Description
	}
	if in.Category != nil {
		form.Category = *in.Category
	}
	if in.Status != nil {
		if !validFormStatus(*in.Status) {
			return nil, common.Validation(fmt.Sprintf("Invalid form status '%s'", *in.Status))
		}
		form.Status = *in.Status
	}
	if in.Fields != nil {
		form.Fields = in.Fields
	}
	if in.Layout != nil {
		form.Layout = in.Layout
	}
	if in.Theme != nil {
		form.Theme = in.Theme
	}
	if in.Settings != nil {
		form.Settings = in.Settings
	}
	if in.LocationIDs != nil {
		form.LocationIDs = in.LocationIDs
	}

	if err := s.forms.Update(ctx, form); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(formNotFoundDetail)
		}
		return nil, fmt.Errorf("update form: %w", err)
	}
	return form, nil
}

// Delete removes a form nobody has checked in with yet.
func (s *formService) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}

	submissions, err := s.visitors.CountByForm(ctx, id.String())
	if err != nil {
		return fmt.Errorf("count form submissions: %w", err)
	}
	if submissions > 0 {
		return common.Validation(fmt.Sprintf("Cannot delete form with %d submissions. Archive it instead.", submissions))
	}

	if err := s.forms.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(formNotFoundDetail)
		}
		return fmt.Errorf("delete form: %w", err)
	}
	s.log.Info("form deleted", zap.String("form_id", id.String()))
	return nil
}

func (s *formService) ListForDevice(ctx context.Context, device *models.Device) ([]*models.Form, error) {
	forms, err := s.forms.ListActiveForLocation(ctx, device.CompanyID, device.LocationID)
	if err != nil {
		return nil, fmt.Errorf("list device forms: %w", err)
	}
	if forms == nil {
		forms = []*models.Form{}
	}
	return forms, nil
}

// SeedDefaultForm creates the global default visitor form when it is missing.
func (s *formService) SeedDefaultForm(ctx context.Context) error {
	_, err := s.forms.GetGlobalByName(ctx, models.DefaultFormName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("lookup default form: %w", err)
	}

	now := s.clock.Now().UTC()
	description := "Standard visitor check-in form"
	form := &models.Form{
		ID:          uuid.New(),
		Name:        models.DefaultFormName,
		Description: &description,
		Category:    defaultFormCategory,
		Status:      models.FormStatusActive,
		Fields:      models.DefaultVisitorFields(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return fmt.Errorf("create default form: %w", err)
	}
	s.log.Info("default visitor form created", zap.String("form_id", form.ID.String()))
	return nil
}

func (s *formService) owned(ctx context.Context, p Principal, id uuid.UUID) (*models.Form, error) {
	form, err := s.forms.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(formNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if !p.Owns(form.CompanyID) {
		return nil, common.NotFound(formNotFoundDetail)
	}
	return form, nil
}

func validFormStatus(status string) bool {
	switch status {
	case models.FormStatusActive, models.FormStatusDraft, models.FormStatusArchived:
		return true
	}
	return false
}
