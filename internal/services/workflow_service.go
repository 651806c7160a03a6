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

const workflowNotFoundDetail = "Workflow not found"

var workflowManagerRoles = map[string]bool{
	models.RoleCompanyAdmin: true,
	"admin":                 true,
	"owner":                 true,
}

// WorkflowInput is both the create body and the partial update body of a
// workflow. CompanyID is only honoured for super admins.
type WorkflowInput struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	FormID      *string                 `json:"form_id"`
	LocationIDs []uuid.UUID             `json:"location_ids"`
	Actions     []models.WorkflowAction `json:"actions"`
	IsActive    *bool                   `json:"is_active"`
	CompanyID   *uuid.UUID              `json:"company_id"`
}

type WorkflowService interface {
	List(ctx context.Context, tc *models.TenantContext) ([]*models.Workflow, error)
	Create(ctx context.Context, tc *models.TenantContext, in WorkflowInput) (*models.Workflow, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Workflow, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, in WorkflowInput) (*models.Workflow, error)
	Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
	ListForDevice(ctx context.Context, device *models.Device) ([]*models.Workflow, error)
}

type workflowService struct {
	workflows repositories.WorkflowRepository
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewWorkflowService(workflows repositories.WorkflowRepository, clock clockwork.Clock, log *zap.Logger) WorkflowService {
	return &workflowService{workflows: workflows, clock: clock, log: log}
}

// canManageWorkflows is the role gate of every user workflow route.
func canManageWorkflows(tc *models.TenantContext) error {
	if tc.IsSuperAdmin() || workflowManagerRoles[tc.Role] {
		return nil
	}
	return common.Forbidden("Insufficient permissions")
}

func (s *workflowService) List(ctx context.Context, tc *models.TenantContext) ([]*models.Workflow, error) {
	if err := canManageWorkflows(tc); err != nil {
		return nil, err
	}
	workflows, err := s.workflows.List(ctx, CompanyScope(tc))
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return workflows, nil
}

func (s *workflowService) Create(ctx context.Context, tc *models.TenantContext, in WorkflowInput) (*models.Workflow, error) {
	if err := canManageWorkflows(tc); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, common.Unprocessable("Workflow name is required")
	}
	if err := validateActions(in.Actions); err != nil {
		return nil, err
	}

	companyID := tc.CompanyID
	if tc.IsSuperAdmin() {
		if in.CompanyID == nil {
			return nil, common.Unprocessable("Field 'company_id' is required")
		}
		companyID = *in.CompanyID
	}

	now := s.clock.Now().UTC()
	userID := tc.UserID
	wf := &models.Workflow{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Name:        strings.TrimSpace(*in.Name),
		Description: in.Description,
		FormID:      normalizeFormID(in.FormID),
		LocationIDs: in.LocationIDs,
		Actions:     in.Actions,
		IsActive:    true,
		CreatedBy:   &userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		wf.IsActive = *in.IsActive
	}

	if err := s.workflows.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	s.log.Info("workflow created",
		zap.String("workflow_id", wf.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.Int("actions", len(wf.Actions)),
	)
	return wf, nil
}

func (s *workflowService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Workflow, error) {
	if err := canManageWorkflows(tc); err != nil {
		return nil, err
	}
	return s.load(ctx, tc, id)
}

func (s *workflowService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, in WorkflowInput) (*models.Workflow, error) {
	if err := canManageWorkflows(tc); err != nil {
		return nil, err
	}
	wf, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, common.Unprocessable("Workflow name is required")
		}
		wf.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		wf.Description = in.Description
	}
	if in.FormID != nil {
		wf.FormID = normalizeFormID(in.FormID)
	}
	if in.LocationIDs != nil {
		wf.LocationIDs = in.LocationIDs
	}
	if in.Actions != nil {
		if err := validateActions(in.Actions); err != nil {
			return nil, err
		}
		wf.Actions = in.Actions
	}
	if in.IsActive != nil {
		wf.IsActive = *in.IsActive
	}

	if err := s.workflows.Update(ctx, wf); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(workflowNotFoundDetail)
		}
		return nil, fmt.Errorf("update workflow: %w", err)
	}
	wf.UpdatedAt = s.clock.Now().UTC()
	return wf, nil
}

func (s *workflowService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	if err := canManageWorkflows(tc); err != nil {
		return err
	}
	if _, err := s.load(ctx, tc, id); err != nil {
		return err
	}
	if err := s.workflows.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(workflowNotFoundDetail)
		}
		return fmt.Errorf("delete workflow: %w", err)
	}
	s.log.Info("workflow deleted", zap.String("workflow_id", id.String()))
	return nil
}

func (s *workflowService) ListForDevice(ctx context.Context, device *models.Device) ([]*models.Workflow, error) {
	workflows, err := s.workflows.ListActiveForLocation(ctx, device.CompanyID, device.LocationID)
	if err != nil {
		return nil, fmt.Errorf("list device workflows: %w", err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return workflows, nil
}

// load hides workflows of other companies behind a 404.
func (s *workflowService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.Workflow, error) {
	wf, err := s.workflows.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(workflowNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	if !tc.IsSuperAdmin() && wf.CompanyID != tc.CompanyID {
		return nil, common.NotFound(workflowNotFoundDetail)
	}
	return wf, nil
}

func validateActions(actions []models.WorkflowAction) error {
	for i, a := range actions {
		if !models.IsValidActionType(a.Type) {
			return common.Validation(fmt.Sprintf("Invalid action type '%s' at position %d", a.Type, i))
		}
		if a.Trigger != models.TriggerOnCheckin && a.Trigger != models.TriggerOnCheckout {
			return common.Validation(fmt.Sprintf("Invalid action trigger '%s' at position %d", a.Trigger, i))
		}
	}
	return nil
}

// normalizeFormID treats an empty form id as "every form".
func normalizeFormID(formID *string) *string {
	if formID == nil || strings.TrimSpace(*formID) == "" {
		return nil
	}
	id := strings.TrimSpace(*formID)
	return &id
}
