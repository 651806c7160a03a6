package repositories

import (
	"context"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	List(ctx context.Context, scope *uuid.UUID) ([]*models.Workflow, error)
	Update(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListActiveForForm(ctx context.Context, companyID uuid.UUID, formID string) ([]*models.Workflow, error)
	ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Workflow, error)
}

const workflowColumns = `id, company_id, name, description, form_id, location_ids, actions, is_active, created_by, created_at, updated_at`

type workflowRepo struct {
	db DBTX
}

func NewWorkflowRepo(db DBTX) WorkflowRepository {
	return &workflowRepo{db: db}
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	w := &models.Workflow{}
	err := row.Scan(&w.ID, &w.CompanyID, &w.Name, &w.Description, &w.FormID, &w.LocationIDs, &w.Actions, &w.IsActive,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func collectWorkflows(rows pgx.Rows) ([]*models.Workflow, error) {
	defer rows.Close()
	workflows := []*models.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

func actionsOrEmpty(a []models.WorkflowAction) []models.WorkflowAction {
	if a == nil {
		return []models.WorkflowAction{}
	}
	return a
}

func (r *workflowRepo) Create(ctx context.Context, w *models.Workflow) error {
	query := `
		INSERT INTO workflows (id, company_id, name, description, form_id, location_ids, actions, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, w.ID, w.CompanyID, w.Name, w.Description, w.FormID, uuidsOrEmpty(w.LocationIDs),
		actionsOrEmpty(w.Actions), w.IsActive, w.CreatedBy)
	return err
}

func (r *workflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	return scanWorkflow(r.db.QueryRow(ctx, query, id))
}

func (r *workflowRepo) List(ctx context.Context, scope *uuid.UUID) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE ($1::uuid IS NULL OR company_id = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope))
	if err != nil {
		return nil, err
	}
	return collectWorkflows(rows)
}

func (r *workflowRepo) Update(ctx context.Context, w *models.Workflow) error {
	query := `
		UPDATE workflows
		SET name = $1, description = $2, form_id = $3, location_ids = $4, actions = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
	`
	return affected(r.db.Exec(ctx, query, w.Name, w.Description, w.FormID, uuidsOrEmpty(w.LocationIDs),
		actionsOrEmpty(w.Actions), w.IsActive, w.ID))
}

func (r *workflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id))
}

// ListActiveForForm returns the company's active workflows bound to formID or to no form.
func (r *workflowRepo) ListActiveForForm(ctx context.Context, companyID uuid.UUID, formID string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE company_id = $1 AND is_active = TRUE AND (form_id IS NULL OR form_id = $2)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, companyID, formID)
	if err != nil {
		return nil, err
	}
	return collectWorkflows(rows)
}

func (r *workflowRepo) ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE company_id = $1 AND is_active = TRUE AND (cardinality(location_ids) = 0 OR $2 = ANY(location_ids))
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, companyID, locationID)
	if err != nil {
		return nil, err
	}
	return collectWorkflows(rows)
}
