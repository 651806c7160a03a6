package repositories

import (
	"context"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type FormRepository interface {
	Create(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	GetGlobalByName(ctx context.Context, name string) (*models.Form, error)
	List(ctx context.Context, scope *uuid.UUID) ([]*models.Form, error)
	ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id uuid.UUID) error
}

const formColumns = `id, company_id, name, description, category, status, fields, layout, theme, settings, version,
		location_ids, created_by, created_at, updated_at`

type formRepo struct {
	db DBTX
}

func NewFormRepo(db DBTX) FormRepository {
	return &formRepo{db: db}
}

func scanForm(row pgx.Row) (*models.Form, error) {
	f := &models.Form{}
	err := row.Scan(&f.ID, &f.CompanyID, &f.Name, &f.Description, &f.Category, &f.Status, &f.Fields, &f.Layout, &f.Theme,
		&f.Settings, &f.Version, &f.LocationIDs, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

func collectForms(rows pgx.Rows) ([]*models.Form, error) {
	defer rows.Close()
	forms := []*models.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

func fieldsOrEmpty(f []models.FormField) []models.FormField {
	if f == nil {
		return []models.FormField{}
	}
	return f
}

func uuidsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func (r *formRepo) Create(ctx context.Context, f *models.Form) error {
	query := `
		INSERT INTO forms (id, company_id, name, description, category, status, fields, layout, theme, settings, version,
			location_ids, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, f.ID, f.CompanyID, f.Name, f.Description, f.Category, f.Status, fieldsOrEmpty(f.Fields),
		settingsOrEmpty(f.Layout), settingsOrEmpty(f.Theme), settingsOrEmpty(f.Settings), f.Version, uuidsOrEmpty(f.LocationIDs), f.CreatedBy)
	return err
}

func (r *formRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`
	return scanForm(r.db.QueryRow(ctx, query, id))
}

// GetGlobalByName looks up a form shared by every company.
func (r *formRepo) GetGlobalByName(ctx context.Context, name string) (*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE company_id IS NULL AND name = $1 LIMIT 1`
	return scanForm(r.db.QueryRow(ctx, query, name))
}

// List returns the company's forms and the global ones; a nil scope returns all.
func (r *formRepo) List(ctx context.Context, scope *uuid.UUID) ([]*models.Form, error) {
	query := `
		SELECT ` + formColumns + `
		FROM forms
		WHERE ($1::uuid IS NULL OR company_id = $1 OR company_id IS NULL)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope))
	if err != nil {
		return nil, err
	}
	return collectForms(rows)
}

// ListActiveForLocation returns active forms a kiosk at locationID may show.
func (r *formRepo) ListActiveForLocation(ctx context.Context, companyID, locationID uuid.UUID) ([]*models.Form, error) {
	query := `
		SELECT ` + formColumns + `
		FROM forms
		WHERE status = 'active'
			AND (company_id = $1 OR company_id IS NULL)
			AND (cardinality(location_ids) = 0 OR $2 = ANY(location_ids))
		ORDER BY company_id NULLS FIRST, created_at
	`
	rows, err := r.db.Query(ctx, query, companyID, locationID)
	if err != nil {
		return nil, err
	}
	return collectForms(rows)
}

// Update writes the editable fields and bumps the version.
func (r *formRepo) Update(ctx context.Context, f *models.Form) error {
	query := `
		UPDATE forms
		SET name = $1, description = $2, category = $3, status = $4, fields = $5, layout = $6, theme = $7, settings = $8,
			location_ids = $9, version = version + 1, updated_at = NOW()
		WHERE id = $10
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query, f.Name, f.Description, f.Category, f.Status, fieldsOrEmpty(f.Fields), settingsOrEmpty(f.Layout),
		settingsOrEmpty(f.Theme), settingsOrEmpty(f.Settings), uuidsOrEmpty(f.LocationIDs), f.ID).Scan(&f.Version, &f.UpdatedAt)
	return notFound(err)
}

func (r *formRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id))
}
