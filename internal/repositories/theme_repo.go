package repositories

import (
	"context"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ThemeRepository interface {
	Create(ctx context.Context, theme *models.Theme) error
	GetByID(ctx context.Context, id string) (*models.Theme, error)
	List(ctx context.Context, companyID uuid.UUID) ([]*models.Theme, error)
	Update(ctx context.Context, theme *models.Theme) error
	Delete(ctx context.Context, id string) error
	GetActivation(ctx context.Context, companyID uuid.UUID) (*models.ThemeActivation, error)
	UpsertActivation(ctx context.Context, activation *models.ThemeActivation) error
}

const themeColumns = `id, company_id, name, description, category, status, sections, created_by, version, created_at, updated_at`

type themeRepo struct {
	db DBTX
}

func NewThemeRepo(db DBTX) ThemeRepository {
	return &themeRepo{db: db}
}

func scanTheme(row pgx.Row) (*models.Theme, error) {
	t := &models.Theme{}
	err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Description, &t.Category, &t.Status, &t.ThemeSections, &t.CreatedBy,
		&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (r *themeRepo) Create(ctx context.Context, t *models.Theme) error {
	query := `
		INSERT INTO themes (id, company_id, name, description, category, status, sections, created_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.CompanyID, t.Name, t.Description, t.Category, t.Status, t.ThemeSections,
		t.CreatedBy, t.Version, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *themeRepo) GetByID(ctx context.Context, id string) (*models.Theme, error) {
	query := `SELECT ` + themeColumns + ` FROM themes WHERE id = $1`
	return scanTheme(r.db.QueryRow(ctx, query, id))
}

func (r *themeRepo) List(ctx context.Context, companyID uuid.UUID) ([]*models.Theme, error) {
	query := `SELECT ` + themeColumns + ` FROM themes WHERE company_id = $1 ORDER BY updated_at DESC`
	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	themes := []*models.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

func (r *themeRepo) Update(ctx context.Context, t *models.Theme) error {
	query := `
		UPDATE themes
		SET name = $1, description = $2, category = $3, status = $4, sections = $5, version = $6, updated_at = $7
		WHERE id = $8
	`
	return affected(r.db.Exec(ctx, query, t.Name, t.Description, t.Category, t.Status, t.ThemeSections, t.Version, t.UpdatedAt, t.ID))
}

func (r *themeRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, `DELETE FROM themes WHERE id = $1`, id))
}

func (r *themeRepo) GetActivation(ctx context.Context, companyID uuid.UUID) (*models.ThemeActivation, error) {
	query := `
		SELECT company_id, theme_id, theme_type, builtin_theme_name, activated_at, activated_by
		FROM theme_activations
		WHERE company_id = $1
	`
	a := &models.ThemeActivation{}
	err := r.db.QueryRow(ctx, query, companyID).Scan(&a.CompanyID, &a.ThemeID, &a.ThemeType, &a.BuiltinThemeName, &a.ActivatedAt, &a.ActivatedBy)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// UpsertActivation keeps exactly one activation row per company.
func (r *themeRepo) UpsertActivation(ctx context.Context, a *models.ThemeActivation) error {
	query := `
		INSERT INTO theme_activations (company_id, theme_id, theme_type, builtin_theme_name, activated_at, activated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE
		SET theme_id = EXCLUDED.theme_id,
			theme_type = EXCLUDED.theme_type,
			builtin_theme_name = EXCLUDED.builtin_theme_name,
			activated_at = EXCLUDED.activated_at,
			activated_by = EXCLUDED.activated_by
	`
	_, err := r.db.Exec(ctx, query, a.CompanyID, a.ThemeID, a.ThemeType, a.BuiltinThemeName, a.ActivatedAt, a.ActivatedBy)
	return err
}
