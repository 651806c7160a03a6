package repositories

import (
	"context"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	CountDependents(ctx context.Context, id uuid.UUID) (*CompanyDependents, error)
}

// CompanyDependents counts a company's child rows. Locations, devices and
// users block a soft delete.
type CompanyDependents struct {
	Locations      int
	Devices        int
	Users          int
	ActiveVisitors int
}

// Any reports whether at least one dependent exists.
func (d *CompanyDependents) Any() bool {
	return d.Locations > 0 || d.Devices > 0 || d.Users > 0
}

const companyColumns = `id, name, domain, status, stripe_customer_id, max_locations, settings, created_at, updated_at, deleted_at`

type companyRepo struct {
	db DBTX
}

func NewCompanyRepo(db DBTX) CompanyRepository {
	return &companyRepo{db: db}
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(&c.ID, &c.Name, &c.Domain, &c.Status, &c.StripeCustomerID, &c.MaxLocations, &c.Settings, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

const insertCompanySQL = `
		INSERT INTO companies (id, name, domain, status, max_locations, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`

func (r *companyRepo) Create(ctx context.Context, company *models.Company) error {
	_, err := r.db.Exec(ctx, insertCompanySQL, company.ID, company.Name, company.Domain, company.Status, company.LocationLimit(), settingsOrEmpty(company.Settings))
	return err
}

// CreateWithAdmin inserts a company and its first user atomically.
func (r *companyRepo) CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertCompanySQL, company.ID, company.Name, company.Domain, company.Status, company.LocationLimit(), settingsOrEmpty(company.Settings)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertUserSQL, admin.ID, admin.CompanyID, admin.Email, admin.PasswordHash, admin.FirstName, admin.LastName, admin.Role, admin.Status, admin.EmailVerified, permissionsOrEmpty(admin.Permissions))
		return err
	})
}

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return scanCompany(r.db.QueryRow(ctx, query, id))
}

func (r *companyRepo) List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE ($1::uuid IS NULL OR id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *companyRepo) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET name = $1, domain = $2, status = $3, max_locations = $4, settings = $5, updated_at = NOW()
		WHERE id = $6
	`
	return affected(r.db.Exec(ctx, query, company.Name, company.Domain, company.Status, company.LocationLimit(), settingsOrEmpty(company.Settings), company.ID))
}

func (r *companyRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE companies SET status = 'inactive', deleted_at = $1, updated_at = $1 WHERE id = $2`
	return affected(r.db.Exec(ctx, query, at, id))
}

func (r *companyRepo) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `UPDATE companies SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	return affected(r.db.Exec(ctx, query, customerID, id))
}

func (r *companyRepo) CountDependents(ctx context.Context, id uuid.UUID) (*CompanyDependents, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM locations WHERE company_id = $1 AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM devices WHERE company_id = $1 AND status <> 'inactive'),
			(SELECT COUNT(*) FROM users WHERE company_id = $1),
			(SELECT COUNT(*) FROM visitors WHERE company_id = $1 AND status = 'checked_in')
	`
	d := &CompanyDependents{}
	if err := r.db.QueryRow(ctx, query, id).Scan(&d.Locations, &d.Devices, &d.Users, &d.ActiveVisitors); err != nil {
		return nil, err
	}
	return d, nil
}

func settingsOrEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func permissionsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
