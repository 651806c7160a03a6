package repositories

import (
	"context"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FirstCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*models.User, error)
	List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

const userColumns = `id, company_id, email, password_hash, first_name, last_name, role, status, email_verified, permissions, last_login, created_at, updated_at`

const insertUserSQL = `
		INSERT INTO users (id, company_id, email, password_hash, first_name, last_name, role, status, email_verified, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.CompanyID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Status, &u.EmailVerified, &u.Permissions, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.Exec(ctx, insertUserSQL, user.ID, user.CompanyID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.Status, user.EmailVerified, permissionsOrEmpty(user.Permissions))
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FirstCompanyAdmin returns the oldest company_admin of a company. Ties on
// created_at are broken by id so the answer is stable.
func (r *userRepo) FirstCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = $1 AND role = 'company_admin'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	return scanUser(r.db.QueryRow(ctx, query, companyID))
}

func (r *userRepo) List(ctx context.Context, scope *uuid.UUID, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::uuid IS NULL OR company_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, scopeArg(scope), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET company_id = $1, email = $2, first_name = $3, last_name = $4, role = $5, status = $6, permissions = $7, updated_at = NOW()
		WHERE id = $8
	`
	return affected(r.db.Exec(ctx, query, user.CompanyID, user.Email, user.FirstName, user.LastName, user.Role, user.Status, permissionsOrEmpty(user.Permissions), user.ID))
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, at, id)
	return err
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	return affected(r.db.Exec(ctx, query, id))
}
