package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var userColumnNames = []string{"id", "company_id", "email", "password_hash", "first_name", "last_name", "role", "status",
	"email_verified", "permissions", "last_login", "created_at", "updated_at"}

func userRow(u *models.User) []any {
	return []any{u.ID, u.CompanyID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
		u.EmailVerified, u.Permissions, u.LastLogin, u.CreatedAt, u.UpdatedAt}
}

func stringPtr(s string) *string {
	return &s
}

type UserRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      UserRepository
	companyID uuid.UUID
	ctx       context.Context
}

func (s *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(s.T(), err)
	s.mock = mock
	s.repo = NewUserRepo(mock)
	s.companyID = uuid.New()
	s.ctx = context.Background()
}

func (s *UserRepoTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func (s *UserRepoTestSuite) newUser(role string) *models.User {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.User{
		ID:           uuid.New(),
		CompanyID:    &s.companyID,
		Email:        "admin@acme.test",
		PasswordHash: "digest",
		FirstName:    stringPtr("Ada"),
		Role:         role,
		Status:       models.UserStatusActive,
		Permissions:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *UserRepoTestSuite) TestFirstCompanyAdmin_OrdersDeterministically() {
	admin := s.newUser(models.RoleCompanyAdmin)

	s.mock.ExpectQuery(`WHERE company_id = \$1 AND role = 'company_admin'\s+ORDER BY created_at ASC, id ASC\s+LIMIT 1`).
		WithArgs(s.companyID).
		WillReturnRows(pgxmock.NewRows(userColumnNames).AddRow(userRow(admin)...))

	got, err := s.repo.FirstCompanyAdmin(s.ctx, s.companyID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), admin.ID, got.ID)
	assert.Equal(s.T(), "Ada", *got.FirstName)
}

func (s *UserRepoTestSuite) TestFirstCompanyAdmin_NoAdmin() {
	s.mock.ExpectQuery(`FROM users`).
		WithArgs(s.companyID).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.repo.FirstCompanyAdmin(s.ctx, s.companyID)
	assert.Nil(s.T(), got)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *UserRepoTestSuite) TestGetByEmail_DriverErrorPassesThrough() {
	boom := errors.New("connection reset")
	s.mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("x@acme.test").
		WillReturnError(boom)

	_, err := s.repo.GetByEmail(s.ctx, "x@acme.test")
	assert.ErrorIs(s.T(), err, boom)
}

func (s *UserRepoTestSuite) TestList_SuperAdminScopeIsUnfiltered() {
	u := s.newUser(models.RoleEmployee)
	s.mock.ExpectQuery(`WHERE \(\$1::uuid IS NULL OR company_id = \$1\)`).
		WithArgs(nil, 50, 0).
		WillReturnRows(pgxmock.NewRows(userColumnNames).AddRow(userRow(u)...))

	users, err := s.repo.List(s.ctx, nil, 50, 0)
	require.NoError(s.T(), err)
	assert.Len(s.T(), users, 1)
}

func (s *UserRepoTestSuite) TestDelete_Missing() {
	id := uuid.New()
	s.mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, id), ErrNotFound)
}
