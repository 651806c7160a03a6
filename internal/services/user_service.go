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
	userNotFoundDetail = "User not found"
	DefaultUserLimit   = 100
)

// UserView is a user with its display name and company name.
type UserView struct {
	*models.User
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

// UserInput is the body of POST /users.
type UserInput struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	CompanyID   *uuid.UUID `json:"company_id"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Permissions []string   `json:"permissions"`
}

// UserPatch carries the editable user fields; nil means unchanged.
type UserPatch struct {
	Email       *string    `json:"email"`
	Password    *string    `json:"password"`
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	CompanyID   *uuid.UUID `json:"company_id"`
	Role        *string    `json:"role"`
	Status      *string    `json:"status"`
	Permissions []string   `json:"permissions"`
}

type UserService interface {
	List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*UserView, error)
	Create(ctx context.Context, tc *models.TenantContext, in UserInput) (*UserView, error)
	Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*UserView, error)
	Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch UserPatch) (*UserView, error)
	Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error
}

type userService struct {
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	tokens    TokenService
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewUserService(users repositories.UserRepository, companies repositories.CompanyRepository, tokens TokenService, clock clockwork.Clock, log *zap.Logger) UserService {
	return &userService{users: users, companies: companies, tokens: tokens, clock: clock, log: log}
}

func (s *userService) List(ctx context.Context, tc *models.TenantContext, limit, offset int) ([]*UserView, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset, DefaultUserLimit)
	users, err := s.users.List(ctx, CompanyScope(tc), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	names := map[uuid.UUID]string{}
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, s.view(ctx, u, names))
	}
	return views, nil
}

func (s *userService) Create(ctx context.Context, tc *models.TenantContext, in UserInput) (*UserView, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, common.Unprocessable("Field 'email' is required")
	}
	if in.Password != "" && len(in.Password) < minimumPasswordChars {
		return nil, common.Validation(fmt.Sprintf("password must be at least %d characters", minimumPasswordChars))
	}

	role := in.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !models.IsValidRole(role) {
		return nil, common.Validation("Invalid role")
	}
	if role == models.RoleSuperAdmin && !tc.IsSuperAdmin() {
		return nil, common.Forbidden("Only super admins can grant the super_admin role")
	}

	companyID, err := s.targetCompany(ctx, tc, in.CompanyID, role)
	if err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, email, uuid.Nil, "User with this email already exists"); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.UserStatusActive
	}
	now := s.clock.Now().UTC()
	user := &models.User{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Email:       email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Role:        role,
		Status:      status,
		Permissions: in.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Password != "" {
		user.PasswordHash = s.tokens.HashPassword(in.Password)
	}
	if user.Permissions == nil {
		user.Permissions = []string{}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", role))
	return s.view(ctx, user, map[uuid.UUID]string{}), nil
}

func (s *userService) Get(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*UserView, error) {
	user, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user, map[uuid.UUID]string{}), nil
}

func (s *userService) Update(ctx context.Context, tc *models.TenantContext, id uuid.UUID, patch UserPatch) (*UserView, error) {
	user, err := s.load(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return nil, common.Unprocessable("Field 'email' is required")
		}
		if err := s.ensureEmailFree(ctx, email, user.ID, "Email already taken by another user"); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if patch.Role != nil {
		if !models.IsValidRole(*patch.Role) {
			return nil, common.Validation("Invalid role")
		}
		if *patch.Role == models.RoleSuperAdmin && !tc.IsSuperAdmin() {
			return nil, common.Forbidden("Only super admins can grant the super_admin role")
		}
		user.Role = *patch.Role
	}
	if patch.CompanyID != nil {
		companyID, err := s.targetCompany(ctx, tc, patch.CompanyID, user.Role)
		if err != nil {
			return nil, err
		}
		user.CompanyID = companyID
	}
	if patch.Password != nil {
		if len(*patch.Password) < minimumPasswordChars {
			return nil, common.Validation(fmt.Sprintf("password must be at least %d characters", minimumPasswordChars))
		}
		user.PasswordHash = s.tokens.HashPassword(*patch.Password)
	}
	if patch.FirstName != nil {
		user.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = patch.LastName
	}
	if patch.Status != nil {
		user.Status = *patch.Status
	}
	if patch.Permissions != nil {
		user.Permissions = patch.Permissions
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(userNotFoundDetail)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	user.UpdatedAt = s.clock.Now().UTC()
	return s.view(ctx, user, map[uuid.UUID]string{}), nil
}

func (s *userService) Delete(ctx context.Context, tc *models.TenantContext, id uuid.UUID) error {
	if _, err := s.load(ctx, tc, id); err != nil {
		return err
	}
	if id == tc.UserID {
		return common.Validation("You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound(userNotFoundDetail)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.String("user_id", id.String()), zap.String("deleted_by", tc.UserID.String()))
	return nil
}

// targetCompany resolves the company a user is placed in. Company users default
// to the caller's company; placing one anywhere else needs a super admin.
func (s *userService) targetCompany(ctx context.Context, tc *models.TenantContext, requested *uuid.UUID, role string) (*uuid.UUID, error) {
	if requested == nil {
		if role == models.RoleSuperAdmin {
			return nil, nil
		}
		if tc.IsSuperAdmin() {
			return nil, common.Unprocessable("Field 'company_id' is required")
		}
		id := tc.CompanyID
		return &id, nil
	}

	if err := Authorize(tc, *requested); err != nil {
		return nil, err
	}
	if _, err := s.companies.GetByID(ctx, *requested); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(companyNotFoundDetail)
		}
		return nil, fmt.Errorf("load company: %w", err)
	}
	id := *requested
	return &id, nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID, detail string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user email: %w", err)
	}
	if existing.ID != self {
		return common.Validation(detail)
	}
	return nil
}

func (s *userService) load(ctx context.Context, tc *models.TenantContext, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(userNotFoundDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if tc.IsSuperAdmin() {
		return user, nil
	}
	if user.CompanyID == nil || *user.CompanyID != tc.CompanyID {
		return nil, common.Forbidden(accessDeniedDetail)
	}
	return user, nil
}

func (s *userService) view(ctx context.Context, u *models.User, names map[uuid.UUID]string) *UserView {
	view := &UserView{
		User:     u,
		FullName: strings.TrimSpace(common.SafeString(u.FirstName) + " " + common.SafeString(u.LastName)),
	}
	if u.CompanyID == nil {
		return view
	}
	name, ok := names[*u.CompanyID]
	if !ok {
		if c, err := s.companies.GetByID(ctx, *u.CompanyID); err == nil {
			name = c.Name
		}
		names[*u.CompanyID] = name
	}
	view.CompanyName = name
	return view
}
