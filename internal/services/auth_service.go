package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/caching"
	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	invalidLoginDetail   = "Invalid email or password"
	inactiveLoginDetail  = "Account is inactive"
	emailExistsDetail    = "User with this email already exists"
	tooManyLoginsDetail  = "Too many login attempts. Please try again later."
	minimumPasswordChars = 6
)

// AuthService handles account registration and password login.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error)
	RegisterCompany(ctx context.Context, req models.CompanyRegisterRequest) (*models.TokenResponse, error)
	Login(ctx context.Context, req models.LoginRequest, clientIP string) (*models.TokenResponse, error)
	Me(ctx context.Context, tc *models.TenantContext) (*models.MeResponse, error)
	CompanyAccount(tc *models.TenantContext) (*models.CompanyAccount, error)
}

// LoginThrottle bounds password attempts per email and client address.
type LoginThrottle struct {
	Limit  int
	Window time.Duration
}

type authService struct {
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	tokens    TokenService
	cache     caching.CacheService
	throttle  LoginThrottle
	clock     clockwork.Clock
	log       *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users repositories.UserRepository, companies repositories.CompanyRepository, tokens TokenService,
	cache caching.CacheService, throttle LoginThrottle, clock clockwork.Clock, log *zap.Logger) AuthService {
	return &authService{
		users:     users,
		companies: companies,
		tokens:    tokens,
		cache:     cache,
		throttle:  throttle,
		clock:     clock,
		log:       log,
	}
}

// Register creates the company and its first user in one transaction and logs
// the user in.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := common.ValidateRequiredString(email, "email"); err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(req.CompanyName, "company_name"); err != nil {
		return nil, err
	}
	if len(req.Password) < minimumPasswordChars {
		return nil, common.Validation(fmt.Sprintf("password must be at least %d characters", minimumPasswordChars))
	}

	role := req.Role
	if role == "" {
		role = models.RoleCompanyAdmin
	}
	if !models.IsValidRole(role) || role == models.RoleSuperAdmin {
		return nil, common.Validation("Invalid role")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, common.Validation(emailExistsDetail)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	company := &models.Company{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.CompanyName),
		Domain:       req.CompanyDomain,
		Status:       models.CompanyStatusActive,
		MaxLocations: models.DefaultMaxLocations,
		Settings:     map[string]interface{}{},
	}
	user := &models.User{
		ID:           uuid.New(),
		CompanyID:    &company.ID,
		Email:        email,
		PasswordHash: s.tokens.HashPassword(req.Password),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Status:       models.UserStatusActive,
		Permissions:  []string{},
	}

	if err := s.companies.CreateWithAdmin(ctx, company, user); err != nil {
		return nil, fmt.Errorf("create company account: %w", err)
	}

	s.log.Info("company registered",
		zap.String("company_id", company.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return s.issue(user)
}

func (s *authService) RegisterCompany(ctx context.Context, req models.CompanyRegisterRequest) (*models.TokenResponse, error) {
	return s.Register(ctx, models.RegisterRequest{
		Email:         req.AccountEmail,
		Password:      req.Password,
		CompanyName:   req.Name,
		CompanyDomain: req.Domain,
		Role:          models.RoleCompanyAdmin,
	})
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest, clientIP string) (*models.TokenResponse, error) {
	email := strings.TrimSpace(req.Email)
	throttleKey := fmt.Sprintf("login:%s:%s", strings.ToLower(email), clientIP)

	if s.cache != nil && s.throttle.Limit > 0 {
		limited, err := s.cache.IsRateLimited(ctx, throttleKey, s.throttle.Limit, s.throttle.Window)
		if err != nil {
			// fail open
			s.log.Warn("login rate limit check failed", zap.Error(err))
		} else if limited {
			return nil, common.TooManyRequests(tooManyLoginsDetail)
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.Unauthorized(invalidLoginDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("load login user: %w", err)
	}

	if user.Status != models.UserStatusActive {
		return nil, common.Unauthorized(inactiveLoginDetail)
	}
	if !s.tokens.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, common.Unauthorized(invalidLoginDetail)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.clock.Now().UTC()); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.ResetRateLimit(ctx, throttleKey); err != nil {
			s.log.Debug("failed to reset login rate limit", zap.Error(err))
		}
	}

	return s.issue(user)
}

func (s *authService) issue(user *models.User) (*models.TokenResponse, error) {
	companyID := ""
	if user.CompanyID != nil {
		companyID = user.CompanyID.String()
	}
	token, err := s.tokens.IssueToken(user.ID.String(), companyID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.TokenResponse{AccessToken: token, TokenType: models.TokenTypeBearer}, nil
}

func (s *authService) Me(ctx context.Context, tc *models.TenantContext) (*models.MeResponse, error) {
	user := tc.User
	permissions := user.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	resp := &models.MeResponse{
		User: models.MeUser{
			ID:            user.ID.String(),
			Email:         user.Email,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Role:          user.Role,
			Status:        user.Status,
			EmailVerified: user.EmailVerified,
			Permissions:   permissions,
			LastLogin:     user.LastLogin,
			CreatedAt:     user.CreatedAt,
		},
	}

	company := tc.Company
	if company == nil && user.CompanyID != nil {
		loaded, err := s.companies.GetByID(ctx, *user.CompanyID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("load company: %w", err)
		}
		company = loaded
	}
	if company != nil {
		id := company.ID.String()
		resp.Company = models.MeCompany{
			ID:        &id,
			Name:      &company.Name,
			Domain:    company.Domain,
			Status:    &company.Status,
			CreatedAt: &company.CreatedAt,
		}
	}
	return resp, nil
}

func (s *authService) CompanyAccount(tc *models.TenantContext) (*models.CompanyAccount, error) {
	user := tc.User
	account := &models.CompanyAccount{
		AccountEmail:     user.Email,
		EmailVerified:    user.EmailVerified,
		Role:             user.Role,
		RegistrationDate: user.CreatedAt,
		LastLogin:        user.LastLogin,
	}
	if tc.Company == nil {
		account.ID = tc.CompanyID.String()
		account.Name = "Super Admin"
		account.Status = models.CompanyStatusActive
		return account, nil
	}
	account.ID = tc.Company.ID.String()
	account.Name = tc.Company.Name
	account.Domain = tc.Company.Domain
	account.Status = tc.Company.Status
	return account, nil
}
