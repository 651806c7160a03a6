package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const invalidCredentialsDetail = "Could not validate credentials"

// TokenService issues and validates the bearer tokens held by dashboards and kiosks.
//
// The signature covers the subject and exp only: user_id for user tokens,
// company_id for legacy company tokens. A user token's company_id is carried
// unsigned, so editing it does not invalidate the token; the tenant is always
// taken from the stored user record, never from that field.
type TokenService interface {
	HashPassword(plain string) string
	VerifyPassword(plain, digest string) bool
	IssueToken(userID, companyID string) (string, error)
	IssueTokenWithTTL(userID, companyID string, ttl time.Duration) (string, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// TokenClaims is the verified content of a bearer token. For legacy company
// tokens UserID is the company's first admin. CompanyID is only
// authenticated on legacy tokens.
type TokenClaims struct {
	UserID    uuid.UUID
	CompanyID string
	ExpiresAt time.Time
	Legacy    bool
}

// tokenPayload is the wire form: base64(JSON). exp stays a json.Number so the
// signed text is reproduced exactly.
type tokenPayload struct {
	UserID    *string     `json:"user_id"`
	CompanyID *string     `json:"company_id"`
	Exp       json.Number `json:"exp"`
	Signature string      `json:"signature"`
}

type tokenService struct {
	secret  string
	ttl     time.Duration
	users   repositories.UserRepository
	clock   clockwork.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewTokenService(secret string, ttl time.Duration, users repositories.UserRepository, clock clockwork.Clock, m *metrics.Metrics, log *zap.Logger) TokenService {
	return &tokenService{
		secret:  secret,
		ttl:     ttl,
		users:   users,
		clock:   clock,
		metrics: m,
		log:     log,
	}
}

// HashPassword returns the unsalted SHA-256 hex digest stored for accounts.
func (s *tokenService) HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func (s *tokenService) VerifyPassword(plain, digest string) bool {
	return hmac.Equal([]byte(s.HashPassword(plain)), []byte(digest))
}

func (s *tokenService) IssueToken(userID, companyID string) (string, error) {
	return s.IssueTokenWithTTL(userID, companyID, s.ttl)
}

func (s *tokenService) IssueTokenWithTTL(userID, companyID string, ttl time.Duration) (string, error) {
	if userID == "" && companyID == "" {
		return "", errors.New("token subject is required")
	}

	now := s.clock.Now()
	exp := float64(now.UnixMicro())/1e6 + ttl.Seconds()
	expText := formatExp(exp)

	payload := tokenPayload{
		Exp:       json.Number(expText),
		Signature: s.sign(subject(userID, companyID), expText),
	}
	if userID != "" {
		payload.UserID = &userID
	}
	if companyID != "" {
		payload.CompanyID = &companyID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}

	kind := "user"
	if userID == "" {
		kind = "company"
	}
	s.metrics.RecordTokenIssued(kind)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ValidateToken checks the signature before the expiry so an expired verdict is
// only ever given for a token this server signed.
func (s *tokenService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	payload, err := decodeToken(token)
	if err != nil {
		s.metrics.RecordTokenFailure("malformed")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}

	userID := deref(payload.UserID)
	companyID := deref(payload.CompanyID)
	if userID == "" && companyID == "" {
		s.metrics.RecordTokenFailure("no_subject")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}

	expText := payload.Exp.String()
	if expText == "" {
		expText = "0"
	}
	expected := s.sign(subject(userID, companyID), expText)
	if !hmac.Equal([]byte(payload.Signature), []byte(expected)) {
		s.metrics.RecordTokenFailure("signature")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}

	exp, err := strconv.ParseFloat(expText, 64)
	if err != nil {
		s.metrics.RecordTokenFailure("malformed")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}
	now := float64(s.clock.Now().UnixMicro()) / 1e6
	if now > exp {
		s.metrics.RecordTokenFailure("expired")
		return nil, common.TokenExpired()
	}

	claims := &TokenClaims{
		CompanyID: companyID,
		ExpiresAt: time.UnixMicro(int64(exp * 1e6)).UTC(),
	}

	if userID == "" {
		return s.resolveLegacy(ctx, claims)
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		s.metrics.RecordTokenFailure("malformed")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}
	claims.UserID = id
	return claims, nil
}

// resolveLegacy maps a company-only token to the company's first admin.
func (s *tokenService) resolveLegacy(ctx context.Context, claims *TokenClaims) (*TokenClaims, error) {
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		s.metrics.RecordTokenFailure("malformed")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}

	admin, err := s.users.FirstCompanyAdmin(ctx, companyID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.metrics.RecordTokenFailure("legacy_no_admin")
		return nil, common.Unauthorized(invalidCredentialsDetail)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve legacy token admin: %w", err)
	}

	s.log.Debug("legacy company token resolved", zap.String("company_id", claims.CompanyID), zap.String("user_id", admin.ID.String()))
	claims.UserID = admin.ID
	claims.Legacy = true
	return claims, nil
}

func (s *tokenService) sign(subject, expText string) string {
	sum := sha256.Sum256([]byte(subject + expText + s.secret))
	return hex.EncodeToString(sum[:])
}

func decodeToken(token string) (*tokenPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func subject(userID, companyID string) string {
	if userID != "" {
		return userID
	}
	return companyID
}

// formatExp renders a float the way the token's original issuers did: the
// shortest round-trip digits, always with a fractional part.
func formatExp(exp float64) string {
	s := strconv.FormatFloat(exp, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
