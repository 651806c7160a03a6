package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type TokenServiceTestSuite struct {
	suite.Suite
	users   *MockUserRepository
	clock   *clockwork.FakeClock
	service TokenService
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.users = &MockUserRepository{}
	suite.users.Test(suite.T())
	suite.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	suite.service = NewTokenService("test-secret", 30*time.Minute, suite.users, suite.clock, nil, zap.NewNop())
}

func (suite *TokenServiceTestSuite) TearDownTest() {
	suite.users.AssertExpectations(suite.T())
}

func TestTokenServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (suite *TokenServiceTestSuite) TestHashPassword_IsSHA256Hex() {
	assert.Equal(suite.T(), "8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92", suite.service.HashPassword("123456"))
	assert.True(suite.T(), suite.service.VerifyPassword("123456", suite.service.HashPassword("123456")))
	assert.False(suite.T(), suite.service.VerifyPassword("654321", suite.service.HashPassword("123456")))
}

func (suite *TokenServiceTestSuite) TestIssueAndValidate_UserToken() {
	userID := uuid.New()
	token, err := suite.service.IssueToken(userID.String(), "")
	require.NoError(suite.T(), err)

	claims, err := suite.service.ValidateToken(context.Background(), token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), userID, claims.UserID)
	assert.False(suite.T(), claims.Legacy)
	assert.Equal(suite.T(), suite.clock.Now().Add(30*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func (suite *TokenServiceTestSuite) TestValidate_Expired() {
	token, err := suite.service.IssueToken(uuid.NewString(), "")
	require.NoError(suite.T(), err)

	suite.clock.Advance(31 * time.Minute)

	_, err = suite.service.ValidateToken(context.Background(), token)
	require.Error(suite.T(), err)
	appErr, ok := common.AsAppError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, appErr.Status)
	assert.Equal(suite.T(), common.TokenExpiredDetail, appErr.Detail)
}

func (suite *TokenServiceTestSuite) TestValidate_TamperedSignatureBeatsExpiry() {
	token, err := suite.service.IssueToken(uuid.NewString(), "")
	require.NoError(suite.T(), err)

	raw, _ := base64.StdEncoding.DecodeString(token)
	var payload map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(raw, &payload))
	payload["user_id"] = uuid.NewString()
	forged, _ := json.Marshal(payload)

	suite.clock.Advance(time.Hour)

	_, err = suite.service.ValidateToken(context.Background(), base64.StdEncoding.EncodeToString(forged))
	appErr, ok := common.AsAppError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), invalidCredentialsDetail, appErr.Detail)
}

func (suite *TokenServiceTestSuite) TestValidate_UserTokenCompanyFieldIsUnsigned() {
	userID := uuid.New()
	token, err := suite.service.IssueToken(userID.String(), uuid.NewString())
	require.NoError(suite.T(), err)

	raw, _ := base64.StdEncoding.DecodeString(token)
	var payload map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(raw, &payload))
	other := uuid.NewString()
	payload["company_id"] = other
	edited, _ := json.Marshal(payload)

	claims, err := suite.service.ValidateToken(context.Background(), base64.StdEncoding.EncodeToString(edited))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), userID, claims.UserID)
	assert.False(suite.T(), claims.Legacy)

	payload["user_id"] = uuid.NewString()
	forged, _ := json.Marshal(payload)
	_, err = suite.service.ValidateToken(context.Background(), base64.StdEncoding.EncodeToString(forged))
	assert.Equal(suite.T(), http.StatusUnauthorized, common.StatusOf(err))
}

func (suite *TokenServiceTestSuite) TestValidate_Malformed() {
	for _, token := range []string{"", "not-base64!", base64.StdEncoding.EncodeToString([]byte("{}")), base64.StdEncoding.EncodeToString([]byte("[1,2]"))} {
		_, err := suite.service.ValidateToken(context.Background(), token)
		assert.Equal(suite.T(), http.StatusUnauthorized, common.StatusOf(err), token)
	}
}

func (suite *TokenServiceTestSuite) TestValidate_LegacyCompanyToken() {
	companyID := uuid.New()
	admin := &models.User{ID: uuid.New(), CompanyID: &companyID, Role: models.RoleCompanyAdmin}
	suite.users.On("FirstCompanyAdmin", context.Background(), companyID).Return(admin, nil).Once()

	token, err := suite.service.IssueToken("", companyID.String())
	require.NoError(suite.T(), err)

	claims, err := suite.service.ValidateToken(context.Background(), token)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), claims.Legacy)
	assert.Equal(suite.T(), admin.ID, claims.UserID)
	assert.Equal(suite.T(), companyID.String(), claims.CompanyID)
}

func (suite *TokenServiceTestSuite) TestValidate_LegacyCompanyWithoutAdmin() {
	companyID := uuid.New()
	suite.users.On("FirstCompanyAdmin", context.Background(), companyID).Return(nil, repositories.ErrNotFound).Once()

	token, err := suite.service.IssueToken("", companyID.String())
	require.NoError(suite.T(), err)

	_, err = suite.service.ValidateToken(context.Background(), token)
	assert.Equal(suite.T(), http.StatusUnauthorized, common.StatusOf(err))
}

func (suite *TokenServiceTestSuite) TestIssue_RequiresSubject() {
	_, err := suite.service.IssueToken("", "")
	assert.Error(suite.T(), err)
}

func TestFormatExp(t *testing.T) {
	assert.Equal(t, "1700000000.0", formatExp(1700000000))
	assert.Equal(t, "1700000000.25", formatExp(1700000000.25))
}
