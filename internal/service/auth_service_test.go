package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repos *repository.Manager
	svc   AuthService
	ctx   context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.repos = repository.NewManager(suite.db)
	suite.ctx = context.Background()

	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	suite.svc = NewAuthService(suite.repos, jwtManager, zap.NewNop())
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *AuthServiceTestSuite) register(username string) *AuthResponse {
	resp, err := suite.svc.Register(suite.ctx, &RegisterRequest{
		Username: username,
		Password: "password123",
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister_成功() {
	resp := suite.register("host1")

	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), "host1", resp.Host.Username)
	// 响应不带密码哈希
	assert.Empty(suite.T(), resp.Host.Password)
}

func (suite *AuthServiceTestSuite) TestRegister_用户名重复() {
	suite.register("host1")

	_, err := suite.svc.Register(suite.ctx, &RegisterRequest{
		Username: "host1",
		Password: "another123",
	})
	assert.Equal(suite.T(), apperrors.ErrInvalidParam, apperrors.GetCode(err))
}

func (suite *AuthServiceTestSuite) TestLogin_成功() {
	suite.register("host1")

	resp, err := suite.svc.Login(suite.ctx, &LoginRequest{
		Username: "host1",
		Password: "password123",
	})
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), resp.AccessToken)

	// 登录时间被更新
	host, err := suite.repos.Host().FindByUsername(suite.ctx, "host1")
	suite.Require().NoError(err)
	assert.NotNil(suite.T(), host.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLogin_密码错误() {
	suite.register("host1")

	_, err := suite.svc.Login(suite.ctx, &LoginRequest{
		Username: "host1",
		Password: "wrong-password",
	})
	assert.Equal(suite.T(), apperrors.ErrAuthentication, apperrors.GetCode(err))
}

func (suite *AuthServiceTestSuite) TestLogin_账号不存在() {
	_, err := suite.svc.Login(suite.ctx, &LoginRequest{
		Username: "nobody",
		Password: "password123",
	})
	// 不泄露账号是否存在
	assert.Equal(suite.T(), apperrors.ErrAuthentication, apperrors.GetCode(err))
}

func (suite *AuthServiceTestSuite) TestRefresh_成功() {
	resp := suite.register("host1")

	renewed, err := suite.svc.Refresh(suite.ctx, resp.RefreshToken)
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), renewed.AccessToken)
	assert.Equal(suite.T(), "host1", renewed.Host.Username)
}

func (suite *AuthServiceTestSuite) TestRefresh_拿访问令牌刷新() {
	resp := suite.register("host1")

	_, err := suite.svc.Refresh(suite.ctx, resp.AccessToken)
	assert.Equal(suite.T(), apperrors.ErrTokenInvalid, apperrors.GetCode(err))
}

func (suite *AuthServiceTestSuite) TestValidate_成功() {
	resp := suite.register("host1")

	host, err := suite.svc.Validate(suite.ctx, resp.AccessToken)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), resp.Host.ID, host.ID)
}

func (suite *AuthServiceTestSuite) TestValidate_伪造令牌() {
	_, err := suite.svc.Validate(suite.ctx, "not-a-token")
	assert.Error(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestValidate_拿刷新令牌访问() {
	resp := suite.register("host1")

	_, err := suite.svc.Validate(suite.ctx, resp.RefreshToken)
	assert.Equal(suite.T(), apperrors.ErrTokenInvalid, apperrors.GetCode(err))
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
