package service

import (
	"context"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/utils"
	"go.uber.org/zap"
)

// authService 主持人认证服务实现
type authService struct {
	repos      *repository.Manager
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(repos *repository.Manager, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		repos:      repos,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 注册主持人账号
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "密码加密失败")
	}

	host := &models.Host{
		Username: req.Username,
		Nickname: req.Nickname,
		Password: hash,
		Status:   "active",
	}
	if host.Nickname == "" {
		host.Nickname = req.Username
	}
	if err := s.repos.Host().Create(ctx, host); err != nil {
		return nil, err
	}

	s.log.Info("主持人已注册",
		zap.Uint("host_id", host.ID),
		zap.String("username", host.Username))
	return s.issueTokens(host)
}

// Login 主持人登录
// 账号不存在和密码错误返回同一个错误，不泄露账号是否存在
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	host, err := s.repos.Host().FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}
	if !host.IsActive() {
		return nil, apperrors.New(apperrors.ErrAuthentication, "账号已被禁用")
	}

	ok, err := utils.VerifyPassword(req.Password, host.Password)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if err := s.repos.Host().UpdateLastLogin(ctx, host.ID); err != nil {
		s.log.Warn("更新登录时间失败", zap.Error(err))
	}

	return s.issueTokens(host)
}

// Refresh 用刷新令牌换新的访问令牌
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, apperrors.New(apperrors.ErrTokenInvalid, "不是刷新令牌")
	}

	host, err := s.repos.Host().FindByID(ctx, claims.HostID)
	if err != nil {
		return nil, err
	}
	if !host.IsActive() {
		return nil, apperrors.New(apperrors.ErrAuthentication, "账号已被禁用")
	}

	return s.issueTokens(host)
}

// Validate 校验访问令牌并返回主持人
func (s *authService) Validate(ctx context.Context, accessToken string) (*models.Host, error) {
	claims, err := s.jwtManager.ValidateToken(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, apperrors.New(apperrors.ErrTokenInvalid, "不是访问令牌")
	}

	host, err := s.repos.Host().FindByID(ctx, claims.HostID)
	if err != nil {
		return nil, err
	}
	if !host.IsActive() {
		return nil, apperrors.New(apperrors.ErrAuthentication, "账号已被禁用")
	}
	return host, nil
}

func (s *authService) issueTokens(host *models.Host) (*AuthResponse, error) {
	access, err := s.jwtManager.GenerateAccessToken(host.ID, host.Username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成访问令牌失败")
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(host.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成刷新令牌失败")
	}

	host.Password = ""
	return &AuthResponse{
		Host:         host,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
