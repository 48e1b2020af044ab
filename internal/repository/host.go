package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// HostRepository 主持人仓储接口
type HostRepository interface {
	BaseRepository
	Create(ctx context.Context, host *models.Host) error
	FindByID(ctx context.Context, id uint) (*models.Host, error)
	FindByUsername(ctx context.Context, username string) (*models.Host, error)
	Update(ctx context.Context, host *models.Host) error
	UpdateLastLogin(ctx context.Context, id uint) error
}

// hostRepo 主持人仓储实现
type hostRepo struct {
	*BaseRepo
}

// NewHostRepository 创建主持人仓储
func NewHostRepository(db *gorm.DB) HostRepository {
	return &hostRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建主持人账号
func (r *hostRepo) Create(ctx context.Context, host *models.Host) error {
	err := r.db.WithContext(ctx).Create(host).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Newf(apperrors.ErrInvalidParam, "用户名 %s 已被注册", host.Username)
		}
		return err
	}
	return nil
}

// FindByID 根据ID查找主持人
func (r *hostRepo) FindByID(ctx context.Context, id uint) (*models.Host, error) {
	var host models.Host
	err := r.db.WithContext(ctx).First(&host, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthentication, "账号不存在")
		}
		return nil, err
	}
	return &host, nil
}

// FindByUsername 根据用户名查找主持人
func (r *hostRepo) FindByUsername(ctx context.Context, username string) (*models.Host, error) {
	var host models.Host
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&host).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthentication, "账号不存在")
		}
		return nil, err
	}
	return &host, nil
}

// Update 更新主持人信息
func (r *hostRepo) Update(ctx context.Context, host *models.Host) error {
	return r.db.WithContext(ctx).Save(host).Error
}

// UpdateLastLogin 更新最后登录时间
func (r *hostRepo) UpdateLastLogin(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Host{}).
		Where("id = ?", id).
		Update("last_login_at", now).Error
}
