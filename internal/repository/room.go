package repository

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// RoomRepository 房间仓储接口
type RoomRepository interface {
	BaseRepository
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	ListByStatus(ctx context.Context, status models.RoomStatus, p *Pagination) ([]*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	// AdvanceCAS 以当前(阶段,回合)为前提条件更新房间进度，
	// 并发推进时只有一个调用生效，失败方收到 ErrPhaseConflict。
	AdvanceCAS(ctx context.Context, roomID uint, fromPhase models.RoomPhase, fromRound int,
		toStatus models.RoomStatus, toPhase models.RoomPhase, toRound int) error
}

// roomRepo 房间仓储实现
type roomRepo struct {
	*BaseRepo
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建房间
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// FindByID 根据ID查找房间
func (r *roomRepo) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrRoomNotFound)
		}
		return nil, err
	}
	return &room, nil
}

// FindByCode 根据加入码查找房间（大小写不敏感）
func (r *roomRepo) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRoomCodeNotFound, "房间码 %s", code)
		}
		return nil, err
	}
	return &room, nil
}

// ListByStatus 按状态列出房间
func (r *roomRepo) ListByStatus(ctx context.Context, status models.RoomStatus, p *Pagination) ([]*models.Room, error) {
	var rooms []*models.Room
	query := r.db.WithContext(ctx).Model(&models.Room{}).Where("status = ?", status)

	if err := query.Count(&p.Total).Error; err != nil {
		return nil, err
	}

	err := query.Scopes(Paginate(p)).Order("created_at DESC").Find(&rooms).Error
	return rooms, err
}

// Update 更新房间
func (r *roomRepo) Update(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

// AdvanceCAS 条件更新房间进度
func (r *roomRepo) AdvanceCAS(ctx context.Context, roomID uint, fromPhase models.RoomPhase, fromRound int,
	toStatus models.RoomStatus, toPhase models.RoomPhase, toRound int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND current_phase = ? AND current_round = ?", roomID, fromPhase, fromRound).
		Updates(map[string]interface{}{
			"status":        toStatus,
			"current_phase": toPhase,
			"current_round": toRound,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrPhaseConflict)
	}
	return nil
}
