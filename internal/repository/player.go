package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// PlayerRepository 玩家仓储接口
type PlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id uint) (*models.Player, error)
	FindByRoom(ctx context.Context, roomID uint) ([]*models.Player, error)
	CountByRoom(ctx context.Context, roomID uint) (int64, error)
	// InitializeCash 开局时给房间内所有玩家发放初始资金并重置快照
	InitializeCash(ctx context.Context, roomID uint, cash int64) error
	AddCash(ctx context.Context, playerID uint, amount int64) error
	DeductCash(ctx context.Context, playerID uint, amount int64) error
	UpdateSnapshots(ctx context.Context, playerID uint, previousCash, previousNetWorth int64) error
	Delete(ctx context.Context, playerID uint) error
}

// playerRepo 玩家仓储实现
type playerRepo struct {
	*BaseRepo
}

// NewPlayerRepository 创建玩家仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建玩家，昵称在房间内重复时返回 ErrNameTaken
func (r *playerRepo) Create(ctx context.Context, player *models.Player) error {
	err := r.db.WithContext(ctx).Create(player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Newf(apperrors.ErrNameTaken, "昵称 %s", player.Name)
		}
		return err
	}
	return nil
}

// FindByID 根据ID查找玩家
func (r *playerRepo) FindByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).First(&player, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrPlayerNotFound)
		}
		return nil, err
	}
	return &player, nil
}

// FindByRoom 查找房间内全部玩家
func (r *playerRepo) FindByRoom(ctx context.Context, roomID uint) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&players).Error
	return players, err
}

// CountByRoom 统计房间玩家数量
func (r *playerRepo) CountByRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// InitializeCash 开局时给房间内所有玩家发放初始资金并重置快照
func (r *playerRepo) InitializeCash(ctx context.Context, roomID uint, cash int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"cash":               cash,
			"previous_cash":      cash,
			"previous_net_worth": cash,
		}).Error
}

// AddCash 增加现金
func (r *playerRepo) AddCash(ctx context.Context, playerID uint, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Update("cash", gorm.Expr("cash + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound)
	}
	return nil
}

// DeductCash 扣减现金，余额不足时拒绝
func (r *playerRepo) DeductCash(ctx context.Context, playerID uint, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ? AND cash >= ?", playerID, amount).
		Update("cash", gorm.Expr("cash - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrInvalidOrder, "现金不足: 需要 %d", amount)
	}
	return nil
}

// UpdateSnapshots 回合结算时写入上回合快照
func (r *playerRepo) UpdateSnapshots(ctx context.Context, playerID uint, previousCash, previousNetWorth int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Updates(map[string]interface{}{
			"previous_cash":      previousCash,
			"previous_net_worth": previousNetWorth,
		}).Error
}

// Delete 删除玩家
func (r *playerRepo) Delete(ctx context.Context, playerID uint) error {
	return r.db.WithContext(ctx).Delete(&models.Player{}, playerID).Error
}
