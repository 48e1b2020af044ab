package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HoldingRepository 持仓仓储接口
type HoldingRepository interface {
	BaseRepository
	FindByPlayerAndStock(ctx context.Context, playerID, stockID uint) (*models.Holding, error)
	FindByPlayer(ctx context.Context, playerID uint) ([]*models.Holding, error)
	FindByRoom(ctx context.Context, roomID uint) ([]*models.Holding, error)
	FindByStock(ctx context.Context, stockID uint) ([]*models.Holding, error)
	// TotalByStock 统计房间内每只股票的流通总量
	TotalByStock(ctx context.Context, roomID uint) (map[uint]int64, error)
	// AddQuantity 增持（不存在则插入），数量增量必须为正
	AddQuantity(ctx context.Context, roomID, playerID, stockID uint, delta int64) error
	// DeductQuantity 减持，持仓不足时拒绝；减到0时删除持仓行
	DeductQuantity(ctx context.Context, playerID, stockID uint, delta int64) error
	DeleteByPlayer(ctx context.Context, playerID uint) error
}

// holdingRepo 持仓仓储实现
type holdingRepo struct {
	*BaseRepo
}

// NewHoldingRepository 创建持仓仓储
func NewHoldingRepository(db *gorm.DB) HoldingRepository {
	return &holdingRepo{BaseRepo: &BaseRepo{db: db}}
}

// FindByPlayerAndStock 查找某玩家对某股票的持仓，0持仓视为不存在
func (r *holdingRepo) FindByPlayerAndStock(ctx context.Context, playerID, stockID uint) (*models.Holding, error) {
	var holding models.Holding
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND stock_id = ? AND quantity > 0", playerID, stockID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &holding, nil
}

// FindByPlayer 查找玩家全部持仓
func (r *holdingRepo) FindByPlayer(ctx context.Context, playerID uint) ([]*models.Holding, error) {
	var holdings []*models.Holding
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND quantity > 0", playerID).
		Find(&holdings).Error
	return holdings, err
}

// FindByRoom 查找房间内全部持仓
func (r *holdingRepo) FindByRoom(ctx context.Context, roomID uint) ([]*models.Holding, error) {
	var holdings []*models.Holding
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND quantity > 0", roomID).
		Find(&holdings).Error
	return holdings, err
}

// FindByStock 查找某股票的全部持仓
func (r *holdingRepo) FindByStock(ctx context.Context, stockID uint) ([]*models.Holding, error) {
	var holdings []*models.Holding
	err := r.db.WithContext(ctx).
		Where("stock_id = ? AND quantity > 0", stockID).
		Find(&holdings).Error
	return holdings, err
}

// stockTotal 聚合查询结果
type stockTotal struct {
	StockID uint
	Total   int64
}

// TotalByStock 统计房间内每只股票的流通总量
func (r *holdingRepo) TotalByStock(ctx context.Context, roomID uint) (map[uint]int64, error) {
	var rows []stockTotal
	err := r.db.WithContext(ctx).
		Model(&models.Holding{}).
		Select("stock_id, SUM(quantity) AS total").
		Where("room_id = ?", roomID).
		Group("stock_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]int64, len(rows))
	for _, row := range rows {
		totals[row.StockID] = row.Total
	}
	return totals, nil
}

// AddQuantity 增持（不存在则插入）
func (r *holdingRepo) AddQuantity(ctx context.Context, roomID, playerID, stockID uint, delta int64) error {
	if delta <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "增持数量必须为正: %d", delta)
	}

	holding := &models.Holding{
		RoomID:   roomID,
		PlayerID: playerID,
		StockID:  stockID,
		Quantity: delta,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}, {Name: "stock_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + ?", delta),
			}),
		}).
		Create(holding).Error
}

// DeductQuantity 减持，减到0时删除持仓行
func (r *holdingRepo) DeductQuantity(ctx context.Context, playerID, stockID uint, delta int64) error {
	if delta <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "减持数量必须为正: %d", delta)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Holding{}).
		Where("player_id = ? AND stock_id = ? AND quantity >= ?", playerID, stockID, delta).
		Update("quantity", gorm.Expr("quantity - ?", delta))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrInvalidOrder, "持仓不足: 需要 %d", delta)
	}

	// 0持仓行直接删除，读取侧对0和缺行一视同仁
	return r.db.WithContext(ctx).
		Where("player_id = ? AND stock_id = ? AND quantity <= 0", playerID, stockID).
		Delete(&models.Holding{}).Error
}

// DeleteByPlayer 删除玩家全部持仓（玩家离开房间时级联）
func (r *holdingRepo) DeleteByPlayer(ctx context.Context, playerID uint) error {
	return r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Delete(&models.Holding{}).Error
}
