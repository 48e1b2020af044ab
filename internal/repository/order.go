package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// OrderRepository 订单仓储接口
type OrderRepository interface {
	BaseRepository
	// Create 创建订单，同一玩家同一回合重复提交返回 ErrDuplicateOrder
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	FindByRoomRound(ctx context.Context, roomID uint, round int) ([]*models.Order, error)
	FindByPlayer(ctx context.Context, playerID uint, page *Pagination) ([]*models.Order, error)
	// FindPendingTrades 查找待执行的买卖订单，按提交时间升序
	FindPendingTrades(ctx context.Context, roomID uint, round int) ([]*models.Order, error)
	// CountDistinctPlayersActed 统计本回合已提交有效订单的玩家数
	CountDistinctPlayersActed(ctx context.Context, roomID uint, round int) (int64, error)
	// Cancel 取消待执行订单，释放唯一约束占位
	Cancel(ctx context.Context, orderID, playerID uint) error
	// MarkSkipsExecuted 将本回合的跳过订单批量置为已执行
	MarkSkipsExecuted(ctx context.Context, roomID uint, round int) error
	UpdateExecution(ctx context.Context, order *models.Order) error
	DeleteByPlayer(ctx context.Context, playerID uint) error
}

// orderRepo 订单仓储实现
type orderRepo struct {
	*BaseRepo
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建订单
// 依赖 (room_id, player_id, round, active) 唯一索引兜底并发双提交
func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.New(apperrors.ErrDuplicateOrder, "本回合已提交过订单")
		}
		return err
	}
	return nil
}

// FindByID 根据ID查找订单
func (r *orderRepo) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrOrderNotFound, "订单不存在")
		}
		return nil, err
	}
	return &order, nil
}

// FindByRoomRound 查找房间某回合的全部订单
func (r *orderRepo) FindByRoomRound(ctx context.Context, roomID uint, round int) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND round = ?", roomID, round).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// FindByPlayer 分页查找玩家历史订单
func (r *orderRepo) FindByPlayer(ctx context.Context, playerID uint, page *Pagination) ([]*models.Order, error) {
	var orders []*models.Order
	query := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("round DESC, id DESC")
	if page != nil {
		query = query.Scopes(Paginate(page))
	}
	err := query.Find(&orders).Error
	return orders, err
}

// FindPendingTrades 查找待执行的买卖订单
// 严格按提交时间升序执行，同一时间戳按ID升序兜底
func (r *orderRepo) FindPendingTrades(ctx context.Context, roomID uint, round int) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND round = ? AND status = ? AND type IN ?",
			roomID, round, models.OrderStatusPending,
			[]models.OrderType{models.OrderTypeBuy, models.OrderTypeSell}).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// CountDistinctPlayersActed 统计本回合已提交有效订单的玩家数
// 已取消的订单 active 为 NULL，不计入
func (r *orderRepo) CountDistinctPlayersActed(ctx context.Context, roomID uint, round int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("room_id = ? AND round = ? AND active = ?", roomID, round, true).
		Distinct("player_id").
		Count(&count).Error
	return count, err
}

// Cancel 取消待执行订单
// active 置 NULL 释放唯一索引占位，玩家可重新提交
func (r *orderRepo) Cancel(ctx context.Context, orderID, playerID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND player_id = ? AND status = ?", orderID, playerID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status": models.OrderStatusCancelled,
			"active": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 区分订单不存在和状态不对
		var order models.Order
		err := r.db.WithContext(ctx).
			Where("id = ? AND player_id = ?", orderID, playerID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrOrderNotFound, "订单不存在")
		}
		if err != nil {
			return err
		}
		return apperrors.Newf(apperrors.ErrOrderNotPending, "订单状态为 %s，无法取消", order.Status)
	}
	return nil
}

// MarkSkipsExecuted 将本回合的跳过订单批量置为已执行
func (r *orderRepo) MarkSkipsExecuted(ctx context.Context, roomID uint, round int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("room_id = ? AND round = ? AND type = ? AND status = ?",
			roomID, round, models.OrderTypeSkip, models.OrderStatusPending).
		Update("status", models.OrderStatusExecuted).Error
}

// UpdateExecution 回写订单执行结果
func (r *orderRepo) UpdateExecution(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(order).
		Select("status", "execution_quantity", "execution_price_total",
			"stock_price_before", "stock_price_after").
		Updates(order).Error
}

// DeleteByPlayer 删除玩家全部订单（玩家离开房间时级联）
func (r *orderRepo) DeleteByPlayer(ctx context.Context, playerID uint) error {
	return r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Delete(&models.Order{}).Error
}
