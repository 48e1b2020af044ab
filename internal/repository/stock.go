package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// StockRepository 股票仓储接口
type StockRepository interface {
	BaseRepository
	CreateBatch(ctx context.Context, stocks []*models.Stock) error
	FindByID(ctx context.Context, id uint) (*models.Stock, error)
	FindByRoom(ctx context.Context, roomID uint) ([]*models.Stock, error)
	UpdatePrice(ctx context.Context, stockID uint, newPrice int64) error
	// ApplyEventDelta 应用事件增量并写入快照，价格下限为1
	ApplyEventDelta(ctx context.Context, stockID uint, effectType models.EffectType, amount int64) error
}

// stockRepo 股票仓储实现
type stockRepo struct {
	*BaseRepo
}

// NewStockRepository 创建股票仓储
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepo{BaseRepo: &BaseRepo{db: db}}
}

// CreateBatch 批量创建股票
func (r *stockRepo) CreateBatch(ctx context.Context, stocks []*models.Stock) error {
	if len(stocks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(stocks).Error
}

// FindByID 根据ID查找股票
func (r *stockRepo) FindByID(ctx context.Context, id uint) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).First(&stock, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrStockNotFound)
		}
		return nil, err
	}
	return &stock, nil
}

// FindByRoom 查找房间内全部股票
func (r *stockRepo) FindByRoom(ctx context.Context, roomID uint) ([]*models.Stock, error) {
	var stocks []*models.Stock
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&stocks).Error
	return stocks, err
}

// UpdatePrice 更新价格（订单执行，价格下限为1）
func (r *stockRepo) UpdatePrice(ctx context.Context, stockID uint, newPrice int64) error {
	if newPrice < 1 {
		newPrice = 1
	}
	result := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", stockID).
		Update("current_price", newPrice)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrStockNotFound)
	}
	return nil
}

// ApplyEventDelta 应用事件增量并写入快照
func (r *stockRepo) ApplyEventDelta(ctx context.Context, stockID uint, effectType models.EffectType, amount int64) error {
	var stock models.Stock
	if err := r.db.WithContext(ctx).First(&stock, stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrStockNotFound)
		}
		return err
	}

	updates := map[string]interface{}{}
	switch effectType {
	case models.EffectPriceChange:
		newPrice := stock.CurrentPrice + amount
		if newPrice < 1 {
			newPrice = 1
		}
		updates["previous_price"] = stock.CurrentPrice
		updates["current_price"] = newPrice
	case models.EffectDividendChange:
		newDividend := stock.DividendAmount + amount
		if newDividend < 0 {
			newDividend = 0
		}
		updates["previous_dividend"] = stock.DividendAmount
		updates["dividend_amount"] = newDividend
	default:
		return apperrors.Newf(apperrors.ErrInvalidParam, "未知的效果类型: %s", effectType)
	}

	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", stockID).
		Updates(updates).Error
}
