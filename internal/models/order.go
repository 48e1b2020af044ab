package models

import (
	"gorm.io/gorm"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
	OrderTypeSkip OrderType = "skip" // 本回合放弃操作，视为已行动
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order 订单表
//
// 唯一索引 (room_id, player_id, round, active) 保证每个玩家每回合
// 最多一条未取消订单：active 在插入时为 true，取消时置 NULL，
// 三种数据库的唯一索引都允许多个 NULL，因此取消后可以重新提交。
type Order struct {
	BaseModel
	RoomID   uint  `gorm:"not null;index;uniqueIndex:idx_orders_one_per_round" json:"room_id"`
	PlayerID uint  `gorm:"not null;index;uniqueIndex:idx_orders_one_per_round" json:"player_id"`
	Round    int   `gorm:"not null;uniqueIndex:idx_orders_one_per_round" json:"round"`
	Active   *bool `gorm:"uniqueIndex:idx_orders_one_per_round" json:"-"`

	StockID *uint     `gorm:"index" json:"stock_id,omitempty"` // skip订单无股票
	Type    OrderType `gorm:"size:10;not null" json:"type"`

	RequestedQuantity   int64 `gorm:"not null;default:0" json:"requested_quantity"`
	RequestedPriceTotal int64 `gorm:"not null;default:0" json:"requested_price_total"` // 买单预算，卖单仅供参考

	Status              OrderStatus `gorm:"size:20;default:'pending'" json:"status"`
	ExecutionQuantity   int64       `gorm:"default:0" json:"execution_quantity"`
	ExecutionPriceTotal int64       `gorm:"default:0" json:"execution_price_total"`

	// 成交审计字段
	StockPriceBefore *int64 `json:"stock_price_before,omitempty"`
	StockPriceAfter  *int64 `json:"stock_price_after,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate 创建前的钩子
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.Active == nil {
		active := true
		o.Active = &active
	}
	return nil
}

// IsPending 是否待处理
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsTrade 是否买卖订单（skip不进入定价循环）
func (o *Order) IsTrade() bool {
	return o.Type == OrderTypeBuy || o.Type == OrderTypeSell
}
