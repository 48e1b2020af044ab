package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// EffectType 事件效果类型
type EffectType string

const (
	EffectPriceChange    EffectType = "price_change"
	EffectDividendChange EffectType = "dividend_change"
)

// StockEffect 单条股票效果（带符号增量）
type StockEffect struct {
	Type    EffectType `json:"type"`
	StockID uint       `json:"stock_id"`
	Amount  int64      `json:"amount"`
}

// Validate 校验效果类型
func (e StockEffect) Validate() error {
	switch e.Type {
	case EffectPriceChange, EffectDividendChange:
		return nil
	default:
		return fmt.Errorf("未知的效果类型: %s", e.Type)
	}
}

// EffectList 效果列表，存储为JSON列
type EffectList []StockEffect

// Value 实现 driver.Valuer 接口
func (l EffectList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(EffectList{})
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *EffectList) Scan(value interface{}) error {
	if value == nil {
		*l = EffectList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("无法扫描效果列表: %T", value)
		}
		bytes = []byte(strVal)
	}
	return json.Unmarshal(bytes, l)
}

// Event 回合事件表
//
// 效果在 submitting_orders 阶段就已生成，但在 Revealed 置位前
// 不得返回给客户端，泄露属于正确性缺陷而非展示问题。
type Event struct {
	BaseModel
	RoomID      uint       `gorm:"not null;uniqueIndex:idx_events_room_round" json:"room_id"`
	Round       int        `gorm:"not null;uniqueIndex:idx_events_room_round" json:"round"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"size:2000" json:"description"`
	Effects     EffectList `gorm:"type:json" json:"effects"`
	Revealed    bool       `gorm:"default:false" json:"revealed"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}

// Sanitized 返回对客户端可见的副本：未揭示时隐藏效果
func (e *Event) Sanitized() *Event {
	if e.Revealed {
		return e
	}
	clone := *e
	clone.Effects = EffectList{}
	return &clone
}
