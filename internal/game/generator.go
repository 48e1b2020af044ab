package game

import (
	"context"

	"github.com/wfunc/party-market/internal/models"
)

// EventDraft 生成器产出的事件草稿，尚未落库
type EventDraft struct {
	Title       string
	Description string
	Effects     models.EffectList
}

// PlayerSnapshot 生成器输入：玩家概况
type PlayerSnapshot struct {
	Name     string
	Cash     int64
	NetWorth int64
	Holdings map[string]int64 // symbol -> quantity
}

// OrderSnapshot 生成器输入：历史订单概况
type OrderSnapshot struct {
	PlayerName string
	Type       models.OrderType
	Symbol     string
	Quantity   int64
	Round      int
}

// GeneratorInput 事件生成器的完整输入
// 股票按房间内顺序排列，订单按时间倒序排列
type GeneratorInput struct {
	Round       int
	TotalRounds int
	Stocks      []*models.Stock
	Players     []PlayerSnapshot
	Orders      []OrderSnapshot
	Events      []*models.Event // 已发生的事件，供叙事引用
}

// Generator 事件生成器接口
//
// 实现负责产出事件的标题、描述和2到5条股票效果。
// 返回错误时由调用方兜底，不会影响游戏推进。
type Generator interface {
	Generate(ctx context.Context, input *GeneratorInput) (*EventDraft, error)
}
