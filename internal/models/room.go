package models

import (
	"gorm.io/gorm"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomStatusWaiting    RoomStatus = "WAITING"     // 等待玩家加入
	RoomStatusInProgress RoomStatus = "IN_PROGRESS" // 游戏进行中
	RoomStatusFinished   RoomStatus = "FINISHED"    // 游戏已结束
)

// RoomPhase 回合内阶段
type RoomPhase string

const (
	PhaseWaiting          RoomPhase = "waiting"           // 未开局/已结束
	PhaseSubmittingOrders RoomPhase = "submitting_orders" // 玩家提交订单
	PhaseRevealingEvent   RoomPhase = "revealing_event"   // 揭示事件
	PhaseExecutingOrders  RoomPhase = "executing_orders"  // 执行订单
	PhasePayingDividends  RoomPhase = "paying_dividends"  // 派发股息
)

// Room 游戏房间表
type Room struct {
	BaseModel
	Code         string     `gorm:"uniqueIndex;size:6;not null" json:"code"` // 6位加入码
	OwnerID      uint       `gorm:"index" json:"owner_id"`
	Status       RoomStatus `gorm:"size:20;default:'WAITING'" json:"status"`
	CurrentPhase RoomPhase  `gorm:"size:30;default:'waiting'" json:"current_phase"`
	CurrentRound int        `gorm:"default:1" json:"current_round"` // 1起始
	TotalRounds  int        `gorm:"not null" json:"total_rounds"`

	// 开局时固定的房间设置
	InitialCash    int64 `gorm:"not null" json:"initial_cash"`
	NumberOfStocks int   `gorm:"not null" json:"number_of_stocks"`
	MaxPlayers     int   `gorm:"default:12" json:"max_players"`
	TemplateSeed   int64 `json:"template_seed"` // 股票模板抽取种子

	// 关联
	Players []Player `gorm:"foreignKey:RoomID" json:"players,omitempty"`
	Stocks  []Stock  `gorm:"foreignKey:RoomID" json:"stocks,omitempty"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}

// BeforeCreate 创建前的钩子
func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RoomStatusWaiting
	}
	if r.CurrentPhase == "" {
		r.CurrentPhase = PhaseWaiting
	}
	if r.CurrentRound == 0 {
		r.CurrentRound = 1
	}
	return nil
}

// IsWaiting 是否在等待开局
func (r *Room) IsWaiting() bool {
	return r.Status == RoomStatusWaiting
}

// IsInProgress 是否在游戏中
func (r *Room) IsInProgress() bool {
	return r.Status == RoomStatusInProgress
}

// IsFinished 是否已结束
func (r *Room) IsFinished() bool {
	return r.Status == RoomStatusFinished
}

// IsLastRound 是否在最后一个回合
func (r *Room) IsLastRound() bool {
	return r.CurrentRound >= r.TotalRounds
}

// Player 房间内玩家表
type Player struct {
	BaseModel
	RoomID uint   `gorm:"not null;index;uniqueIndex:idx_players_room_name" json:"room_id"`
	Name   string `gorm:"size:50;not null;uniqueIndex:idx_players_room_name" json:"name"`
	Cash   int64  `gorm:"not null;default:0" json:"cash"`

	// 上一回合快照，仅用于前端涨跌显示
	PreviousCash     *int64 `json:"previous_cash,omitempty"`
	PreviousNetWorth *int64 `json:"previous_net_worth,omitempty"`

	// 关联
	Holdings []Holding `gorm:"foreignKey:PlayerID" json:"holdings,omitempty"`
}

// TableName 指定表名
func (Player) TableName() string {
	return "players"
}
