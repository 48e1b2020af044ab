package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	roomOnce sync.Once
	room     RoomRepository

	playerOnce sync.Once
	player     PlayerRepository

	stockOnce sync.Once
	stock     StockRepository

	holdingOnce sync.Once
	holding     HoldingRepository

	orderOnce sync.Once
	order     OrderRepository

	eventOnce sync.Once
	event     EventRepository

	hostOnce sync.Once
	host     HostRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// WithTransaction 在事务中执行函数
// 回调拿到的管理器绑定事务连接，回调返回错误时自动回滚
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewManager(tx))
	})
}

// Room 获取房间仓储
func (m *Manager) Room() RoomRepository {
	m.roomOnce.Do(func() {
		m.room = NewRoomRepository(m.db)
	})
	return m.room
}

// Player 获取玩家仓储
func (m *Manager) Player() PlayerRepository {
	m.playerOnce.Do(func() {
		m.player = NewPlayerRepository(m.db)
	})
	return m.player
}

// Stock 获取股票仓储
func (m *Manager) Stock() StockRepository {
	m.stockOnce.Do(func() {
		m.stock = NewStockRepository(m.db)
	})
	return m.stock
}

// Holding 获取持仓仓储
func (m *Manager) Holding() HoldingRepository {
	m.holdingOnce.Do(func() {
		m.holding = NewHoldingRepository(m.db)
	})
	return m.holding
}

// Order 获取订单仓储
func (m *Manager) Order() OrderRepository {
	m.orderOnce.Do(func() {
		m.order = NewOrderRepository(m.db)
	})
	return m.order
}

// Event 获取事件仓储
func (m *Manager) Event() EventRepository {
	m.eventOnce.Do(func() {
		m.event = NewEventRepository(m.db)
	})
	return m.event
}

// Host 获取主持人仓储
func (m *Manager) Host() HostRepository {
	m.hostOnce.Do(func() {
		m.host = NewHostRepository(m.db)
	})
	return m.host
}
