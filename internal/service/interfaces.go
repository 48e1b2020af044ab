package service

import (
	"context"

	"github.com/wfunc/party-market/internal/game"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
)

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	TotalRounds    int   `json:"total_rounds"`
	InitialCash    int64 `json:"initial_cash"`
	NumberOfStocks int   `json:"number_of_stocks"`
	MaxPlayers     int   `json:"max_players"`
	TemplateSeed   int64 `json:"template_seed"`
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// SubmitOrderRequest 提交订单请求
type SubmitOrderRequest struct {
	PlayerID uint             `json:"player_id" binding:"required"`
	StockID  uint             `json:"stock_id"`
	Type     models.OrderType `json:"type" binding:"required"`
	Quantity int64            `json:"quantity"`
	Budget   int64            `json:"budget"`
}

// StockView 股票视图，带涨跌快照
type StockView struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Description      string `json:"description"`
	CurrentPrice     int64  `json:"current_price"`
	DividendAmount   int64  `json:"dividend_amount"`
	PreviousPrice    *int64 `json:"previous_price,omitempty"`
	PreviousDividend *int64 `json:"previous_dividend,omitempty"`
}

// PlayerView 玩家视图，带净值和排名基线
type PlayerView struct {
	ID               uint             `json:"id"`
	Name             string           `json:"name"`
	Cash             int64            `json:"cash"`
	NetWorth         int64            `json:"net_worth"`
	PreviousCash     *int64           `json:"previous_cash,omitempty"`
	PreviousNetWorth *int64           `json:"previous_net_worth,omitempty"`
	Holdings         []*HoldingView   `json:"holdings,omitempty"`
	HasActed         bool             `json:"has_acted"`
}

// HoldingView 持仓视图
type HoldingView struct {
	StockID  uint  `json:"stock_id"`
	Quantity int64 `json:"quantity"`
}

// RoomState 房间完整状态
// 玩家按净值降序排列即排行榜；事件在揭示前不携带效果
type RoomState struct {
	Room    *models.Room  `json:"room"`
	Players []*PlayerView `json:"players"`
	Stocks  []*StockView  `json:"stocks"`
	Event   *models.Event `json:"event,omitempty"`
}

// GameService 游戏服务接口
type GameService interface {
	CreateRoom(ctx context.Context, hostID uint, req *CreateRoomRequest) (*models.Room, error)
	ListWaitingRooms(ctx context.Context, page *repository.Pagination) ([]*models.Room, error)
	StartRoom(ctx context.Context, hostID, roomID uint) (*game.AdvanceResult, error)
	JoinRoom(ctx context.Context, req *JoinRoomRequest) (*models.Player, *models.Room, error)
	LeaveRoom(ctx context.Context, roomID, playerID uint) error
	SubmitOrder(ctx context.Context, roomID uint, req *SubmitOrderRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, roomID, orderID, playerID uint) error
	Advance(ctx context.Context, hostID, roomID uint) (*game.AdvanceResult, error)
	RoomState(ctx context.Context, roomID uint) (*RoomState, error)
	OrderHistory(ctx context.Context, playerID uint, page *repository.Pagination) ([]*models.Order, error)
}

// RegisterRequest 主持人注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	Nickname string `json:"nickname"`
}

// LoginRequest 主持人登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	Host         *models.Host `json:"host"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// AuthService 主持人认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Validate(ctx context.Context, accessToken string) (*models.Host, error)
}

// Notifier 房间实时通知接口
// websocket hub 实现；服务层只负责发布，不关心订阅管理
type Notifier interface {
	NotifyRoom(roomID uint, messageType string, payload interface{})
}

// NopNotifier 空实现，测试和无推送部署用
type NopNotifier struct{}

// NotifyRoom 丢弃消息
func (NopNotifier) NotifyRoom(roomID uint, messageType string, payload interface{}) {}
