package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/wfunc/party-market/internal/config"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/game"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 房间广播消息类型
const (
	MsgPhaseChanged   = "phase_changed"
	MsgPlayerJoined   = "player_joined"
	MsgPlayerLeft     = "player_left"
	MsgEventRevealed  = "event_revealed"
	MsgTradeExecuted  = "trade_executed"
	MsgDividendsPaid  = "dividends_paid"
	MsgRoomFinished   = "room_finished"
)

// gameService 游戏服务实现
type gameService struct {
	repos     *repository.Manager
	sequencer *game.PhaseSequencer
	notifier  Notifier
	gameCfg   *config.GameConfig
	log       *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(repos *repository.Manager, sequencer *game.PhaseSequencer,
	notifier Notifier, gameCfg *config.GameConfig, log *zap.Logger) GameService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &gameService{
		repos:     repos,
		sequencer: sequencer,
		notifier:  notifier,
		gameCfg:   gameCfg,
		log:       log,
	}
}

// CreateRoom 创建房间
// 未填的设置项落到配置默认值；加入码冲突时重试生成
func (s *gameService) CreateRoom(ctx context.Context, hostID uint, req *CreateRoomRequest) (*models.Room, error) {
	if req == nil {
		req = &CreateRoomRequest{}
	}
	room := &models.Room{
		OwnerID:        hostID,
		TotalRounds:    req.TotalRounds,
		InitialCash:    req.InitialCash,
		NumberOfStocks: req.NumberOfStocks,
		MaxPlayers:     req.MaxPlayers,
		TemplateSeed:   req.TemplateSeed,
	}
	if room.TotalRounds <= 0 {
		room.TotalRounds = s.gameCfg.TotalRounds
	}
	if room.InitialCash <= 0 {
		room.InitialCash = s.gameCfg.InitialCash
	}
	if room.NumberOfStocks <= 0 {
		room.NumberOfStocks = s.gameCfg.NumberOfStocks
	}
	if room.MaxPlayers <= 0 {
		room.MaxPlayers = s.gameCfg.MaxPlayers
	}

	// 加入码全局唯一，撞码概率低但要兜底
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateRoomCode()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成房间码失败")
		}
		room.Code = code
		if err := s.repos.Room().Create(ctx, room); err != nil {
			if isDuplicateKey(err) {
				continue
			}
			return nil, err
		}
		s.log.Info("房间已创建",
			zap.Uint("room_id", room.ID),
			zap.String("code", room.Code),
			zap.Uint("host_id", hostID))
		return room, nil
	}
	return nil, apperrors.New(apperrors.ErrUnknown, "房间码生成多次冲突")
}

// ListWaitingRooms 列出等待开局的房间
func (s *gameService) ListWaitingRooms(ctx context.Context, page *repository.Pagination) ([]*models.Room, error) {
	return s.repos.Room().ListByStatus(ctx, models.RoomStatusWaiting, page)
}

// StartRoom 开始游戏，只有房主可以操作
func (s *gameService) StartRoom(ctx context.Context, hostID, roomID uint) (*game.AdvanceResult, error) {
	if err := s.checkOwner(ctx, hostID, roomID); err != nil {
		return nil, err
	}

	result, err := s.sequencer.Start(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRoom(roomID, MsgPhaseChanged, result)
	return result, nil
}

// JoinRoom 按加入码进入房间
func (s *gameService) JoinRoom(ctx context.Context, req *JoinRoomRequest) (*models.Player, *models.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, apperrors.New(apperrors.ErrInvalidParam, "昵称不能为空")
	}

	room, err := s.repos.Room().FindByCode(ctx, req.Code)
	if err != nil {
		return nil, nil, err
	}
	if room.IsFinished() {
		return nil, nil, apperrors.New(apperrors.ErrRoomFinished)
	}
	if !room.IsWaiting() {
		return nil, nil, apperrors.New(apperrors.ErrRoomInProgress, "游戏已开始，无法加入")
	}

	count, err := s.repos.Player().CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	if count >= int64(room.MaxPlayers) {
		return nil, nil, apperrors.Newf(apperrors.ErrRoomFull, "人数上限 %d", room.MaxPlayers)
	}

	player := &models.Player{
		RoomID: room.ID,
		Name:   name,
		Cash:   room.InitialCash,
	}
	if err := s.repos.Player().Create(ctx, player); err != nil {
		return nil, nil, err
	}

	s.log.Info("玩家加入房间",
		zap.Uint("room_id", room.ID),
		zap.Uint("player_id", player.ID),
		zap.String("name", player.Name))
	s.notifier.NotifyRoom(room.ID, MsgPlayerJoined, player)
	return player, room, nil
}

// LeaveRoom 离开房间，级联清理持仓和订单
func (s *gameService) LeaveRoom(ctx context.Context, roomID, playerID uint) error {
	player, err := s.repos.Player().FindByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomID != roomID {
		return apperrors.New(apperrors.ErrPlayerNotFound, "玩家不在该房间")
	}

	err = s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
		if err := tx.Holding().DeleteByPlayer(ctx, playerID); err != nil {
			return err
		}
		if err := tx.Order().DeleteByPlayer(ctx, playerID); err != nil {
			return err
		}
		return tx.Player().Delete(ctx, playerID)
	})
	if err != nil {
		return err
	}

	s.log.Info("玩家离开房间",
		zap.Uint("room_id", roomID),
		zap.Uint("player_id", playerID))
	s.notifier.NotifyRoom(roomID, MsgPlayerLeft, map[string]interface{}{
		"player_id": playerID,
		"name":      player.Name,
	})
	return nil
}

// SubmitOrder 提交订单
// 唯一索引兜底并发双提交，取消后可重新提交
func (s *gameService) SubmitOrder(ctx context.Context, roomID uint, req *SubmitOrderRequest) (*models.Order, error) {
	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CurrentPhase != models.PhaseSubmittingOrders {
		return nil, apperrors.Newf(apperrors.ErrWrongPhase,
			"当前阶段 %s 不接受订单", room.CurrentPhase)
	}

	player, err := s.repos.Player().FindByID(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.RoomID != roomID {
		return nil, apperrors.New(apperrors.ErrPlayerNotFound, "玩家不在该房间")
	}

	order := &models.Order{
		RoomID:   roomID,
		PlayerID: req.PlayerID,
		Round:    room.CurrentRound,
		Type:     req.Type,
	}

	switch req.Type {
	case models.OrderTypeSkip:
		// 跳过订单不带股票和数量
	case models.OrderTypeBuy, models.OrderTypeSell:
		stock, err := s.repos.Stock().FindByID(ctx, req.StockID)
		if err != nil {
			return nil, err
		}
		if stock.RoomID != roomID {
			return nil, apperrors.New(apperrors.ErrStockNotFound, "股票不在该房间")
		}
		if req.Quantity <= 0 {
			return nil, apperrors.New(apperrors.ErrInvalidOrder, "数量必须为正")
		}
		order.StockID = &stock.ID
		order.RequestedQuantity = req.Quantity
		if req.Type == models.OrderTypeBuy {
			budget := req.Budget
			if budget <= 0 {
				budget = req.Quantity * stock.CurrentPrice
			}
			if budget > player.Cash {
				budget = player.Cash
			}
			// 预算买不起一股不是提交错误：订单照常受理，
			// 执行阶段零成交后落为 failed
			order.RequestedPriceTotal = budget
		} else {
			order.RequestedPriceTotal = req.Quantity * stock.CurrentPrice
		}
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidOrder, "未知订单类型: %s", req.Type)
	}

	if err := s.repos.Order().Create(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("订单已提交",
		zap.Uint("room_id", roomID),
		zap.Uint("player_id", req.PlayerID),
		zap.String("type", string(req.Type)),
		zap.Int("round", room.CurrentRound))
	return order, nil
}

// CancelOrder 取消订单，只在提交阶段允许
func (s *gameService) CancelOrder(ctx context.Context, roomID, orderID, playerID uint) error {
	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CurrentPhase != models.PhaseSubmittingOrders {
		return apperrors.Newf(apperrors.ErrWrongPhase,
			"阶段 %s 不允许取消订单", room.CurrentPhase)
	}
	return s.repos.Order().Cancel(ctx, orderID, playerID)
}

// Advance 推进房间，只有房主可以操作
func (s *gameService) Advance(ctx context.Context, hostID, roomID uint) (*game.AdvanceResult, error) {
	if err := s.checkOwner(ctx, hostID, roomID); err != nil {
		return nil, err
	}

	result, err := s.sequencer.Advance(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRoom(roomID, MsgPhaseChanged, result)
	switch {
	case result.Event != nil && result.Phase == models.PhaseRevealingEvent:
		s.notifier.NotifyRoom(roomID, MsgEventRevealed, result.Event)
	case len(result.Trades) > 0:
		s.notifier.NotifyRoom(roomID, MsgTradeExecuted, result.Trades)
	case len(result.Payouts) > 0:
		s.notifier.NotifyRoom(roomID, MsgDividendsPaid, result.Payouts)
	}
	if result.Status == models.RoomStatusFinished {
		s.notifier.NotifyRoom(roomID, MsgRoomFinished, result)
	}
	return result, nil
}

// RoomState 房间完整状态
// 玩家按净值降序即排行榜；当前回合事件未揭示时效果被隐藏
func (s *gameService) RoomState(ctx context.Context, roomID uint) (*RoomState, error) {
	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	stocks, err := s.repos.Stock().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	priceByStock := make(map[uint]int64, len(stocks))
	stockViews := make([]*StockView, 0, len(stocks))
	for _, st := range stocks {
		priceByStock[st.ID] = st.CurrentPrice
		stockViews = append(stockViews, &StockView{
			ID:               st.ID,
			Name:             st.Name,
			Symbol:           st.Symbol,
			Description:      st.Description,
			CurrentPrice:     st.CurrentPrice,
			DividendAmount:   st.DividendAmount,
			PreviousPrice:    st.PreviousPrice,
			PreviousDividend: st.PreviousDividend,
		})
	}

	players, err := s.repos.Player().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.repos.Holding().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	holdingsByPlayer := make(map[uint][]*models.Holding)
	for _, h := range holdings {
		holdingsByPlayer[h.PlayerID] = append(holdingsByPlayer[h.PlayerID], h)
	}

	actedSet := make(map[uint]bool)
	if room.IsInProgress() && room.CurrentPhase == models.PhaseSubmittingOrders {
		orders, err := s.repos.Order().FindByRoomRound(ctx, roomID, room.CurrentRound)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if o.Active != nil && *o.Active {
				actedSet[o.PlayerID] = true
			}
		}
	}

	playerViews := make([]*PlayerView, 0, len(players))
	for _, p := range players {
		view := &PlayerView{
			ID:               p.ID,
			Name:             p.Name,
			Cash:             p.Cash,
			NetWorth:         p.Cash,
			PreviousCash:     p.PreviousCash,
			PreviousNetWorth: p.PreviousNetWorth,
			HasActed:         actedSet[p.ID],
		}
		for _, h := range holdingsByPlayer[p.ID] {
			view.Holdings = append(view.Holdings, &HoldingView{
				StockID:  h.StockID,
				Quantity: h.Quantity,
			})
			view.NetWorth += h.Quantity * priceByStock[h.StockID]
		}
		playerViews = append(playerViews, view)
	}
	sort.SliceStable(playerViews, func(i, j int) bool {
		return playerViews[i].NetWorth > playerViews[j].NetWorth
	})

	state := &RoomState{
		Room:    room,
		Players: playerViews,
		Stocks:  stockViews,
	}

	if room.IsInProgress() {
		event, err := s.repos.Event().FindByRoomRound(ctx, roomID, room.CurrentRound)
		if err == nil {
			state.Event = event.Sanitized()
		} else if !apperrors.Is(err, apperrors.ErrEventNotFound) {
			return nil, err
		}
	}

	return state, nil
}

// OrderHistory 玩家历史订单
func (s *gameService) OrderHistory(ctx context.Context, playerID uint, page *repository.Pagination) ([]*models.Order, error) {
	return s.repos.Order().FindByPlayer(ctx, playerID, page)
}

// checkOwner 校验房主身份
func (s *gameService) checkOwner(ctx context.Context, hostID, roomID uint) error {
	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != hostID {
		return apperrors.New(apperrors.ErrNotRoomOwner)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
