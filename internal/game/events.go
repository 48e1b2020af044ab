package game

import (
	"context"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"go.uber.org/zap"
)

// EventEngine 事件引擎
//
// 负责每回合事件的生成、揭示和效果结算。生成器失败时落库一个
// 无效果的兜底事件，保证回合循环永远能推进。
type EventEngine struct {
	generator Generator
	logger    *zap.Logger
}

// NewEventEngine 创建事件引擎
func NewEventEngine(generator Generator, logger *zap.Logger) *EventEngine {
	return &EventEngine{
		generator: generator,
		logger:    logger,
	}
}

// Generate 为指定回合生成事件
// 唯一索引保证每回合至多一个事件，重复生成返回 ErrEventExists
func (e *EventEngine) Generate(ctx context.Context, repos *repository.Manager, room *models.Room, round int) (*models.Event, error) {
	input, err := e.buildInput(ctx, repos, room, round)
	if err != nil {
		return nil, err
	}

	draft, err := e.generator.Generate(ctx, input)
	if err != nil {
		// 生成失败不阻塞游戏，落库无效果的平静事件
		e.logger.Warn("事件生成失败，使用兜底事件",
			zap.Uint("room_id", room.ID),
			zap.Int("round", round),
			zap.Error(err))
		draft = &EventDraft{
			Title:       "A Quiet Day on the Market",
			Description: "Traders stare at their screens. Nothing happens. Suspicious.",
			Effects:     models.EffectList{},
		}
	}

	for _, effect := range draft.Effects {
		if err := effect.Validate(); err != nil {
			return nil, err
		}
	}

	event := &models.Event{
		RoomID:      room.ID,
		Round:       round,
		Title:       draft.Title,
		Description: draft.Description,
		Effects:     draft.Effects,
		Revealed:    false,
	}
	if err := repos.Event().Create(ctx, event); err != nil {
		return nil, err
	}

	e.logger.Info("事件已生成",
		zap.Uint("room_id", room.ID),
		zap.Int("round", round),
		zap.String("title", event.Title),
		zap.Int("effects", len(event.Effects)))
	return event, nil
}

// Reveal 揭示当前回合事件
// 只翻转可见性，效果留到 ApplyEffects 结算。重复揭示幂等。
func (e *EventEngine) Reveal(ctx context.Context, repos *repository.Manager, roomID uint, round int) (*models.Event, error) {
	event, err := repos.Event().FindByRoomRound(ctx, roomID, round)
	if err != nil {
		return nil, err
	}
	if event.Revealed {
		return event, nil
	}

	if err := repos.Event().MarkRevealed(ctx, event.ID); err != nil {
		return nil, err
	}
	event.Revealed = true

	e.logger.Info("事件已揭示",
		zap.Uint("room_id", roomID),
		zap.Int("round", round),
		zap.String("title", event.Title))
	return event, nil
}

// ApplyEffects 结算当前回合事件的效果
//
// 价格效果写入 previous_price 快照后生效，价格下限1；
// 股息效果同理，下限0。增量是直接累加的，调用方必须保证
// 每个 (room, round) 至多调用一次，否则效果会翻倍。
func (e *EventEngine) ApplyEffects(ctx context.Context, repos *repository.Manager, roomID uint, round int) (*models.Event, error) {
	event, err := repos.Event().FindByRoomRound(ctx, roomID, round)
	if err != nil {
		return nil, err
	}

	for _, effect := range event.Effects {
		if err := repos.Stock().ApplyEventDelta(ctx, effect.StockID, effect.Type, effect.Amount); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrTransaction,
				"事件效果结算失败: event=%d stock=%d", event.ID, effect.StockID)
		}
	}

	e.logger.Info("事件效果已结算",
		zap.Uint("room_id", roomID),
		zap.Int("round", round),
		zap.Int("effects", len(event.Effects)))
	return event, nil
}

// buildInput 汇总生成器需要的局面信息
func (e *EventEngine) buildInput(ctx context.Context, repos *repository.Manager, room *models.Room, round int) (*GeneratorInput, error) {
	stocks, err := repos.Stock().FindByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	stockByID := make(map[uint]*models.Stock, len(stocks))
	for _, s := range stocks {
		stockByID[s.ID] = s
	}

	players, err := repos.Player().FindByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	holdings, err := repos.Holding().FindByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	holdingsByPlayer := make(map[uint][]*models.Holding)
	for _, h := range holdings {
		holdingsByPlayer[h.PlayerID] = append(holdingsByPlayer[h.PlayerID], h)
	}

	playerByID := make(map[uint]*models.Player, len(players))
	snapshots := make([]PlayerSnapshot, 0, len(players))
	for _, p := range players {
		playerByID[p.ID] = p
		snap := PlayerSnapshot{
			Name:     p.Name,
			Cash:     p.Cash,
			NetWorth: p.Cash,
			Holdings: make(map[string]int64),
		}
		for _, h := range holdingsByPlayer[p.ID] {
			stock, ok := stockByID[h.StockID]
			if !ok {
				continue
			}
			snap.Holdings[stock.Symbol] = h.Quantity
			snap.NetWorth += h.Quantity * stock.CurrentPrice
		}
		snapshots = append(snapshots, snap)
	}

	// 最近几个回合的已执行订单，时间倒序
	var orderSnaps []OrderSnapshot
	for r := round - 1; r >= 1 && r > round-4; r-- {
		orders, err := repos.Order().FindByRoomRound(ctx, room.ID, r)
		if err != nil {
			return nil, err
		}
		for i := len(orders) - 1; i >= 0; i-- {
			o := orders[i]
			if o.Status != models.OrderStatusExecuted || !o.IsTrade() || o.StockID == nil {
				continue
			}
			player, ok := playerByID[o.PlayerID]
			if !ok {
				continue
			}
			stock, ok := stockByID[*o.StockID]
			if !ok {
				continue
			}
			orderSnaps = append(orderSnaps, OrderSnapshot{
				PlayerName: player.Name,
				Type:       o.Type,
				Symbol:     stock.Symbol,
				Quantity:   o.ExecutionQuantity,
				Round:      o.Round,
			})
		}
	}

	events, err := repos.Event().FindByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	return &GeneratorInput{
		Round:       round,
		TotalRounds: room.TotalRounds,
		Stocks:      stocks,
		Players:     snapshots,
		Orders:      orderSnaps,
		Events:      events,
	}, nil
}
