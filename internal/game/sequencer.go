package game

import (
	"context"
	"math/rand"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"go.uber.org/zap"
)

// AdvanceResult 推进一次后的房间进度和本次产生的结算
type AdvanceResult struct {
	Status models.RoomStatus `json:"status"`
	Phase  models.RoomPhase  `json:"phase"`
	Round  int               `json:"round"`

	Event   *models.Event     `json:"event,omitempty"`
	Trades  []*TradeResult    `json:"trades,omitempty"`
	Payouts []*DividendPayout `json:"payouts,omitempty"`
}

// PhaseSequencer 房间状态机
//
// 固定循环：submitting_orders → revealing_event → executing_orders →
// paying_dividends → 下一回合 submitting_orders；最后一回合结束后进入
// FINISHED。这是全局唯一允许写 current_phase / current_round 的地方。
//
// 并发防护分两层：进程内的房间粒度互斥锁把同房间的推进串行化，
// 数据库层的条件更新（以当前阶段和回合为前提）保证多实例部署时
// 同一次转换也只会生效一次，输家收到 ErrPhaseConflict。
type PhaseSequencer struct {
	repos     *repository.Manager
	events    *EventEngine
	executor  *OrderExecutor
	dividends *DividendDistributor
	locks     *roomLocks
	logger    *zap.Logger
}

// NewPhaseSequencer 创建状态机
func NewPhaseSequencer(repos *repository.Manager, events *EventEngine,
	executor *OrderExecutor, dividends *DividendDistributor, logger *zap.Logger) *PhaseSequencer {
	return &PhaseSequencer{
		repos:     repos,
		events:    events,
		executor:  executor,
		dividends: dividends,
		locks:     newRoomLocks(),
		logger:    logger,
	}
}

// Start 开局：抽取股票、发放初始资金、生成第1回合事件并进入提交阶段
//
// 重复调用安全：股票只在首次开局时抽取，事件生成受唯一索引保护，
// 最终的状态写入是条件更新，第二个调用方会收到 ErrPhaseConflict。
func (s *PhaseSequencer) Start(ctx context.Context, roomID uint) (*AdvanceResult, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsFinished() {
		return nil, apperrors.New(apperrors.ErrRoomFinished)
	}
	if !room.IsWaiting() {
		return nil, apperrors.New(apperrors.ErrRoomInProgress)
	}

	playerCount, err := s.repos.Player().CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if playerCount < 2 {
		return nil, apperrors.Newf(apperrors.ErrNotEnoughPlayers, "当前 %d 人", playerCount)
	}

	existing, err := s.repos.Stock().FindByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		stocks := DrawStocks(room.ID, room.NumberOfStocks,
			rand.New(rand.NewSource(room.TemplateSeed)))
		err = s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
			if err := tx.Stock().CreateBatch(ctx, stocks); err != nil {
				return err
			}
			return tx.Player().InitializeCash(ctx, room.ID, room.InitialCash)
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.events.Generate(ctx, s.repos, room, 1); err != nil {
		if !apperrors.Is(err, apperrors.ErrEventExists) {
			return nil, err
		}
	}

	err = s.repos.Room().AdvanceCAS(ctx, room.ID,
		models.PhaseWaiting, room.CurrentRound,
		models.RoomStatusInProgress, models.PhaseSubmittingOrders, 1)
	if err != nil {
		return nil, err
	}

	s.logger.Info("游戏开始",
		zap.Uint("room_id", room.ID),
		zap.Int64("players", playerCount),
		zap.Int("total_rounds", room.TotalRounds))
	return &AdvanceResult{
		Status: models.RoomStatusInProgress,
		Phase:  models.PhaseSubmittingOrders,
		Round:  1,
	}, nil
}

// Advance 把房间往前推进一个阶段
//
// 当前阶段的出口动作和阶段写入在同一个事务里提交，
// 出口动作失败时阶段不动，下次调用从头重试整个动作。
func (s *PhaseSequencer) Advance(ctx context.Context, roomID uint) (*AdvanceResult, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.repos.Room().FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsFinished() {
		return nil, apperrors.New(apperrors.ErrRoomFinished)
	}
	if !room.IsInProgress() {
		return nil, apperrors.New(apperrors.ErrRoomNotInProgress)
	}

	switch room.CurrentPhase {
	case models.PhaseSubmittingOrders:
		return s.leaveSubmitting(ctx, room)
	case models.PhaseRevealingEvent:
		return s.leaveRevealing(ctx, room)
	case models.PhaseExecutingOrders:
		return s.leaveExecuting(ctx, room)
	case models.PhasePayingDividends:
		return s.leavePayingDividends(ctx, room)
	default:
		return nil, apperrors.Newf(apperrors.ErrWrongPhase, "阶段 %s 不可推进", room.CurrentPhase)
	}
}

// leaveSubmitting 提交阶段出口：所有玩家都已行动才放行
// 进入揭示阶段时事件对玩家可见，效果仍然保密
func (s *PhaseSequencer) leaveSubmitting(ctx context.Context, room *models.Room) (*AdvanceResult, error) {
	playerCount, err := s.repos.Player().CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if playerCount == 0 {
		return nil, apperrors.New(apperrors.ErrNotEnoughPlayers)
	}
	acted, err := s.repos.Order().CountDistinctPlayersActed(ctx, room.ID, room.CurrentRound)
	if err != nil {
		return nil, err
	}
	if acted < playerCount {
		return nil, apperrors.Newf(apperrors.ErrNotAllPlayersActed,
			"%d/%d 名玩家已行动", acted, playerCount)
	}

	var event *models.Event
	err = s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
		event, err = s.events.Reveal(ctx, tx, room.ID, room.CurrentRound)
		if err != nil {
			return err
		}
		return tx.Room().AdvanceCAS(ctx, room.ID,
			models.PhaseSubmittingOrders, room.CurrentRound,
			models.RoomStatusInProgress, models.PhaseRevealingEvent, room.CurrentRound)
	})
	if err != nil {
		return nil, err
	}

	s.logPhase(room.ID, models.PhaseRevealingEvent, room.CurrentRound)
	return &AdvanceResult{
		Status: models.RoomStatusInProgress,
		Phase:  models.PhaseRevealingEvent,
		Round:  room.CurrentRound,
		Event:  event,
	}, nil
}

// leaveRevealing 揭示阶段出口：结算事件效果
func (s *PhaseSequencer) leaveRevealing(ctx context.Context, room *models.Room) (*AdvanceResult, error) {
	var event *models.Event
	err := s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
		var err error
		event, err = s.events.ApplyEffects(ctx, tx, room.ID, room.CurrentRound)
		if err != nil {
			return err
		}
		return tx.Room().AdvanceCAS(ctx, room.ID,
			models.PhaseRevealingEvent, room.CurrentRound,
			models.RoomStatusInProgress, models.PhaseExecutingOrders, room.CurrentRound)
	})
	if err != nil {
		return nil, err
	}

	s.logPhase(room.ID, models.PhaseExecutingOrders, room.CurrentRound)
	return &AdvanceResult{
		Status: models.RoomStatusInProgress,
		Phase:  models.PhaseExecutingOrders,
		Round:  room.CurrentRound,
		Event:  event,
	}, nil
}

// leaveExecuting 执行阶段出口：按提交顺序结算全部订单
func (s *PhaseSequencer) leaveExecuting(ctx context.Context, room *models.Room) (*AdvanceResult, error) {
	var trades []*TradeResult
	err := s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
		var err error
		trades, err = s.executor.Execute(ctx, tx, room.ID, room.CurrentRound)
		if err != nil {
			return err
		}
		return tx.Room().AdvanceCAS(ctx, room.ID,
			models.PhaseExecutingOrders, room.CurrentRound,
			models.RoomStatusInProgress, models.PhasePayingDividends, room.CurrentRound)
	})
	if err != nil {
		return nil, err
	}

	s.logPhase(room.ID, models.PhasePayingDividends, room.CurrentRound)
	return &AdvanceResult{
		Status: models.RoomStatusInProgress,
		Phase:  models.PhasePayingDividends,
		Round:  room.CurrentRound,
		Trades: trades,
	}, nil
}

// leavePayingDividends 派息阶段出口：派息并进入下一回合或终局
//
// 下一回合的事件在事务外先行生成：事件生成可能走外部接口，
// 不能占着数据库事务；唯一索引保证重试时不会生成第二个。
func (s *PhaseSequencer) leavePayingDividends(ctx context.Context, room *models.Room) (*AdvanceResult, error) {
	gameOver := room.IsLastRound()

	if !gameOver {
		nextRound := room.CurrentRound + 1
		if _, err := s.events.Generate(ctx, s.repos, room, nextRound); err != nil {
			if !apperrors.Is(err, apperrors.ErrEventExists) {
				return nil, err
			}
		}
	}

	var payouts []*DividendPayout
	toStatus := models.RoomStatusInProgress
	toPhase := models.PhaseSubmittingOrders
	toRound := room.CurrentRound + 1
	if gameOver {
		toStatus = models.RoomStatusFinished
		toPhase = models.PhaseWaiting
		toRound = room.CurrentRound
	}

	err := s.repos.WithTransaction(ctx, func(tx *repository.Manager) error {
		var err error
		payouts, err = s.dividends.PayAll(ctx, tx, room.ID)
		if err != nil {
			return err
		}
		return tx.Room().AdvanceCAS(ctx, room.ID,
			models.PhasePayingDividends, room.CurrentRound,
			toStatus, toPhase, toRound)
	})
	if err != nil {
		return nil, err
	}

	if gameOver {
		s.logger.Info("游戏结束",
			zap.Uint("room_id", room.ID),
			zap.Int("rounds", room.CurrentRound))
	} else {
		s.logPhase(room.ID, toPhase, toRound)
	}

	return &AdvanceResult{
		Status:  toStatus,
		Phase:   toPhase,
		Round:   toRound,
		Payouts: payouts,
	}, nil
}

func (s *PhaseSequencer) logPhase(roomID uint, phase models.RoomPhase, round int) {
	s.logger.Info("房间推进",
		zap.Uint("room_id", roomID),
		zap.String("phase", string(phase)),
		zap.Int("round", round))
}
