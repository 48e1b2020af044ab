package game

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"go.uber.org/zap"
)

// stubGenerator 固定产出两条价格效果的生成器
type stubGenerator struct {
	fail bool
}

func (g *stubGenerator) Generate(ctx context.Context, input *GeneratorInput) (*EventDraft, error) {
	if g.fail {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "测试用失败")
	}
	return &EventDraft{
		Title:       "Test Turbulence",
		Description: "Something stirs in the test market",
		Effects: models.EffectList{
			{Type: models.EffectPriceChange, StockID: input.Stocks[0].ID, Amount: 10},
			{Type: models.EffectDividendChange, StockID: input.Stocks[0].ID, Amount: 2},
		},
	}, nil
}

func newTestSequencer(t *testing.T, totalRounds int, generator Generator) (*PhaseSequencer, *repository.Manager, *models.Room) {
	t.Helper()
	repos := repository.NewManager(repository.SetupTestDB())

	room := &models.Room{
		Code: "SEQ234", TotalRounds: totalRounds,
		InitialCash: 100, NumberOfStocks: 3, TemplateSeed: 42,
	}
	require.NoError(t, repos.Room().Create(context.Background(), room))

	seq := NewPhaseSequencer(repos,
		NewEventEngine(generator, zap.NewNop()),
		NewOrderExecutor(NewPriceModel(1.0, 1.0, rand.New(rand.NewSource(1))), zap.NewNop()),
		NewDividendDistributor(zap.NewNop()),
		zap.NewNop())
	return seq, repos, room
}

func submitSkips(t *testing.T, repos *repository.Manager, roomID uint, round int) {
	t.Helper()
	ctx := context.Background()
	players, err := repos.Player().FindByRoom(ctx, roomID)
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, repos.Order().Create(ctx, &models.Order{
			RoomID: roomID, PlayerID: p.ID, Round: round,
			Type: models.OrderTypeSkip,
		}))
	}
}

func TestPhaseSequencer_Start(t *testing.T) {
	seq, repos, room := newTestSequencer(t, 10, &stubGenerator{})
	ctx := context.Background()

	// 人数不足拒绝开局
	_, err := seq.Start(ctx, room.ID)
	assert.Equal(t, apperrors.ErrNotEnoughPlayers, apperrors.GetCode(err))

	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "甲"}))
	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "乙"}))

	result, err := seq.Start(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusInProgress, result.Status)
	assert.Equal(t, models.PhaseSubmittingOrders, result.Phase)
	assert.Equal(t, 1, result.Round)

	// 股票按房间设置抽取，玩家拿到初始资金
	stocks, err := repos.Stock().FindByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, stocks, 3)

	players, err := repos.Player().FindByRoom(ctx, room.ID)
	require.NoError(t, err)
	for _, p := range players {
		assert.Equal(t, int64(100), p.Cash)
	}

	// 第1回合事件已生成但未揭示
	event, err := repos.Event().FindByRoomRound(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.False(t, event.Revealed)
	assert.NotEmpty(t, event.Effects)

	// 重复开局拒绝
	_, err = seq.Start(ctx, room.ID)
	assert.Equal(t, apperrors.ErrRoomInProgress, apperrors.GetCode(err))
}

func TestPhaseSequencer_完整回合循环(t *testing.T) {
	seq, repos, room := newTestSequencer(t, 10, &stubGenerator{})
	ctx := context.Background()

	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "甲"}))
	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "乙"}))
	_, err := seq.Start(ctx, room.ID)
	require.NoError(t, err)

	// 没人行动时不能离开提交阶段
	_, err = seq.Advance(ctx, room.ID)
	assert.Equal(t, apperrors.ErrNotAllPlayersActed, apperrors.GetCode(err))

	submitSkips(t, repos, room.ID, 1)

	// 提交 → 揭示：事件可见但效果未结算
	stockBefore, err := repos.Stock().FindByRoom(ctx, room.ID)
	require.NoError(t, err)
	priceBefore := stockBefore[0].CurrentPrice

	result, err := seq.Advance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRevealingEvent, result.Phase)
	require.NotNil(t, result.Event)
	assert.True(t, result.Event.Revealed)

	stockAfterReveal, _ := repos.Stock().FindByRoom(ctx, room.ID)
	assert.Equal(t, priceBefore, stockAfterReveal[0].CurrentPrice)

	// 揭示 → 执行：效果此时落到股票上
	result, err = seq.Advance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseExecutingOrders, result.Phase)

	stockAfterApply, _ := repos.Stock().FindByRoom(ctx, room.ID)
	assert.Equal(t, priceBefore+10, stockAfterApply[0].CurrentPrice)
	assert.Equal(t, int64(2), stockAfterApply[0].DividendAmount)

	// 执行 → 派息
	result, err = seq.Advance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhasePayingDividends, result.Phase)

	// 派息 → 下一回合提交，事件提前生成
	result, err = seq.Advance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSubmittingOrders, result.Phase)
	assert.Equal(t, 2, result.Round)

	event, err := repos.Event().FindByRoomRound(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.False(t, event.Revealed)
}

func TestPhaseSequencer_最后一回合结束游戏(t *testing.T) {
	seq, repos, room := newTestSequencer(t, 1, &stubGenerator{})
	ctx := context.Background()

	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "甲"}))
	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "乙"}))
	_, err := seq.Start(ctx, room.ID)
	require.NoError(t, err)

	submitSkips(t, repos, room.ID, 1)
	for i := 0; i < 3; i++ {
		_, err = seq.Advance(ctx, room.ID)
		require.NoError(t, err)
	}

	// 派息阶段出口触发终局：回合数不变，不再生成事件
	result, err := seq.Advance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFinished, result.Status)
	assert.Equal(t, models.PhaseWaiting, result.Phase)
	assert.Equal(t, 1, result.Round)

	_, err = repos.Event().FindByRoomRound(ctx, room.ID, 2)
	assert.Equal(t, apperrors.ErrEventNotFound, apperrors.GetCode(err))

	// 结束后不能再推进
	_, err = seq.Advance(ctx, room.ID)
	assert.Equal(t, apperrors.ErrRoomFinished, apperrors.GetCode(err))
}

func TestPhaseSequencer_生成器失败时兜底(t *testing.T) {
	seq, repos, room := newTestSequencer(t, 10, &stubGenerator{fail: true})
	ctx := context.Background()

	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "甲"}))
	require.NoError(t, repos.Player().Create(ctx, &models.Player{RoomID: room.ID, Name: "乙"}))
	_, err := seq.Start(ctx, room.ID)
	require.NoError(t, err)

	// 兜底事件没有效果，但完整的回合循环照常走通
	event, err := repos.Event().FindByRoomRound(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, event.Effects)

	submitSkips(t, repos, room.ID, 1)
	for i := 0; i < 4; i++ {
		_, err = seq.Advance(ctx, room.ID)
		require.NoError(t, err)
	}

	found, err := repos.Room().FindByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.CurrentRound)
	assert.Equal(t, models.PhaseSubmittingOrders, found.CurrentPhase)
}

func TestPhaseSequencer_等待中的房间不可推进(t *testing.T) {
	seq, _, room := newTestSequencer(t, 10, &stubGenerator{})

	_, err := seq.Advance(context.Background(), room.ID)
	assert.Equal(t, apperrors.ErrRoomNotInProgress, apperrors.GetCode(err))
}
