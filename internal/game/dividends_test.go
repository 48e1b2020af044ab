package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDividendDistributor_PayAll(t *testing.T) {
	w := newTestWorld(t, 50, 30)
	ctx := context.Background()

	// 股息：股票0每股3，股票1无股息
	require.NoError(t, w.repos.Stock().GetDB().Model(w.stocks[0]).Update("dividend_amount", 3).Error)

	rich := w.addPlayer(t, "大户", 100)
	poor := w.addPlayer(t, "散户", 100)
	empty := w.addPlayer(t, "空仓", 100)

	require.NoError(t, w.repos.Holding().AddQuantity(ctx, w.room.ID, rich.ID, w.stocks[0].ID, 5))
	require.NoError(t, w.repos.Holding().AddQuantity(ctx, w.room.ID, rich.ID, w.stocks[1].ID, 2))
	require.NoError(t, w.repos.Holding().AddQuantity(ctx, w.room.ID, poor.ID, w.stocks[0].ID, 1))

	payouts, err := NewDividendDistributor(zap.NewNop()).PayAll(ctx, w.repos, w.room.ID)
	require.NoError(t, err)

	// 空仓玩家没有派息记录
	require.Len(t, payouts, 2)
	byPlayer := make(map[uint]int64)
	for _, p := range payouts {
		byPlayer[p.PlayerID] = p.Amount
	}
	assert.Equal(t, int64(15), byPlayer[rich.ID])
	assert.Equal(t, int64(3), byPlayer[poor.ID])

	richNow, _ := w.repos.Player().FindByID(ctx, rich.ID)
	poorNow, _ := w.repos.Player().FindByID(ctx, poor.ID)
	emptyNow, _ := w.repos.Player().FindByID(ctx, empty.ID)
	assert.Equal(t, int64(115), richNow.Cash)
	assert.Equal(t, int64(103), poorNow.Cash)
	assert.Equal(t, int64(100), emptyNow.Cash)

	// 派息前的现金和净值写入了快照
	require.NotNil(t, richNow.PreviousCash)
	require.NotNil(t, richNow.PreviousNetWorth)
	assert.Equal(t, int64(100), *richNow.PreviousCash)
	assert.Equal(t, int64(100+5*50+2*30), *richNow.PreviousNetWorth)
}

func TestDividendDistributor_无持仓房间(t *testing.T) {
	w := newTestWorld(t, 10)
	w.addPlayer(t, "独行侠", 100)

	payouts, err := NewDividendDistributor(zap.NewNop()).PayAll(context.Background(), w.repos, w.room.ID)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}
