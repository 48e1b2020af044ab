package game

import (
	"context"

	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"go.uber.org/zap"
)

// DividendPayout 单个玩家的股息结算结果
type DividendPayout struct {
	PlayerID uint  `json:"player_id"`
	Amount   int64 `json:"amount"`
}

// DividendDistributor 股息分配器
// 回合末按持仓数量乘以每股股息给所有玩家派息，
// 同时写入玩家的上回合现金/净值快照。
type DividendDistributor struct {
	logger *zap.Logger
}

// NewDividendDistributor 创建股息分配器
func NewDividendDistributor(logger *zap.Logger) *DividendDistributor {
	return &DividendDistributor{logger: logger}
}

// PayAll 给房间内所有玩家派息
// 零持仓和零股息的组合自然派0，不产生记录
func (d *DividendDistributor) PayAll(ctx context.Context, repos *repository.Manager, roomID uint) ([]*DividendPayout, error) {
	stocks, err := repos.Stock().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	dividendByStock := make(map[uint]int64, len(stocks))
	priceByStock := make(map[uint]int64, len(stocks))
	for _, s := range stocks {
		dividendByStock[s.ID] = s.DividendAmount
		priceByStock[s.ID] = s.CurrentPrice
	}

	players, err := repos.Player().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	holdings, err := repos.Holding().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	holdingsByPlayer := make(map[uint][]*models.Holding)
	for _, h := range holdings {
		holdingsByPlayer[h.PlayerID] = append(holdingsByPlayer[h.PlayerID], h)
	}

	payouts := make([]*DividendPayout, 0, len(players))
	for _, player := range players {
		var amount, stockValue int64
		for _, h := range holdingsByPlayer[player.ID] {
			amount += h.Quantity * dividendByStock[h.StockID]
			stockValue += h.Quantity * priceByStock[h.StockID]
		}

		// 派息前的现金/净值作为下回合的对比基线
		if err := repos.Player().UpdateSnapshots(ctx, player.ID, player.Cash, player.Cash+stockValue); err != nil {
			return nil, err
		}

		if amount > 0 {
			if err := repos.Player().AddCash(ctx, player.ID, amount); err != nil {
				return nil, err
			}
			payouts = append(payouts, &DividendPayout{PlayerID: player.ID, Amount: amount})
		}
	}

	d.logger.Info("股息派发完成",
		zap.Uint("room_id", roomID),
		zap.Int("payouts", len(payouts)))
	return payouts, nil
}
