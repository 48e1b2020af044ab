package game

import (
	"context"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"github.com/wfunc/party-market/internal/repository"
	"go.uber.org/zap"
)

// TradeResult 单笔订单的执行结果
type TradeResult struct {
	OrderID     uint               `json:"order_id"`
	PlayerID    uint               `json:"player_id"`
	StockID     uint               `json:"stock_id"`
	Type        models.OrderType   `json:"type"`
	Status      models.OrderStatus `json:"status"`
	Quantity    int64              `json:"quantity"`
	PriceTotal  int64              `json:"price_total"`
	PriceBefore int64              `json:"price_before"`
	PriceAfter  int64              `json:"price_after"`
}

// OrderExecutor 订单执行器
//
// 回合内的订单严格按提交时间逐笔执行，前一笔对价格的冲击
// 会影响后一笔的成交价。流通总量在本轮开始时快照一次，
// 执行过程中的买卖不改变市场深度。
type OrderExecutor struct {
	priceModel *PriceModel
	logger     *zap.Logger
}

// NewOrderExecutor 创建订单执行器
func NewOrderExecutor(priceModel *PriceModel, logger *zap.Logger) *OrderExecutor {
	return &OrderExecutor{
		priceModel: priceModel,
		logger:     logger,
	}
}

// Execute 执行房间某回合的全部待处理订单
//
// 买单：以预算内能买到的最大数量成交，允许部分成交，
// 一股都买不起时订单失败。
// 卖单：最多卖出实际持仓数量，持仓为零时订单失败。
// 失败订单不影响价格。
func (e *OrderExecutor) Execute(ctx context.Context, repos *repository.Manager, roomID uint, round int) ([]*TradeResult, error) {
	// skip 订单直接结算，不进入定价循环
	if err := repos.Order().MarkSkipsExecuted(ctx, roomID, round); err != nil {
		return nil, err
	}

	orders, err := repos.Order().FindPendingTrades(ctx, roomID, round)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	stocks, err := repos.Stock().FindByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	stockByID := make(map[uint]*models.Stock, len(stocks))
	for _, s := range stocks {
		stockByID[s.ID] = s
	}

	// 流通量快照，整轮共用
	totals, err := repos.Holding().TotalByStock(ctx, roomID)
	if err != nil {
		return nil, err
	}

	results := make([]*TradeResult, 0, len(orders))
	for _, order := range orders {
		if order.StockID == nil {
			if err := e.failOrder(ctx, repos, order, 0); err != nil {
				return nil, err
			}
			results = append(results, resultOf(order, 0))
			continue
		}
		stock, ok := stockByID[*order.StockID]
		if !ok {
			if err := e.failOrder(ctx, repos, order, 0); err != nil {
				return nil, err
			}
			results = append(results, resultOf(order, 0))
			continue
		}

		var result *TradeResult
		switch order.Type {
		case models.OrderTypeBuy:
			result, err = e.executeBuy(ctx, repos, order, stock, totals[stock.ID])
		case models.OrderTypeSell:
			result, err = e.executeSell(ctx, repos, order, stock, totals[stock.ID])
		default:
			err = e.failOrder(ctx, repos, order, stock.CurrentPrice)
			result = resultOf(order, stock.CurrentPrice)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// executeBuy 执行买单
func (e *OrderExecutor) executeBuy(ctx context.Context, repos *repository.Manager,
	order *models.Order, stock *models.Stock, totalOwned int64) (*TradeResult, error) {

	price := stock.CurrentPrice

	// 预算以提交时锁定的金额为准，同时不超过玩家当前现金
	budget := order.RequestedPriceTotal
	player, err := repos.Player().FindByID(ctx, order.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.Cash < budget {
		budget = player.Cash
	}

	affordable := budget / price
	executed := order.RequestedQuantity
	if affordable < executed {
		executed = affordable
	}

	if executed <= 0 {
		if err := e.failOrder(ctx, repos, order, price); err != nil {
			return nil, err
		}
		return resultOf(order, price), nil
	}

	cost := executed * price
	if err := repos.Player().DeductCash(ctx, order.PlayerID, cost); err != nil {
		return nil, err
	}
	if err := repos.Holding().AddQuantity(ctx, order.RoomID, order.PlayerID, stock.ID, executed); err != nil {
		return nil, err
	}

	newPrice := e.priceModel.NextPrice(price, executed, totalOwned, true)
	if err := repos.Stock().UpdatePrice(ctx, stock.ID, newPrice); err != nil {
		return nil, err
	}
	// 价格在内存中同步前进，后续订单以新价格成交
	stock.CurrentPrice = newPrice

	order.Status = models.OrderStatusExecuted
	order.ExecutionQuantity = executed
	order.ExecutionPriceTotal = cost
	order.StockPriceBefore = &price
	order.StockPriceAfter = &newPrice
	if err := repos.Order().UpdateExecution(ctx, order); err != nil {
		return nil, err
	}

	e.logger.Info("买单成交",
		zap.Uint("order_id", order.ID),
		zap.Uint("player_id", order.PlayerID),
		zap.String("symbol", stock.Symbol),
		zap.Int64("quantity", executed),
		zap.Int64("cost", cost),
		zap.Int64("price_before", price),
		zap.Int64("price_after", newPrice))

	return resultOf(order, price), nil
}

// executeSell 执行卖单
func (e *OrderExecutor) executeSell(ctx context.Context, repos *repository.Manager,
	order *models.Order, stock *models.Stock, totalOwned int64) (*TradeResult, error) {

	price := stock.CurrentPrice

	var held int64
	holding, err := repos.Holding().FindByPlayerAndStock(ctx, order.PlayerID, stock.ID)
	if err != nil {
		return nil, err
	}
	if holding != nil {
		held = holding.Quantity
	}

	executed := order.RequestedQuantity
	if held < executed {
		executed = held
	}

	if executed <= 0 {
		if err := e.failOrder(ctx, repos, order, price); err != nil {
			return nil, err
		}
		return resultOf(order, price), nil
	}

	proceeds := executed * price
	if err := repos.Holding().DeductQuantity(ctx, order.PlayerID, stock.ID, executed); err != nil {
		return nil, err
	}
	if err := repos.Player().AddCash(ctx, order.PlayerID, proceeds); err != nil {
		return nil, err
	}

	newPrice := e.priceModel.NextPrice(price, executed, totalOwned, false)
	if err := repos.Stock().UpdatePrice(ctx, stock.ID, newPrice); err != nil {
		return nil, err
	}
	stock.CurrentPrice = newPrice

	order.Status = models.OrderStatusExecuted
	order.ExecutionQuantity = executed
	order.ExecutionPriceTotal = proceeds
	order.StockPriceBefore = &price
	order.StockPriceAfter = &newPrice
	if err := repos.Order().UpdateExecution(ctx, order); err != nil {
		return nil, err
	}

	e.logger.Info("卖单成交",
		zap.Uint("order_id", order.ID),
		zap.Uint("player_id", order.PlayerID),
		zap.String("symbol", stock.Symbol),
		zap.Int64("quantity", executed),
		zap.Int64("proceeds", proceeds),
		zap.Int64("price_before", price),
		zap.Int64("price_after", newPrice))

	return resultOf(order, price), nil
}

// failOrder 订单失败结算，价格不受影响
func (e *OrderExecutor) failOrder(ctx context.Context, repos *repository.Manager,
	order *models.Order, price int64) error {

	order.Status = models.OrderStatusFailed
	order.ExecutionQuantity = 0
	order.ExecutionPriceTotal = 0
	if price > 0 {
		order.StockPriceBefore = &price
		order.StockPriceAfter = &price
	}
	if err := repos.Order().UpdateExecution(ctx, order); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrTransaction, "订单失败结算写入失败: %d", order.ID)
	}

	e.logger.Info("订单失败",
		zap.Uint("order_id", order.ID),
		zap.Uint("player_id", order.PlayerID),
		zap.String("type", string(order.Type)))
	return nil
}

func resultOf(order *models.Order, priceBefore int64) *TradeResult {
	result := &TradeResult{
		OrderID:    order.ID,
		PlayerID:   order.PlayerID,
		Type:       order.Type,
		Status:     order.Status,
		Quantity:   order.ExecutionQuantity,
		PriceTotal: order.ExecutionPriceTotal,
	}
	if order.StockID != nil {
		result.StockID = *order.StockID
	}
	if order.StockPriceBefore != nil {
		result.PriceBefore = *order.StockPriceBefore
	} else {
		result.PriceBefore = priceBefore
	}
	if order.StockPriceAfter != nil {
		result.PriceAfter = *order.StockPriceAfter
	} else {
		result.PriceAfter = priceBefore
	}
	return result
}
