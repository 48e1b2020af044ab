package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// OrderRepositoryTestSuite 订单仓储测试套件
type OrderRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	orderRepo  OrderRepository
	roomRepo   RoomRepository
	playerRepo PlayerRepository
	stockRepo  StockRepository

	room   *models.Room
	player *models.Player
	stock  *models.Stock
}

func (suite *OrderRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.orderRepo = NewOrderRepository(suite.db)
	suite.roomRepo = NewRoomRepository(suite.db)
	suite.playerRepo = NewPlayerRepository(suite.db)
	suite.stockRepo = NewStockRepository(suite.db)

	ctx := context.Background()
	suite.room = &models.Room{Code: "ORD234", TotalRounds: 10, InitialCash: 100, NumberOfStocks: 10}
	suite.Require().NoError(suite.roomRepo.Create(ctx, suite.room))

	suite.player = &models.Player{RoomID: suite.room.ID, Name: "下单手", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, suite.player))

	suite.stock = &models.Stock{RoomID: suite.room.ID, Name: "量子科技", Symbol: "QUANT", CurrentPrice: 50}
	suite.Require().NoError(suite.stockRepo.CreateBatch(ctx, []*models.Stock{suite.stock}))
}

func (suite *OrderRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *OrderRepositoryTestSuite) newBuyOrder(round int, qty int64) *models.Order {
	return &models.Order{
		RoomID:              suite.room.ID,
		PlayerID:            suite.player.ID,
		Round:               round,
		StockID:             &suite.stock.ID,
		Type:                models.OrderTypeBuy,
		RequestedQuantity:   qty,
		RequestedPriceTotal: qty * suite.stock.CurrentPrice,
	}
}

// TestOrderRepository_OnePerRound 测试每回合一单约束
func (suite *OrderRepositoryTestSuite) TestOrderRepository_OnePerRound() {
	ctx := context.Background()

	err := suite.orderRepo.Create(ctx, suite.newBuyOrder(1, 1))
	assert.NoError(suite.T(), err)

	// 同回合重复提交被唯一索引拒绝
	err = suite.orderRepo.Create(ctx, suite.newBuyOrder(1, 2))
	assert.Equal(suite.T(), apperrors.ErrDuplicateOrder, apperrors.GetCode(err))

	// 下一回合不受影响
	err = suite.orderRepo.Create(ctx, suite.newBuyOrder(2, 1))
	assert.NoError(suite.T(), err)
}

// TestOrderRepository_CancelAndResubmit 测试取消后可重新提交
func (suite *OrderRepositoryTestSuite) TestOrderRepository_CancelAndResubmit() {
	ctx := context.Background()

	first := suite.newBuyOrder(1, 1)
	suite.Require().NoError(suite.orderRepo.Create(ctx, first))

	err := suite.orderRepo.Cancel(ctx, first.ID, suite.player.ID)
	assert.NoError(suite.T(), err)

	found, err := suite.orderRepo.FindByID(ctx, first.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.OrderStatusCancelled, found.Status)
	assert.Nil(suite.T(), found.Active)

	// 取消释放了唯一索引占位
	err = suite.orderRepo.Create(ctx, suite.newBuyOrder(1, 3))
	assert.NoError(suite.T(), err)

	// 已取消的订单不能再次取消
	err = suite.orderRepo.Cancel(ctx, first.ID, suite.player.ID)
	assert.Equal(suite.T(), apperrors.ErrOrderNotPending, apperrors.GetCode(err))

	// 不存在的订单
	err = suite.orderRepo.Cancel(ctx, 99999, suite.player.ID)
	assert.Equal(suite.T(), apperrors.ErrOrderNotFound, apperrors.GetCode(err))
}

// TestOrderRepository_CountDistinctPlayersActed 测试已行动玩家统计
func (suite *OrderRepositoryTestSuite) TestOrderRepository_CountDistinctPlayersActed() {
	ctx := context.Background()

	other := &models.Player{RoomID: suite.room.ID, Name: "观望者", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, other))

	count, err := suite.orderRepo.CountDistinctPlayersActed(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(0), count)

	first := suite.newBuyOrder(1, 1)
	suite.Require().NoError(suite.orderRepo.Create(ctx, first))

	// skip 订单也算已行动
	skip := &models.Order{
		RoomID:   suite.room.ID,
		PlayerID: other.ID,
		Round:    1,
		Type:     models.OrderTypeSkip,
	}
	suite.Require().NoError(suite.orderRepo.Create(ctx, skip))

	count, err = suite.orderRepo.CountDistinctPlayersActed(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), count)

	// 取消后不再计入
	suite.Require().NoError(suite.orderRepo.Cancel(ctx, first.ID, suite.player.ID))
	count, err = suite.orderRepo.CountDistinctPlayersActed(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), count)
}

// TestOrderRepository_FindPendingTrades 测试待执行订单按提交时间排序
func (suite *OrderRepositoryTestSuite) TestOrderRepository_FindPendingTrades() {
	ctx := context.Background()

	other := &models.Player{RoomID: suite.room.ID, Name: "后来者", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, other))

	first := suite.newBuyOrder(1, 1)
	suite.Require().NoError(suite.orderRepo.Create(ctx, first))

	// 保证 created_at 不同
	time.Sleep(10 * time.Millisecond)

	second := &models.Order{
		RoomID:            suite.room.ID,
		PlayerID:          other.ID,
		Round:             1,
		StockID:           &suite.stock.ID,
		Type:              models.OrderTypeSell,
		RequestedQuantity: 2,
	}
	suite.Require().NoError(suite.orderRepo.Create(ctx, second))

	// skip 订单不进入定价循环
	third := &models.Player{RoomID: suite.room.ID, Name: "跳过者", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, third))
	suite.Require().NoError(suite.orderRepo.Create(ctx, &models.Order{
		RoomID: suite.room.ID, PlayerID: third.ID, Round: 1, Type: models.OrderTypeSkip,
	}))

	trades, err := suite.orderRepo.FindPendingTrades(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	suite.Require().Len(trades, 2)
	assert.Equal(suite.T(), first.ID, trades[0].ID)
	assert.Equal(suite.T(), second.ID, trades[1].ID)
}

// TestOrderRepository_MarkSkipsExecuted 测试跳过订单批量结算
func (suite *OrderRepositoryTestSuite) TestOrderRepository_MarkSkipsExecuted() {
	ctx := context.Background()

	skip := &models.Order{
		RoomID:   suite.room.ID,
		PlayerID: suite.player.ID,
		Round:    1,
		Type:     models.OrderTypeSkip,
	}
	suite.Require().NoError(suite.orderRepo.Create(ctx, skip))

	suite.Require().NoError(suite.orderRepo.MarkSkipsExecuted(ctx, suite.room.ID, 1))

	found, err := suite.orderRepo.FindByID(ctx, skip.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.OrderStatusExecuted, found.Status)
}

func TestOrderRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryTestSuite))
}
