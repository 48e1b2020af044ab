package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// HoldingRepositoryTestSuite 持仓仓储测试套件
type HoldingRepositoryTestSuite struct {
	suite.Suite
	db          *gorm.DB
	holdingRepo HoldingRepository
	roomRepo    RoomRepository
	playerRepo  PlayerRepository
	stockRepo   StockRepository

	room   *models.Room
	player *models.Player
	stock  *models.Stock
}

func (suite *HoldingRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.holdingRepo = NewHoldingRepository(suite.db)
	suite.roomRepo = NewRoomRepository(suite.db)
	suite.playerRepo = NewPlayerRepository(suite.db)
	suite.stockRepo = NewStockRepository(suite.db)

	ctx := context.Background()
	suite.room = &models.Room{Code: "HLD234", TotalRounds: 10, InitialCash: 100, NumberOfStocks: 10}
	suite.Require().NoError(suite.roomRepo.Create(ctx, suite.room))

	suite.player = &models.Player{RoomID: suite.room.ID, Name: "持仓者", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, suite.player))

	suite.stock = &models.Stock{RoomID: suite.room.ID, Name: "梦境实验室", Symbol: "DRM", CurrentPrice: 30}
	suite.Require().NoError(suite.stockRepo.CreateBatch(ctx, []*models.Stock{suite.stock}))
}

func (suite *HoldingRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestHoldingRepository_AddQuantity 测试增持的插入和累加
func (suite *HoldingRepositoryTestSuite) TestHoldingRepository_AddQuantity() {
	ctx := context.Background()

	// 首次增持插入新行
	err := suite.holdingRepo.AddQuantity(ctx, suite.room.ID, suite.player.ID, suite.stock.ID, 3)
	assert.NoError(suite.T(), err)

	// 再次增持走冲突累加
	err = suite.holdingRepo.AddQuantity(ctx, suite.room.ID, suite.player.ID, suite.stock.ID, 2)
	assert.NoError(suite.T(), err)

	holding, err := suite.holdingRepo.FindByPlayerAndStock(ctx, suite.player.ID, suite.stock.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(holding)
	assert.Equal(suite.T(), int64(5), holding.Quantity)

	// 非正增量被拒绝
	err = suite.holdingRepo.AddQuantity(ctx, suite.room.ID, suite.player.ID, suite.stock.ID, 0)
	assert.Equal(suite.T(), apperrors.ErrInvalidParam, apperrors.GetCode(err))
}

// TestHoldingRepository_DeductQuantity 测试减持守卫和清零删除
func (suite *HoldingRepositoryTestSuite) TestHoldingRepository_DeductQuantity() {
	ctx := context.Background()

	suite.Require().NoError(
		suite.holdingRepo.AddQuantity(ctx, suite.room.ID, suite.player.ID, suite.stock.ID, 5))

	// 超出持仓的减持被拒绝
	err := suite.holdingRepo.DeductQuantity(ctx, suite.player.ID, suite.stock.ID, 6)
	assert.Equal(suite.T(), apperrors.ErrInvalidOrder, apperrors.GetCode(err))

	// 部分减持
	suite.Require().NoError(suite.holdingRepo.DeductQuantity(ctx, suite.player.ID, suite.stock.ID, 2))
	holding, err := suite.holdingRepo.FindByPlayerAndStock(ctx, suite.player.ID, suite.stock.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), holding.Quantity)

	// 全部卖出后持仓行被删除
	suite.Require().NoError(suite.holdingRepo.DeductQuantity(ctx, suite.player.ID, suite.stock.ID, 3))
	holding, err = suite.holdingRepo.FindByPlayerAndStock(ctx, suite.player.ID, suite.stock.ID)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), holding)
}

// TestHoldingRepository_TotalByStock 测试房间内流通量统计
func (suite *HoldingRepositoryTestSuite) TestHoldingRepository_TotalByStock() {
	ctx := context.Background()

	other := &models.Player{RoomID: suite.room.ID, Name: "二号持仓者", Cash: 100}
	suite.Require().NoError(suite.playerRepo.Create(ctx, other))

	second := &models.Stock{RoomID: suite.room.ID, Name: "太空矿业", Symbol: "SPACE", CurrentPrice: 80}
	suite.Require().NoError(suite.stockRepo.CreateBatch(ctx, []*models.Stock{second}))

	suite.Require().NoError(suite.holdingRepo.AddQuantity(ctx, suite.room.ID, suite.player.ID, suite.stock.ID, 4))
	suite.Require().NoError(suite.holdingRepo.AddQuantity(ctx, suite.room.ID, other.ID, suite.stock.ID, 6))
	suite.Require().NoError(suite.holdingRepo.AddQuantity(ctx, suite.room.ID, other.ID, second.ID, 1))

	totals, err := suite.holdingRepo.TotalByStock(ctx, suite.room.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(10), totals[suite.stock.ID])
	assert.Equal(suite.T(), int64(1), totals[second.ID])
}

// TestStockRepository_ApplyEventDelta 测试事件增量与快照
func (suite *HoldingRepositoryTestSuite) TestStockRepository_ApplyEventDelta() {
	ctx := context.Background()

	// 价格事件写入快照并保持下限
	err := suite.stockRepo.ApplyEventDelta(ctx, suite.stock.ID, models.EffectPriceChange, -100)
	suite.Require().NoError(err)

	stock, err := suite.stockRepo.FindByID(ctx, suite.stock.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), stock.CurrentPrice)
	suite.Require().NotNil(stock.PreviousPrice)
	assert.Equal(suite.T(), int64(30), *stock.PreviousPrice)

	// 股息事件下限为0
	err = suite.stockRepo.ApplyEventDelta(ctx, suite.stock.ID, models.EffectDividendChange, -5)
	suite.Require().NoError(err)

	stock, err = suite.stockRepo.FindByID(ctx, suite.stock.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(0), stock.DividendAmount)
}

func TestHoldingRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(HoldingRepositoryTestSuite))
}
