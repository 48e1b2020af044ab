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

// EventRepositoryTestSuite 事件仓储测试套件
type EventRepositoryTestSuite struct {
	suite.Suite
	db        *gorm.DB
	eventRepo EventRepository
	roomRepo  RoomRepository

	room *models.Room
}

func (suite *EventRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.eventRepo = NewEventRepository(suite.db)
	suite.roomRepo = NewRoomRepository(suite.db)

	ctx := context.Background()
	suite.room = &models.Room{Code: "EVT234", TotalRounds: 10, InitialCash: 100, NumberOfStocks: 10}
	suite.Require().NoError(suite.roomRepo.Create(ctx, suite.room))
}

func (suite *EventRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestEventRepository_OnePerRound 测试每回合只有一个事件
func (suite *EventRepositoryTestSuite) TestEventRepository_OnePerRound() {
	ctx := context.Background()

	event := &models.Event{
		RoomID:      suite.room.ID,
		Round:       1,
		Title:       "监管风暴",
		Description: "监管机构突袭检查整个板块",
		Effects: models.EffectList{
			{Type: models.EffectPriceChange, StockID: 1, Amount: -10},
			{Type: models.EffectDividendChange, StockID: 2, Amount: 2},
		},
	}
	assert.NoError(suite.T(), suite.eventRepo.Create(ctx, event))

	dup := &models.Event{RoomID: suite.room.ID, Round: 1, Title: "重复事件"}
	err := suite.eventRepo.Create(ctx, dup)
	assert.Equal(suite.T(), apperrors.ErrEventExists, apperrors.GetCode(err))

	// 其他回合不受影响
	next := &models.Event{RoomID: suite.room.ID, Round: 2, Title: "风平浪静"}
	assert.NoError(suite.T(), suite.eventRepo.Create(ctx, next))
}

// TestEventRepository_RevealAndSanitize 测试揭示前隐藏效果
func (suite *EventRepositoryTestSuite) TestEventRepository_RevealAndSanitize() {
	ctx := context.Background()

	event := &models.Event{
		RoomID:      suite.room.ID,
		Round:       1,
		Title:       "病毒式传播",
		Description: "一段演示视频一夜之间刷爆全网",
		Effects: models.EffectList{
			{Type: models.EffectPriceChange, StockID: 1, Amount: 25},
		},
	}
	suite.Require().NoError(suite.eventRepo.Create(ctx, event))

	found, err := suite.eventRepo.FindByRoomRound(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	assert.False(suite.T(), found.Revealed)

	// 未揭示时脱敏视图不携带效果
	sanitized := found.Sanitized()
	assert.Equal(suite.T(), "病毒式传播", sanitized.Title)
	assert.Empty(suite.T(), sanitized.Effects)

	// 揭示后原样返回
	suite.Require().NoError(suite.eventRepo.MarkRevealed(ctx, found.ID))
	found, err = suite.eventRepo.FindByRoomRound(ctx, suite.room.ID, 1)
	suite.Require().NoError(err)
	assert.True(suite.T(), found.Revealed)
	assert.Len(suite.T(), found.Sanitized().Effects, 1)

	// 重复揭示幂等
	assert.NoError(suite.T(), suite.eventRepo.MarkRevealed(ctx, found.ID))
}

// TestEventRepository_NotFound 测试缺失回合
func (suite *EventRepositoryTestSuite) TestEventRepository_NotFound() {
	_, err := suite.eventRepo.FindByRoomRound(context.Background(), suite.room.ID, 7)
	assert.Equal(suite.T(), apperrors.ErrEventNotFound, apperrors.GetCode(err))
}

func TestEventRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(EventRepositoryTestSuite))
}
