package service

import (
	"math/rand"
	"time"

	"github.com/wfunc/party-market/internal/config"
	"github.com/wfunc/party-market/internal/game"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth AuthService
	Game GameService

	// Sequencer 暴露给需要直接驱动回合的调用方
	Sequencer *game.PhaseSequencer
}

// NewServices 创建服务集合
// notifier 为 nil 时退化为 NopNotifier（纯HTTP轮询模式）
func NewServices(db *gorm.DB, cfg *config.Config, notifier Notifier, log *zap.Logger) *Services {
	repos := repository.NewManager(db)

	// JWT管理器
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWTSecret,
		cfg.Security.AccessTokenExpiry,
		cfg.Security.RefreshTokenExpiry,
	)

	// 核心游戏引擎
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	priceModel := game.NewPriceModel(cfg.Game.JitterMin, cfg.Game.JitterMax, rng)

	var generator game.Generator
	switch cfg.Generator.Mode {
	case "llm":
		generator = game.NewLLMGenerator(&cfg.Generator)
	default:
		generator = game.NewTemplateGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	events := game.NewEventEngine(generator, log)
	executor := game.NewOrderExecutor(priceModel, log)
	dividends := game.NewDividendDistributor(log)
	sequencer := game.NewPhaseSequencer(repos, events, executor, dividends, log)

	return &Services{
		Auth:      NewAuthService(repos, jwtManager, log),
		Game:      NewGameService(repos, sequencer, notifier, &cfg.Game, log),
		Sequencer: sequencer,
	}
}
