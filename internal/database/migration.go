package database

import (
	"fmt"

	"github.com/wfunc/party-market/internal/logger"
	"github.com/wfunc/party-market/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	migrationModels := []interface{}{
		// 账号相关
		&models.Host{},

		// 房间相关
		&models.Room{},
		&models.Player{},
		&models.Stock{},
		&models.Holding{},

		// 回合相关
		&models.Order{},
		&models.Event{},
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("表迁移失败",
				zap.Error(err),
				zap.String("model", fmt.Sprintf("%T", model)),
			)
			return fmt.Errorf("迁移表结构失败: %w", err)
		}
	}

	logger.Info("数据库迁移完成", zap.Int("tables", len(migrationModels)))
	return nil
}
