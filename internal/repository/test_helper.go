package repository

import (
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		panic(err)
	}

	err = db.AutoMigrate(
		&models.Host{},
		&models.Room{},
		&models.Player{},
		&models.Stock{},
		&models.Holding{},
		&models.Order{},
		&models.Event{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库中的所有数据
// 注意：清理顺序很重要，先清理有外键依赖的表
func CleanupTestDB(db *gorm.DB) {
	tables := []interface{}{
		&models.Event{},
		&models.Order{},
		&models.Holding{},
		&models.Stock{},
		&models.Player{},
		&models.Room{},
		&models.Host{},
	}
	for _, table := range tables {
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(table)
	}
}
