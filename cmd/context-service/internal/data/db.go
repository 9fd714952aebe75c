package data

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/pkg/database"
)

// NewDB 创建数据库连接，返回清理函数
func NewDB(c *conf.DatabaseConfig, logger log.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewDB(&database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.DBName,
		SSLMode:         c.SSLMode,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if c.AutoMigrate {
		if err := autoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.NewHelper(logger).Errorf("failed to close database: %v", err)
		}
	}
	return db, cleanup, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ConversationDO{})
}
