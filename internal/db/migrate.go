package db

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models 마이그레이션 대상 (부모 테이블 먼저)
func Models() []interface{} {
	return []interface{}{
		&model.Branch{},
		&model.Store{},
		&model.User{},
		&model.Customer{},
		&model.DealerProfile{},
		&model.Sale{},
		&model.Goal{},
		&model.FixedExpense{},
		&model.RecalculationJob{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs migrations against the given connection
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
