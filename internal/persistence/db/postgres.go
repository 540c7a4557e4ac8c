package db

import (
	"context"
	"fmt"

	"github.com/hilthontt/encore/internal/infrastructure/configs"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresDSN renders cfg as a libpq keyword/value connection string.
func PostgresDSN(cfg configs.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName, cfg.SSLMode)
}

// NewPostgres opens the relational store holding users, songs, play counts
// and comments. The schema is owned by the platform's main service, so no
// migration runs here.
func NewPostgres(ctx context.Context, cfg configs.PostgresConfig, logger logging.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(PostgresDSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info(logging.Postgres, logging.Connect, "connected to postgres", map[logging.ExtraKey]any{
		logging.HostIp: cfg.Host,
	})
	return gdb, nil
}

func ClosePostgres(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
