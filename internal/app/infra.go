package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"internboard/internal/config"
	"internboard/internal/database"
	"internboard/internal/services"
)

func setupDatabase(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("migrations applied")
	}
	return db, nil
}

func setupRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return client, nil
}

func setupAnnouncer(cfg *config.Config, log *zap.Logger) services.InternshipAnnouncer {
	if !cfg.TelegramEnabled() {
		log.Info("telegram announcements disabled")
		return services.NewNoopAnnouncer()
	}
	a, err := services.NewTelegramAnnouncer(cfg.Telegram.BotToken, cfg.Telegram.ChannelID)
	if err != nil {
		log.Warn("telegram announcer unavailable", zap.Error(err))
		return services.NewNoopAnnouncer()
	}
	return a
}
