package preferences

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"meal-planner/internal/config"
)

// NewStore builds the store selected by cfg.Preferences.Backend.
func NewStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (Store, error) {
	switch cfg.Preferences.Backend {
	case "sqlite":
		return NewSQLiteStore(db), nil
	case "redis":
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Key)
	case "file":
		return NewFileStore(cfg.Preferences.File)
	default:
		return nil, fmt.Errorf("unknown preferences backend %q", cfg.Preferences.Backend)
	}
}
