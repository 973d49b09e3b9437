package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SourceConfig selects and configures a Store.
type SourceConfig struct {
	Kind        string
	DatabaseURL string
	CSVDir      string
	RedisURL    string
	CacheTTL    time.Duration
}

type opener func(ctx context.Context, cfg SourceConfig) (Store, error)

var sources = map[string]opener{
	"postgres": openPostgres,
	"csv":      openCSV,
}

// Open builds the Store named by cfg.Kind, wrapped in a Redis cache when a
// Redis URL is set.
func Open(ctx context.Context, cfg SourceConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	open, ok := sources[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%q %w", cfg.Kind, ErrUnknownSource)
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", cfg.Kind, err)
	}
	if cfg.RedisURL == "" {
		return store, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		store.Close()
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis cache enabled", zap.String("source", cfg.Kind), zap.Duration("ttl", cfg.CacheTTL))
	return NewCachedStore(store, rdb, cfg.CacheTTL, logger), nil
}

func openPostgres(ctx context.Context, cfg SourceConfig) (Store, error) {
	return NewDatabase(cfg.DatabaseURL, ctx)
}

func openCSV(_ context.Context, cfg SourceConfig) (Store, error) {
	return NewCSVStore(cfg.CSVDir)
}
