package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"futuresbacktest/types"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cachePrefix = "backtest"

// Store is a read-only source of panels and industry schemes.
type Store interface {
	GetPrices(query types.PriceQuery, ctx context.Context) (*types.Panel, error)
	GetWeights(strategy string, ctx context.Context) (*types.Panel, error)
	GetIndustryMap(group, name string, ctx context.Context) (types.IndustryMap, error)
	Close()
}

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// CachedStore wraps a primary Store with a Redis read-through cache.
// Cache failures are logged and fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     redisClient
	ttl     time.Duration
	logger  *zap.Logger
}

func NewCachedStore(primary Store, rdb redisClient, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
	}
}

func (s *CachedStore) GetPrices(query types.PriceQuery, ctx context.Context) (*types.Panel, error) {
	key := pricesKey(query)
	var cached types.Panel
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}
	panel, err := s.primary.GetPrices(query, ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, panel)
	return panel, nil
}

func (s *CachedStore) GetWeights(strategy string, ctx context.Context) (*types.Panel, error) {
	key := weightsKey(strategy)
	var cached types.Panel
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}
	panel, err := s.primary.GetWeights(strategy, ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, panel)
	return panel, nil
}

func (s *CachedStore) GetIndustryMap(group, name string, ctx context.Context) (types.IndustryMap, error) {
	key := industryKey(group, name)
	var cached types.IndustryMap
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	m, err := s.primary.GetIndustryMap(group, name, ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, m)
	return m, nil
}

func (s *CachedStore) Close() {
	s.primary.Close()
	if err := s.rdb.Close(); err != nil {
		s.logger.Warn("close redis", zap.Error(err))
	}
}

func (s *CachedStore) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	s.logger.Debug("cache hit", zap.String("key", key))
	return true
}

func (s *CachedStore) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func pricesKey(q types.PriceQuery) string {
	return fmt.Sprintf("%s:prices:%s:%s:%d", cachePrefix, q.Contract, q.Field, q.RollDays)
}

func weightsKey(strategy string) string {
	return fmt.Sprintf("%s:weights:%s", cachePrefix, strategy)
}

func industryKey(group, name string) string {
	return fmt.Sprintf("%s:industry:%s:%s", cachePrefix, group, name)
}
