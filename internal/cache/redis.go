package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// RedisCache holds short-lived AI search responses (fresh + stale copies)
// and the rolling trending-query set maintained by the analytics pipeline.
type RedisCache struct {
	client redis.UniversalClient
	ttl    config.CacheTTLConfig
	logger *zap.Logger
}

func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	var client redis.UniversalClient

	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis cache connected", zap.Strings("addresses", cfg.Addresses))

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (rc *RedisCache) GetSearchResults(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	return rc.getResponse(ctx, buildSearchKey(req))
}

// SetSearchResults writes the response under both the fresh key and a
// longer-lived stale key used as a fallback when the resolvers fail.
func (rc *RedisCache) SetSearchResults(ctx context.Context, req *models.SearchRequest, resp *models.SearchResponse) error {
	if err := rc.setResponse(ctx, buildSearchKey(req), resp, rc.ttl.SearchResults); err != nil {
		return err
	}
	return rc.setResponse(ctx, buildStaleKey(req), resp, rc.ttl.StaleFallback)
}

func (rc *RedisCache) GetStaleResults(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	return rc.getResponse(ctx, buildStaleKey(req))
}

// RecordQuery bumps the query's score in the rolling trending set.
func (rc *RedisCache) RecordQuery(ctx context.Context, query string) error {
	const key = "trend:queries"
	pipe := rc.client.TxPipeline()
	pipe.ZIncrBy(ctx, key, 1, query)
	pipe.Expire(ctx, key, 24*time.Hour)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("recording trending query: %w", err)
	}
	return nil
}

// TopQueries returns the highest-scored recent queries, most frequent first.
func (rc *RedisCache) TopQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	vals, err := rc.client.ZRevRange(ctx, "trend:queries", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading trending queries: %w", err)
	}
	return vals, nil
}

// Publish sends a payload to a pub/sub channel; the chat hub uses this to
// fan broadcasts out across gateway instances.
func (rc *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return rc.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription on the given channel.
func (rc *RedisCache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return rc.client.Subscribe(ctx, channel)
}

func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) getResponse(ctx context.Context, key string) (*models.SearchResponse, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	observability.CacheHits.Inc()
	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &resp, nil
}

func (rc *RedisCache) setResponse(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

func buildSearchKey(req *models.SearchRequest) string {
	return fmt.Sprintf("ai:%s", hashString(canonicalRequest(req)))
}

func buildStaleKey(req *models.SearchRequest) string {
	return fmt.Sprintf("ai:stale:%s", hashString(canonicalRequest(req)))
}

func canonicalRequest(req *models.SearchRequest) string {
	return fmt.Sprintf("%s:%d:%d", req.Query, req.MaxMovies, req.MaxMatches)
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
