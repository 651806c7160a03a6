package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geoyang/Visitor/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "visitor"

type CacheService interface {
	// Analytics caching, keyed by company id or "all" for super admins
	GetCompanyAnalytics(ctx context.Context, scope string) (map[string]interface{}, error)
	SetCompanyAnalytics(ctx context.Context, scope string, analytics map[string]interface{}, ttl time.Duration) error

	// Active theme caching
	GetActiveTheme(ctx context.Context, companyID uuid.UUID) (json.RawMessage, error)
	SetActiveTheme(ctx context.Context, companyID uuid.UUID, payload interface{}, ttl time.Duration) error
	DeleteActiveTheme(ctx context.Context, companyID uuid.UUID) error

	// Cache invalidation
	InvalidateCompanyCache(ctx context.Context, companyID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	ResetRateLimit(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisClient builds a client from an address that may carry a redis:// scheme.
func NewRedisClient(addr, password string, db int, log *zap.Logger) *redis.Client {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		log.Info("redis connection established", zap.String("addr", parsedAddr))
	}
	return client
}

func NewRedisCacheService(client *redis.Client, m *metrics.Metrics) CacheService {
	return &redisCacheService{client: client, metrics: m}
}

func analyticsKey(scope string) string {
	return fmt.Sprintf("%s:analytics:%s", keyPrefix, scope)
}

func activeThemeKey(companyID uuid.UUID) string {
	return fmt.Sprintf("%s:theme:active:%s", keyPrefix, companyID.String())
}

func (r *redisCacheService) GetCompanyAnalytics(ctx context.Context, scope string) (map[string]interface{}, error) {
	data, err := r.client.Get(ctx, analyticsKey(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.metrics.RecordCacheLookup("analytics", false)
			return nil, nil // cache miss
		}
		return nil, err
	}
	r.metrics.RecordCacheLookup("analytics", true)

	var analytics map[string]interface{}
	if err := json.Unmarshal(data, &analytics); err != nil {
		return nil, err
	}
	return analytics, nil
}

func (r *redisCacheService) SetCompanyAnalytics(ctx context.Context, scope string, analytics map[string]interface{}, ttl time.Duration) error {
	data, err := json.Marshal(analytics)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, analyticsKey(scope), data, ttl).Err()
}

func (r *redisCacheService) GetActiveTheme(ctx context.Context, companyID uuid.UUID) (json.RawMessage, error) {
	data, err := r.client.Get(ctx, activeThemeKey(companyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.metrics.RecordCacheLookup("active_theme", false)
			return nil, nil // cache miss
		}
		return nil, err
	}
	r.metrics.RecordCacheLookup("active_theme", true)
	return json.RawMessage(data), nil
}

func (r *redisCacheService) SetActiveTheme(ctx context.Context, companyID uuid.UUID, payload interface{}, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, activeThemeKey(companyID), data, ttl).Err()
}

func (r *redisCacheService) DeleteActiveTheme(ctx context.Context, companyID uuid.UUID) error {
	return r.client.Del(ctx, activeThemeKey(companyID)).Err()
}

// InvalidateCompanyCache drops every cached entry of a company.
func (r *redisCacheService) InvalidateCompanyCache(ctx context.Context, companyID uuid.UUID) error {
	keys := []string{analyticsKey(companyID.String()), analyticsKey("all"), activeThemeKey(companyID)}
	return r.client.Del(ctx, keys...).Err()
}

// IsRateLimited counts one attempt against key and reports whether the limit
// for the current window is exceeded.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)

	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Window starts at the first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			return false, err
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) ResetRateLimit(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
