package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cbmdev/refopt/internal/config"
	"github.com/cbmdev/refopt/internal/domain"
)

const (
	optimizationKeyPrefix = "optimization:group"
	scanBatchSize         = 100
	defaultResultTTL      = 30 * time.Minute
)

// OptimizationCache stores full evaluation responses keyed by the normalized
// request.
type OptimizationCache interface {
	GetResult(ctx context.Context, req *domain.OptimizationRequest) (*domain.OptimizationResponse, bool, error)
	SetResult(ctx context.Context, req *domain.OptimizationRequest, resp *domain.OptimizationResponse) error
	InvalidateAll(ctx context.Context) error
}

type redisOptimizationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopOptimizationCache struct{}

func NewOptimizationCache(cfg config.CacheConfig) (OptimizationCache, error) {
	if !cfg.Enabled {
		return &noopOptimizationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisOptimizationCache{client: client, ttl: ttl}, nil
}

func NewNoopOptimizationCache() OptimizationCache {
	return &noopOptimizationCache{}
}

func (c *redisOptimizationCache) GetResult(ctx context.Context, req *domain.OptimizationRequest) (*domain.OptimizationResponse, bool, error) {
	key := buildOptimizationKey(req)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var resp domain.OptimizationResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, false, fmt.Errorf("decode optimization cache: %w", err)
	}

	return &resp, true, nil
}

func (c *redisOptimizationCache) SetResult(ctx context.Context, req *domain.OptimizationRequest, resp *domain.OptimizationResponse) error {
	key := buildOptimizationKey(req)
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode optimization cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisOptimizationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, optimizationKeyPrefix, scanBatchSize)
}

func (n *noopOptimizationCache) GetResult(ctx context.Context, req *domain.OptimizationRequest) (*domain.OptimizationResponse, bool, error) {
	return nil, false, nil
}

func (n *noopOptimizationCache) SetResult(ctx context.Context, req *domain.OptimizationRequest, resp *domain.OptimizationResponse) error {
	return nil
}

func (n *noopOptimizationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildOptimizationKey hashes the normalized request so equivalent requests
// share one cache entry regardless of field order in the payload.
func buildOptimizationKey(req *domain.OptimizationRequest) string {
	if req.IsEmpty() {
		return optimizationKeyPrefix + ":default"
	}

	var parts []string
	if req.GroupingID != nil {
		parts = append(parts, "grouping_id="+strconv.FormatInt(*req.GroupingID, 10))
	}
	if req.Quality != "" {
		parts = append(parts, "quality="+strings.ToUpper(req.Quality))
	}
	if req.Refint != "" {
		parts = append(parts, "refint="+req.Refint)
	}
	for _, id := range req.ProductIDs {
		parts = append(parts, "product_id="+strconv.FormatInt(id, 10))
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", optimizationKeyPrefix, hex.EncodeToString(hash[:]))
}
