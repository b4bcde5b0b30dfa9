package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/config"
	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/pkg/logger"
)

// Fingerprint derives the deterministic cache key from a request's text
// fields. Images are deliberately excluded, which is why requests carrying
// images must never consult the cache.
func Fingerprint(model, systemPrompt, userPrompt string, temperature float64, jsonMode bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%t",
		model, systemPrompt, userPrompt, strconv.FormatFloat(temperature, 'g', -1, 64), jsonMode)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// CachedResponse is the stored subset of a call response. A cache hit is
// returned to the caller unchanged, including its previously computed cost.
type CachedResponse struct {
	Content  string     `json:"content"`
	Usage    TokenUsage `json:"usage"`
	CostUSD  float64    `json:"cost_usd"`
	Model    string     `json:"model"`
	Provider string     `json:"provider"`
}

// ResponseCache stores prior responses by request fingerprint. Lookups and
// stores are best-effort: a failing backend degrades to cache misses and
// warnings, never to call failures.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (*CachedResponse, bool)
	Put(ctx context.Context, fingerprint string, resp *CachedResponse)
}

// NewResponseCache picks the Redis backend when Redis is enabled, mirroring
// the task queue's Redis-or-fallback behavior, and the database table
// otherwise. Returns nil when caching is disabled.
func NewResponseCache(db *gorm.DB, redisCfg *config.RedisConfig, cacheCfg *config.AICacheConfig) ResponseCache {
	if !cacheCfg.Enabled {
		return nil
	}

	ttl := time.Duration(cacheCfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	if redisCfg.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("[AICache] Redis unavailable, falling back to database cache: %v", err)
		} else {
			logger.Infof("[AICache] Redis cache initialized at %s", redisCfg.Addr)
			return &RedisResponseCache{rdb: rdb, ttl: ttl}
		}
	}

	logger.Infof("[AICache] Database cache initialized (ttl %v)", ttl)
	return &DBResponseCache{db: db, ttl: ttl}
}

// DBResponseCache stores responses in the ai_response_cache table.
type DBResponseCache struct {
	db  *gorm.DB
	ttl time.Duration
}

func (c *DBResponseCache) Get(ctx context.Context, fingerprint string) (*CachedResponse, bool) {
	var row models.AIResponseCache
	err := c.db.WithContext(ctx).
		Where("fingerprint = ? AND expires_at > ?", fingerprint, time.Now()).
		First(&row).Error
	if err != nil {
		return nil, false
	}

	return &CachedResponse{
		Content: row.Content,
		Usage: TokenUsage{
			Prompt:     row.PromptTokens,
			Completion: row.CompletionTokens,
		},
		CostUSD:  row.CostUSD,
		Model:    row.Model,
		Provider: row.Provider,
	}, true
}

func (c *DBResponseCache) Put(ctx context.Context, fingerprint string, resp *CachedResponse) {
	row := models.AIResponseCache{
		Fingerprint:      fingerprint,
		Model:            resp.Model,
		Provider:         resp.Provider,
		Content:          resp.Content,
		PromptTokens:     resp.Usage.Prompt,
		CompletionTokens: resp.Usage.Completion,
		CostUSD:          resp.CostUSD,
		ExpiresAt:        time.Now().Add(c.ttl),
	}
	if err := c.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Warnf("[AICache] Failed to store response: %v", err)
	}
}

// RedisResponseCache stores JSON-encoded responses in Redis with a TTL.
type RedisResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

const redisCacheKeyPrefix = "ai:response:"

func (c *RedisResponseCache) Get(ctx context.Context, fingerprint string) (*CachedResponse, bool) {
	data, err := c.rdb.Get(ctx, redisCacheKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("[AICache] Redis get failed: %v", err)
		}
		return nil, false
	}

	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.Warnf("[AICache] Corrupt cache entry for %s: %v", fingerprint[:8], err)
		return nil, false
	}
	return &resp, true
}

func (c *RedisResponseCache) Put(ctx context.Context, fingerprint string, resp *CachedResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Warnf("[AICache] Failed to marshal response: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, redisCacheKeyPrefix+fingerprint, data, c.ttl).Err(); err != nil {
		logger.Warnf("[AICache] Redis set failed: %v", err)
	}
}
