package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// CacheClient wraps Redis with caching for external API responses
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(cfg domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// CachedRecommendations represents cached CPIC recommendations with metadata
type CachedRecommendations struct {
	Data      []CPICRecommendation `json:"data"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// CachedDrugConcept represents a cached RxNorm concept with metadata
type CachedDrugConcept struct {
	Data      *DrugConcept `json:"data"`
	CachedAt  time.Time    `json:"cached_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// GetRecommendations retrieves cached CPIC recommendations
func (c *CacheClient) GetRecommendations(ctx context.Context, gene domain.Gene, phenotype domain.Phenotype) ([]CPICRecommendation, bool, error) {
	key := c.recommendationKey(gene, phenotype)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendation cache: %w", err)
	}

	var cached CachedRecommendations
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetRecommendations caches CPIC recommendations
func (c *CacheClient) SetRecommendations(ctx context.Context, gene domain.Gene, phenotype domain.Phenotype, data []CPICRecommendation, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := CachedRecommendations{
		Data:      data,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation cache data: %w", err)
	}

	return c.redis.Set(ctx, c.recommendationKey(gene, phenotype), jsonData, ttl).Err()
}

// GetDrugConcept retrieves a cached RxNorm drug concept
func (c *CacheClient) GetDrugConcept(ctx context.Context, drugName string) (*DrugConcept, bool, error) {
	key := c.drugKey(drugName)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get drug cache: %w", err)
	}

	var cached CachedDrugConcept
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetDrugConcept caches an RxNorm drug concept
func (c *CacheClient) SetDrugConcept(ctx context.Context, drugName string, data *DrugConcept, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := CachedDrugConcept{
		Data:      data,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal drug cache data: %w", err)
	}

	return c.redis.Set(ctx, c.drugKey(drugName), jsonData, ttl).Err()
}

// InvalidateGene removes all cached recommendations for a gene
func (c *CacheClient) InvalidateGene(ctx context.Context, gene domain.Gene) error {
	pattern := fmt.Sprintf("cpic:recommendation:%s:*", gene)
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for gene %s: %w", gene, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if the Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

func (c *CacheClient) recommendationKey(gene domain.Gene, phenotype domain.Phenotype) string {
	hash := sha256.Sum256([]byte(string(phenotype)))
	return fmt.Sprintf("cpic:recommendation:%s:%x", gene, hash[:8])
}

func (c *CacheClient) drugKey(drugName string) string {
	hash := sha256.Sum256([]byte(drugName))
	return fmt.Sprintf("rxnorm:drug:%x", hash[:8])
}
