package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/vsearch-labs/vsearch/pkg/config"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
	pkgredis "github.com/vsearch-labs/vsearch/pkg/redis"
)

const cacheKeyPrefix = "vsearch:"

// QueryCache caches ranked results in Redis. Keys incorporate the
// generation id, so publishing a new generation naturally invalidates all
// cached entries; singleflight collapses concurrent identical misses.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQueryCache creates a cache over the given Redis client. m may be nil.
func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns a cached result, if present.
func (c *QueryCache) Get(ctx context.Context, generation string, terms []string, topK int) (*Result, bool) {
	key := c.buildKey(generation, terms, topK)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

// Set stores a result under the generation-scoped key.
func (c *QueryCache) Set(ctx context.Context, generation string, terms []string, topK int, result *Result) {
	key := c.buildKey(generation, terms, topK)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it, with
// concurrent identical misses collapsed into one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation string,
	terms []string,
	topK int,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	if result, ok := c.Get(ctx, generation, terms, topK); ok {
		return result, true, nil
	}
	key := c.buildKey(generation, terms, topK)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, generation, terms, topK, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached entry for this engine.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the generation, the sorted distinct query terms, and the
// result limit. Term order does not affect cosine scores, so reordered
// queries share an entry.
func (c *QueryCache) buildKey(generation string, terms []string, topK int) string {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Strings(sorted)
	raw := fmt.Sprintf("%s|%s|k=%d", generation, strings.Join(sorted, ","), topK)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
