// Package cache keeps ranked index hits in Redis, keyed by load generation
// and normalised query, so repeated queries skip the index.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/redis"
)

const keyPrefix = "quotes:search:"

type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, query string) ([]indexer.Hit, bool) {
	key := buildKey(generation, query)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var hits []indexer.Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "generation", generation)
	return hits, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, query string, hits []indexer.Hit) {
	key := buildKey(generation, query)
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached hits or runs computeFn once per key across
// concurrent callers. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	computeFn func() ([]indexer.Hit, error),
) ([]indexer.Hit, bool, error) {
	if hits, ok := c.Get(ctx, generation, query); ok {
		return hits, true, nil
	}
	key := buildKey(generation, query)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		hits, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, generation, query, hits)
		return hits, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]indexer.Hit), false, nil
}

// Invalidate drops every cached query.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(generation uint64, query string) string {
	raw := fmt.Sprintf("%d|%s", generation, normalizeQuery(query))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery collapses whitespace only. Case and word order can change
// the meaning of a query-string query, so both are kept.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
