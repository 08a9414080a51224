package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/optimizer"
)

// Cache is the memoization backend a MemoizingOracle decorates a
// MetricOracle with. spec.md treats memoization as the host runtime's
// concern, not the optimizer's; this is that host-side concern, kept
// swappable so tests can run without a Redis instance.
type Cache interface {
	GetCompare(ctx context.Context, key string) (domain.Comparison, bool, error)
	SetCompare(ctx context.Context, key string, cmp domain.Comparison) error
	GetCount(ctx context.Context, key string) (int, bool, error)
	SetCount(ctx context.Context, key string, count int) error
	// Invalidate evicts every cache entry touching chunkID: its count
	// entry and every compare entry that names it on either side. A
	// changed source file makes both stale, since Compare results for
	// any chunk that included the module are no longer trustworthy.
	Invalidate(ctx context.Context, chunkID string) error
}

// MemoizingOracle wraps a MetricOracle so that repeated Compare and
// ChunkItemsCount queries for the same pair/chunk, across invocations
// of the optimizer within and beyond a single process, hit the cache
// instead of re-querying the underlying oracle.
type MemoizingOracle struct {
	inner optimizer.MetricOracle
	cache Cache
}

// NewMemoizingOracle decorates inner with cache.
func NewMemoizingOracle(inner optimizer.MetricOracle, cache Cache) *MemoizingOracle {
	return &MemoizingOracle{inner: inner, cache: cache}
}

func (o *MemoizingOracle) Compare(ctx context.Context, a, b *domain.Chunk) (domain.Comparison, error) {
	key := compareKey(a, b)
	if cmp, ok, err := o.cache.GetCompare(ctx, key); err != nil {
		return domain.Comparison{}, err
	} else if ok {
		return cmp, nil
	}

	cmp, err := o.inner.Compare(ctx, a, b)
	if err != nil {
		return domain.Comparison{}, err
	}
	if err := o.cache.SetCompare(ctx, key, cmp); err != nil {
		return domain.Comparison{}, err
	}
	return cmp, nil
}

func (o *MemoizingOracle) ChunkItemsCount(ctx context.Context, c *domain.Chunk) (int, error) {
	key := c.ID()
	if n, ok, err := o.cache.GetCount(ctx, key); err != nil {
		return 0, err
	} else if ok {
		return n, nil
	}

	n, err := o.inner.ChunkItemsCount(ctx, c)
	if err != nil {
		return 0, err
	}
	if err := o.cache.SetCount(ctx, key, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Invalidate evicts chunkID's cached results from the wrapped cache.
func (o *MemoizingOracle) Invalidate(ctx context.Context, chunkID string) error {
	return o.cache.Invalidate(ctx, chunkID)
}

// compareKey keys the cache by the ordered pair: Compare(a, b) is not
// commutative (left and right swap), so swapping the arguments must
// miss the cache rather than return a stale/mirrored record.
func compareKey(a, b *domain.Chunk) string {
	return fmt.Sprintf("%s|%s", a.ID(), b.ID())
}

// RedisCache is a Cache backed by Redis, grounded on the key-prefix and
// JSON-marshaling conventions the teacher's inverted index uses.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache wraps a redis client. keyPrefix namespaces the cache
// so multiple chunkopt deployments can share a Redis instance.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCache) GetCompare(ctx context.Context, key string) (domain.Comparison, bool, error) {
	val, err := c.client.Get(ctx, c.compareKey(key)).Result()
	if err == redis.Nil {
		return domain.Comparison{}, false, nil
	}
	if err != nil {
		return domain.Comparison{}, false, err
	}
	var cmp domain.Comparison
	if err := json.Unmarshal([]byte(val), &cmp); err != nil {
		return domain.Comparison{}, false, err
	}
	return cmp, true, nil
}

func (c *RedisCache) SetCompare(ctx context.Context, key string, cmp domain.Comparison) error {
	data, err := json.Marshal(cmp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.compareKey(key), data, 0).Err()
}

func (c *RedisCache) GetCount(ctx context.Context, key string) (int, bool, error) {
	val, err := c.client.Get(ctx, c.countKey(key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var n int
	if err := json.Unmarshal([]byte(val), &n); err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisCache) SetCount(ctx context.Context, key string, count int) error {
	data, err := json.Marshal(count)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.countKey(key), data, 0).Err()
}

// Invalidate deletes chunkID's count entry and scans for every compare
// entry naming it on either side of the pair, deleting those too.
// compareKey is ordered ("a|b"), so chunkID can appear as either half —
// two glob scans cover both positions.
func (c *RedisCache) Invalidate(ctx context.Context, chunkID string) error {
	if err := c.client.Del(ctx, c.countKey(chunkID)).Err(); err != nil && err != redis.Nil {
		return err
	}

	patterns := []string{
		c.compareKey(chunkID + "|*"),
		c.compareKey("*|" + chunkID),
	}
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *RedisCache) compareKey(key string) string {
	return fmt.Sprintf("%scompare:%s", c.keyPrefix, key)
}

func (c *RedisCache) countKey(key string) string {
	return fmt.Sprintf("%scount:%s", c.keyPrefix, key)
}

// MemCache is an in-process Cache for tests and local development.
// cmd/chunkopt-server does not use it: with the cache disabled it runs
// the oracle without any memoization layer.
type MemCache struct {
	compare map[string]domain.Comparison
	count   map[string]int
}

// NewMemCache returns an empty in-process cache.
func NewMemCache() *MemCache {
	return &MemCache{
		compare: make(map[string]domain.Comparison),
		count:   make(map[string]int),
	}
}

func (c *MemCache) GetCompare(ctx context.Context, key string) (domain.Comparison, bool, error) {
	cmp, ok := c.compare[key]
	return cmp, ok, nil
}

func (c *MemCache) SetCompare(ctx context.Context, key string, cmp domain.Comparison) error {
	c.compare[key] = cmp
	return nil
}

func (c *MemCache) GetCount(ctx context.Context, key string) (int, bool, error) {
	n, ok := c.count[key]
	return n, ok, nil
}

func (c *MemCache) SetCount(ctx context.Context, key string, count int) error {
	c.count[key] = count
	return nil
}

func (c *MemCache) Invalidate(ctx context.Context, chunkID string) error {
	delete(c.count, chunkID)
	for key := range c.compare {
		left, right, ok := strings.Cut(key, "|")
		if ok && (left == chunkID || right == chunkID) {
			delete(c.compare, key)
		}
	}
	return nil
}
