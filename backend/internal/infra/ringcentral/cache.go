package ringcentral

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"broker-dashboard-app/backend/internal/infra/ratelimit"

	"github.com/redis/go-redis/v9"
)

const (
	// cacheRetention 是缓存条目在 Redis 中的物理保留时长。
	// 新鲜度由条目内嵌的时间戳与注入时钟判断，过期条目保留下来
	// 是为了在上游故障时还能退回旧数据。
	cacheRetention = 24 * time.Hour
)

// cacheEntry 是写入 Redis 的缓存载荷。
type cacheEntry struct {
	Data     CallMetrics `json:"data"`
	CachedAt time.Time   `json:"cachedAt"`
}

// MetricsCache 是话务指标的读穿缓存：TTL 与时钟都由外部注入，
// 新鲜度判断因此可以在测试里确定性推进。
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
	clock  ratelimit.Clock
	prefix string
}

// NewMetricsCache 构造话务指标缓存，clock 为 nil 时使用系统时钟。
func NewMetricsCache(client *redis.Client, ttl time.Duration, clock ratelimit.Clock) *MetricsCache {
	if clock == nil {
		clock = ratelimit.NewRealClock()
	}
	return &MetricsCache{
		client: client,
		ttl:    ttl,
		clock:  clock,
		prefix: "rcmetrics",
	}
}

// Lookup 查询缓存。found 表示有条目，fresh 表示条目仍在 TTL 内。
// 过期条目也会返回，供上游失败时降级使用。
func (c *MetricsCache) Lookup(ctx context.Context, key string) (metrics CallMetrics, fresh bool, found bool) {
	if c == nil || c.client == nil {
		return CallMetrics{}, false, false
	}

	raw, err := c.client.Get(ctx, c.prefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CallMetrics{}, false, false
	}
	if err != nil {
		return CallMetrics{}, false, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return CallMetrics{}, false, false
	}

	age := c.clock.Now().Sub(entry.CachedAt)
	return entry.Data, age < c.ttl, true
}

// Store 写入一份新的话务指标，覆盖旧条目。
func (c *MetricsCache) Store(ctx context.Context, key string, metrics CallMetrics) error {
	if c == nil || c.client == nil {
		return nil
	}

	entry := cacheEntry{Data: metrics, CachedAt: c.clock.Now()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+":"+key, raw, cacheRetention).Err()
}
