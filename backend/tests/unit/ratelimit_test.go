package unit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"broker-dashboard-app/backend/internal/infra/ratelimit"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeClock 是可手动推进的时钟，Sleep 直接把时间拨过去。
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	if d > 0 {
		c.sleeps = append(c.sleeps, d)
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPacer_EnforcesMinimumInterval(t *testing.T) {
	clock := newFakeClock()
	pacer := ratelimit.NewPacer(7*time.Second, clock)
	ctx := context.Background()

	// 第一次放行不需要等待。
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("first wait should not sleep, got %v", clock.sleeps)
	}

	// 紧随其后的第二次要等满 7 秒。
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 7*time.Second {
		t.Fatalf("second wait slept %v, want [7s]", clock.sleeps)
	}
}

func TestPacer_NoWaitAfterIdlePeriod(t *testing.T) {
	clock := newFakeClock()
	pacer := ratelimit.NewPacer(7*time.Second, clock)
	ctx := context.Background()

	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	clock.advance(10 * time.Second)
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("idle gap should not trigger sleep, got %v", clock.sleeps)
	}
}

func TestPacer_ZeroIntervalPassthrough(t *testing.T) {
	pacer := ratelimit.NewPacer(0, newFakeClock())
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	port, err := strconv.Atoi(server.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Host() + ":" + strconv.Itoa(port)})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiter_AllowAndBlock(t *testing.T) {
	client := newTestRedis(t)
	limiter := ratelimit.NewRedisLimiter(client, "test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	result, err := limiter.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if result.Allowed {
		t.Fatalf("fourth request should be blocked")
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("blocked result should carry retry-after, got %v", result.RetryAfter)
	}

	// 其它 key 不受影响。
	other, err := limiter.Allow(ctx, "ip:5.6.7.8", 3, time.Minute)
	if err != nil || !other.Allowed {
		t.Fatalf("independent key blocked: %v %v", other, err)
	}
}

func TestRedisLimiter_Peek(t *testing.T) {
	client := newTestRedis(t)
	limiter := ratelimit.NewRedisLimiter(client, "test")
	ctx := context.Background()

	if count, _, err := limiter.Peek(ctx, "quiet"); err != nil || count != 0 {
		t.Fatalf("peek of untouched key = %d, %v", count, err)
	}

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(ctx, "busy", 10, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	count, ttl, err := limiter.Peek(ctx, "busy")
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if count != 2 {
		t.Fatalf("peek count = %d, want 2", count)
	}
	if ttl <= 0 {
		t.Fatalf("peek ttl = %v, want positive", ttl)
	}
}

func TestRedisLimiter_NilClientAllowsAll(t *testing.T) {
	limiter := ratelimit.NewRedisLimiter(nil, "test")
	result, err := limiter.Allow(context.Background(), "any", 1, time.Minute)
	if err != nil || !result.Allowed {
		t.Fatalf("nil client should fail open: %v %v", result, err)
	}
}
