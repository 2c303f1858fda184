package unit

import (
	"context"
	"testing"
	"time"

	"broker-dashboard-app/backend/internal/infra/ringcentral"
)

func TestMetricsCache_FreshLookup(t *testing.T) {
	client := newTestRedis(t)
	clock := newFakeClock()
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, clock)
	ctx := context.Background()

	stored := ringcentral.CallMetrics{TotalCalls: 12, ContactsMade: 7, ByUser: []ringcentral.UserCallMetrics{}}
	if err := cache.Store(ctx, "daily", stored); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, fresh, found := cache.Lookup(ctx, "daily")
	if !found || !fresh {
		t.Fatalf("expected fresh hit, found=%v fresh=%v", found, fresh)
	}
	if got.TotalCalls != 12 || got.ContactsMade != 7 {
		t.Fatalf("cached payload wrong: %+v", got)
	}
}

func TestMetricsCache_StaleEntryStillReturned(t *testing.T) {
	client := newTestRedis(t)
	clock := newFakeClock()
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, clock)
	ctx := context.Background()

	if err := cache.Store(ctx, "monthly", ringcentral.CallMetrics{TotalCalls: 40}); err != nil {
		t.Fatalf("store: %v", err)
	}

	// 过了 TTL 但仍在物理保留期内：条目可取，只是不再新鲜。
	clock.advance(6 * time.Minute)
	got, fresh, found := cache.Lookup(ctx, "monthly")
	if !found {
		t.Fatalf("stale entry should still be found")
	}
	if fresh {
		t.Fatalf("entry older than ttl must not be fresh")
	}
	if got.TotalCalls != 40 {
		t.Fatalf("stale payload wrong: %+v", got)
	}
}

func TestMetricsCache_MissAndNilClient(t *testing.T) {
	client := newTestRedis(t)
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, newFakeClock())

	if _, _, found := cache.Lookup(context.Background(), "absent"); found {
		t.Fatalf("lookup of missing key should miss")
	}

	disabled := ringcentral.NewMetricsCache(nil, 5*time.Minute, nil)
	if _, _, found := disabled.Lookup(context.Background(), "daily"); found {
		t.Fatalf("nil client cache must always miss")
	}
	if err := disabled.Store(context.Background(), "daily", ringcentral.CallMetrics{}); err != nil {
		t.Fatalf("nil client store should be a no-op, got %v", err)
	}
}

func TestMetricsCache_KeysAreIndependent(t *testing.T) {
	client := newTestRedis(t)
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, newFakeClock())
	ctx := context.Background()

	if err := cache.Store(ctx, "daily", ringcentral.CallMetrics{TotalCalls: 1}); err != nil {
		t.Fatalf("store daily: %v", err)
	}
	if err := cache.Store(ctx, "monthly", ringcentral.CallMetrics{TotalCalls: 2}); err != nil {
		t.Fatalf("store monthly: %v", err)
	}

	daily, _, _ := cache.Lookup(ctx, "daily")
	monthly, _, _ := cache.Lookup(ctx, "monthly")
	if daily.TotalCalls != 1 || monthly.TotalCalls != 2 {
		t.Fatalf("keys overlap: daily %+v monthly %+v", daily, monthly)
	}
}
