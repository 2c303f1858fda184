package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"broker-dashboard-app/backend/internal/infra/ringcentral"
	callssvc "broker-dashboard-app/backend/internal/service/calls"
	"broker-dashboard-app/backend/internal/service/period"

	"go.uber.org/zap"
)

// fakeFetcher 预置两条取数路径的应答，并记录调用次数。
type fakeFetcher struct {
	logs          []ringcentral.CallLogRecord
	logsErr       error
	logCalls      int
	aggregate     ringcentral.CallMetrics
	aggregateErr  error
	aggregateCall int
}

func (f *fakeFetcher) CallLogs(_ context.Context, _, _ time.Time) ([]ringcentral.CallLogRecord, error) {
	f.logCalls++
	return f.logs, f.logsErr
}

func (f *fakeFetcher) AggregateByUser(_ context.Context, _, _ time.Time) (ringcentral.CallMetrics, error) {
	f.aggregateCall++
	return f.aggregate, f.aggregateErr
}

func newCallsService(t *testing.T, fetcher *fakeFetcher, cache *ringcentral.MetricsCache) *callssvc.Service {
	t.Helper()
	periods, err := period.NewCalculator("America/New_York")
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	cfg := callssvc.Config{
		Now: func() time.Time {
			return time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)
		},
	}
	return callssvc.NewService(cfg, zap.NewNop().Sugar(), fetcher, cache, periods)
}

func TestDailyMetrics_FetchesAndCaches(t *testing.T) {
	client := newTestRedis(t)
	clock := newFakeClock()
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, clock)
	fetcher := &fakeFetcher{logs: decodeCallLogs(t, `[
		{"id":"c1","direction":"Outbound","result":"Accepted","from":{"extensionId":"101","name":"Ana"}},
		{"id":"c2","direction":"Outbound","result":"Voicemail","from":{"extensionId":"101","name":"Ana"}}
	]`)}
	svc := newCallsService(t, fetcher, cache)

	got := svc.DailyMetrics(context.Background())
	if got.TotalCalls != 2 || got.ContactsMade != 1 || got.Voicemails != 1 {
		t.Fatalf("daily metrics wrong: %+v", got)
	}

	// 第二次调用命中缓存，不再触发取数。
	again := svc.DailyMetrics(context.Background())
	if fetcher.logCalls != 1 {
		t.Fatalf("fresh cache should skip fetch, calls = %d", fetcher.logCalls)
	}
	if again.TotalCalls != 2 {
		t.Fatalf("cached daily metrics wrong: %+v", again)
	}
}

func TestDailyMetrics_StaleCacheOnError(t *testing.T) {
	client := newTestRedis(t)
	clock := newFakeClock()
	cache := ringcentral.NewMetricsCache(client, 5*time.Minute, clock)
	ctx := context.Background()

	if err := cache.Store(ctx, "daily", ringcentral.CallMetrics{TotalCalls: 9}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	clock.advance(10 * time.Minute)

	fetcher := &fakeFetcher{logsErr: errors.New("rate limited")}
	svc := newCallsService(t, fetcher, cache)

	got := svc.DailyMetrics(ctx)
	if got.TotalCalls != 9 {
		t.Fatalf("should serve stale cache on fetch error, got %+v", got)
	}
}

func TestDailyMetrics_EmptyWhenNothingAvailable(t *testing.T) {
	cache := ringcentral.NewMetricsCache(nil, 5*time.Minute, nil)
	fetcher := &fakeFetcher{logsErr: errors.New("boom")}
	svc := newCallsService(t, fetcher, cache)

	got := svc.DailyMetrics(context.Background())
	if got.TotalCalls != 0 || got.ByUser == nil {
		t.Fatalf("total failure should yield zeroed structure: %+v", got)
	}
}

func TestMonthlyMetrics_PrefersAggregation(t *testing.T) {
	cache := ringcentral.NewMetricsCache(nil, 5*time.Minute, nil)
	fetcher := &fakeFetcher{aggregate: ringcentral.CallMetrics{TotalCalls: 300, ContactsMade: 120}}
	svc := newCallsService(t, fetcher, cache)

	got := svc.MonthlyMetrics(context.Background())
	if got.TotalCalls != 300 {
		t.Fatalf("monthly should come from aggregation: %+v", got)
	}
	if fetcher.logCalls != 0 {
		t.Fatalf("call log path should not run when aggregation succeeds")
	}
}

func TestMonthlyMetrics_FallsBackToCallLogs(t *testing.T) {
	cache := ringcentral.NewMetricsCache(nil, 5*time.Minute, nil)
	fetcher := &fakeFetcher{
		aggregateErr: errors.New("analytics unavailable"),
		logs: decodeCallLogs(t, `[
			{"id":"c1","direction":"Outbound","result":"Accepted","from":{"extensionId":"101","name":"Ana"}}
		]`),
	}
	svc := newCallsService(t, fetcher, cache)

	got := svc.MonthlyMetrics(context.Background())
	if got.TotalCalls != 1 || got.ContactsMade != 1 {
		t.Fatalf("fallback metrics wrong: %+v", got)
	}
	if fetcher.aggregateCall != 1 || fetcher.logCalls != 1 {
		t.Fatalf("expected aggregation then fallback, got %d/%d", fetcher.aggregateCall, fetcher.logCalls)
	}
}

func TestAllMetrics_ReturnsBothPeriods(t *testing.T) {
	cache := ringcentral.NewMetricsCache(nil, 5*time.Minute, nil)
	fetcher := &fakeFetcher{
		logs: decodeCallLogs(t, `[
			{"id":"c1","direction":"Outbound","result":"Accepted","from":{"extensionId":"101","name":"Ana"}}
		]`),
		aggregate: ringcentral.CallMetrics{TotalCalls: 50},
	}
	svc := newCallsService(t, fetcher, cache)

	daily, monthly := svc.AllMetrics(context.Background())
	if daily.TotalCalls != 1 || monthly.TotalCalls != 50 {
		t.Fatalf("all metrics wrong: daily %+v monthly %+v", daily, monthly)
	}
}
