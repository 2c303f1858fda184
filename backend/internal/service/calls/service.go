package calls

import (
	"context"
	"time"

	appLogger "broker-dashboard-app/backend/internal/infra/logger"
	"broker-dashboard-app/backend/internal/infra/metrics"
	"broker-dashboard-app/backend/internal/infra/ringcentral"
	"broker-dashboard-app/backend/internal/service/period"

	"go.uber.org/zap"
)

const (
	cacheKeyDaily   = "daily"
	cacheKeyMonthly = "monthly"
)

// Fetcher 抽象话务平台的两条取数路径，便于测试注入假实现。
type Fetcher interface {
	CallLogs(ctx context.Context, from, to time.Time) ([]ringcentral.CallLogRecord, error)
	AggregateByUser(ctx context.Context, from, to time.Time) (ringcentral.CallMetrics, error)
}

// Config 汇总话务指标服务的参数。
type Config struct {
	// Now 用于测试注入固定时钟，空值时取系统时间。
	Now func() time.Time
}

// Service 提供当日与当月的通话指标：优先读缓存，未命中时取数并回写，
// 取数失败时退回过期缓存，仍然没有就返回全零结构。
type Service struct {
	cfg     Config
	logger  *zap.SugaredLogger
	fetcher Fetcher
	cache   *ringcentral.MetricsCache
	periods *period.Calculator
}

// NewService 构造话务指标服务，logger 为空时使用默认日志实例。
func NewService(cfg Config, logger *zap.SugaredLogger, fetcher Fetcher, cache *ringcentral.MetricsCache, periods *period.Calculator) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.calls")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		cache:   cache,
		periods: periods,
	}
}

// DailyMetrics 返回当日通话指标。明细量可控，直接翻页 call-log 再分类。
func (s *Service) DailyMetrics(ctx context.Context) ringcentral.CallMetrics {
	if cached, fresh, found := s.cache.Lookup(ctx, cacheKeyDaily); found && fresh {
		return cached
	}

	bounds := s.periods.Boundaries(s.cfg.Now())

	started := time.Now()
	records, err := s.fetcher.CallLogs(ctx, bounds.TodayStart, bounds.TodayEnd)
	if err != nil {
		metrics.ObserveUpstreamRequest("ringcentral", "call_log", "error", time.Since(started))
		s.logger.Warnw("fetch daily call logs failed", "error", err)
		return s.staleOrEmpty(ctx, cacheKeyDaily)
	}
	metrics.ObserveUpstreamRequest("ringcentral", "call_log", "ok", time.Since(started))

	result := ringcentral.AnalyzeCallLogs(records)
	s.storeCache(ctx, cacheKeyDaily, result)
	return result
}

// MonthlyMetrics 返回当月通话指标。优先走 Analytics 聚合接口，
// 失败时退回 call-log 翻页累加。
func (s *Service) MonthlyMetrics(ctx context.Context) ringcentral.CallMetrics {
	if cached, fresh, found := s.cache.Lookup(ctx, cacheKeyMonthly); found && fresh {
		return cached
	}

	bounds := s.periods.Boundaries(s.cfg.Now())

	started := time.Now()
	result, err := s.fetcher.AggregateByUser(ctx, bounds.MonthStart, bounds.MonthEnd)
	if err == nil {
		metrics.ObserveUpstreamRequest("ringcentral", "analytics", "ok", time.Since(started))
		s.storeCache(ctx, cacheKeyMonthly, result)
		return result
	}
	metrics.ObserveUpstreamRequest("ringcentral", "analytics", "error", time.Since(started))
	s.logger.Warnw("fetch monthly aggregation failed, falling back to call logs", "error", err)

	started = time.Now()
	records, err := s.fetcher.CallLogs(ctx, bounds.MonthStart, bounds.MonthEnd)
	if err != nil {
		metrics.ObserveUpstreamRequest("ringcentral", "call_log", "error", time.Since(started))
		s.logger.Warnw("monthly call log fallback failed", "error", err)
		return s.staleOrEmpty(ctx, cacheKeyMonthly)
	}
	metrics.ObserveUpstreamRequest("ringcentral", "call_log", "ok", time.Since(started))

	fallback := ringcentral.AnalyzeCallLogs(records)
	s.storeCache(ctx, cacheKeyMonthly, fallback)
	return fallback
}

// AllMetrics 串行取回当日与当月的通话指标。
func (s *Service) AllMetrics(ctx context.Context) (daily, monthly ringcentral.CallMetrics) {
	daily = s.DailyMetrics(ctx)
	monthly = s.MonthlyMetrics(ctx)
	return daily, monthly
}

// staleOrEmpty 取数失败后的降级：先退过期缓存，再退全零结构。
func (s *Service) staleOrEmpty(ctx context.Context, key string) ringcentral.CallMetrics {
	if cached, _, found := s.cache.Lookup(ctx, key); found {
		s.logger.Infow("serving stale call metrics", "key", key)
		return cached
	}
	return ringcentral.EmptyCallMetrics()
}

// storeCache 回写缓存，失败只记日志。
func (s *Service) storeCache(ctx context.Context, key string, value ringcentral.CallMetrics) {
	if err := s.cache.Store(ctx, key, value); err != nil {
		s.logger.Warnw("store call metrics cache failed", "key", key, "error", err)
	}
}
