package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce          sync.Once
	snapshotBuilds        *prometheus.CounterVec
	upstreamRequests      *prometheus.CounterVec
	upstreamFetchDuration *prometheus.HistogramVec
	metricFetchFailures   *prometheus.CounterVec
)

const (
	namespaceMetrics = "brokerdash"
)

// MustRegister 初始化 Prometheus 指标并注册运行时采样器，应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		snapshotBuilds = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "snapshot",
					Name:      "builds_total",
					Help:      "快照构建次数，按完成状态统计。",
				},
				[]string{"status"},
			),
		)
		upstreamRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "upstream",
					Name:      "requests_total",
					Help:      "对 CRM 与话务平台的出站请求次数，按来源与结果统计。",
				},
				[]string{"source", "operation", "status"},
			),
		)
		upstreamFetchDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "upstream",
					Name:      "fetch_duration_seconds",
					Help:      "单次指标抓取耗时，按来源区分。",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"source"},
			),
		)
		metricFetchFailures = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "snapshot",
					Name:      "metric_failures_total",
					Help:      "降级为零值的指标抓取次数，按指标与周期统计。",
				},
				[]string{"metric", "period"},
			),
		)

		registerRuntimeCollectors()
	})
}

// RecordSnapshotBuild 记录一次快照构建的完成状态。
func RecordSnapshotBuild(status string) {
	if snapshotBuilds == nil {
		return
	}
	snapshotBuilds.WithLabelValues(normalizeLabel(status, "unknown")).Inc()
}

// ObserveUpstreamRequest 记录一次出站请求的结果与耗时。
func ObserveUpstreamRequest(source, operation, status string, duration time.Duration) {
	if upstreamRequests == nil || upstreamFetchDuration == nil {
		return
	}
	upstreamRequests.WithLabelValues(
		normalizeLabel(source, "unknown"),
		normalizeLabel(operation, "unknown"),
		normalizeLabel(status, "unknown"),
	).Inc()
	upstreamFetchDuration.WithLabelValues(normalizeLabel(source, "unknown")).Observe(duration.Seconds())
}

// RecordMetricFailure 记录一次指标级降级（抓取失败回落为零值）。
func RecordMetricFailure(metric, period string) {
	if metricFetchFailures == nil {
		return
	}
	metricFetchFailures.WithLabelValues(
		normalizeLabel(metric, "unknown"),
		normalizeLabel(period, "unknown"),
	).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
