package dashboard

import (
	"context"
	"encoding/json"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
	"broker-dashboard-app/backend/internal/infra/metrics"
	"broker-dashboard-app/backend/internal/infra/salesforce"
)

// Querier 抽象 CRM 的 SOQL 查询能力，便于测试注入假实现。
type Querier interface {
	Query(ctx context.Context, soql string) (salesforce.QueryResult, error)
}

// createdDateLayout 是 Salesforce REST 返回的时间戳格式。
const createdDateLayout = "2006-01-02T15:04:05.000-0700"

// groupedRow 对应分组计数查询的单行。聚合别名在不同接口形态下
// 可能是 total 或 expr0，两者都接。
type groupedRow struct {
	OwnerID string `json:"OwnerId"`
	Total   *int   `json:"total"`
	Expr0   *int   `json:"expr0"`
}

// taskRow 对应任务明细查询的单行。
type taskRow struct {
	ID          string `json:"Id"`
	OwnerID     string `json:"OwnerId"`
	Subject     string `json:"Subject"`
	CreatedDate string `json:"CreatedDate"`
}

// userRow 对应花名册查询的单行。
type userRow struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// metricResult 是单指标单周期的抓取结果。
type metricResult struct {
	counts MetricCounts
	total  int
}

// zeroMetricResult 是指标抓取失败时的降级结果。
func zeroMetricResult() metricResult {
	return metricResult{counts: make(MetricCounts)}
}

// fetchRoster 拉取在职经纪人花名册。失败时返回空表并记录日志，
// 后续姓名解析一律落到 Unknown，但不会中断快照构建。
func (s *Service) fetchRoster(ctx context.Context) dashboarddomain.Roster {
	started := time.Now()
	result, err := s.querier.Query(ctx, RosterSOQL(s.cfg.RosterLimit))
	if err != nil {
		metrics.ObserveUpstreamRequest("salesforce", "roster", "error", time.Since(started))
		s.logger.Warnw("fetch roster failed", "error", err)
		return make(dashboarddomain.Roster)
	}
	metrics.ObserveUpstreamRequest("salesforce", "roster", "ok", time.Since(started))

	brokers := make([]dashboarddomain.BrokerIdentity, 0, len(result.Records))
	for _, raw := range result.Records {
		var row userRow
		if err := json.Unmarshal(raw, &row); err != nil {
			s.logger.Warnw("decode roster record failed", "error", err)
			continue
		}
		brokers = append(brokers, dashboarddomain.BrokerIdentity{ID: row.ID, Name: row.Name})
	}
	return dashboarddomain.NewRoster(brokers)
}

// fetchTaskMetric 抓取任务型指标（触达、进件）：取回明细、按 Subject
// 归类、去重后再按归属人计数。任何失败都降级为零值。
func (s *Service) fetchTaskMetric(
	ctx context.Context,
	metric Metric,
	category dashboarddomain.Category,
	start, end time.Time,
	period Period,
	roster dashboarddomain.Roster,
) metricResult {
	soql, err := TaskRecordsSOQL(category, start, end, s.cfg.TaskLimit)
	if err != nil {
		s.logger.Errorw("build task soql failed", "metric", metric, "error", err)
		metrics.RecordMetricFailure(string(metric), string(period))
		return zeroMetricResult()
	}

	started := time.Now()
	result, err := s.querier.Query(ctx, soql)
	if err != nil {
		metrics.ObserveUpstreamRequest("salesforce", "task_records", "error", time.Since(started))
		metrics.RecordMetricFailure(string(metric), string(period))
		s.logger.Warnw("fetch task metric failed", "metric", metric, "period", period, "error", err)
		return zeroMetricResult()
	}
	metrics.ObserveUpstreamRequest("salesforce", "task_records", "ok", time.Since(started))

	records := make([]dashboarddomain.ActivityRecord, 0, len(result.Records))
	for _, raw := range result.Records {
		var row taskRow
		if err := json.Unmarshal(raw, &row); err != nil {
			s.logger.Warnw("decode task record failed", "metric", metric, "error", err)
			continue
		}
		// LIKE 过滤可能带回规则之外的 Subject，归类不一致的丢弃。
		rowCategory, ok := dashboarddomain.ClassifySubject(row.Subject)
		if !ok || rowCategory != category {
			continue
		}
		createdAt, err := parseCreatedDate(row.CreatedDate)
		if err != nil {
			s.logger.Warnw("parse task created date failed", "metric", metric, "value", row.CreatedDate, "error", err)
			continue
		}
		ownerID := row.OwnerID
		if ownerID == "" {
			ownerID = dashboarddomain.UnknownOwnerID
		}
		records = append(records, dashboarddomain.ActivityRecord{
			ID:        row.ID,
			OwnerID:   ownerID,
			Category:  rowCategory,
			CreatedAt: createdAt,
		})
	}

	kept := Deduplicate(records, s.cfg.DedupWindow)
	counts := GroupRecords(kept, roster)
	s.logger.Infow("task metric fetched", "metric", metric, "period", period, "raw", len(records), "kept", len(kept))
	return metricResult{counts: counts, total: len(kept)}
}

// fetchGroupedMetric 抓取字段型指标（评估、递件）：分组计数在
// 服务端完成，结构化字段没有重复打点问题，不需要去重。
func (s *Service) fetchGroupedMetric(
	ctx context.Context,
	metric Metric,
	boolField, dateField string,
	period Period,
	roster dashboarddomain.Roster,
) metricResult {
	soql := GroupedCountSOQL(s.cfg.ObjectName, boolField, dateField, period)

	started := time.Now()
	result, err := s.querier.Query(ctx, soql)
	if err != nil {
		metrics.ObserveUpstreamRequest("salesforce", "grouped_count", "error", time.Since(started))
		metrics.RecordMetricFailure(string(metric), string(period))
		s.logger.Warnw("fetch grouped metric failed", "metric", metric, "period", period, "error", err)
		return zeroMetricResult()
	}
	metrics.ObserveUpstreamRequest("salesforce", "grouped_count", "ok", time.Since(started))

	rows := make([]dashboarddomain.MetricCount, 0, len(result.Records))
	for _, raw := range result.Records {
		var row groupedRow
		if err := json.Unmarshal(raw, &row); err != nil {
			s.logger.Warnw("decode grouped record failed", "metric", metric, "error", err)
			continue
		}
		count := 0
		if row.Total != nil {
			count = *row.Total
		} else if row.Expr0 != nil {
			count = *row.Expr0
		}
		ownerID := row.OwnerID
		if ownerID == "" {
			ownerID = dashboarddomain.UnknownOwnerID
		}
		rows = append(rows, dashboarddomain.MetricCount{OwnerID: ownerID, Count: count})
	}

	counts := GroupCounts(rows, roster)
	total := counts.Total()
	s.logger.Infow("grouped metric fetched", "metric", metric, "period", period, "total", total)
	return metricResult{counts: counts, total: total}
}

// parseCreatedDate 解析 CreatedDate 字段，兼容毫秒偏移与 RFC3339 两种形态。
func parseCreatedDate(value string) (time.Time, error) {
	if parsed, err := time.Parse(createdDateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
