package dashboard

import (
	"context"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
	appLogger "broker-dashboard-app/backend/internal/infra/logger"
	"broker-dashboard-app/backend/internal/infra/metrics"
	"broker-dashboard-app/backend/internal/service/period"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDedupWindow     = 3000 * time.Millisecond
	defaultRosterLimit     = 200
	defaultTaskLimit       = 2000
	defaultLeaderboardSize = 5
	defaultObjectName      = "Opportunity"
)

// 评估与递件指标所在业务对象上的结构化字段。
const (
	appraisalBoolField  = "Appraisal_Ordered__c"
	appraisalDateField  = "Appraisal_Date__c"
	submissionBoolField = "Submitted_to_Lender__c"
	submissionDateField = "Date_Submitted__c"
)

// Config 汇总快照构建的业务参数。
type Config struct {
	// ObjectName 是字段型指标所在的业务对象。
	ObjectName string
	// DedupWindow 是任务型指标的去重窗口。
	DedupWindow time.Duration
	// RosterLimit 与 TaskLimit 约束两类查询的返回规模。
	RosterLimit int
	TaskLimit   int
	// LeaderboardSize 是排行榜人数。
	LeaderboardSize int
	// Now 用于测试注入固定时钟，空值时取系统时间。
	Now func() time.Time
}

// Service 负责编排一次完整的仪表盘快照构建：
// 花名册 → 四项指标 × 两个周期（严格串行）→ 合并 → 排行榜。
// 任何单个指标失败只会把该指标降级为零，不会让快照整体失败。
type Service struct {
	cfg     Config
	logger  *zap.SugaredLogger
	querier Querier
	periods *period.Calculator
}

// NewService 构造快照服务，logger 为空时使用默认日志实例。
func NewService(cfg Config, logger *zap.SugaredLogger, querier Querier, periods *period.Calculator) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.dashboard")
	}
	if cfg.ObjectName == "" {
		cfg.ObjectName = defaultObjectName
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = defaultDedupWindow
	}
	if cfg.RosterLimit <= 0 {
		cfg.RosterLimit = defaultRosterLimit
	}
	if cfg.TaskLimit <= 0 {
		cfg.TaskLimit = defaultTaskLimit
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = defaultLeaderboardSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:     cfg,
		logger:  logger,
		querier: querier,
		periods: periods,
	}
}

// BuildSnapshot 构建一份完整快照。出错粒度被压到单指标单周期，
// 消费方永远拿到结构完整的结果。
func (s *Service) BuildSnapshot(ctx context.Context) dashboarddomain.Snapshot {
	now := s.cfg.Now()
	buildID := uuid.NewString()
	bounds := s.periods.Boundaries(now)

	logger := s.logger.With("build_id", buildID)
	logger.Infow("snapshot build started",
		"today_start", bounds.TodayStart.Format(time.RFC3339),
		"today_end", bounds.TodayEnd.Format(time.RFC3339),
	)

	roster := s.fetchRoster(ctx)

	// 全部查询严格串行，贴着上游的请求频率限制运行。
	daily := s.buildPeriod(ctx, PeriodDaily, bounds, roster)
	monthly := s.buildPeriod(ctx, PeriodMonthly, bounds, roster)

	snapshot := dashboarddomain.Snapshot{
		BuildID:     buildID,
		Timestamp:   now,
		Daily:       daily,
		Monthly:     monthly,
		Leaderboard: TopN(monthly.ByBroker, s.cfg.LeaderboardSize),
	}

	metrics.RecordSnapshotBuild("ok")
	logger.Infow("snapshot build finished",
		"daily_contacts", daily.ContactsMade,
		"monthly_contacts", monthly.ContactsMade,
		"leaderboard_size", len(snapshot.Leaderboard),
	)
	return snapshot
}

// buildPeriod 构建单个周期的指标汇总。当日口径展示花名册全员，
// 月度口径只包含有活动的经纪人。
func (s *Service) buildPeriod(ctx context.Context, p Period, bounds period.Bounds, roster dashboarddomain.Roster) dashboarddomain.PeriodTotals {
	start, end := bounds.TodayStart, bounds.TodayEnd
	if p == PeriodMonthly {
		start, end = bounds.MonthStart, bounds.MonthEnd
	}

	contacts := s.fetchTaskMetric(ctx, MetricContacts, dashboarddomain.CategoryContact, start, end, p, roster)
	applications := s.fetchTaskMetric(ctx, MetricApplications, dashboarddomain.CategoryApplication, start, end, p, roster)
	appraisals := s.fetchGroupedMetric(ctx, MetricAppraisals, appraisalBoolField, appraisalDateField, p, roster)
	submissions := s.fetchGroupedMetric(ctx, MetricSubmissions, submissionBoolField, submissionDateField, p, roster)

	mode := CombineActive
	if p == PeriodDaily {
		mode = CombineRoster
	}
	byBroker := Combine(contacts.counts, applications.counts, appraisals.counts, submissions.counts, roster, mode)

	return dashboarddomain.PeriodTotals{
		ContactsMade:      contacts.total,
		ApplicationsTaken: applications.total,
		AppraisalsOrdered: appraisals.total,
		Submissions:       submissions.total,
		ByBroker:          byBroker,
	}
}
