package dashboard

import (
	"fmt"
	"strings"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
)

// Period 表示统计周期。
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Metric 枚举四项业务指标，用于日志与监控标签。
type Metric string

const (
	MetricContacts     Metric = "contacts"
	MetricApplications Metric = "applications"
	MetricAppraisals   Metric = "appraisals"
	MetricSubmissions  Metric = "submissions"
)

// soqlTimeLayout 是 SOQL datetime 字面量使用的格式。
const soqlTimeLayout = "2006-01-02T15:04:05Z"

// RosterSOQL 生成在职经纪人花名册查询。
func RosterSOQL(limit int) string {
	return fmt.Sprintf("SELECT Id, Name FROM User WHERE IsActive = true LIMIT %d", limit)
}

// TaskRecordsSOQL 生成任务明细查询：按 Subject 规则过滤、限定创建时间
// 区间并按创建时间升序返回，供去重逻辑消费。
func TaskRecordsSOQL(category dashboarddomain.Category, start, end time.Time, limit int) (string, error) {
	subject, exact, ok := dashboarddomain.SubjectFilter(category)
	if !ok {
		return "", fmt.Errorf("no subject rule for category %q", category)
	}

	var subjectFilter string
	if exact {
		subjectFilter = fmt.Sprintf("Subject = '%s'", escapeSOQL(subject))
	} else {
		subjectFilter = fmt.Sprintf("Subject LIKE '%s%%'", escapeSOQL(subject))
	}

	return fmt.Sprintf(
		"SELECT Id, OwnerId, Subject, CreatedDate FROM Task WHERE %s AND CreatedDate >= %s AND CreatedDate < %s ORDER BY CreatedDate ASC LIMIT %d",
		subjectFilter,
		start.UTC().Format(soqlTimeLayout),
		end.UTC().Format(soqlTimeLayout),
		limit,
	), nil
}

// GroupedCountSOQL 生成字段型指标的服务端分组计数查询。
// 日期字段为 Date 类型，直接用 TODAY/THIS_MONTH 字面量比较。
func GroupedCountSOQL(object, boolField, dateField string, period Period) string {
	literal := "TODAY"
	if period == PeriodMonthly {
		literal = "THIS_MONTH"
	}
	return fmt.Sprintf(
		"SELECT OwnerId, COUNT(Id) total FROM %s WHERE %s = true AND %s = %s GROUP BY OwnerId ORDER BY COUNT(Id) DESC",
		object, boolField, dateField, literal,
	)
}

// escapeSOQL 转义字符串字面量中的引号与反斜杠。
func escapeSOQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
