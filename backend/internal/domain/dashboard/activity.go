package dashboard

import (
	"strings"
	"time"
)

const (
	// UnknownOwnerID 是上游记录缺失归属人时使用的占位 ID。
	UnknownOwnerID = "unknown"
	// UnknownOwnerName 是花名册中查不到 ID 时的兜底展示名。
	UnknownOwnerName = "Unknown"
)

// Category 表示活动记录归属的指标类别，收敛上游自由文本的 Subject。
type Category string

const (
	CategoryContact     Category = "contact"
	CategoryApplication Category = "application"
)

// subjectRule 描述一条 Subject 到类别的映射规则。
type subjectRule struct {
	category Category
	subject  string
	prefix   bool
}

// subjectRules 是 CRM Task Subject 的识别表。前缀规则用于兼容
// "Outbound Call - Please Update" 这类带后缀的变体。
var subjectRules = []subjectRule{
	{category: CategoryApplication, subject: "Application Taken"},
	{category: CategoryContact, subject: "Outbound Call", prefix: true},
}

// ClassifySubject 将原始 Subject 映射到指标类别，匹配不到返回 false。
func ClassifySubject(subject string) (Category, bool) {
	subject = strings.TrimSpace(subject)
	for _, rule := range subjectRules {
		if rule.prefix {
			if strings.HasPrefix(subject, rule.subject) {
				return rule.category, true
			}
			continue
		}
		if subject == rule.subject {
			return rule.category, true
		}
	}
	return "", false
}

// SubjectFilter 返回某个类别对应的 SOQL Subject 过滤片段信息。
// exact 为 true 时按等值匹配，否则按前缀 LIKE 匹配。
func SubjectFilter(category Category) (subject string, exact bool, ok bool) {
	for _, rule := range subjectRules {
		if rule.category == category {
			return rule.subject, !rule.prefix, true
		}
	}
	return "", false, false
}

// BrokerIdentity 表示花名册中的一名在职经纪人。
type BrokerIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster 是 ownerId 到展示名的查找表，每次构建快照时拉取一次。
type Roster map[string]string

// NewRoster 由经纪人名单构建查找表，空 ID 的条目丢弃。
func NewRoster(brokers []BrokerIdentity) Roster {
	roster := make(Roster, len(brokers))
	for _, broker := range brokers {
		if broker.ID == "" {
			continue
		}
		roster[broker.ID] = broker.Name
	}
	return roster
}

// Resolve 按 ID 解析经纪人姓名，缺失时返回 Unknown。
func (r Roster) Resolve(ownerID string) string {
	if name, ok := r[ownerID]; ok && name != "" {
		return name
	}
	return UnknownOwnerName
}

// ActivityRecord 表示 CRM 中一条已分类的活动记录（Task）。
type ActivityRecord struct {
	ID        string
	OwnerID   string
	Category  Category
	CreatedAt time.Time
}

// MetricCount 表示单经纪人在单指标上的计数行。
type MetricCount struct {
	OwnerID string
	Count   int
}
