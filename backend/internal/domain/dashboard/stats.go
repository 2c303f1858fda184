package dashboard

import "time"

// BrokerStats 汇总单个经纪人在一个统计周期内的四项指标。
type BrokerStats struct {
	UserID            string `json:"userId"`
	UserName          string `json:"userName"`
	ContactsMade      int    `json:"contactsMade"`
	ApplicationsTaken int    `json:"applicationsTaken"`
	AppraisalsOrdered int    `json:"appraisalsOrdered"`
	Submissions       int    `json:"submissions"`
}

// PeriodTotals 描述某个周期（当日或当月）的整体指标与按经纪人拆分的明细。
type PeriodTotals struct {
	ContactsMade      int           `json:"contactsMade"`
	ApplicationsTaken int           `json:"applicationsTaken"`
	AppraisalsOrdered int           `json:"appraisalsOrdered"`
	Submissions       int           `json:"submissions"`
	ByBroker          []BrokerStats `json:"byBroker"`
}

// Snapshot 是仪表盘的一次完整计算结果，供前端轮询直接展示。
type Snapshot struct {
	BuildID     string        `json:"buildId"`
	Timestamp   time.Time     `json:"timestamp"`
	Daily       PeriodTotals  `json:"daily"`
	Monthly     PeriodTotals  `json:"monthly"`
	Leaderboard []BrokerStats `json:"leaderboard"`
}
