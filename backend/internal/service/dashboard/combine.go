package dashboard

import (
	"sort"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
)

// BrokerCount 是单指标下一名经纪人的计数行。
type BrokerCount struct {
	Name  string
	Count int
}

// MetricCounts 是 ownerId 到计数行的映射，每个指标各维护一份。
type MetricCounts map[string]BrokerCount

// CombineMode 控制合并时的经纪人集合口径。
type CombineMode int

const (
	// CombineActive 只输出四项指标中出现过的经纪人（月度与排行榜口径）。
	CombineActive CombineMode = iota
	// CombineRoster 输出花名册全员，无活动者填零（当日口径，
	// 让实时榜能展示整个团队）。
	CombineRoster
)

// GroupRecords 把去重后的活动记录按归属人计数，并通过花名册解析姓名。
func GroupRecords(records []dashboarddomain.ActivityRecord, roster dashboarddomain.Roster) MetricCounts {
	counts := make(MetricCounts)
	for _, record := range records {
		ownerID := record.OwnerID
		if ownerID == "" {
			ownerID = dashboarddomain.UnknownOwnerID
		}
		row := counts[ownerID]
		row.Name = roster.Resolve(ownerID)
		row.Count++
		counts[ownerID] = row
	}
	return counts
}

// GroupCounts 把上游已分组的计数行转成 MetricCounts。
func GroupCounts(rows []dashboarddomain.MetricCount, roster dashboarddomain.Roster) MetricCounts {
	counts := make(MetricCounts)
	for _, row := range rows {
		ownerID := row.OwnerID
		if ownerID == "" {
			ownerID = dashboarddomain.UnknownOwnerID
		}
		existing := counts[ownerID]
		existing.Name = roster.Resolve(ownerID)
		existing.Count += row.Count
		counts[ownerID] = existing
	}
	return counts
}

// Total 汇总一个指标下所有经纪人的计数。
func (m MetricCounts) Total() int {
	total := 0
	for _, row := range m {
		total += row.Count
	}
	return total
}

// Combine 把四个指标的计数map合并成按经纪人展开的统计行。
//
// CombineActive 取四个 map 的键并集；CombineRoster 在并集之外补齐
// 花名册全员，保证零活动的经纪人也出现在结果里。缺失指标填零。
// 结果按预约评估数降序排列，打平保持键名序（无业务含义的稳定顺序）。
func Combine(
	contacts MetricCounts,
	applications MetricCounts,
	appraisals MetricCounts,
	submissions MetricCounts,
	roster dashboarddomain.Roster,
	mode CombineMode,
) []dashboarddomain.BrokerStats {
	ids := make(map[string]struct{})
	for _, counts := range []MetricCounts{contacts, applications, appraisals, submissions} {
		for ownerID := range counts {
			ids[ownerID] = struct{}{}
		}
	}
	if mode == CombineRoster {
		for ownerID := range roster {
			ids[ownerID] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(ids))
	for ownerID := range ids {
		ordered = append(ordered, ownerID)
	}
	sort.Strings(ordered)

	stats := make([]dashboarddomain.BrokerStats, 0, len(ordered))
	for _, ownerID := range ordered {
		contData, contOK := contacts[ownerID]
		appData, appOK := applications[ownerID]
		apprData, apprOK := appraisals[ownerID]
		subData, subOK := submissions[ownerID]

		name := firstResolvedName(contOK, contData, appOK, appData, apprOK, apprData, subOK, subData)
		if name == "" {
			name = roster.Resolve(ownerID)
		}

		stats = append(stats, dashboarddomain.BrokerStats{
			UserID:            ownerID,
			UserName:          name,
			ContactsMade:      contData.Count,
			ApplicationsTaken: appData.Count,
			AppraisalsOrdered: apprData.Count,
			Submissions:       subData.Count,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AppraisalsOrdered > stats[j].AppraisalsOrdered
	})
	return stats
}

// TopN 截取排行榜前 n 名，入参已按主指标降序。
func TopN(stats []dashboarddomain.BrokerStats, n int) []dashboarddomain.BrokerStats {
	if n < 0 {
		n = 0
	}
	if n > len(stats) {
		n = len(stats)
	}
	top := make([]dashboarddomain.BrokerStats, n)
	copy(top, stats[:n])
	return top
}

// firstResolvedName 从四个指标行里取第一个可用姓名。
func firstResolvedName(
	contOK bool, contData BrokerCount,
	appOK bool, appData BrokerCount,
	apprOK bool, apprData BrokerCount,
	subOK bool, subData BrokerCount,
) string {
	if contOK && contData.Name != "" {
		return contData.Name
	}
	if appOK && appData.Name != "" {
		return appData.Name
	}
	if apprOK && apprData.Name != "" {
		return apprData.Name
	}
	if subOK && subData.Name != "" {
		return subData.Name
	}
	return ""
}
