package dashboard

import (
	"sort"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
)

// dedupKey 是去重的分组维度：同一归属人加同一类别视为同一件事。
type dedupKey struct {
	owner    string
	category dashboarddomain.Category
}

// Deduplicate 清理上游重复打点产生的近邻记录。
//
// 记录先按创建时间升序排列，然后对每个 (ownerId, category) 键做贪心
// 流式过滤：距离该键上一条“被保留”记录不超过 window 的记录丢弃，
// 超过 window 的保留并刷新基准。窗口从上一条保留记录起算，
// 所以 t=0/2000/4500 的三连只会留下 t=0 与 t=4500 两条。
// 对自身输出再跑一遍结果不变。
func Deduplicate(records []dashboarddomain.ActivityRecord, window time.Duration) []dashboarddomain.ActivityRecord {
	if len(records) == 0 {
		return []dashboarddomain.ActivityRecord{}
	}

	sorted := make([]dashboarddomain.ActivityRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	lastKept := make(map[dedupKey]time.Time)
	kept := make([]dashboarddomain.ActivityRecord, 0, len(sorted))

	for _, record := range sorted {
		key := dedupKey{owner: record.OwnerID, category: record.Category}
		if last, seen := lastKept[key]; seen && record.CreatedAt.Sub(last) <= window {
			continue
		}
		lastKept[key] = record.CreatedAt
		kept = append(kept, record)
	}

	return kept
}
