package ringcentral

import "sort"

// 通话结果到指标口径的归类表。Accepted/Answered 视作有效触达，
// 其余按留言与未接分别累计。
var (
	answeredResults  = map[string]bool{"Accepted": true, "Call connected": true, "Answered": true}
	voicemailResults = map[string]bool{"Voicemail": true}
	missedResults    = map[string]bool{"Missed": true, "No Answer": true, "Hang Up": true, "Busy": true, "Rejected": true}
)

const (
	unknownExtensionID = "unknown"
	unknownUserName    = "Unknown User"
)

// AnalyzeCallLogs 对通话明细分类汇总。外呼取 from 侧坐席，呼入取 to 侧，
// 两者都缺失时回落到记录级 extension 字段。
func AnalyzeCallLogs(records []CallLogRecord) CallMetrics {
	userMap := make(map[string]*UserCallMetrics)
	order := make([]string, 0)
	metrics := CallMetrics{
		TotalCalls: len(records),
		ByUser:     []UserCallMetrics{},
	}

	for _, call := range records {
		userID, userName := callOwner(call)

		user, ok := userMap[userID]
		if !ok {
			user = &UserCallMetrics{ExtensionID: userID, UserName: userName}
			userMap[userID] = user
			order = append(order, userID)
		}
		user.TotalCalls++
		user.TotalDuration += call.Duration

		switch {
		case answeredResults[call.Result]:
			metrics.ContactsMade++
			user.ContactsMade++
		case voicemailResults[call.Result]:
			metrics.Voicemails++
			user.Voicemails++
		case missedResults[call.Result]:
			metrics.Missed++
			user.Missed++
		}
	}

	for _, id := range order {
		metrics.ByUser = append(metrics.ByUser, *userMap[id])
	}
	sort.SliceStable(metrics.ByUser, func(i, j int) bool {
		return metrics.ByUser[i].ContactsMade > metrics.ByUser[j].ContactsMade
	})

	return metrics
}

// callOwner 解析一条通话记录归属的坐席。
func callOwner(call CallLogRecord) (string, string) {
	userID := unknownExtensionID
	userName := unknownUserName

	switch {
	case call.Direction == "Outbound" && call.From != nil:
		userID = firstNonEmpty(call.From.ExtensionID, extensionID(call), unknownExtensionID)
		userName = firstNonEmpty(call.From.Name, extensionName(call), unknownUserName)
	case call.Direction == "Inbound" && call.To != nil:
		userID = firstNonEmpty(call.To.ExtensionID, extensionID(call), unknownExtensionID)
		userName = firstNonEmpty(call.To.Name, extensionName(call), unknownUserName)
	case call.Extension != nil:
		userID = firstNonEmpty(call.Extension.ID, unknownExtensionID)
		userName = firstNonEmpty(call.Extension.Name, unknownUserName)
	}

	return userID, userName
}

func extensionID(call CallLogRecord) string {
	if call.Extension != nil {
		return call.Extension.ID
	}
	return ""
}

func extensionName(call CallLogRecord) string {
	if call.Extension != nil {
		return call.Extension.Name
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
