package ringcentral

// CallMetrics 汇总一个周期内的通话指标。
type CallMetrics struct {
	TotalCalls   int               `json:"totalCalls"`
	ContactsMade int               `json:"contactsMade"`
	Voicemails   int               `json:"voicemails"`
	Missed       int               `json:"missed"`
	ByUser       []UserCallMetrics `json:"byUser"`
}

// UserCallMetrics 是按坐席拆分的通话指标。
type UserCallMetrics struct {
	ExtensionID   string `json:"extensionId"`
	UserName      string `json:"userName"`
	TotalCalls    int    `json:"totalCalls"`
	ContactsMade  int    `json:"contactsMade"`
	Voicemails    int    `json:"voicemails"`
	Missed        int    `json:"missed"`
	TotalDuration int    `json:"totalDuration"`
}

// EmptyCallMetrics 返回结构完整的零值通话指标。
func EmptyCallMetrics() CallMetrics {
	return CallMetrics{ByUser: []UserCallMetrics{}}
}

// CallLogRecord 对应 call-log 接口的单条记录（Simple 视图）。
type CallLogRecord struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Result    string `json:"result"`
	Duration  int    `json:"duration"`
	Extension *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"extension,omitempty"`
	From *callLogParty `json:"from,omitempty"`
	To   *callLogParty `json:"to,omitempty"`
}

type callLogParty struct {
	ExtensionID string `json:"extensionId"`
	Name        string `json:"name"`
}

// callLogResponse 是 call-log 接口的分页信封。
type callLogResponse struct {
	Records    []CallLogRecord `json:"records"`
	Navigation struct {
		NextPage *struct {
			URI string `json:"uri"`
		} `json:"nextPage"`
	} `json:"navigation"`
}

// tokenResponse 对应 OAuth token 接口的返回。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// aggregationResponse 对应 Analytics 聚合接口的返回，只保留需要的计数。
type aggregationResponse struct {
	Data []aggregationRow `json:"data"`
}

type aggregationRow struct {
	Key struct {
		UserID      string `json:"userId"`
		ExtensionID string `json:"extensionId"`
		Name        string `json:"name"`
	} `json:"key"`
	Counters struct {
		AllCalls struct {
			Sum int `json:"Sum"`
		} `json:"allCalls"`
		CallsByResult map[string]struct {
			Sum int `json:"Sum"`
		} `json:"callsByResult"`
	} `json:"counters"`
}
