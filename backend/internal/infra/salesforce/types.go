package salesforce

import (
	"encoding/json"
	"fmt"
)

// QueryResult 是 SOQL 查询的统一返回结构。Records 保留原始 JSON，
// 由调用方按查询形态反序列化成行结构。
type QueryResult struct {
	TotalSize int               `json:"totalSize"`
	Done      bool              `json:"done"`
	Records   []json.RawMessage `json:"records"`
}

// loginResponse 对应 SOAP 登录响应中需要的字段。
type loginResponse struct {
	ServerURL string `xml:"Body>loginResponse>result>serverUrl"`
	SessionID string `xml:"Body>loginResponse>result>sessionId"`
}

// loginFault 对应 SOAP 登录失败时的错误信封。
type loginFault struct {
	Code    string `xml:"Body>Fault>faultcode"`
	Message string `xml:"Body>Fault>faultstring"`
}

// APIError 封装 Salesforce REST 接口返回的错误，便于上层识别。
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.ErrorCode)
	}
	return e.Message
}
