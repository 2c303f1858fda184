package salesforce

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// defaultLoginURL 是生产组织的默认登录入口。
	defaultLoginURL = "https://login.salesforce.com"
	// defaultAPIVersion 是 REST/SOAP 接口的默认版本号。
	defaultAPIVersion = "58.0"
	// defaultTimeout 控制单次 HTTP 请求的超时时间。
	defaultTimeout = 30 * time.Second
)

// soapLoginEnvelope 是 SOAP 登录请求的固定模板，凭据经 XML 转义后填入。
const soapLoginEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">
  <soapenv:Body>
    <urn:login>
      <urn:username>%s</urn:username>
      <urn:password>%s</urn:password>
    </urn:login>
  </soapenv:Body>
</soapenv:Envelope>`

// Credentials 汇总用户名密码方式登录所需的凭据。
// SecurityToken 会按 Salesforce 的约定拼接在密码之后。
type Credentials struct {
	Username      string
	Password      string
	SecurityToken string
}

// Client 封装 Salesforce 的登录态与 SOQL 查询能力。
// 会话惰性建立，收到 401 时重新登录并重试一次。
type Client struct {
	loginURL   string
	apiVersion string
	creds      Credentials
	httpClient *http.Client

	mu          sync.Mutex
	instanceURL string
	sessionID   string
}

// Option 用于自定义 Client 行为。
type Option func(*Client)

// WithHTTPClient 允许传入调用方自定义的 http.Client。
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAPIVersion 覆盖默认的接口版本。
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = strings.TrimPrefix(strings.TrimSpace(version), "v")
	}
}

// WithLoginURL 覆盖登录入口，沙箱组织使用 test.salesforce.com。
func WithLoginURL(loginURL string) Option {
	return func(c *Client) {
		c.loginURL = strings.TrimRight(loginURL, "/")
	}
}

// NewClient 构造 Salesforce 客户端，默认 30 秒超时。
func NewClient(creds Credentials, opts ...Option) *Client {
	client := &Client{
		loginURL:   defaultLoginURL,
		apiVersion: defaultAPIVersion,
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.loginURL == "" {
		client.loginURL = defaultLoginURL
	}
	return client
}

// Login 通过 SOAP partner 接口换取会话，成功后缓存 sessionId 与实例地址。
func (c *Client) Login(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("salesforce client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.creds.Username == "" || c.creds.Password == "" {
		return fmt.Errorf("salesforce credentials not configured")
	}

	var username, password strings.Builder
	_ = xml.EscapeText(&username, []byte(c.creds.Username))
	_ = xml.EscapeText(&password, []byte(c.creds.Password+c.creds.SecurityToken))
	body := fmt.Sprintf(soapLoginEnvelope, username.String(), password.String())

	endpoint := fmt.Sprintf("%s/services/Soap/u/%s", c.loginURL, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do login request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var fault loginFault
		if err := xml.Unmarshal(rawBody, &fault); err == nil && fault.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, ErrorCode: fault.Code, Message: fault.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("login failed with status %d", resp.StatusCode)}
	}

	var parsed loginResponse
	if err := xml.Unmarshal(rawBody, &parsed); err != nil {
		return fmt.Errorf("parse login response: %w", err)
	}
	if parsed.SessionID == "" || parsed.ServerURL == "" {
		return fmt.Errorf("login response missing session")
	}

	serverURL, err := url.Parse(parsed.ServerURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}

	c.mu.Lock()
	c.sessionID = parsed.SessionID
	c.instanceURL = serverURL.Scheme + "://" + serverURL.Host
	c.mu.Unlock()
	return nil
}

// Query 执行一条 SOQL 查询。未登录时先登录，遇到 401 重新登录并重试一次。
func (c *Client) Query(ctx context.Context, soql string) (QueryResult, error) {
	if c == nil {
		return QueryResult{}, fmt.Errorf("salesforce client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(soql) == "" {
		return QueryResult{}, fmt.Errorf("soql is empty")
	}

	if c.session() == "" {
		if err := c.Login(ctx); err != nil {
			return QueryResult{}, err
		}
	}

	result, err := c.doQuery(ctx, soql)
	var apiErr *APIError
	if err != nil && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// 会话过期，重建一次。
		c.invalidateSession()
		if err := c.Login(ctx); err != nil {
			return QueryResult{}, err
		}
		return c.doQuery(ctx, soql)
	}
	return result, err
}

// doQuery 向 REST query 接口发起一次请求并解析结果。
func (c *Client) doQuery(ctx context.Context, soql string) (QueryResult, error) {
	c.mu.Lock()
	instanceURL, sessionID := c.instanceURL, c.sessionID
	c.mu.Unlock()
	if instanceURL == "" || sessionID == "" {
		return QueryResult{}, fmt.Errorf("salesforce session not established")
	}

	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s", instanceURL, c.apiVersion, url.QueryEscape(soql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return QueryResult{}, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("do query request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueryResult{}, fmt.Errorf("read query response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return QueryResult{}, parseAPIError(resp.StatusCode, rawBody)
	}

	var result QueryResult
	if err := json.Unmarshal(rawBody, &result); err != nil {
		return QueryResult{}, fmt.Errorf("parse query response: %w", err)
	}
	return result, nil
}

// session 返回当前缓存的会话标识。
func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// invalidateSession 清空会话，强制下一次请求重新登录。
func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

// parseAPIError 解析 REST 错误响应。Salesforce 以 JSON 数组返回错误明细。
func parseAPIError(status int, rawBody []byte) error {
	var payload []APIError
	if err := json.Unmarshal(rawBody, &payload); err == nil && len(payload) > 0 {
		first := payload[0]
		first.StatusCode = status
		return &first
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(rawBody))}
}
