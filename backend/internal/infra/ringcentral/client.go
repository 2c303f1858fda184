package ringcentral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"broker-dashboard-app/backend/internal/infra/ratelimit"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// defaultServerURL 是 RingCentral 生产环境入口。
	defaultServerURL = "https://platform.ringcentral.com"
	// defaultTimeout 控制单次 HTTP 请求的超时时间。
	defaultTimeout = 30 * time.Second
	// callLogPageSize 是 call-log 接口单页条数，Simple 视图允许的上限。
	callLogPageSize = 250
	// tokenExpirySlack 在令牌过期前提前刷新的余量。
	tokenExpirySlack = 60 * time.Second
)

// Options 汇总话务平台客户端的连接参数。
type Options struct {
	ServerURL    string
	ClientID     string
	ClientSecret string
	// JWTToken 是 JWT 授权方式的断言凭据。
	JWTToken string
	// Timezone 传给 Analytics 聚合接口的时间设置。
	Timezone string
	// MaxPages 限制 call-log 分页抓取的最大页数。
	MaxPages int
}

// APIError 封装 RingCentral 接口返回的错误。
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

// Client 封装话务平台的认证、分页拉取与聚合查询。
// 所有出站请求都先经过 pacer 排队，贴着上游的频率上限运行。
type Client struct {
	opts       Options
	httpClient *http.Client
	pacer      *ratelimit.Pacer

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option 用于自定义 Client 行为。
type Option func(*Client)

// WithHTTPClient 允许传入调用方自定义的 http.Client。
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient 构造话务平台客户端。构造阶段即检查 JWT 断言的有效期，
// 凭据已过期属于配置错误，直接在启动时暴露。
func NewClient(opts Options, pacer *ratelimit.Pacer, extra ...Option) (*Client, error) {
	if opts.ServerURL == "" {
		opts.ServerURL = defaultServerURL
	}
	opts.ServerURL = strings.TrimRight(opts.ServerURL, "/")
	if opts.JWTToken == "" {
		return nil, fmt.Errorf("ringcentral jwt token not configured")
	}
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("ringcentral client credentials not configured")
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}

	if err := checkAssertionExpiry(opts.JWTToken); err != nil {
		return nil, err
	}

	client := &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pacer:      pacer,
	}
	for _, opt := range extra {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// checkAssertionExpiry 解析（不验签）JWT 断言并检查 exp 声明。
func checkAssertionExpiry(assertion string) error {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(assertion, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("invalid ringcentral jwt token: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		// 无 exp 声明的长期凭据直接放行。
		return nil
	}
	if exp.Before(time.Now()) {
		return fmt.Errorf("ringcentral jwt token expired at %s", exp.Time.Format(time.RFC3339))
	}
	return nil
}

// authenticate 用 JWT 授权换取访问令牌，令牌有效期内直接复用。
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Add(tokenExpirySlack).Before(c.tokenExpiry) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", c.opts.JWTToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.ServerURL+"/restapi/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do token request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp.StatusCode, rawBody)
	}

	var token tokenResponse
	if err := json.Unmarshal(rawBody, &token); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response missing access_token")
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return nil
}

// CallLogs 分页拉取一个时间范围内的通话明细，页数受 MaxPages 约束。
// 中途某页失败时返回已拿到的记录；首页即失败才返回错误。
func (c *Client) CallLogs(ctx context.Context, from, to time.Time) ([]CallLogRecord, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	records := make([]CallLogRecord, 0, callLogPageSize)
	for page := 1; page <= c.opts.MaxPages; page++ {
		if err := c.pacer.Wait(ctx); err != nil {
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}

		payload, err := c.fetchCallLogPage(ctx, from, to, page)
		if err != nil {
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}
		records = append(records, payload.Records...)

		if payload.Navigation.NextPage == nil {
			break
		}
	}
	return records, nil
}

// fetchCallLogPage 拉取 call-log 的单页数据。
func (c *Client) fetchCallLogPage(ctx context.Context, from, to time.Time, page int) (callLogResponse, error) {
	query := url.Values{}
	query.Set("dateFrom", from.UTC().Format(time.RFC3339))
	query.Set("dateTo", to.UTC().Format(time.RFC3339))
	query.Set("view", "Simple")
	query.Set("type", "Voice")
	query.Set("perPage", strconv.Itoa(callLogPageSize))
	query.Set("page", strconv.Itoa(page))

	endpoint := c.opts.ServerURL + "/restapi/v1.0/account/~/call-log?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return callLogResponse{}, fmt.Errorf("build call-log request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return callLogResponse{}, fmt.Errorf("do call-log request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return callLogResponse{}, fmt.Errorf("read call-log response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return callLogResponse{}, parseAPIError(resp.StatusCode, rawBody)
	}

	var payload callLogResponse
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return callLogResponse{}, fmt.Errorf("parse call-log response: %w", err)
	}
	return payload, nil
}

// AggregateByUser 调用 Analytics 聚合接口，按坐席汇总一个时间范围的通话量。
// 月度视图优先走这里，比翻页累加 call-log 更准确也更省配额。
func (c *Client) AggregateByUser(ctx context.Context, from, to time.Time) (CallMetrics, error) {
	if err := c.authenticate(ctx); err != nil {
		return CallMetrics{}, err
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return CallMetrics{}, err
	}

	body := map[string]any{
		"grouping": map[string]any{
			"groupBy": "Users",
			"keys":    []string{},
		},
		"timeSettings": map[string]any{
			"timeZone": c.opts.Timezone,
			"timeRange": map[string]string{
				"timeFrom": from.UTC().Format(time.RFC3339),
				"timeTo":   to.UTC().Format(time.RFC3339),
			},
		},
		"responseOptions": map[string]any{
			"counters": map[string]any{
				"allCalls":         map[string]string{"aggregationType": "Sum"},
				"callsByDirection": map[string]string{"aggregationType": "Sum"},
				"callsByResult":    map[string]string{"aggregationType": "Sum"},
			},
		},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return CallMetrics{}, fmt.Errorf("marshal aggregation request: %w", err)
	}

	endpoint := c.opts.ServerURL + "/analytics/calls/v1/accounts/~/aggregation/fetch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return CallMetrics{}, fmt.Errorf("build aggregation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CallMetrics{}, fmt.Errorf("do aggregation request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallMetrics{}, fmt.Errorf("read aggregation response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return CallMetrics{}, parseAPIError(resp.StatusCode, rawBody)
	}

	var payload aggregationResponse
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return CallMetrics{}, fmt.Errorf("parse aggregation response: %w", err)
	}
	return reduceAggregation(payload), nil
}

// reduceAggregation 把聚合接口的原始计数折算成 CallMetrics。
// 月度口径与明细口径保持一致：Accepted/Call connected/Answered 计为触达。
func reduceAggregation(payload aggregationResponse) CallMetrics {
	metrics := CallMetrics{ByUser: []UserCallMetrics{}}

	for _, row := range payload.Data {
		byResult := row.Counters.CallsByResult
		answered := byResult["Accepted"].Sum + byResult["Call connected"].Sum + byResult["Answered"].Sum
		voicemails := byResult["Voicemail"].Sum
		missed := byResult["Missed"].Sum + byResult["No Answer"].Sum + byResult["Busy"].Sum

		metrics.TotalCalls += row.Counters.AllCalls.Sum
		metrics.ContactsMade += answered
		metrics.Voicemails += voicemails
		metrics.Missed += missed

		if row.Key.UserID == "" {
			continue
		}
		extensionID := row.Key.ExtensionID
		if extensionID == "" {
			extensionID = row.Key.UserID
		}
		userName := row.Key.Name
		if userName == "" {
			userName = unknownUserName
		}
		metrics.ByUser = append(metrics.ByUser, UserCallMetrics{
			ExtensionID:  extensionID,
			UserName:     userName,
			TotalCalls:   row.Counters.AllCalls.Sum,
			ContactsMade: answered,
			Voicemails:   voicemails,
			Missed:       missed,
		})
	}

	sort.SliceStable(metrics.ByUser, func(i, j int) bool {
		return metrics.ByUser[i].ContactsMade > metrics.ByUser[j].ContactsMade
	})
	return metrics
}

// token 返回当前缓存的访问令牌。
func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// parseAPIError 解析 RingCentral 的错误响应体。
func parseAPIError(status int, rawBody []byte) error {
	var payload APIError
	if err := json.Unmarshal(rawBody, &payload); err == nil && payload.Message != "" {
		payload.StatusCode = status
		return &payload
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(rawBody))}
}
