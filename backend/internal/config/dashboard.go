package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimezone        = "America/New_York"
	defaultLoginURL        = "https://login.salesforce.com"
	defaultObjectName      = "Opportunity"
	defaultDedupWindow     = 3000 * time.Millisecond
	defaultRosterLimit     = 200
	defaultTaskLimit       = 2000
	defaultLeaderboardSize = 5

	defaultRCServerURL   = "https://platform.ringcentral.com"
	defaultRCTimezone    = "America/Los_Angeles"
	defaultRCMinInterval = 7 * time.Second
	defaultRCCacheTTL    = 5 * time.Minute
	defaultRCMaxPages    = 10

	defaultPollGuardLimit  = 30
	defaultPollGuardWindow = time.Minute
)

// SalesforceConfig 汇总 CRM 侧的连接信息与查询参数。
type SalesforceConfig struct {
	LoginURL      string
	Username      string
	Password      string
	SecurityToken string
	// ObjectName 是承载评估/递交字段的业务对象，默认 Opportunity。
	ObjectName string
}

// RingCentralConfig 汇总话务平台的连接与限速参数。
type RingCentralConfig struct {
	ServerURL    string
	ClientID     string
	ClientSecret string
	JWTToken     string
	Timezone     string
	MinInterval  time.Duration
	CacheTTL     time.Duration
	MaxPages     int
}

// Enabled 判断话务侧是否配置完整，缺失时仪表盘只降级掉通话板块。
func (c RingCentralConfig) Enabled() bool {
	return c.JWTToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// PollGuardConfig 控制仪表盘接口的轮询限流，依赖 Redis，
// 未启用或 Redis 缺席时直接放行。
type PollGuardConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// DashboardConfig 是仪表盘服务的全部运行配置。
type DashboardConfig struct {
	// Timezone 是统计周期使用的民用时区，装载时即校验合法性。
	Timezone        string
	DedupWindow     time.Duration
	RosterLimit     int
	TaskLimit       int
	LeaderboardSize int
	Salesforce      SalesforceConfig
	RingCentral     RingCentralConfig
	PollGuard       PollGuardConfig
}

// LoadDashboardConfig 从环境变量装载仪表盘配置并校验必填项。
// CRM 凭据缺失或时区非法属于配置错误，直接在启动阶段失败。
func LoadDashboardConfig() (DashboardConfig, error) {
	LoadEnvFiles()

	cfg := DashboardConfig{
		Timezone:        envOrDefault("SF_TIMEZONE", defaultTimezone),
		DedupWindow:     defaultDedupWindow,
		RosterLimit:     defaultRosterLimit,
		TaskLimit:       defaultTaskLimit,
		LeaderboardSize: defaultLeaderboardSize,
		Salesforce: SalesforceConfig{
			LoginURL:      envOrDefault("SF_LOGIN_URL", defaultLoginURL),
			Username:      strings.TrimSpace(os.Getenv("SF_USERNAME")),
			Password:      os.Getenv("SF_PASSWORD"),
			SecurityToken: os.Getenv("SF_SECURITY_TOKEN"),
			ObjectName:    envOrDefault("SF_APPLICATION_OBJECT", defaultObjectName),
		},
		RingCentral: RingCentralConfig{
			ServerURL:    envOrDefault("RC_SERVER_URL", defaultRCServerURL),
			ClientID:     strings.TrimSpace(os.Getenv("RC_CLIENT_ID")),
			ClientSecret: os.Getenv("RC_CLIENT_SECRET"),
			JWTToken:     strings.TrimSpace(os.Getenv("RC_JWT_TOKEN")),
			Timezone:     envOrDefault("RC_TIMEZONE", defaultRCTimezone),
			MinInterval:  defaultRCMinInterval,
			CacheTTL:     defaultRCCacheTTL,
			MaxPages:     defaultRCMaxPages,
		},
		PollGuard: PollGuardConfig{
			Enabled: envBool("DASHBOARD_POLL_GUARD", false),
			Limit:   defaultPollGuardLimit,
			Window:  defaultPollGuardWindow,
		},
	}

	if raw := strings.TrimSpace(os.Getenv("DASHBOARD_DEDUP_WINDOW_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return DashboardConfig{}, fmt.Errorf("invalid DASHBOARD_DEDUP_WINDOW_MS %q", raw)
		}
		cfg.DedupWindow = time.Duration(ms) * time.Millisecond
	}
	if v, err := envPositiveInt("DASHBOARD_ROSTER_LIMIT", cfg.RosterLimit); err != nil {
		return DashboardConfig{}, err
	} else {
		cfg.RosterLimit = v
	}
	if v, err := envPositiveInt("DASHBOARD_TASK_LIMIT", cfg.TaskLimit); err != nil {
		return DashboardConfig{}, err
	} else {
		cfg.TaskLimit = v
	}
	if v, err := envPositiveInt("DASHBOARD_LEADERBOARD_SIZE", cfg.LeaderboardSize); err != nil {
		return DashboardConfig{}, err
	} else {
		cfg.LeaderboardSize = v
	}
	if v, err := envPositiveInt("RC_MAX_PAGES", cfg.RingCentral.MaxPages); err != nil {
		return DashboardConfig{}, err
	} else {
		cfg.RingCentral.MaxPages = v
	}
	if raw := strings.TrimSpace(os.Getenv("RC_MIN_INTERVAL_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return DashboardConfig{}, fmt.Errorf("invalid RC_MIN_INTERVAL_MS %q", raw)
		}
		cfg.RingCentral.MinInterval = time.Duration(ms) * time.Millisecond
	}
	if v, err := envPositiveInt("DASHBOARD_POLL_GUARD_LIMIT", cfg.PollGuard.Limit); err != nil {
		return DashboardConfig{}, err
	} else {
		cfg.PollGuard.Limit = v
	}
	if raw := strings.TrimSpace(os.Getenv("DASHBOARD_POLL_GUARD_WINDOW")); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil || window <= 0 {
			return DashboardConfig{}, fmt.Errorf("invalid DASHBOARD_POLL_GUARD_WINDOW %q", raw)
		}
		cfg.PollGuard.Window = window
	}
	if raw := strings.TrimSpace(os.Getenv("RC_CACHE_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return DashboardConfig{}, fmt.Errorf("invalid RC_CACHE_TTL %q", raw)
		}
		cfg.RingCentral.CacheTTL = ttl
	}

	// 时区与凭据都在装载阶段校验，避免每次请求才暴露配置错误。
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return DashboardConfig{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Salesforce.Username == "" || cfg.Salesforce.Password == "" {
		return DashboardConfig{}, fmt.Errorf("salesforce credentials not configured")
	}

	return cfg, nil
}

// envOrDefault 读取环境变量，空值时回退默认值。
func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// envBool 解析布尔型环境变量，解析失败时回退默认值。
func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// envPositiveInt 解析必须为正整数的环境变量，未设置时使用默认值。
func envPositiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return parsed, nil
}
