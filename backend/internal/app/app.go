/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-21 10:22:08
 * @FilePath: \broker-dashboard-app\backend\internal\app\app.go
 * @LastEditTime: 2025-10-21 10:22:15
 */
package app

import (
	"context"
	"fmt"
	"log"

	"broker-dashboard-app/backend/internal/config"
	infraclient "broker-dashboard-app/backend/internal/infra/client"
	appLogger "broker-dashboard-app/backend/internal/infra/logger"
	"broker-dashboard-app/backend/internal/infra/ratelimit"
	"broker-dashboard-app/backend/internal/infra/ringcentral"
	"broker-dashboard-app/backend/internal/infra/salesforce"
	callssvc "broker-dashboard-app/backend/internal/service/calls"
	dashboardsvc "broker-dashboard-app/backend/internal/service/dashboard"
	"broker-dashboard-app/backend/internal/service/period"

	"github.com/redis/go-redis/v9"
)

// Resources 汇总应用启动后持有的外部连接与服务实例。
type Resources struct {
	Config     config.DashboardConfig
	Redis      *redis.Client
	Salesforce *salesforce.Client
	Dashboard  *dashboardsvc.Service
	Calls      *callssvc.Service
}

// Bootstrap 装载配置并组装全部服务。Redis 与话务平台都是可选依赖，
// 缺席时对应能力降级，CRM 凭据缺失则启动失败。
func Bootstrap(ctx context.Context) (*Resources, error) {
	cfg, err := config.LoadDashboardConfig()
	if err != nil {
		return nil, fmt.Errorf("load dashboard config: %w", err)
	}

	logger := appLogger.S().With("component", "app")

	redisClient := connectRedis()

	periods, err := period.NewCalculator(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("build period calculator: %w", err)
	}

	sfClient := salesforce.NewClient(salesforce.Credentials{
		Username:      cfg.Salesforce.Username,
		Password:      cfg.Salesforce.Password,
		SecurityToken: cfg.Salesforce.SecurityToken,
	}, salesforce.WithLoginURL(cfg.Salesforce.LoginURL))

	dashboardSvc := dashboardsvc.NewService(dashboardsvc.Config{
		ObjectName:      cfg.Salesforce.ObjectName,
		DedupWindow:     cfg.DedupWindow,
		RosterLimit:     cfg.RosterLimit,
		TaskLimit:       cfg.TaskLimit,
		LeaderboardSize: cfg.LeaderboardSize,
	}, nil, sfClient, periods)

	var callsSvc *callssvc.Service
	if cfg.RingCentral.Enabled() {
		pacer := ratelimit.NewPacer(cfg.RingCentral.MinInterval, nil)
		rcClient, err := ringcentral.NewClient(ringcentral.Options{
			ServerURL:    cfg.RingCentral.ServerURL,
			ClientID:     cfg.RingCentral.ClientID,
			ClientSecret: cfg.RingCentral.ClientSecret,
			JWTToken:     cfg.RingCentral.JWTToken,
			Timezone:     cfg.RingCentral.Timezone,
			MaxPages:     cfg.RingCentral.MaxPages,
		}, pacer)
		if err != nil {
			return nil, fmt.Errorf("build ringcentral client: %w", err)
		}
		cache := ringcentral.NewMetricsCache(redisClient, cfg.RingCentral.CacheTTL, nil)
		callsSvc = callssvc.NewService(callssvc.Config{}, nil, rcClient, cache, periods)
	} else {
		logger.Infow("ringcentral not configured, call metrics disabled")
	}

	return &Resources{
		Config:     cfg,
		Redis:      redisClient,
		Salesforce: sfClient,
		Dashboard:  dashboardSvc,
		Calls:      callsSvc,
	}, nil
}

// connectRedis 尝试连接 Redis，失败时返回 nil 并降级缓存与限流能力。
func connectRedis() *redis.Client {
	logger := appLogger.S().With("component", "app")

	opts, err := infraclient.NewDefaultRedisOptions()
	if err != nil {
		logger.Warnw("redis options unavailable, cache disabled", "error", err)
		return nil
	}
	client, err := infraclient.NewRedisClient(opts)
	if err != nil {
		logger.Warnw("redis unreachable, cache disabled", "error", err)
		return nil
	}
	return client
}

// Close 释放已持有的外部连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			return err
		}
	}
	return nil
}

// WithShutdown 执行主逻辑并在结束后触发 cancel，失败时直接终止进程。
func WithShutdown(ctx context.Context, cancel func(), fn func(context.Context) error) {
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
