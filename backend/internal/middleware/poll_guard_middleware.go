/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-21 10:05:32
 * @FilePath: \broker-dashboard-app\backend\internal\middleware\poll_guard_middleware.go
 * @LastEditTime: 2025-10-21 10:05:40
 */
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"broker-dashboard-app/backend/internal/config"
	response "broker-dashboard-app/backend/internal/infra/common"
	appLogger "broker-dashboard-app/backend/internal/infra/logger"
	"broker-dashboard-app/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PollGuardMiddleware 对仪表盘接口做按 IP 的固定窗口限流，
// 挡住失控的前端轮询。限流器不可用时放行，不把 Redis 故障放大成接口故障。
type PollGuardMiddleware struct {
	limiter ratelimit.Limiter
	cfg     config.PollGuardConfig
	logger  *zap.SugaredLogger
}

// NewPollGuardMiddleware 构建 PollGuardMiddleware。
func NewPollGuardMiddleware(limiter ratelimit.Limiter, cfg config.PollGuardConfig) *PollGuardMiddleware {
	if cfg.Limit <= 0 {
		cfg.Limit = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &PollGuardMiddleware{
		limiter: limiter,
		cfg:     cfg,
		logger:  appLogger.S().With("component", "middleware.pollguard"),
	}
}

// Handle 返回 Gin 中间件，超出窗口配额的请求返回 429 并带 Retry-After。
func (m *PollGuardMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || !m.cfg.Enabled || m.limiter == nil {
			c.Next()
			return
		}
		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			c.Next()
			return
		}

		result, err := m.limiter.Allow(c.Request.Context(), "poll:"+ip, m.cfg.Limit, m.cfg.Window)
		if err != nil {
			m.logger.Warnw("poll guard allow failed", "ip", ip, "error", err)
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())))
			}
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "polling too frequently", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
