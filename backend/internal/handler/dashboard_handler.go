package handler

import (
	"net/http"
	"time"

	dashboarddomain "broker-dashboard-app/backend/internal/domain/dashboard"
	response "broker-dashboard-app/backend/internal/infra/common"
	"broker-dashboard-app/backend/internal/infra/ringcentral"
	callssvc "broker-dashboard-app/backend/internal/service/calls"
	dashboardsvc "broker-dashboard-app/backend/internal/service/dashboard"

	"github.com/gin-gonic/gin"
)

// DashboardHandler 负责输出销售仪表盘快照，话务板块可选。
type DashboardHandler struct {
	dashboard *dashboardsvc.Service
	calls     *callssvc.Service
}

// callsSection 是快照里附加的通话指标板块。
type callsSection struct {
	Daily   ringcentral.CallMetrics `json:"daily"`
	Monthly ringcentral.CallMetrics `json:"monthly"`
}

// snapshotPayload 在仪表盘快照上追加可选的通话板块。
type snapshotPayload struct {
	dashboarddomain.Snapshot
	Calls *callsSection `json:"calls,omitempty"`
}

// NewDashboardHandler 构造仪表盘 Handler，calls 为 nil 时不输出通话板块。
func NewDashboardHandler(dashboard *dashboardsvc.Service, calls *callssvc.Service) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, calls: calls}
}

// Snapshot 构建并返回一份完整快照。数据实时拉取，禁止中间层缓存。
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	if h == nil || h.dashboard == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrNotConfigured, "dashboard unavailable", nil)
		return
	}

	ctx := c.Request.Context()
	payload := snapshotPayload{Snapshot: h.dashboard.BuildSnapshot(ctx)}
	if h.calls != nil {
		daily, monthly := h.calls.AllMetrics(ctx)
		payload.Calls = &callsSection{Daily: daily, Monthly: monthly}
	}

	c.Header("Cache-Control", "no-store, max-age=0")
	response.Success(c, http.StatusOK, payload, nil)
}

// Health 是存活探针，返回服务时间戳。
func (h *DashboardHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, nil)
}
