package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WarmupPeriod 启动后多久才报告就绪
var WarmupPeriod = 5 * time.Second

var (
	// startTime 记录服务启动时间
	startTime     time.Time
	startTimeOnce sync.Once
)

// InitStartTime 初始化服务启动时间（只执行一次）
func InitStartTime() {
	startTimeOnce.Do(func() {
		startTime = time.Now()
	})
}

// HealthzHandler 存活探针，总是返回 200
func HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"type":   "liveness",
	})
}

// ReadinessHandler 就绪探针：启动等待、RPC 节点健康、数据库连接（若已配置）
func (h *Handler) ReadinessHandler(c *gin.Context) {
	notReady := func(msg string, extra gin.H) {
		body := gin.H{
			"status":  "not ready",
			"type":    "readiness",
			"message": msg,
		}
		for k, v := range extra {
			body[k] = v
		}
		c.JSON(http.StatusServiceUnavailable, body)
	}

	if startTime.IsZero() {
		notReady("服务启动时间未初始化", nil)
		return
	}
	elapsed := time.Since(startTime)
	if elapsed < WarmupPeriod {
		notReady("服务启动中，等待就绪", gin.H{
			"elapsed":   elapsed.String(),
			"remaining": (WarmupPeriod - elapsed).String(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.ledger != nil {
		if err := h.ledger.Health(ctx); err != nil {
			notReady("RPC 节点不可用", gin.H{"error": err.Error()})
			return
		}
	}
	if h.history != nil {
		if err := h.history.Ping(ctx); err != nil {
			notReady("数据库连接失败", gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"type":    "readiness",
		"message": "服务已就绪",
		"uptime":  elapsed.String(),
	})
}
