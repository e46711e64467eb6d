package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewithmide/token-creator/internal/middleware"
	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/internal/wallet"
	"github.com/codewithmide/token-creator/utils"
)

// HealthChecker reports whether the ledger endpoint is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HistoryReader is the read side of the operation history store.
type HistoryReader interface {
	ListByOwner(ctx context.Context, owner string, limit int) ([]models.OperationRecord, error)
	GetByOperationID(ctx context.Context, operationID string) (*models.OperationRecord, error)
	Ping(ctx context.Context) error
}

// Handler 浏览器钱包使用的 HTTP 接口
type Handler struct {
	orch      *services.Orchestrator
	sessions  *services.SessionRegistry
	broadcast wallet.Broadcaster
	ledger    HealthChecker
	history   HistoryReader // 可为 nil，未配置数据库
	rpcURL    string        // 用于生成浏览器链接
	log       *utils.Logger
}

type Deps struct {
	Orchestrator *services.Orchestrator
	Sessions     *services.SessionRegistry
	Broadcaster  wallet.Broadcaster
	Ledger       HealthChecker
	History      HistoryReader
	RPCURL       string
	Log          *utils.Logger
}

func New(d Deps) *Handler {
	if d.Sessions == nil {
		d.Sessions = services.NewSessionRegistry()
	}
	if d.Log == nil {
		d.Log = utils.DefaultLogger
	}
	return &Handler{
		orch:      d.Orchestrator,
		sessions:  d.Sessions,
		broadcast: d.Broadcaster,
		ledger:    d.Ledger,
		history:   d.History,
		rpcURL:    d.RPCURL,
		log:       d.Log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	InitStartTime()

	r.GET("/healthz", HealthzHandler)
	r.GET("/readyz", h.ReadinessHandler)
	r.GET("/metrics", middleware.LocalOnly(), gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/sessions", h.ConnectHandler)
	api.GET("/sessions/:id", h.SessionHandler)
	api.DELETE("/sessions/:id", h.DisconnectHandler)

	api.POST("/ops/:kind/prepare", h.PrepareHandler)
	api.POST("/ops/submit", h.SubmitHandler)

	api.GET("/tokens/:owner", h.TokensHandler)
	api.GET("/mints/:mint", h.LookupHandler)

	admin := api.Group("/history", middleware.LocalOnly())
	admin.GET("/:owner", h.HistoryHandler)
	admin.GET("/ops/:id", h.RecordHandler)
}

func (h *Handler) ConnectHandler(c *gin.Context) {
	var req struct {
		PublicKey string `json:"publicKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, services.ErrNoWallet)
		return
	}
	sess, err := h.sessions.Connect(req.PublicKey)
	if err != nil {
		writeError(c, err)
		return
	}
	h.log.Info("[http] wallet %s connected, session %s", utils.MaskShort(req.PublicKey), sess.ID)
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sess.ID,
		"publicKey": sess.Wallet.String(),
	})
}

func (h *Handler) SessionHandler(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sess.ID,
		"publicKey": sess.Wallet.String(),
		"busy":      sess.Busy(),
	})
}

func (h *Handler) DisconnectHandler(c *gin.Context) {
	if err := h.sessions.Disconnect(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// statusOf 将错误分类映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case services.IsInputError(err), errors.Is(err, services.ErrNoWallet):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrOperationNotFound),
		errors.Is(err, services.ErrMetadataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUserRejected):
		return http.StatusConflict
	case errors.Is(err, services.ErrLedgerRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTransientFailure), errors.Is(err, services.ErrTooManySessions):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{
		"error":    err.Error(),
		"category": services.Category(err),
	})
}
