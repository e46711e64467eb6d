package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codewithmide/token-creator/internal/services"
)

// TokensHandler 列出钱包持有的代币
func (h *Handler) TokensHandler(c *gin.Context) {
	owner, err := services.ParseAddress(c.Param("owner"))
	if err != nil {
		writeError(c, err)
		return
	}
	tokens, err := h.orch.ListOwnedTokens(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"owner":  owner.String(),
		"tokens": tokens,
	})
}

// LookupHandler 铸币前校验代币，返回名称、符号和图片
func (h *Handler) LookupHandler(c *gin.Context) {
	mint, err := services.ParseAddress(c.Param("mint"))
	if err != nil {
		writeError(c, err)
		return
	}
	md, err := h.orch.LookupToken(c.Request.Context(), mint)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mint":   mint.String(),
		"name":   md.Name,
		"symbol": md.Symbol,
		"uri":    md.URI,
		"image":  md.ImageURI,
	})
}

// HistoryHandler 查询钱包的操作历史
func (h *Handler) HistoryHandler(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "数据库未初始化"})
		return
	}
	owner, err := services.ParseAddress(c.Param("owner"))
	if err != nil {
		writeError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	recs, err := h.history.ListByOwner(c.Request.Context(), owner.String(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"owner":      owner.String(),
		"operations": recs,
	})
}

// RecordHandler 根据操作 ID 查询单条记录
func (h *Handler) RecordHandler(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "数据库未初始化"})
		return
	}
	rec, err := h.history.GetByOperationID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "操作记录未找到"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operation_id": rec.OperationID,
		"kind":         rec.Kind,
		"owner":        rec.Owner,
		"mint":         rec.Mint,
		"counterpart":  rec.Counterpart,
		"amount":       rec.Amount,
		"status":       rec.Status,
		"tx_signature": rec.TXSignature,
		"reason":       rec.Reason,
		"created_at":   rec.CreatedAt,
	})
}
