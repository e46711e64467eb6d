package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codewithmide/token-creator/internal/ledger"
	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/internal/wallet"
	"github.com/codewithmide/token-creator/utils"
)

// prepareRequest 各操作共用的表单字段，按 kind 取用
type prepareRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	URI       string `json:"uri"`
	Mint      string `json:"mint"`
	Recipient string `json:"recipient"`
	Delegate  string `json:"delegate"`
	Amount    string `json:"amount"`
}

func (r prepareRequest) input(kind models.OperationKind) models.Input {
	in := models.Input{Kind: kind}
	switch kind {
	case models.KindCreate:
		in.Create = &models.CreateInput{Name: r.Name, Symbol: r.Symbol, URI: r.URI}
	case models.KindMint:
		in.Mint = &models.MintInput{Mint: r.Mint, Recipient: r.Recipient, Amount: r.Amount}
	case models.KindTransfer:
		in.Transfer = &models.TransferInput{Mint: r.Mint, Recipient: r.Recipient, Amount: r.Amount}
	case models.KindBurn:
		in.Burn = &models.BurnInput{Mint: r.Mint, Amount: r.Amount}
	case models.KindDelegate:
		in.Delegate = &models.DelegateInput{Mint: r.Mint, Delegate: r.Delegate, Amount: r.Amount}
	}
	return in
}

// PrepareHandler 构建未签名交易，返回给浏览器钱包签名
func (h *Handler) PrepareHandler(c *gin.Context) {
	kind, ok := models.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown operation " + c.Param("kind")})
		return
	}
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		writeError(c, services.ErrNoWallet)
		return
	}

	p, err := h.orch.Prepare(c.Request.Context(), sess, req.input(kind))
	if err != nil {
		writeError(c, err)
		return
	}
	encoded, err := utils.EncodeBase64Tx(p.Tx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "serialize failed"})
		return
	}

	resp := gin.H{
		"operationId": p.ID,
		"kind":        p.Kind,
		"transaction": encoded,
	}
	if !p.MintAddress.IsZero() {
		resp["mintAddress"] = p.MintAddress.String()
	}
	c.JSON(http.StatusOK, resp)
}

type submitRequest struct {
	SessionID         string `json:"sessionId" binding:"required"`
	OperationID       string `json:"operationId" binding:"required"`
	SignedTransaction string `json:"signedTransaction"`
	Rejected          bool   `json:"rejected"`
	Reason            string `json:"reason"`
}

// SubmitHandler 接收浏览器签名后的交易（或用户拒绝），广播并等待确认
func (h *Handler) SubmitHandler(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if !req.Rejected && req.SignedTransaction == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: signedTransaction is required"})
		return
	}
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		writeError(c, services.ErrNoWallet)
		return
	}

	signer := wallet.NewRelaySigner(sess.Wallet, wallet.Decision{
		SignedTx: req.SignedTransaction,
		Rejected: req.Rejected,
		Reason:   req.Reason,
	}, h.broadcast, h.log)

	out := h.orch.Execute(c.Request.Context(), sess, req.OperationID, signer)
	resp := gin.H{
		"operationId": out.OperationID,
		"kind":        out.Kind,
		"status":      services.Category(out.Err),
		"message":     out.Message(),
	}
	if out.Signature != "" {
		resp["signature"] = out.Signature
		resp["explorerUrl"] = ledger.ExplorerURL(out.Signature, h.rpcURL)
	}
	if out.MintAddress != "" {
		resp["mintAddress"] = out.MintAddress
	}
	if out.Err != nil {
		resp["reason"] = out.Reason
		c.JSON(statusOf(out.Err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
