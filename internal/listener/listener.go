// Package listener confirms signatures over the websocket API.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

const maxRetries = 5

// StatusReader is used once after subscribing, so a signature that confirmed
// before the subscription existed is not missed.
type StatusReader interface {
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*models.SignatureStatus, error)
}

// Watcher implements services.Confirmer with signatureSubscribe.
type Watcher struct {
	wsURL      string
	commitment rpc.CommitmentType
	status     StatusReader
	backoff    time.Duration
	log        *utils.Logger

	mu       sync.Mutex
	wsClient *ws.Client
}

func NewWatcher(wsURL string, commitment string, status StatusReader, log *utils.Logger) *Watcher {
	if log == nil {
		log = utils.DefaultLogger
	}
	// 通知即视为确认，所以订阅级别不能低于 confirmed
	c := rpc.CommitmentConfirmed
	if commitment == string(rpc.CommitmentFinalized) {
		c = rpc.CommitmentFinalized
	}
	return &Watcher{
		wsURL:      wsURL,
		commitment: c,
		status:     status,
		backoff:    time.Second,
		log:        log,
	}
}

func (w *Watcher) client(ctx context.Context) (*ws.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wsClient != nil {
		return w.wsClient, nil
	}
	cl, err := ws.Connect(ctx, w.wsURL)
	if err != nil {
		return nil, fmt.Errorf("WebSocket 连接失败: %w", err)
	}
	w.wsClient = cl
	return cl, nil
}

// reset drops a broken connection so the next attempt reconnects.
func (w *Watcher) reset(broken *ws.Client) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wsClient == broken && broken != nil {
		broken.Close()
		w.wsClient = nil
	}
}

// Confirm blocks until sig is confirmed, fails on-ledger, or ctx ends.
// Dropped subscriptions are re-established with an increasing delay.
func (w *Watcher) Confirm(ctx context.Context, sig solana.Signature) error {
	var lastErr error
	for retry := 0; retry < maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(time.Duration(retry) * w.backoff): // 递增重试间隔
			}
		}
		done, err := w.confirmOnce(ctx, sig)
		if done {
			return err
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn("[listener] 订阅 %s 失败: %v，重连中 (第 %d/%d 次)", utils.MaskShort(sig.String()), err, retry+1, maxRetries)
	}
	return fmt.Errorf("signature subscription failed after %d attempts: %w", maxRetries, lastErr)
}

// confirmOnce reports done=true when err is the terminal answer.
func (w *Watcher) confirmOnce(ctx context.Context, sig solana.Signature) (bool, error) {
	cl, err := w.client(ctx)
	if err != nil {
		return false, err
	}
	sub, err := cl.SignatureSubscribe(sig, w.commitment)
	if err != nil {
		w.reset(cl)
		return false, err
	}
	defer sub.Unsubscribe()

	if done, err := w.checkStatus(ctx, sig); done {
		return true, err
	}

	res, err := sub.Recv(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return true, err
		}
		w.reset(cl)
		return false, err
	}
	if res != nil && res.Value.Err != nil {
		return true, services.Rejected(res.Value.Err)
	}
	return true, nil
}

func (w *Watcher) checkStatus(ctx context.Context, sig solana.Signature) (bool, error) {
	if w.status == nil {
		return false, nil
	}
	st, err := w.status.GetSignatureStatus(ctx, sig)
	if err != nil || st == nil {
		return false, nil
	}
	if st.Err != nil {
		return true, services.Rejected(st.Err)
	}
	switch st.Confirmation {
	case services.ConfirmationConfirmed, services.ConfirmationFinalized:
		return true, nil
	}
	return false, nil
}

func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wsClient != nil {
		w.wsClient.Close()
		w.wsClient = nil
	}
}
