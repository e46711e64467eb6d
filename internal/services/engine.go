package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

const (
	ConfirmationConfirmed = "confirmed"
	ConfirmationFinalized = "finalized"

	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// Engine hands transactions to the signer and waits for confirmation.
type Engine struct {
	ledger         Ledger
	watcher        Confirmer
	confirmTimeout time.Duration
	pollInterval   time.Duration
	log            *utils.Logger
}

type EngineOption func(*Engine)

// WithWatcher confirms through a push subscription instead of polling.
func WithWatcher(c Confirmer) EngineOption {
	return func(e *Engine) { e.watcher = c }
}

func WithConfirmTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.confirmTimeout = d
		}
	}
}

func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

func WithEngineLogger(l *utils.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(ledger Ledger, opts ...EngineOption) *Engine {
	e := &Engine{
		ledger:         ledger,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
		log:            utils.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit signs and submits tx through signer, then blocks until the signature
// is confirmed. Taxonomy errors from the signer are returned as they are and
// anything unclassified becomes a TransientFailure.
func (e *Engine) Submit(ctx context.Context, kind models.OperationKind, signer Signer, tx *solana.Transaction) (solana.Signature, error) {
	if signer == nil || signer.PublicKey().IsZero() {
		return solana.Signature{}, ErrNoWallet
	}
	sig, err := signer.SignAndSubmit(ctx, tx)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserRejected), errors.Is(err, ErrLedgerRejected), errors.Is(err, ErrTransientFailure), IsInputError(err):
			return solana.Signature{}, err
		default:
			return solana.Signature{}, Transient(err)
		}
	}
	if sig.IsZero() {
		return solana.Signature{}, Transient(errors.New("signer returned an empty signature"))
	}
	e.log.Info("[engine] %s submitted %s, waiting for confirmation", kind, utils.MaskShort(sig.String()))

	start := time.Now()
	if err := e.Confirm(ctx, sig); err != nil {
		return sig, err
	}
	RecordConfirmation(kind, time.Since(start))
	return sig, nil
}

// Confirm waits for sig to reach confirmed (or finalized) finality within the
// configured timeout.
func (e *Engine) Confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	if e.watcher != nil {
		err := e.watcher.Confirm(ctx, sig)
		if err == nil || errors.Is(err, ErrLedgerRejected) {
			return err
		}
		return Transient(err)
	}
	return e.poll(ctx, sig)
}

func (e *Engine) poll(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		st, err := e.ledger.GetSignatureStatus(ctx, sig)
		switch {
		case err != nil:
			// 网络错误继续轮询，直到超时
			lastErr = err
			e.log.Debug("[engine] status poll for %s failed: %v", utils.MaskShort(sig.String()), err)
		case st != nil && st.Err != nil:
			return Rejected(st.Err)
		case st != nil && (st.Confirmation == ConfirmationConfirmed || st.Confirmation == ConfirmationFinalized):
			return nil
		}

		select {
		case <-ctx.Done():
			return e.timeout(sig, lastErr)
		case <-ticker.C:
		}
	}
}

func (e *Engine) timeout(sig solana.Signature, lastErr error) error {
	if lastErr != nil {
		return Transient(fmt.Errorf("confirmation of %s timed out: %v", sig, lastErr))
	}
	return Transient(fmt.Errorf("confirmation of %s timed out", sig))
}
