package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

func testEngine(ledger Ledger, opts ...EngineOption) *Engine {
	base := []EngineOption{
		WithConfirmTimeout(200 * time.Millisecond),
		WithPollInterval(5 * time.Millisecond),
		WithEngineLogger(utils.Nop()),
	}
	return NewEngine(ledger, append(base, opts...)...)
}

func burnTx(t *testing.T, owner solana.PublicKey) *solana.Transaction {
	t.Helper()
	ixs, err := BuildInstructions(owner, BurnRequest{Mint: newPub(t), Amount: 1}, Facts{})
	require.NoError(t, err)
	tx, err := Assemble(ixs, owner, newFakeLedger().anchor)
	require.NoError(t, err)
	return tx
}

func TestSubmitConfirmed(t *testing.T) {
	ledger := newFakeLedger()
	var polls atomic.Int32
	ledger.statusFn = func(sig solana.Signature) (*models.SignatureStatus, error) {
		switch polls.Add(1) {
		case 1:
			return nil, nil // not seen yet
		case 2:
			return &models.SignatureStatus{Slot: 9, Confirmation: "processed"}, nil
		}
		return &models.SignatureStatus{Slot: 10, Confirmation: ConfirmationConfirmed}, nil
	}
	signer := newFakeSigner(t, nil)

	sig, err := testEngine(ledger).Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
	require.NoError(t, err)
	assert.False(t, sig.IsZero())
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestSubmitUserRejectedNeverBroadcasts(t *testing.T) {
	ledger := newFakeLedger()
	signer := newFakeSigner(t, nil)
	signer.reject = true

	_, err := testEngine(ledger).Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Equal(t, 0, signer.submissions())
	assert.Equal(t, 0, ledger.statusCalls, "nothing to confirm after a rejection")
}

func TestSubmitLedgerRejected(t *testing.T) {
	ledger := newFakeLedger()
	ledger.statusFn = func(sig solana.Signature) (*models.SignatureStatus, error) {
		return &models.SignatureStatus{
			Slot: 3,
			Err:  map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}}},
		}, nil
	}
	signer := newFakeSigner(t, nil)

	_, err := testEngine(ledger).Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLedgerRejected)

	var le *LedgerError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Reason, "InstructionError")
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	ledger := newFakeLedger()
	ledger.statusFn = func(sig solana.Signature) (*models.SignatureStatus, error) {
		return nil, nil
	}
	signer := newFakeSigner(t, nil)

	e := testEngine(ledger, WithConfirmTimeout(30*time.Millisecond))
	sig, err := e.Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.False(t, sig.IsZero(), "the signature is still reported so the user can check it")
}

func TestSubmitPollErrorsAreRetried(t *testing.T) {
	ledger := newFakeLedger()
	var polls atomic.Int32
	ledger.statusFn = func(sig solana.Signature) (*models.SignatureStatus, error) {
		if polls.Add(1) < 3 {
			return nil, errors.New("429 too many requests")
		}
		return &models.SignatureStatus{Confirmation: ConfirmationFinalized}, nil
	}
	signer := newFakeSigner(t, nil)

	_, err := testEngine(ledger).Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
	require.NoError(t, err)
}

func TestSubmitErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unclassified becomes transient", errors.New("socket closed"), ErrTransientFailure},
		{"ledger rejection kept", Rejected("custom program error: 0x1"), ErrLedgerRejected},
		{"input error kept", ErrInvalidRequest, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := newFakeSigner(t, nil)
			signer.submitErr = tt.err
			_, err := testEngine(newFakeLedger()).Submit(context.Background(), models.KindBurn, signer, burnTx(t, signer.PublicKey()))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitWithoutWallet(t *testing.T) {
	_, err := testEngine(newFakeLedger()).Submit(context.Background(), models.KindBurn, nil, burnTx(t, newPub(t)))
	assert.ErrorIs(t, err, ErrNoWallet)
}

type stubWatcher struct{ err error }

func (w stubWatcher) Confirm(ctx context.Context, sig solana.Signature) error { return w.err }

func TestConfirmThroughWatcher(t *testing.T) {
	ledger := newFakeLedger()
	sig := solana.SignatureFromBytes(make([]byte, 64))

	require.NoError(t, testEngine(ledger, WithWatcher(stubWatcher{})).Confirm(context.Background(), sig))
	assert.Equal(t, 0, ledger.statusCalls)

	err := testEngine(ledger, WithWatcher(stubWatcher{err: errors.New("ws closed")})).Confirm(context.Background(), sig)
	assert.ErrorIs(t, err, ErrTransientFailure)

	err = testEngine(ledger, WithWatcher(stubWatcher{err: Rejected("boom")})).Confirm(context.Background(), sig)
	assert.ErrorIs(t, err, ErrLedgerRejected)
}
