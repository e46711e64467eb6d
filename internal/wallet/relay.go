package wallet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

// Decision is what the browser wallet answered for one prepared transaction.
type Decision struct {
	SignedTx string // base64, signed by the connected wallet
	Rejected bool
	Reason   string
}

// RelaySigner stands in for a browser wallet: the signature was produced
// client-side and arrives with the submit request. It checks that the signed
// transaction is the one that was prepared and broadcasts it.
type RelaySigner struct {
	wallet    solana.PublicKey
	decision  Decision
	broadcast Broadcaster
	log       *utils.Logger
}

func NewRelaySigner(wallet solana.PublicKey, decision Decision, broadcast Broadcaster, log *utils.Logger) *RelaySigner {
	if log == nil {
		log = utils.DefaultLogger
	}
	return &RelaySigner{wallet: wallet, decision: decision, broadcast: broadcast, log: log}
}

func (r *RelaySigner) PublicKey() solana.PublicKey { return r.wallet }

func (r *RelaySigner) SignAndSubmit(ctx context.Context, prepared *solana.Transaction) (solana.Signature, error) {
	if r.decision.Rejected {
		reason := strings.TrimSpace(r.decision.Reason)
		if reason == "" {
			return solana.Signature{}, services.ErrUserRejected
		}
		return solana.Signature{}, fmt.Errorf("%w: %s", services.ErrUserRejected, reason)
	}
	signed, err := utils.DecodeBase64Tx(r.decision.SignedTx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: bad signed transaction: %v", services.ErrInvalidRequest, err)
	}
	if err := sameMessage(prepared, signed); err != nil {
		return solana.Signature{}, err
	}
	if len(signed.Message.AccountKeys) == 0 || !signed.Message.AccountKeys[0].Equals(r.wallet) {
		return solana.Signature{}, fmt.Errorf("%w: fee payer is not the connected wallet", services.ErrInvalidRequest)
	}
	if err := requireAllSigned(signed); err != nil {
		return solana.Signature{}, err
	}
	if err := signed.VerifySignatures(); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
	}
	r.log.Debug("[relay] %s signed in browser, broadcasting", utils.MaskShort(r.wallet.String()))
	return r.broadcast.SendTransaction(ctx, signed)
}

// sameMessage rejects a signed transaction whose message differs from the
// prepared one (other instructions, other blockhash).
func sameMessage(prepared, signed *solana.Transaction) error {
	a, err := prepared.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
	}
	b, err := signed.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
	}
	if !bytes.Equal(a, b) {
		return fmt.Errorf("%w: signed transaction does not match the prepared one", services.ErrInvalidRequest)
	}
	return nil
}
