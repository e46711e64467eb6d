package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

// Broadcaster sends a fully signed transaction to the ledger.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Approver asks the user whether to sign tx. Returning false rejects it.
type Approver func(tx *solana.Transaction) bool

// KeypairWallet signs with a locally held key.
type KeypairWallet struct {
	key       solana.PrivateKey
	broadcast Broadcaster
	approve   Approver
	log       *utils.Logger
}

func NewKeypairWallet(key solana.PrivateKey, broadcast Broadcaster, approve Approver, log *utils.Logger) *KeypairWallet {
	if log == nil {
		log = utils.DefaultLogger
	}
	return &KeypairWallet{key: key, broadcast: broadcast, approve: approve, log: log}
}

func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignAndSubmit fills the wallet's signature slot, keeping signatures
// already present (the mint key on create), then broadcasts.
func (w *KeypairWallet) SignAndSubmit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if w.approve != nil && !w.approve(tx) {
		return solana.Signature{}, services.ErrUserRejected
	}
	pub := w.key.PublicKey()
	_, err := tx.PartialSign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: sign: %v", services.ErrInvalidRequest, err)
	}
	if err := requireAllSigned(tx); err != nil {
		return solana.Signature{}, err
	}
	w.log.Debug("[wallet] %s signed, broadcasting", utils.MaskShort(pub.String()))
	return w.broadcast.SendTransaction(ctx, tx)
}

func requireAllSigned(tx *solana.Transaction) error {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < n {
		return fmt.Errorf("%w: %d of %d signatures present", services.ErrInvalidRequest, len(tx.Signatures), n)
	}
	for i := 0; i < n; i++ {
		if tx.Signatures[i].IsZero() {
			return fmt.Errorf("%w: missing signature for %s", services.ErrInvalidRequest, tx.Message.AccountKeys[i])
		}
	}
	return nil
}
