package services

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Assemble composes a transaction with payer as fee payer. It does not sign.
func Assemble(ixs []solana.Instruction, payer solana.PublicKey, anchor solana.Hash) (*solana.Transaction, error) {
	if len(ixs) == 0 {
		return nil, fmt.Errorf("%w: no instructions", ErrInvalidRequest)
	}
	if payer.IsZero() {
		return nil, ErrNoWallet
	}
	if anchor.IsZero() {
		return nil, Transient(fmt.Errorf("missing recent blockhash"))
	}
	tx, err := solana.NewTransaction(ixs, anchor, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	return tx, nil
}

// SignAuxiliary adds signatures for locally held keys (e.g. a fresh mint
// keypair), leaving the fee payer slot empty for the wallet.
func SignAuxiliary(tx *solana.Transaction, keys ...solana.PrivateKey) error {
	if len(keys) == 0 {
		return nil
	}
	byPub := make(map[solana.PublicKey]solana.PrivateKey, len(keys))
	for _, k := range keys {
		byPub[k.PublicKey()] = k
	}
	_, err := tx.PartialSign(func(pub solana.PublicKey) *solana.PrivateKey {
		if k, ok := byPub[pub]; ok {
			return &k
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("auxiliary sign: %w", err)
	}
	return nil
}
