package services

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/models"
)

// Ledger is the read side of the ledger connection.
type Ledger interface {
	// GetRecentAnchor returns the latest blockhash; never cached.
	GetRecentAnchor(ctx context.Context) (solana.Hash, error)
	// GetAccountInfo returns nil, nil when the account does not exist.
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*models.AccountInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenAccount, error)
	// GetSignatureStatus returns nil, nil while the signature is unknown.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*models.SignatureStatus, error)
	GetRentExemption(ctx context.Context, size uint64) (uint64, error)
}

// Signer is the user-controlled wallet. SignAndSubmit signs the fee payer slot
// and hands the transaction to the ledger; it returns ErrUserRejected when
// the user declines.
type Signer interface {
	PublicKey() solana.PublicKey
	SignAndSubmit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Confirmer waits for a signature to reach confirmed finality.
type Confirmer interface {
	Confirm(ctx context.Context, sig solana.Signature) error
}

// MetadataResolver resolves display metadata for a mint.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error)
}

// HistoryStore persists operation outcomes. Optional.
type HistoryStore interface {
	SaveOperation(ctx context.Context, rec *models.OperationRecord) error
	UpdateOperation(ctx context.Context, operationID, status, signature, reason string) error
}
