package services

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/codewithmide/token-creator/internal/metadata"
)

// Facts is everything the read phase learns from the ledger. Build never
// performs I/O; it only consumes Facts.
type Facts struct {
	// MintRent is the rent-exempt balance for a mint account (create).
	MintRent uint64
	// NewMint is the fresh mint address (create).
	NewMint solana.PublicKey
	// DestinationExists reports whether the recipient's token account exists (mint, transfer).
	DestinationExists bool
}

// ReadFacts runs the read phase for req. newMint is only used by create.
func ReadFacts(ctx context.Context, ledger Ledger, owner solana.PublicKey, req Request, newMint solana.PublicKey) (Facts, error) {
	var facts Facts
	switch r := req.(type) {
	case CreateRequest:
		rent, err := ledger.GetRentExemption(ctx, token.MINT_SIZE)
		if err != nil {
			return facts, Transient(fmt.Errorf("rent exemption: %w", err))
		}
		facts.MintRent = rent
		facts.NewMint = newMint
	case MintRequest:
		exists, err := accountExists(ctx, ledger, r.Mint, r.Recipient)
		if err != nil {
			return facts, err
		}
		facts.DestinationExists = exists
	case TransferRequest:
		exists, err := accountExists(ctx, ledger, r.Mint, r.Recipient)
		if err != nil {
			return facts, err
		}
		facts.DestinationExists = exists
	}
	return facts, nil
}

func accountExists(ctx context.Context, ledger Ledger, mint, owner solana.PublicKey) (bool, error) {
	ata, err := DeriveAssociatedAddress(mint, owner)
	if err != nil {
		return false, err
	}
	info, err := ledger.GetAccountInfo(ctx, ata)
	if err != nil {
		return false, Transient(fmt.Errorf("account lookup %s: %w", ata, err))
	}
	return info != nil, nil
}

// BuildInstructions is the pure write phase: the ordered instruction list for
// req, paid for and authorised by owner.
func BuildInstructions(owner solana.PublicKey, req Request, facts Facts) ([]solana.Instruction, error) {
	if owner.IsZero() {
		return nil, ErrNoWallet
	}
	switch r := req.(type) {
	case CreateRequest:
		return buildCreate(owner, r, facts)
	case MintRequest:
		dest, err := DeriveAssociatedAddress(r.Mint, r.Recipient)
		if err != nil {
			return nil, err
		}
		var ixs []solana.Instruction
		if !facts.DestinationExists {
			ixs = append(ixs, associatedtokenaccount.NewCreateInstruction(owner, r.Recipient, r.Mint).Build())
		}
		ixs = append(ixs, token.NewMintToInstruction(r.Amount, r.Mint, dest, owner, nil).Build())
		return ixs, nil
	case TransferRequest:
		src, err := DeriveAssociatedAddress(r.Mint, owner)
		if err != nil {
			return nil, err
		}
		dest, err := DeriveAssociatedAddress(r.Mint, r.Recipient)
		if err != nil {
			return nil, err
		}
		var ixs []solana.Instruction
		if !facts.DestinationExists {
			ixs = append(ixs, associatedtokenaccount.NewCreateInstruction(owner, r.Recipient, r.Mint).Build())
		}
		ixs = append(ixs, token.NewTransferInstructionBuilder().
			SetAmount(r.Amount).
			SetSourceAccount(src).
			SetDestinationAccount(dest).
			SetOwnerAccount(owner).
			Build())
		return ixs, nil
	case BurnRequest:
		src, err := DeriveAssociatedAddress(r.Mint, owner)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{
			token.NewBurnInstructionBuilder().
				SetAmount(r.Amount).
				SetSourceAccount(src).
				SetMintAccount(r.Mint).
				SetOwnerAccount(owner).
				Build(),
		}, nil
	case DelegateRequest:
		src, err := DeriveAssociatedAddress(r.Mint, owner)
		if err != nil {
			return nil, err
		}
		// Approve 会覆盖旧的授权，不是累加
		return []solana.Instruction{
			token.NewApproveInstructionBuilder().
				SetAmount(r.Amount).
				SetSourceAccount(src).
				SetDelegateAccount(r.Delegate).
				SetOwnerAccount(owner).
				Build(),
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidRequest, req)
}

// buildCreate emits exactly [createAccount, initializeMint, createMetadata].
func buildCreate(owner solana.PublicKey, r CreateRequest, facts Facts) ([]solana.Instruction, error) {
	if facts.NewMint.IsZero() {
		return nil, fmt.Errorf("%w: missing mint address", ErrInvalidRequest)
	}
	metaPDA, err := DeriveMetadataAddress(facts.NewMint)
	if err != nil {
		return nil, err
	}
	allocate := system.NewCreateAccountInstruction(
		facts.MintRent,
		token.MINT_SIZE,
		solana.TokenProgramID,
		owner,
		facts.NewMint,
	).Build()
	initMint := token.NewInitializeMintInstruction(
		Decimals,
		owner,
		owner,
		facts.NewMint,
		solana.SysVarRentPubkey,
	).Build()
	createMeta, err := metadata.NewCreateMetadataV3Instruction(metadata.CreateAccounts{
		Metadata:        metaPDA,
		Mint:            facts.NewMint,
		MintAuthority:   owner,
		Payer:           owner,
		UpdateAuthority: owner,
	}, metadata.DataV2{Name: r.Name, Symbol: r.Symbol, URI: r.URI}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return []solana.Instruction{allocate, initMint, createMeta}, nil
}
