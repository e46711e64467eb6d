package services

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ParseAddress validates a base58 ledger address: it must decode cleanly and
// be exactly 32 bytes.
func ParseAddress(s string) (solana.PublicKey, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(t)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q is not base58", ErrInvalidAddress, t)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, t, len(raw))
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// DeriveAssociatedAddress returns the owner's token account for mint.
func DeriveAssociatedAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	if mint.IsZero() || owner.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero key", ErrInvalidAddress)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return ata, nil
}

// DeriveMetadataAddress returns the metadata PDA
// ["metadata", metadata program, mint] under the metadata program.
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	if mint.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero key", ErrInvalidAddress)
	}
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return pda, nil
}

// DeriveAssociatedAddressString is the textual form used by the CLI and HTTP layers.
func DeriveAssociatedAddressString(mint, owner string) (solana.PublicKey, error) {
	m, err := ParseAddress(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	o, err := ParseAddress(owner)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return DeriveAssociatedAddress(m, o)
}
