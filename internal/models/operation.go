package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// OperationKind tags the five token-lifecycle operations.
type OperationKind string

const (
	KindCreate   OperationKind = "create"
	KindMint     OperationKind = "mint"
	KindTransfer OperationKind = "transfer"
	KindBurn     OperationKind = "burn"
	KindDelegate OperationKind = "delegate"
)

// AllKinds lists the operations in the order the UI presents them.
var AllKinds = []OperationKind{KindCreate, KindMint, KindTransfer, KindBurn, KindDelegate}

// ParseKind maps a route/CLI token to an OperationKind.
func ParseKind(s string) (OperationKind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Input is the raw, textual form of a user action as it arrives from a form or
// a CLI flag set. Exactly one of the pointers is set.
type Input struct {
	Kind     OperationKind  `json:"kind"`
	Create   *CreateInput   `json:"create,omitempty"`
	Mint     *MintInput     `json:"mint,omitempty"`
	Transfer *TransferInput `json:"transfer,omitempty"`
	Burn     *BurnInput     `json:"burn,omitempty"`
	Delegate *DelegateInput `json:"delegate,omitempty"`
}

type CreateInput struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

type MintInput struct {
	Mint      string `json:"mint"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type TransferInput struct {
	Mint      string `json:"mint"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type BurnInput struct {
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

type DelegateInput struct {
	Mint     string `json:"mint"`
	Delegate string `json:"delegate"`
	Amount   string `json:"amount"`
}

// Outcome is the terminal result of one operation.
type Outcome struct {
	OperationID string        `json:"operationId"`
	Kind        OperationKind `json:"kind"`
	Signature   string        `json:"signature,omitempty"`
	MintAddress string        `json:"mintAddress,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Err         error         `json:"-"`
}

func (o Outcome) Success() bool { return o.Err == nil }

// Message renders the plain-language status string shown to the user.
func (o Outcome) Message() string {
	verb, noun := o.Kind.phrases()
	if o.Err != nil {
		return fmt.Sprintf("Failed to %s: %s", verb, o.Err.Error())
	}
	switch {
	case o.Kind == KindCreate && o.MintAddress != "":
		return fmt.Sprintf("Token created successfully! Mint address: %s", o.MintAddress)
	case o.Signature != "":
		return fmt.Sprintf("%s successfully! Signature: %s", noun, o.Signature)
	default:
		return noun + " successfully!"
	}
}

func (k OperationKind) phrases() (verb, noun string) {
	switch k {
	case KindCreate:
		return "create token", "Token created"
	case KindMint:
		return "mint tokens", "Tokens minted"
	case KindTransfer:
		return "transfer tokens", "Tokens transferred"
	case KindBurn:
		return "burn tokens", "Tokens burned"
	case KindDelegate:
		return "delegate tokens", "Tokens delegated"
	}
	return string(k), string(k)
}

// AccountInfo is the subset of a ledger account the orchestrator reads.
type AccountInfo struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// TokenAccount is one token account held by an owner, as listed by the ledger.
type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Amount   uint64
	Decimals uint8
}

// SignatureStatus mirrors the ledger's view of a submitted signature.
// Err is the raw ledger error value, nil when the transaction succeeded.
type SignatureStatus struct {
	Slot         uint64
	Confirmation string
	Err          interface{}
}
