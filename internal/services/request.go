package services

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/metadata"
	"github.com/codewithmide/token-creator/internal/models"
)

// Request is a validated operation: one of CreateRequest, MintRequest,
// TransferRequest, BurnRequest or DelegateRequest.
type Request interface {
	Kind() models.OperationKind
	isRequest()
}

type CreateRequest struct {
	Name   string
	Symbol string
	URI    string
}

// MintRequest mints into Recipient's token account; the connected key must be
// the mint authority.
type MintRequest struct {
	Mint      solana.PublicKey
	Recipient solana.PublicKey
	Amount    uint64
}

type TransferRequest struct {
	Mint      solana.PublicKey
	Recipient solana.PublicKey
	Amount    uint64
}

type BurnRequest struct {
	Mint   solana.PublicKey
	Amount uint64
}

type DelegateRequest struct {
	Mint     solana.PublicKey
	Delegate solana.PublicKey
	Amount   uint64
}

func (CreateRequest) Kind() models.OperationKind   { return models.KindCreate }
func (MintRequest) Kind() models.OperationKind     { return models.KindMint }
func (TransferRequest) Kind() models.OperationKind { return models.KindTransfer }
func (BurnRequest) Kind() models.OperationKind     { return models.KindBurn }
func (DelegateRequest) Kind() models.OperationKind { return models.KindDelegate }

func (CreateRequest) isRequest()   {}
func (MintRequest) isRequest()     {}
func (TransferRequest) isRequest() {}
func (BurnRequest) isRequest()     {}
func (DelegateRequest) isRequest() {}

// ParseInput validates raw textual input. owner fills in the default mint
// recipient. No ledger I/O happens here.
func ParseInput(in models.Input, owner solana.PublicKey) (Request, error) {
	switch in.Kind {
	case models.KindCreate:
		if in.Create == nil {
			return nil, fmt.Errorf("%w: missing create fields", ErrInvalidRequest)
		}
		req := CreateRequest{
			Name:   strings.TrimSpace(in.Create.Name),
			Symbol: strings.TrimSpace(in.Create.Symbol),
			URI:    strings.TrimSpace(in.Create.URI),
		}
		data := metadata.DataV2{Name: req.Name, Symbol: req.Symbol, URI: req.URI}
		if err := data.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return req, nil

	case models.KindMint:
		if in.Mint == nil {
			return nil, fmt.Errorf("%w: missing mint fields", ErrInvalidRequest)
		}
		mint, err := ParseAddress(in.Mint.Mint)
		if err != nil {
			return nil, err
		}
		recipient := owner
		if strings.TrimSpace(in.Mint.Recipient) != "" {
			if recipient, err = ParseAddress(in.Mint.Recipient); err != nil {
				return nil, err
			}
		}
		amount, err := ToBaseUnits(in.Mint.Amount)
		if err != nil {
			return nil, err
		}
		return MintRequest{Mint: mint, Recipient: recipient, Amount: amount}, nil

	case models.KindTransfer:
		if in.Transfer == nil {
			return nil, fmt.Errorf("%w: missing transfer fields", ErrInvalidRequest)
		}
		mint, err := ParseAddress(in.Transfer.Mint)
		if err != nil {
			return nil, err
		}
		recipient, err := ParseAddress(in.Transfer.Recipient)
		if err != nil {
			return nil, err
		}
		amount, err := ToBaseUnits(in.Transfer.Amount)
		if err != nil {
			return nil, err
		}
		return TransferRequest{Mint: mint, Recipient: recipient, Amount: amount}, nil

	case models.KindBurn:
		if in.Burn == nil {
			return nil, fmt.Errorf("%w: missing burn fields", ErrInvalidRequest)
		}
		mint, err := ParseAddress(in.Burn.Mint)
		if err != nil {
			return nil, err
		}
		amount, err := ToBaseUnits(in.Burn.Amount)
		if err != nil {
			return nil, err
		}
		return BurnRequest{Mint: mint, Amount: amount}, nil

	case models.KindDelegate:
		if in.Delegate == nil {
			return nil, fmt.Errorf("%w: missing delegate fields", ErrInvalidRequest)
		}
		mint, err := ParseAddress(in.Delegate.Mint)
		if err != nil {
			return nil, err
		}
		delegate, err := ParseAddress(in.Delegate.Delegate)
		if err != nil {
			return nil, err
		}
		amount, err := ToBaseUnits(in.Delegate.Amount)
		if err != nil {
			return nil, err
		}
		return DelegateRequest{Mint: mint, Delegate: delegate, Amount: amount}, nil
	}
	return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, in.Kind)
}

// Counterpart is the other party of a request (recipient or delegate), for history.
func Counterpart(req Request) string {
	switch r := req.(type) {
	case MintRequest:
		return r.Recipient.String()
	case TransferRequest:
		return r.Recipient.String()
	case DelegateRequest:
		return r.Delegate.String()
	}
	return ""
}

// AmountOf returns the base-unit amount carried by req, zero for create.
func AmountOf(req Request) uint64 {
	switch r := req.(type) {
	case MintRequest:
		return r.Amount
	case TransferRequest:
		return r.Amount
	case BurnRequest:
		return r.Amount
	case DelegateRequest:
		return r.Amount
	}
	return 0
}

// MintOf returns the mint a request acts on, zero for create.
func MintOf(req Request) solana.PublicKey {
	switch r := req.(type) {
	case MintRequest:
		return r.Mint
	case TransferRequest:
		return r.Mint
	case BurnRequest:
		return r.Mint
	case DelegateRequest:
		return r.Mint
	}
	return solana.PublicKey{}
}
