package services

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

const DefaultDiscoveryConcurrency = 8

// Discovery lists the tokens an owner holds together with display metadata.
type Discovery struct {
	ledger      Ledger
	resolver    MetadataResolver
	concurrency int
	log         *utils.Logger
}

func NewDiscovery(ledger Ledger, resolver MetadataResolver, concurrency int, log *utils.Logger) *Discovery {
	if concurrency <= 0 {
		concurrency = DefaultDiscoveryConcurrency
	}
	if log == nil {
		log = utils.DefaultLogger
	}
	return &Discovery{
		ledger:      ledger,
		resolver:    resolver,
		concurrency: concurrency,
		log:         log,
	}
}

// ListOwnedTokens returns one summary per token account, in ledger order.
// Metadata lookups run concurrently and a failed lookup only degrades its own
// entry to a placeholder.
func (d *Discovery) ListOwnedTokens(ctx context.Context, owner solana.PublicKey) ([]models.TokenSummary, error) {
	if owner.IsZero() {
		return nil, ErrNoWallet
	}
	accounts, err := d.ledger.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return nil, Transient(fmt.Errorf("list token accounts: %w", err))
	}

	out := make([]models.TokenSummary, len(accounts))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, acc := range accounts {
		i, acc := i, acc
		g.Go(func() error {
			out[i] = d.summarize(ctx, acc)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (d *Discovery) summarize(ctx context.Context, acc models.TokenAccount) models.TokenSummary {
	s := models.TokenSummary{
		Mint:     acc.Mint.String(),
		Account:  acc.Address.String(),
		Amount:   acc.Amount,
		Decimals: acc.Decimals,
		UIAmount: formatWithDecimals(acc.Amount, int32(acc.Decimals)),
	}
	md, err := d.resolve(ctx, acc.Mint)
	if err != nil {
		d.log.Warn("[discovery] %v, using placeholder for %s", err, utils.MaskShort(s.Mint))
		RecordPlaceholder()
		s.Name = utils.TruncateAddress(s.Mint)
		s.Symbol = models.UnknownSymbol
		s.Placeholder = true
		return s
	}
	s.Name = md.Name
	s.Symbol = md.Symbol
	s.ImageURI = md.ImageURI
	if s.Name == "" {
		s.Name = utils.TruncateAddress(s.Mint)
	}
	if s.Symbol == "" {
		s.Symbol = models.UnknownSymbol
	}
	return s
}

// LookupToken resolves metadata for a single mint ("validate token" on the
// mint page). Here a failure is returned to the caller.
func (d *Discovery) LookupToken(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error) {
	return d.resolve(ctx, mint)
}

func (d *Discovery) resolve(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error) {
	if d.resolver == nil {
		return nil, fmt.Errorf("%w: no resolver configured", ErrMetadataUnavailable)
	}
	md, err := d.resolver.Resolve(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, mint, err)
	}
	if md == nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataUnavailable, mint)
	}
	return md, nil
}
