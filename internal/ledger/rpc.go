// Package ledger is the Solana JSON-RPC connection used by the orchestrator.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"golang.org/x/time/rate"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

const (
	codePreflightFailure      = -32002
	codeSignatureVerification = -32003
	defaultSendRetries        = 3
)

// Client implements services.Ledger and the broadcast side used by wallets.
type Client struct {
	rpc           *rpc.Client
	rpcURL        string
	commitment    rpc.CommitmentType
	skipPreflight bool
	sendRetries   int
	limiter       *rate.Limiter
	log           *utils.Logger
}

type Option func(*Client)

func WithCommitment(c string) Option {
	return func(cl *Client) {
		if c != "" {
			cl.commitment = rpc.CommitmentType(c)
		}
	}
}

// WithSkipPreflight 跳过预检，直接广播
func WithSkipPreflight(skip bool) Option {
	return func(cl *Client) { cl.skipPreflight = skip }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

func WithLogger(l *utils.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

func WithSendRetries(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.sendRetries = n
		}
	}
}

func New(rpcURL string, opts ...Option) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("solana.rpc_url is empty in config")
	}
	cl := &Client{
		rpc:         rpc.New(rpcURL),
		rpcURL:      rpcURL,
		commitment:  rpc.CommitmentConfirmed,
		sendRetries: defaultSendRetries,
		log:         utils.DefaultLogger,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) GetRecentAnchor(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, err
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, errors.New("empty blockhash response")
	}
	return out.Value.Blockhash, nil
}

func (c *Client) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*models.AccountInfo, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{
		Address:  addr,
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     out.Value.Data.GetBinary(),
	}, nil
}

type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenAccount, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	programID := solana.TokenProgramID
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed, Commitment: c.commitment},
	)
	if err != nil {
		return nil, err
	}
	accounts := make([]models.TokenAccount, 0, len(out.Value))
	for _, v := range out.Value {
		if v == nil || v.Account.Data == nil {
			continue
		}
		acc, err := decodeParsedTokenAccount(v.Pubkey, v.Account.Data.GetRawJSON())
		if err != nil {
			c.log.Warn("[ledger] skip token account %s: %v", utils.MaskShort(v.Pubkey.String()), err)
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func decodeParsedTokenAccount(addr solana.PublicKey, raw json.RawMessage) (models.TokenAccount, error) {
	var p parsedTokenAccount
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.TokenAccount{}, err
	}
	mint, err := solana.PublicKeyFromBase58(p.Parsed.Info.Mint)
	if err != nil {
		return models.TokenAccount{}, fmt.Errorf("mint: %w", err)
	}
	owner, err := solana.PublicKeyFromBase58(p.Parsed.Info.Owner)
	if err != nil {
		return models.TokenAccount{}, fmt.Errorf("owner: %w", err)
	}
	amount, err := strconv.ParseUint(p.Parsed.Info.TokenAmount.Amount, 10, 64)
	if err != nil {
		return models.TokenAccount{}, fmt.Errorf("amount: %w", err)
	}
	return models.TokenAccount{
		Address:  addr,
		Mint:     mint,
		Owner:    owner,
		Amount:   amount,
		Decimals: p.Parsed.Info.TokenAmount.Decimals,
	}, nil
}

func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*models.SignatureStatus, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}
	st := out.Value[0]
	return &models.SignatureStatus{
		Slot:         st.Slot,
		Confirmation: string(st.ConfirmationStatus),
		Err:          st.Err,
	}, nil
}

func (c *Client) GetRentExemption(ctx context.Context, size uint64) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.rpc.GetMinimumBalanceForRentExemption(ctx, size, c.commitment)
}

// Health pings the node, used by /readyz.
func (c *Client) Health(ctx context.Context) error {
	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return err
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("rpc node unhealthy: %s", status)
	}
	return nil
}

// SendTransaction broadcasts a fully signed transaction. Network errors are
// retried; a stale blockhash or a program error is not.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if tx == nil {
		return solana.Signature{}, fmt.Errorf("%w: nil transaction", services.ErrInvalidRequest)
	}
	var lastErr error
	for i := 0; i < c.sendRetries; i++ {
		if err := c.wait(ctx); err != nil {
			return solana.Signature{}, services.Transient(err)
		}
		sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       c.skipPreflight,
			PreflightCommitment: c.commitment,
		})
		if err == nil {
			if sig.IsZero() {
				lastErr = errors.New("broadcast returned an empty signature")
				continue
			}
			c.log.Debug("[ledger] broadcast %s via %s", utils.MaskShort(sig.String()), c.rpcURL)
			return sig, nil
		}
		classified := ClassifySendError(err)
		c.log.Warn("[ledger] broadcast attempt %d/%d failed: %v", i+1, c.sendRetries, err)
		if !retryable(classified) {
			return solana.Signature{}, classified
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return solana.Signature{}, services.Transient(fmt.Errorf("broadcast failed after %d attempts: %v", c.sendRetries, lastErr))
}

// ClassifySendError maps a sendTransaction failure onto the error taxonomy.
func ClassifySendError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if isBlockhashNotFound(msg) {
		return services.Transient(fmt.Errorf("blockhash expired, prepare the operation again: %v", err))
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codePreflightFailure, codeSignatureVerification:
			return services.Rejected(rpcErr.Message)
		}
	}
	return services.Transient(err)
}

func retryable(err error) bool {
	return errors.Is(err, services.ErrTransientFailure) && !isBlockhashNotFound(err.Error())
}

func isBlockhashNotFound(msg string) bool {
	return strings.Contains(msg, "Blockhash not found") || strings.Contains(msg, "BlockhashNotFound")
}

// ExplorerURL links a signature on the public explorer for the cluster
// behind rpcURL. A local node needs customUrl or the link does not resolve.
func ExplorerURL(sig, rpcURL string) string {
	u := "https://explorer.solana.com/tx/" + sig
	switch cluster := ClusterFromURL(rpcURL); cluster {
	case "mainnet-beta":
		return u
	case "custom":
		return u + "?cluster=custom&customUrl=" + url.QueryEscape(rpcURL)
	default:
		return u + "?cluster=" + cluster
	}
}

// ClusterFromURL guesses the explorer cluster name from an RPC endpoint.
func ClusterFromURL(rpcURL string) string {
	switch {
	case strings.Contains(rpcURL, "devnet"):
		return "devnet"
	case strings.Contains(rpcURL, "testnet"):
		return "testnet"
	case strings.Contains(rpcURL, "localhost"), strings.Contains(rpcURL, "127.0.0.1"):
		return "custom"
	}
	return "mainnet-beta"
}
