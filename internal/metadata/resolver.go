package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

// AccountReader is the slice of the ledger connection the resolver needs.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*models.AccountInfo, error)
}

// OffChainJSON is the document hosted at a metadata URI; only the fields we show.
type OffChainJSON struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// Resolver reads the on-chain metadata record of a mint and, when it points
// at a JSON document, picks the image from there.
type Resolver struct {
	accounts     AccountReader
	httpClient   *http.Client
	offChain     bool
	allowPrivate bool
	log          *utils.Logger
}

// ErrPrivateTarget is returned when a metadata URI resolves to a loopback,
// private or link-local address.
var ErrPrivateTarget = errors.New("metadata uri points at a non-public address")

type ResolverOption func(*Resolver)

// WithoutOffChain 只读链上记录，不请求 URI
func WithoutOffChain() ResolverOption {
	return func(r *Resolver) { r.offChain = false }
}

// WithPrivateTargets lets URIs reach loopback and private networks, for a
// local validator setup.
func WithPrivateTargets() ResolverOption {
	return func(r *Resolver) { r.allowPrivate = true }
}

func NewResolver(accounts AccountReader, timeout time.Duration, log *utils.Logger, opts ...ResolverOption) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = utils.DefaultLogger
	}
	r := &Resolver{
		accounts: accounts,
		offChain: true,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}

	// 在拨号时检查解析后的 IP，重定向和 DNS 重绑定也会经过这里
	dialer := &net.Dialer{Timeout: timeout}
	if !r.allowPrivate {
		dialer.Control = refusePrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	r.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	return r
}

func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("%w: %s", ErrPrivateTarget, host)
	}
	return nil
}

// Resolve fails when the on-chain record is missing or unreadable. A broken
// off-chain document only costs the image.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error) {
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	info, err := r.accounts.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint %s", ErrMetadataMissing, mint)
	}
	if !info.Owner.Equals(solana.TokenMetadataProgramID) {
		return nil, fmt.Errorf("%w: owner %s", ErrNotMetadata, info.Owner)
	}
	md, err := Decode(info.Data)
	if err != nil {
		return nil, err
	}
	out := &models.TokenMetadata{Name: md.Name, Symbol: md.Symbol, URI: md.URI}
	if md.URI == "" || !r.offChain {
		return out, nil
	}
	doc, err := r.fetchOffChain(ctx, md.URI)
	if err != nil {
		r.log.Debug("[metadata] off-chain fetch for %s failed: %v", utils.MaskShort(mint.String()), err)
		return out, nil
	}
	out.ImageURI = doc.Image
	if out.Name == "" {
		out.Name = doc.Name
	}
	if out.Symbol == "" {
		out.Symbol = doc.Symbol
	}
	return out, nil
}

func (r *Resolver) fetchOffChain(ctx context.Context, uri string) (*OffChainJSON, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return nil, fmt.Errorf("unsupported uri scheme: %s", uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("uri returned %d", resp.StatusCode)
	}
	var doc OffChainJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed metadata json: %w", err)
	}
	return &doc, nil
}
