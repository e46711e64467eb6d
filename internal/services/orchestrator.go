package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

// Prepared is an assembled, not yet wallet-signed operation.
type Prepared struct {
	ID          string
	Kind        models.OperationKind
	Request     Request
	Tx          *solana.Transaction
	MintAddress solana.PublicKey
	CreatedAt   time.Time
}

// Orchestrator runs every operation as Prepare (validate, read, build,
// assemble) followed by Execute (sign, submit, confirm).
type Orchestrator struct {
	ledger    Ledger
	engine    *Engine
	discovery *Discovery
	history   HistoryStore
	newKey    func() (solana.PrivateKey, error)
	log       *utils.Logger
}

type OrchestratorOption func(*Orchestrator)

func WithHistory(h HistoryStore) OrchestratorOption {
	return func(o *Orchestrator) { o.history = h }
}

// WithKeyGenerator replaces the mint keypair source; tests use it for
// deterministic mint addresses.
func WithKeyGenerator(f func() (solana.PrivateKey, error)) OrchestratorOption {
	return func(o *Orchestrator) { o.newKey = f }
}

func WithLogger(l *utils.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOrchestrator(ledger Ledger, engine *Engine, discovery *Discovery, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		ledger:    ledger,
		engine:    engine,
		discovery: discovery,
		newKey:    solana.NewRandomPrivateKey,
		log:       utils.DefaultLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare validates in, runs the read phase, builds and assembles the
// transaction and stores it on the session. On create the fresh mint key has
// already signed its slot.
func (o *Orchestrator) Prepare(ctx context.Context, sess *Session, in models.Input) (*Prepared, error) {
	if sess == nil || sess.Wallet.IsZero() {
		return nil, ErrNoWallet
	}
	req, err := ParseInput(in, sess.Wallet)
	if err != nil {
		return nil, err
	}

	var mintKey solana.PrivateKey
	var newMint solana.PublicKey
	if _, ok := req.(CreateRequest); ok {
		if mintKey, err = o.newKey(); err != nil {
			return nil, fmt.Errorf("generate mint key: %w", err)
		}
		newMint = mintKey.PublicKey()
	}

	facts, err := ReadFacts(ctx, o.ledger, sess.Wallet, req, newMint)
	if err != nil {
		return nil, err
	}
	ixs, err := BuildInstructions(sess.Wallet, req, facts)
	if err != nil {
		return nil, err
	}
	// blockhash 最后获取，尽量保持新鲜
	anchor, err := o.ledger.GetRecentAnchor(ctx)
	if err != nil {
		return nil, Transient(fmt.Errorf("recent blockhash: %w", err))
	}
	tx, err := Assemble(ixs, sess.Wallet, anchor)
	if err != nil {
		return nil, err
	}
	if mintKey != nil {
		if err := SignAuxiliary(tx, mintKey); err != nil {
			return nil, err
		}
	}

	p := &Prepared{
		ID:          uuid.NewString(),
		Kind:        req.Kind(),
		Request:     req,
		Tx:          tx,
		MintAddress: newMint,
		CreatedAt:   time.Now(),
	}
	sess.putPending(p)
	o.log.Debug("[orchestrator] prepared %s %s with %d instructions", p.Kind, p.ID, len(ixs))
	return p, nil
}

// Execute submits a prepared operation through signer (the session's own
// signer when nil) and waits for confirmation.
func (o *Orchestrator) Execute(ctx context.Context, sess *Session, operationID string, signer Signer) models.Outcome {
	if sess == nil {
		return o.fail("", "", ErrNoWallet)
	}
	p := sess.takePending(operationID)
	if p == nil {
		return o.fail(operationID, "", ErrOperationNotFound)
	}
	if signer == nil {
		signer = sess.Signer
	}
	return o.execute(ctx, sess, p, signer)
}

// Run is Prepare followed immediately by Execute with the session's signer.
func (o *Orchestrator) Run(ctx context.Context, sess *Session, in models.Input) models.Outcome {
	p, err := o.Prepare(ctx, sess, in)
	if err != nil {
		return o.fail("", in.Kind, err)
	}
	return o.Execute(ctx, sess, p.ID, nil)
}

func (o *Orchestrator) execute(ctx context.Context, sess *Session, p *Prepared, signer Signer) models.Outcome {
	done := sess.begin()
	defer done()

	o.recordPending(ctx, sess, p)
	sig, err := o.engine.Submit(ctx, p.Kind, signer, p.Tx)

	out := models.Outcome{OperationID: p.ID, Kind: p.Kind}
	if !sig.IsZero() {
		out.Signature = sig.String()
	}
	if err != nil {
		out.Err = err
		out.Reason = reasonOf(err)
		o.log.Warn("[orchestrator] %s %s failed: %v", p.Kind, p.ID, err)
	} else {
		if !p.MintAddress.IsZero() {
			out.MintAddress = p.MintAddress.String()
		}
		o.log.Info("[orchestrator] %s %s confirmed: %s", p.Kind, p.ID, utils.MaskShort(out.Signature))
	}
	RecordOperation(p.Kind, err)
	o.recordOutcome(ctx, out)
	return out
}

func (o *Orchestrator) fail(id string, kind models.OperationKind, err error) models.Outcome {
	RecordOperation(kind, err)
	return models.Outcome{OperationID: id, Kind: kind, Err: err, Reason: reasonOf(err)}
}

func reasonOf(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Reason
	}
	return err.Error()
}

func (o *Orchestrator) recordPending(ctx context.Context, sess *Session, p *Prepared) {
	if o.history == nil {
		return
	}
	mint := MintOf(p.Request)
	if !p.MintAddress.IsZero() {
		mint = p.MintAddress
	}
	rec := &models.OperationRecord{
		OperationID: p.ID,
		Kind:        string(p.Kind),
		Owner:       sess.Wallet.String(),
		Counterpart: Counterpart(p.Request),
		Amount:      AmountOf(p.Request),
		Status:      models.StatusPending,
	}
	if !mint.IsZero() {
		rec.Mint = mint.String()
	}
	if err := o.history.SaveOperation(ctx, rec); err != nil {
		o.log.Warn("[orchestrator] save history %s: %v", p.ID, err)
	}
}

func (o *Orchestrator) recordOutcome(ctx context.Context, out models.Outcome) {
	if o.history == nil {
		return
	}
	status := models.StatusConfirmed
	switch {
	case errors.Is(out.Err, ErrUserRejected):
		status = models.StatusRejected
	case out.Err != nil:
		status = models.StatusFailed
	}
	if err := o.history.UpdateOperation(ctx, out.OperationID, status, out.Signature, out.Reason); err != nil {
		o.log.Warn("[orchestrator] update history %s: %v", out.OperationID, err)
	}
}

// ListOwnedTokens enumerates the owner's tokens with display metadata.
func (o *Orchestrator) ListOwnedTokens(ctx context.Context, owner solana.PublicKey) ([]models.TokenSummary, error) {
	return o.discovery.ListOwnedTokens(ctx, owner)
}

// LookupToken resolves one mint's metadata.
func (o *Orchestrator) LookupToken(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error) {
	return o.discovery.LookupToken(ctx, mint)
}
