package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"

	"github.com/codewithmide/token-creator/internal/models"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

func newPub(t *testing.T) solana.PublicKey {
	return newKey(t).PublicKey()
}

// fakeLedger is an in-memory ledger. It also applies token instructions of
// submitted transactions so tests can observe their effect.
type fakeLedger struct {
	mu sync.Mutex

	anchor        solana.Hash
	anchorErr     error
	rent          uint64
	accounts      map[solana.PublicKey]*models.AccountInfo
	accountErr    error
	tokenAccounts []models.TokenAccount
	tokenErr      error
	statusFn      func(sig solana.Signature) (*models.SignatureStatus, error)

	// effects of executed token instructions
	balances   map[solana.PublicKey]uint64 // token account -> amount
	allowances map[solana.PublicKey]uint64 // token account -> delegated amount
	delegates  map[solana.PublicKey]solana.PublicKey

	statusCalls int
	anchorCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		anchor:     solana.HashFromBytes([]byte("recent-blockhash-for-tests-00001")),
		rent:       1461600,
		accounts:   make(map[solana.PublicKey]*models.AccountInfo),
		balances:   make(map[solana.PublicKey]uint64),
		allowances: make(map[solana.PublicKey]uint64),
		delegates:  make(map[solana.PublicKey]solana.PublicKey),
	}
}

func (f *fakeLedger) GetRecentAnchor(ctx context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchorCalls++
	return f.anchor, f.anchorErr
}

func (f *fakeLedger) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*models.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.accounts[addr], nil
}

func (f *fakeLedger) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenAccount, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokenAccounts, nil
}

func (f *fakeLedger) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*models.SignatureStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	fn := f.statusFn
	f.mu.Unlock()
	if fn == nil {
		return &models.SignatureStatus{Slot: 1, Confirmation: ConfirmationConfirmed}, nil
	}
	return fn(sig)
}

func (f *fakeLedger) GetRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return f.rent, nil
}

func (f *fakeLedger) setAccount(addr solana.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = &models.AccountInfo{Address: addr, Owner: solana.TokenProgramID}
}

// apply executes the token instructions of tx against the in-memory state.
func (f *fakeLedger) apply(tx *solana.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ci := range tx.Message.Instructions {
		prog := tx.Message.AccountKeys[ci.ProgramIDIndex]
		if !prog.Equals(solana.TokenProgramID) || len(ci.Data) < 9 {
			continue
		}
		amount, err := bin.NewBinDecoder(ci.Data[1:9]).ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		acc := func(i int) solana.PublicKey { return tx.Message.AccountKeys[ci.Accounts[i]] }
		switch ci.Data[0] {
		case token.Instruction_MintTo:
			f.balances[acc(1)] += amount
		case token.Instruction_Transfer:
			if f.balances[acc(0)] < amount {
				return errors.New("insufficient funds")
			}
			f.balances[acc(0)] -= amount
			f.balances[acc(1)] += amount
		case token.Instruction_Burn:
			if f.balances[acc(0)] < amount {
				return errors.New("insufficient funds")
			}
			f.balances[acc(0)] -= amount
		case token.Instruction_Approve:
			f.allowances[acc(0)] = amount
			f.delegates[acc(0)] = acc(1)
		}
	}
	return nil
}

// fakeSigner signs with a local key. It can reject, fail, or block until
// released.
type fakeSigner struct {
	key    solana.PrivateKey
	ledger *fakeLedger

	reject    bool
	submitErr error
	gate      chan struct{} // when set, SignAndSubmit waits on it
	entered   chan struct{}

	mu        sync.Mutex
	submitted []*solana.Transaction
}

func newFakeSigner(t *testing.T, ledger *fakeLedger) *fakeSigner {
	return &fakeSigner{key: newKey(t), ledger: ledger}
}

func (s *fakeSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *fakeSigner) SignAndSubmit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	if s.reject {
		return solana.Signature{}, ErrUserRejected
	}
	if s.submitErr != nil {
		return solana.Signature{}, s.submitErr
	}
	pub := s.key.PublicKey()
	if _, err := tx.PartialSign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &s.key
		}
		return nil
	}); err != nil {
		return solana.Signature{}, err
	}
	if s.ledger != nil {
		if err := s.ledger.apply(tx); err != nil {
			return solana.Signature{}, Rejected(err)
		}
	}
	s.mu.Lock()
	s.submitted = append(s.submitted, tx)
	s.mu.Unlock()
	return tx.Signatures[0], nil
}

func (s *fakeSigner) submissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

type fakeResolver struct {
	mu    sync.Mutex
	known map[solana.PublicKey]*models.TokenMetadata
	calls int
}

func (r *fakeResolver) Resolve(ctx context.Context, mint solana.PublicKey) (*models.TokenMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	md, ok := r.known[mint]
	if !ok {
		return nil, errors.New("metadata account not found")
	}
	return md, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records map[string]*models.OperationRecord
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{records: make(map[string]*models.OperationRecord)}
}

func (h *fakeHistory) SaveOperation(ctx context.Context, rec *models.OperationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *rec
	h.records[rec.OperationID] = &cp
	return nil
}

func (h *fakeHistory) UpdateOperation(ctx context.Context, operationID, status, signature, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[operationID]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.TXSignature = signature
	rec.Reason = reason
	return nil
}

func (h *fakeHistory) get(id string) *models.OperationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records[id]
}
