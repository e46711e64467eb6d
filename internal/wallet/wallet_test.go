package wallet

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type recordingBroadcaster struct {
	mu  sync.Mutex
	txs []*solana.Transaction
}

func (b *recordingBroadcaster) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs = append(b.txs, tx)
	return tx.Signatures[0], nil
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

func unsignedTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, newKey(t).PublicKey()).Build()},
		solana.HashFromBytes([]byte("recent-blockhash-for-tests-00001")),
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func TestKeyFromMnemonic(t *testing.T) {
	a, err := KeyFromMnemonic(testMnemonic)
	require.NoError(t, err)
	b, err := KeyFromMnemonic("  " + testMnemonic + "\n")
	require.NoError(t, err)
	assert.Equal(t, a, b, "whitespace does not change the key")
	assert.Len(t, a, 64)

	_, err = KeyFromMnemonic("abandon abandon abandon")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestDecodeKeyPayload(t *testing.T) {
	key := newKey(t)

	fromB58, err := DecodeKeyPayload([]byte(key.String()))
	require.NoError(t, err)
	assert.Equal(t, key, fromB58)

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	fromJSON, err := DecodeKeyPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, key, fromJSON)

	_, err = DecodeKeyPayload([]byte("not a key"))
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	key := newKey(t)
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	got, err := LoadKey(context.Background(), KeySource{KeypairFile: path})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), got.PublicKey())

	got, err = LoadKey(context.Background(), KeySource{Secret: key.String(), KeypairFile: "/does/not/matter"})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), got.PublicKey(), "secret takes precedence")

	_, err = LoadKey(context.Background(), KeySource{})
	assert.ErrorIs(t, err, ErrNoKeySource)
	assert.True(t, KeySource{}.Empty())
	assert.False(t, KeySource{Mnemonic: testMnemonic}.Empty())
}

func TestKeypairWallet(t *testing.T) {
	key := newKey(t)

	t.Run("declined", func(t *testing.T) {
		b := &recordingBroadcaster{}
		w := NewKeypairWallet(key, b, func(*solana.Transaction) bool { return false }, utils.Nop())
		_, err := w.SignAndSubmit(context.Background(), unsignedTx(t, key.PublicKey()))
		assert.ErrorIs(t, err, services.ErrUserRejected)
		assert.Empty(t, b.txs)
	})

	t.Run("approved", func(t *testing.T) {
		b := &recordingBroadcaster{}
		w := NewKeypairWallet(key, b, func(*solana.Transaction) bool { return true }, utils.Nop())
		tx := unsignedTx(t, key.PublicKey())
		sig, err := w.SignAndSubmit(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Signatures[0], sig)
		require.Len(t, b.txs, 1)
		assert.NoError(t, b.txs[0].VerifySignatures())
	})

	t.Run("missing co-signer", func(t *testing.T) {
		other := newKey(t)
		ix := system.NewTransferInstruction(1, other.PublicKey(), key.PublicKey()).Build()
		tx, err := solana.NewTransaction([]solana.Instruction{ix},
			solana.HashFromBytes([]byte("recent-blockhash-for-tests-00001")),
			solana.TransactionPayer(key.PublicKey()))
		require.NoError(t, err)

		b := &recordingBroadcaster{}
		w := NewKeypairWallet(key, b, nil, utils.Nop())
		_, err = w.SignAndSubmit(context.Background(), tx)
		assert.ErrorIs(t, err, services.ErrInvalidRequest)
		assert.Empty(t, b.txs)
	})
}

func TestRelaySigner(t *testing.T) {
	key := newKey(t)

	signed := func(t *testing.T, tx *solana.Transaction) string {
		cp := *tx
		_, err := cp.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
			if pk.Equals(key.PublicKey()) {
				return &key
			}
			return nil
		})
		require.NoError(t, err)
		s, err := utils.EncodeBase64Tx(&cp)
		require.NoError(t, err)
		return s
	}

	t.Run("rejected in wallet", func(t *testing.T) {
		b := &recordingBroadcaster{}
		r := NewRelaySigner(key.PublicKey(), Decision{Rejected: true, Reason: "User rejected the request."}, b, utils.Nop())
		_, err := r.SignAndSubmit(context.Background(), unsignedTx(t, key.PublicKey()))
		assert.ErrorIs(t, err, services.ErrUserRejected)
		assert.Contains(t, err.Error(), "User rejected the request.")
		assert.Empty(t, b.txs)
	})

	t.Run("signed matches prepared", func(t *testing.T) {
		b := &recordingBroadcaster{}
		prepared := unsignedTx(t, key.PublicKey())
		r := NewRelaySigner(key.PublicKey(), Decision{SignedTx: signed(t, prepared)}, b, utils.Nop())
		sig, err := r.SignAndSubmit(context.Background(), prepared)
		require.NoError(t, err)
		assert.False(t, sig.IsZero())
		assert.Len(t, b.txs, 1)
	})

	t.Run("signed a different transaction", func(t *testing.T) {
		b := &recordingBroadcaster{}
		prepared := unsignedTx(t, key.PublicKey())
		other := unsignedTx(t, key.PublicKey())
		r := NewRelaySigner(key.PublicKey(), Decision{SignedTx: signed(t, other)}, b, utils.Nop())
		_, err := r.SignAndSubmit(context.Background(), prepared)
		assert.ErrorIs(t, err, services.ErrInvalidRequest)
		assert.Empty(t, b.txs)
	})

	t.Run("unsigned payload", func(t *testing.T) {
		b := &recordingBroadcaster{}
		prepared := unsignedTx(t, key.PublicKey())
		raw, err := utils.EncodeBase64Tx(prepared)
		require.NoError(t, err)
		r := NewRelaySigner(key.PublicKey(), Decision{SignedTx: raw}, b, utils.Nop())
		_, err = r.SignAndSubmit(context.Background(), prepared)
		assert.ErrorIs(t, err, services.ErrInvalidRequest)
	})

	t.Run("garbage payload", func(t *testing.T) {
		r := NewRelaySigner(key.PublicKey(), Decision{SignedTx: "%%%"}, &recordingBroadcaster{}, utils.Nop())
		_, err := r.SignAndSubmit(context.Background(), unsignedTx(t, key.PublicKey()))
		assert.ErrorIs(t, err, services.ErrInvalidRequest)
	})
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/solana/id.json"), expandHome("~/.config/solana/id.json"))
	assert.Equal(t, "/etc/id.json", expandHome("/etc/id.json"))
}
