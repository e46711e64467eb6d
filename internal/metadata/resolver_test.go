package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/utils"
)

type mapAccounts map[solana.PublicKey]*models.AccountInfo

func (m mapAccounts) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*models.AccountInfo, error) {
	return m[addr], nil
}

func storeRecord(t *testing.T, accs mapAccounts, mint solana.PublicKey, name, symbol, uri string) {
	t.Helper()
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	require.NoError(t, err)
	accs[pda] = &models.AccountInfo{
		Address: pda,
		Owner:   solana.TokenMetadataProgramID,
		Data:    encodeRecord(t, pub(t), mint, name, symbol, uri, 0),
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Off Name","symbol":"OFF","image":"https://img.example/a.png"}`))
		case "/bad.json":
			_, _ = w.Write([]byte(`{not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	accs := mapAccounts{}
	r := NewResolver(accs, time.Second, utils.Nop(), WithPrivateTargets())
	ctx := context.Background()

	t.Run("image from off-chain document", func(t *testing.T) {
		mint := pub(t)
		storeRecord(t, accs, mint, "Gold", "GLD", srv.URL+"/ok.json")
		md, err := r.Resolve(ctx, mint)
		require.NoError(t, err)
		assert.Equal(t, "Gold", md.Name, "on-chain name wins")
		assert.Equal(t, "GLD", md.Symbol)
		assert.Equal(t, "https://img.example/a.png", md.ImageURI)
	})

	t.Run("broken document only drops the image", func(t *testing.T) {
		for _, path := range []string{"/bad.json", "/missing.json"} {
			mint := pub(t)
			storeRecord(t, accs, mint, "Silver", "SLV", srv.URL+path)
			md, err := r.Resolve(ctx, mint)
			require.NoError(t, err)
			assert.Equal(t, "Silver", md.Name)
			assert.Empty(t, md.ImageURI)
		}
	})

	t.Run("empty on-chain fields fall back to document", func(t *testing.T) {
		mint := pub(t)
		storeRecord(t, accs, mint, "", "", srv.URL+"/ok.json")
		md, err := r.Resolve(ctx, mint)
		require.NoError(t, err)
		assert.Equal(t, "Off Name", md.Name)
		assert.Equal(t, "OFF", md.Symbol)
	})

	t.Run("no record", func(t *testing.T) {
		_, err := r.Resolve(ctx, pub(t))
		assert.ErrorIs(t, err, ErrMetadataMissing)
	})

	t.Run("wrong owner", func(t *testing.T) {
		mint := pub(t)
		storeRecord(t, accs, mint, "Fake", "FAKE", "")
		pda, _, _ := solana.FindTokenMetadataAddress(mint)
		accs[pda].Owner = solana.SystemProgramID
		_, err := r.Resolve(ctx, mint)
		assert.ErrorIs(t, err, ErrNotMetadata)
	})
}

func TestOffChainFetchGuards(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"image":"http://169.254.169.254/latest"}`))
	}))
	defer srv.Close()

	accs := mapAccounts{}
	mint := pub(t)
	storeRecord(t, accs, mint, "Local", "LCL", srv.URL+"/doc.json")

	t.Run("loopback refused by default", func(t *testing.T) {
		md, err := NewResolver(accs, time.Second, utils.Nop()).Resolve(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, "Local", md.Name)
		assert.Empty(t, md.ImageURI)
		assert.Zero(t, hits.Load())
	})

	t.Run("off-chain disabled", func(t *testing.T) {
		md, err := NewResolver(accs, time.Second, utils.Nop(), WithPrivateTargets(), WithoutOffChain()).Resolve(context.Background(), mint)
		require.NoError(t, err)
		assert.Empty(t, md.ImageURI)
		assert.Zero(t, hits.Load())
	})
}

func TestRefusePrivate(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:80", "[::1]:443", "10.1.2.3:80", "192.168.0.10:80", "169.254.169.254:80", "0.0.0.0:80"} {
		assert.ErrorIs(t, refusePrivate("tcp", addr, nil), ErrPrivateTarget, addr)
	}
	assert.NoError(t, refusePrivate("tcp", "93.184.216.34:443", nil))
}
