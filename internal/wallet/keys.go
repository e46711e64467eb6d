// Package wallet provides the signer collaborators: a local keypair wallet
// for the CLI and a relay for transactions signed in the browser.
package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrNoKeySource     = errors.New("no wallet key configured (wallet.secret, wallet.keypair_file, wallet.mnemonic or wallet.gcp_secret)")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// KeySource names where the local wallet key comes from. The first non-empty
// field wins, in declaration order.
type KeySource struct {
	Secret      string `mapstructure:"secret"`       // base58 64-byte secret key
	KeypairFile string `mapstructure:"keypair_file"` // solana-keygen JSON file
	Mnemonic    string `mapstructure:"mnemonic"`     // BIP-39 phrase
	GCPSecret   string `mapstructure:"gcp_secret"`   // projects/<p>/secrets/<s>/versions/<v>
}

func (s KeySource) Empty() bool {
	return strings.TrimSpace(s.Secret) == "" && strings.TrimSpace(s.KeypairFile) == "" &&
		strings.TrimSpace(s.Mnemonic) == "" && strings.TrimSpace(s.GCPSecret) == ""
}

// LoadKey resolves the configured key source into a private key.
func LoadKey(ctx context.Context, src KeySource) (solana.PrivateKey, error) {
	switch {
	case strings.TrimSpace(src.Secret) != "":
		pk, err := solana.PrivateKeyFromBase58(strings.TrimSpace(src.Secret))
		if err != nil {
			return nil, fmt.Errorf("failed to parse wallet.secret as base58: %w", err)
		}
		return pk, nil
	case strings.TrimSpace(src.KeypairFile) != "":
		return solana.PrivateKeyFromSolanaKeygenFile(expandHome(strings.TrimSpace(src.KeypairFile)))
	case strings.TrimSpace(src.Mnemonic) != "":
		return KeyFromMnemonic(src.Mnemonic)
	case strings.TrimSpace(src.GCPSecret) != "":
		return keyFromSecretManager(ctx, strings.TrimSpace(src.GCPSecret))
	}
	return nil, ErrNoKeySource
}

// expandHome 支持 ~/.config/solana/id.json 这种写法
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// KeyFromMnemonic derives the key the way `solana-keygen recover` does
// without a derivation path: the first 32 bytes of the BIP-39 seed.
func KeyFromMnemonic(mnemonic string) (solana.PrivateKey, error) {
	m := strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(m) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(m, "")
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])), nil
}

// DecodeKeyPayload accepts either the solana-keygen JSON array or a base58 string.
func DecodeKeyPayload(data []byte) (solana.PrivateKey, error) {
	t := strings.TrimSpace(string(data))
	if strings.HasPrefix(t, "[") {
		return solana.PrivateKeyFromSolanaKeygenFileBytes([]byte(t))
	}
	pk, err := solana.PrivateKeyFromBase58(t)
	if err != nil {
		return nil, fmt.Errorf("decode key payload: %w", err)
	}
	return pk, nil
}

func keyFromSecretManager(ctx context.Context, name string) (solana.PrivateKey, error) {
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}
	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer sm.Close()

	resp, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("AccessSecretVersion failed (%s): %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return nil, fmt.Errorf("empty secret payload (%s)", name)
	}
	return DecodeKeyPayload(resp.Payload.Data)
}
