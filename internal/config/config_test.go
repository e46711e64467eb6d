package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
solana:
  rpc_url: http://127.0.0.1:8899
  commitment: finalized
  confirm_timeout: 30s
wallet:
  keypair_file: /tmp/id.json
app:
  port: 9090
db:
  driver: sqlite
  dsn: history.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Solana.RPCURL)
	assert.Equal(t, "finalized", cfg.Solana.Commitment)
	assert.Equal(t, 30*time.Second, cfg.Solana.ConfirmTimeout)
	assert.Equal(t, "/tmp/id.json", cfg.Wallet.KeypairFile)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)

	// defaults fill what the file leaves out
	assert.Equal(t, 500*time.Millisecond, cfg.Solana.PollInterval)
	assert.Equal(t, 8, cfg.App.DiscoveryConcurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.App.OffChainMetadata)
	assert.False(t, cfg.App.MetadataPrivateTargets)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "solana:\n  rpc_url: http://127.0.0.1:8899\n")
	t.Setenv("TOKENS_SOLANA_RPC_URL", "https://api.testnet.solana.com")
	t.Setenv("TOKENS_APP_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.testnet.solana.com", cfg.Solana.RPCURL)
	assert.Equal(t, 7000, cfg.App.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "solana:\n  commitment: max\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commitment")

	_, err = Load(writeConfig(t, "db:\n  driver: sqlite\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.dsn")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Solana.RPCURL = "https://api.devnet.solana.com"
		c.Solana.Commitment = "confirmed"
		c.App.Port = 8080
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Solana.RPCURL = " "
	assert.Error(t, c.Validate())

	c = valid()
	c.DB.Driver = "postgres"
	c.DB.DSN = "x"
	assert.Error(t, c.Validate())

	c = valid()
	c.DB.Driver = "mysql"
	c.DB.DSN = "user:pass@tcp(127.0.0.1:3306)/tokens"
	assert.NoError(t, c.Validate())

	c = valid()
	c.App.Port = 70000
	assert.Error(t, c.Validate())
}
