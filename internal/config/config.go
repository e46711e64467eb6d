package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/codewithmide/token-creator/internal/wallet"
)

const EnvPrefix = "TOKENS"

type Config struct {
	Solana struct {
		RPCURL         string        `mapstructure:"rpc_url"`
		WSURL          string        `mapstructure:"ws_url"` // 可选，设置后用 signatureSubscribe 确认
		Commitment     string        `mapstructure:"commitment"`
		SkipPreflight  bool          `mapstructure:"skip_preflight"`
		ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
		PollInterval   time.Duration `mapstructure:"poll_interval"`
		RPCRateLimit   float64       `mapstructure:"rpc_rate_limit"` // 每秒请求数，0 表示不限
	} `mapstructure:"solana"`
	Wallet wallet.KeySource `mapstructure:"wallet"`
	App    struct {
		Port                   int           `mapstructure:"port"`
		DiscoveryConcurrency   int           `mapstructure:"discovery_concurrency"`
		MetadataTimeout        time.Duration `mapstructure:"metadata_timeout"`
		OffChainMetadata       bool          `mapstructure:"offchain_metadata"`        // 是否请求元数据 URI 里的 JSON
		MetadataPrivateTargets bool          `mapstructure:"metadata_private_targets"` // 允许请求内网/本机地址，本地验证节点用
	} `mapstructure:"app"`
	DB struct {
		Driver string `mapstructure:"driver"` // mysql | sqlite，为空则不记录历史
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("solana.ws_url", "")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.skip_preflight", false)
	v.SetDefault("solana.confirm_timeout", 60*time.Second)
	v.SetDefault("solana.poll_interval", 500*time.Millisecond)
	v.SetDefault("solana.rpc_rate_limit", 10.0)

	v.SetDefault("wallet.secret", "")
	v.SetDefault("wallet.keypair_file", "")
	v.SetDefault("wallet.mnemonic", "")
	v.SetDefault("wallet.gcp_secret", "")

	v.SetDefault("app.port", 8080)
	v.SetDefault("app.discovery_concurrency", 8)
	v.SetDefault("app.metadata_timeout", 10*time.Second)
	v.SetDefault("app.offchain_metadata", true)
	v.SetDefault("app.metadata_private_targets", false)

	v.SetDefault("db.driver", "")
	v.SetDefault("db.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load 读取配置：path 为空时在当前目录查找 config.yaml，文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Solana.RPCURL) == "" {
		return errors.New("solana.rpc_url is required")
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("solana.commitment %q must be processed, confirmed or finalized", c.Solana.Commitment)
	}
	switch strings.ToLower(c.DB.Driver) {
	case "":
	case "mysql", "sqlite", "sqlite3":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for driver %s", c.DB.Driver)
		}
	default:
		return fmt.Errorf("db.driver %q must be mysql or sqlite", c.DB.Driver)
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port %d out of range", c.App.Port)
	}
	return nil
}
