package lendform

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the runtime configuration for the lend form front ends.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Token         TokenConfig     `yaml:"token"`
	EVM           EVMConfig       `yaml:"evm"`
	Wallet        WalletConfig    `yaml:"wallet"`
	Log           LogConfig       `yaml:"log"`
	Auth          AuthConfig      `yaml:"auth"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// TokenConfig describes the lent ERC-20. Decimals is a pointer so an explicit
// zero survives defaulting.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals *uint8 `yaml:"decimals"`
}

// Precision returns the configured unit precision, or DefaultDecimals when unset.
func (t TokenConfig) Precision() uint8 {
	if t.Decimals == nil {
		return DefaultDecimals
	}
	return *t.Decimals
}

// EVMConfig points at the chain and contracts.
type EVMConfig struct {
	RPCURL          string   `yaml:"rpc_url"`
	ChainID         int64    `yaml:"chain_id"`
	Token           string   `yaml:"token"`
	LendingContract string   `yaml:"lending_contract"`
	Confirmations   uint64   `yaml:"confirmations"`
	PollInterval    Duration `yaml:"poll_interval"`
	TxTimeout       Duration `yaml:"tx_timeout"`
}

// TokenAddress returns the parsed ERC-20 address.
func (c EVMConfig) TokenAddress() common.Address {
	return common.HexToAddress(c.Token)
}

// LendingAddress returns the parsed lending contract address.
func (c EVMConfig) LendingAddress() common.Address {
	return common.HexToAddress(c.LendingContract)
}

// WalletConfig locates the keystore account used to sign.
type WalletConfig struct {
	KeystoreDir   string `yaml:"keystore_dir"`
	Account       string `yaml:"account"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

// LogConfig configures optional file logging.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// AuthConfig enables bearer JWT auth on the daemon's mutating routes.
type AuthConfig struct {
	HMACSecret    string   `yaml:"hmac_secret"`
	HMACSecretEnv string   `yaml:"hmac_secret_env"`
	Issuer        string   `yaml:"issuer"`
	Audience      string   `yaml:"audience"`
	ClockSkew     Duration `yaml:"clock_skew"`
}

// Enabled reports whether a secret was resolved.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.HMACSecret) != ""
}

// RateLimitConfig throttles submit and connect calls per client.
type RateLimitConfig struct {
	SubmitPerMinute float64 `yaml:"submit_per_minute"`
	Burst           int     `yaml:"burst"`
}

// LoadConfig reads configuration from the supplied path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Auth.normalise(); err != nil {
		return cfg, fmt.Errorf("auth: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	cfg.Token.Symbol = strings.TrimSpace(cfg.Token.Symbol)
	if cfg.Token.Symbol == "" {
		cfg.Token.Symbol = "USDT"
	}
	if cfg.Token.Decimals == nil {
		decimals := uint8(DefaultDecimals)
		cfg.Token.Decimals = &decimals
	}
	cfg.EVM.RPCURL = strings.TrimSpace(cfg.EVM.RPCURL)
	cfg.EVM.Token = strings.TrimSpace(cfg.EVM.Token)
	cfg.EVM.LendingContract = strings.TrimSpace(cfg.EVM.LendingContract)
	if cfg.EVM.Confirmations == 0 {
		cfg.EVM.Confirmations = 1
	}
	if cfg.EVM.PollInterval.Duration == 0 {
		cfg.EVM.PollInterval.Duration = 2 * time.Second
	}
	if cfg.EVM.TxTimeout.Duration == 0 {
		cfg.EVM.TxTimeout.Duration = 2 * time.Minute
	}
	cfg.Wallet.KeystoreDir = strings.TrimSpace(cfg.Wallet.KeystoreDir)
	cfg.Wallet.Account = strings.TrimSpace(cfg.Wallet.Account)
	cfg.Wallet.PassphraseEnv = strings.TrimSpace(cfg.Wallet.PassphraseEnv)
	if cfg.RateLimit.SubmitPerMinute <= 0 {
		cfg.RateLimit.SubmitPerMinute = 30
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.Auth.ClockSkew.Duration == 0 {
		cfg.Auth.ClockSkew.Duration = 2 * time.Minute
	}
}

func validateConfig(cfg Config) error {
	if cfg.EVM.RPCURL == "" {
		return fmt.Errorf("evm.rpc_url must be configured")
	}
	if cfg.EVM.ChainID <= 0 {
		return fmt.Errorf("evm.chain_id must be positive")
	}
	if !common.IsHexAddress(cfg.EVM.Token) {
		return fmt.Errorf("evm.token must be a hex address")
	}
	if !common.IsHexAddress(cfg.EVM.LendingContract) {
		return fmt.Errorf("evm.lending_contract must be a hex address")
	}
	if cfg.Wallet.KeystoreDir == "" {
		return fmt.Errorf("wallet.keystore_dir must be configured")
	}
	if cfg.Wallet.Account != "" && !common.IsHexAddress(cfg.Wallet.Account) {
		return fmt.Errorf("wallet.account must be a hex address")
	}
	if cfg.Token.Precision() > 36 {
		return fmt.Errorf("token.decimals %d out of range", cfg.Token.Precision())
	}
	return nil
}

func (a *AuthConfig) normalise() error {
	a.HMACSecret = strings.TrimSpace(a.HMACSecret)
	a.HMACSecretEnv = strings.TrimSpace(a.HMACSecretEnv)
	a.Issuer = strings.TrimSpace(a.Issuer)
	a.Audience = strings.TrimSpace(a.Audience)
	if a.HMACSecret != "" || a.HMACSecretEnv == "" {
		return nil
	}
	value := strings.TrimSpace(os.Getenv(a.HMACSecretEnv))
	if value == "" {
		return fmt.Errorf("hmac_secret_env %s is empty", a.HMACSecretEnv)
	}
	a.HMACSecret = value
	return nil
}
