// Package config defines the top-level configuration for the market
// bootstrapper and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by AMMSEED_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Chain     ChainConfig     `toml:"chain"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	Assets    []AssetConfig   `toml:"assets"`
	Routers   []RouterConfig  `toml:"routers"`
	Liquidity LiquidityConfig `toml:"liquidity"`
	Plan      []EntryConfig   `toml:"plan"`
	Mocks     MocksConfig     `toml:"mocks"`
	FlashLoan FlashLoanConfig `toml:"flash_loan"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Notify    NotifyConfig    `toml:"notify"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the signer's key material.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds RPC and gas parameters.
type ChainConfig struct {
	RPCURL          string   `toml:"rpc_url"`
	ChainID         int64    `toml:"chain_id"`
	GasPriceWei     string   `toml:"gas_price_wei"` // "auto" or a decimal wei amount
	GasPriceBumpPct int      `toml:"gas_price_bump_pct"`
	GasLimit        uint64   `toml:"gas_limit"`
	ConfirmTimeout  duration `toml:"confirm_timeout"`
}

// ArtifactsConfig points at compiled contract artifacts.
type ArtifactsConfig struct {
	Dir string `toml:"dir"`
}

// AssetConfig declares a token by symbol.
type AssetConfig struct {
	Symbol   string `toml:"symbol"`
	Address  string `toml:"address"`
	Decimals int    `toml:"decimals"`
}

// RouterConfig declares an AMM router by name.
type RouterConfig struct {
	Name    string `toml:"name"`
	Address string `toml:"address"`
}

// LiquidityConfig holds deposit policy shared by every plan entry.
type LiquidityConfig struct {
	ApprovalPolicy string   `toml:"approval_policy"`
	DeadlineWindow duration `toml:"deadline_window"`
	Recipient      string   `toml:"recipient"`
	CheckBalances  bool     `toml:"check_balances"`
	CheckDecimals  bool     `toml:"check_decimals"`
	CheckSymbols   bool     `toml:"check_symbols"`
	Simulate       bool     `toml:"simulate"`
}

// EntryConfig is one deposit in the plan. Amounts are human-denominated and
// converted to base units with the asset's decimals.
type EntryConfig struct {
	Label          string   `toml:"label"`
	Router         string   `toml:"router"`
	TokenA         string   `toml:"token_a"`
	TokenB         string   `toml:"token_b"`
	AmountA        string   `toml:"amount_a"`
	AmountB        string   `toml:"amount_b"`
	DeadlineWindow duration `toml:"deadline_window"`
}

// MocksConfig lists the mock token artifacts to deploy.
type MocksConfig struct {
	Contracts []string `toml:"contracts"`
}

// FlashLoanConfig holds the flash-loan executor constructor parameters.
type FlashLoanConfig struct {
	Artifact            string   `toml:"artifact"`
	LendingPoolProvider string   `toml:"lending_pool_provider"`
	Routers             []string `toml:"routers"`
	BorrowedAsset       string   `toml:"borrowed_asset"`
	ArbitragedAsset     string   `toml:"arbitraged_asset"`
	Keeper              string   `toml:"keeper"`
}

// LedgerConfig holds PostgreSQL connection parameters for the run ledger.
type LedgerConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the signer lock.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters for run reports.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "1h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:          "http://localhost:8545",
			ChainID:         31337,
			GasPriceWei:     "auto",
			GasPriceBumpPct: 20,
			ConfirmTimeout:  duration{5 * time.Minute},
		},
		Artifacts: ArtifactsConfig{
			Dir: "artifacts",
		},
		Liquidity: LiquidityConfig{
			ApprovalPolicy: string(domain.ApprovalExact),
			DeadlineWindow: duration{time.Hour},
			CheckBalances:  true,
			CheckDecimals:  true,
			Simulate:       false,
		},
		Mocks: MocksConfig{
			Contracts: []string{"PERIVALON", "CC01", "CC02"},
		},
		FlashLoan: FlashLoanConfig{
			Artifact: "FlashLoan",
		},
		Ledger: LedgerConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   4,
			MaxRetries: 3,
			LockTTL:    duration{2 * time.Hour},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ammseed-reports",
			Prefix:         "runs",
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"run_completed", "run_failed", "contract_deployed"},
		},
		Metrics: MetricsConfig{
			Job: "ammseed",
		},
		Mode:     "liquidity",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"mocks":     true,
	"liquidity": true,
	"flashloan": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NeedsLiquidity reports whether the mode runs the deposit plan.
func (c *Config) NeedsLiquidity() bool {
	m := strings.ToLower(c.Mode)
	return m == "liquidity" || m == "full"
}

// NeedsFlashLoan reports whether the mode deploys the flash-loan executor.
func (c *Config) NeedsFlashLoan() bool {
	m := strings.ToLower(c.Mode)
	return m == "flashloan" || m == "full"
}

// Validate checks Config for invalid or missing values and returns one error
// wrapping domain.ErrConfiguration that describes every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: mocks, liquidity, flashloan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Every mode signs transactions.
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if c.Chain.GasPriceBumpPct < 0 {
		errs = append(errs, "chain: gas_price_bump_pct must not be negative")
	}
	if c.Chain.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "chain: confirm_timeout must be positive")
	}

	if c.NeedsLiquidity() {
		errs = append(errs, c.validateLiquidity()...)
	}
	if c.NeedsFlashLoan() {
		errs = append(errs, c.validateFlashLoan()...)
	}
	if strings.EqualFold(c.Mode, "mocks") && len(c.Mocks.Contracts) == 0 {
		errs = append(errs, "mocks: contracts must list at least one artifact name")
	}
	if (strings.EqualFold(c.Mode, "mocks") || c.NeedsFlashLoan()) && c.Artifacts.Dir == "" {
		errs = append(errs, "artifacts: dir must not be empty")
	}

	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.DSN) == "" {
		if c.Ledger.Host == "" {
			errs = append(errs, "ledger: host must not be empty (or set ledger.dsn)")
		}
		if c.Ledger.Port <= 0 || c.Ledger.Port > 65535 {
			errs = append(errs, fmt.Sprintf("ledger: port %d is out of range", c.Ledger.Port))
		}
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be positive")
		}
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateLiquidity() []string {
	var errs []string

	if !domain.ApprovalPolicy(c.Liquidity.ApprovalPolicy).Valid() {
		errs = append(errs, fmt.Sprintf("liquidity: approval_policy %q must be exact or max", c.Liquidity.ApprovalPolicy))
	}
	if c.Liquidity.DeadlineWindow.Duration < time.Second {
		errs = append(errs, "liquidity: deadline_window must be at least 1s")
	}
	if c.Liquidity.Recipient != "" && !isAddress(c.Liquidity.Recipient) {
		errs = append(errs, fmt.Sprintf("liquidity: recipient %q is not an address", c.Liquidity.Recipient))
	}

	assets := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Symbol == "" {
			errs = append(errs, fmt.Sprintf("assets[%d]: symbol must not be empty", i))
			continue
		}
		if assets[a.Symbol] {
			errs = append(errs, fmt.Sprintf("assets[%d]: duplicate symbol %q", i, a.Symbol))
		}
		assets[a.Symbol] = true
		if !isAddress(a.Address) {
			errs = append(errs, fmt.Sprintf("assets[%d] %s: address %q is not a non-zero address", i, a.Symbol, a.Address))
		}
		if a.Decimals < 0 || a.Decimals > domain.MaxDecimals {
			errs = append(errs, fmt.Sprintf("assets[%d] %s: decimals %d out of range 0..%d", i, a.Symbol, a.Decimals, domain.MaxDecimals))
		}
	}

	routers := make(map[string]bool, len(c.Routers))
	for i, r := range c.Routers {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("routers[%d]: name must not be empty", i))
			continue
		}
		if routers[r.Name] {
			errs = append(errs, fmt.Sprintf("routers[%d]: duplicate name %q", i, r.Name))
		}
		routers[r.Name] = true
		if !isAddress(r.Address) {
			errs = append(errs, fmt.Sprintf("routers[%d] %s: address %q is not a non-zero address", i, r.Name, r.Address))
		}
	}

	if len(c.Plan) == 0 {
		errs = append(errs, "plan: at least one entry is required")
	}
	for i, e := range c.Plan {
		if !routers[e.Router] {
			errs = append(errs, fmt.Sprintf("plan[%d]: unknown router %q", i, e.Router))
		}
		if !assets[e.TokenA] {
			errs = append(errs, fmt.Sprintf("plan[%d]: unknown token_a %q", i, e.TokenA))
		}
		if !assets[e.TokenB] {
			errs = append(errs, fmt.Sprintf("plan[%d]: unknown token_b %q", i, e.TokenB))
		}
		if e.TokenA != "" && e.TokenA == e.TokenB {
			errs = append(errs, fmt.Sprintf("plan[%d]: token_a and token_b are both %q", i, e.TokenA))
		}
		if strings.TrimSpace(e.AmountA) == "" || strings.TrimSpace(e.AmountB) == "" {
			errs = append(errs, fmt.Sprintf("plan[%d]: amount_a and amount_b are required", i))
		}
		if w := e.DeadlineWindow.Duration; w != 0 && w < time.Second {
			errs = append(errs, fmt.Sprintf("plan[%d]: deadline_window %s must be at least 1s (or unset)", i, w))
		}
	}

	return errs
}

func (c *Config) validateFlashLoan() []string {
	var errs []string
	fl := c.FlashLoan

	if fl.Artifact == "" {
		errs = append(errs, "flash_loan: artifact must not be empty")
	}
	if !isAddress(fl.LendingPoolProvider) {
		errs = append(errs, fmt.Sprintf("flash_loan: lending_pool_provider %q is not a non-zero address", fl.LendingPoolProvider))
	}
	if len(fl.Routers) == 0 || len(fl.Routers) > 2 {
		errs = append(errs, fmt.Sprintf("flash_loan: routers must list one or two addresses, got %d", len(fl.Routers)))
	}
	for i, r := range fl.Routers {
		if !isAddress(r) {
			errs = append(errs, fmt.Sprintf("flash_loan: routers[%d] %q is not a non-zero address", i, r))
		}
	}
	if !isAddress(fl.BorrowedAsset) {
		errs = append(errs, fmt.Sprintf("flash_loan: borrowed_asset %q is not a non-zero address", fl.BorrowedAsset))
	}
	if fl.ArbitragedAsset != "" && !isAddress(fl.ArbitragedAsset) {
		errs = append(errs, fmt.Sprintf("flash_loan: arbitraged_asset %q is not a non-zero address", fl.ArbitragedAsset))
	}
	if fl.Keeper != "" && !isAddress(fl.Keeper) {
		errs = append(errs, fmt.Sprintf("flash_loan: keeper %q is not a non-zero address", fl.Keeper))
	}

	return errs
}

// isAddress reports whether s is a well-formed, non-zero hex address.
func isAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	return common.HexToAddress(s) != (common.Address{})
}
