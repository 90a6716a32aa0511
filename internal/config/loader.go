package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment variable overrides, and returns the
// final Config. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	inheritFlashLoanRouters(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites the
// corresponding Config fields when a variable is set (i.e. not empty). The
// unprefixed names used by the original deployment scripts are applied first
// so that AMMSEED_* variables take precedence over them. Values that fail to
// parse are collected into one error wrapping domain.ErrConfiguration.
func applyEnvOverrides(cfg *Config) error {
	var errs envErrors
	// ── Legacy script variables ──
	setRouterAddress(cfg, 0, "LIQUIDITY_ROUTER_0")
	setRouterAddress(cfg, 1, "LIQUIDITY_ROUTER_1")
	setStr(&cfg.FlashLoan.LendingPoolProvider, "LENDING_POOL_PROVIDER")
	setStr(&cfg.FlashLoan.BorrowedAsset, "BORROWED_ASSET")
	setStr(&cfg.FlashLoan.ArbitragedAsset, "ARBITRAGED_ASSET")
	setStr(&cfg.FlashLoan.Keeper, "KEEPER_ADDRESS")
	if v := os.Getenv("LIQUIDITY_ROUTER"); v != "" {
		setIndex(&cfg.FlashLoan.Routers, 0, v)
	}

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "AMMSEED_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "AMMSEED_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "AMMSEED_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "AMMSEED_CHAIN_RPC_URL")
	setInt64(&errs, &cfg.Chain.ChainID, "AMMSEED_CHAIN_ID")
	setStr(&cfg.Chain.GasPriceWei, "AMMSEED_CHAIN_GAS_PRICE_WEI")
	setInt(&errs, &cfg.Chain.GasPriceBumpPct, "AMMSEED_CHAIN_GAS_PRICE_BUMP_PCT")
	setUint64(&errs, &cfg.Chain.GasLimit, "AMMSEED_CHAIN_GAS_LIMIT")
	setDuration(&errs, &cfg.Chain.ConfirmTimeout, "AMMSEED_CHAIN_CONFIRM_TIMEOUT")

	setStr(&cfg.Artifacts.Dir, "AMMSEED_ARTIFACTS_DIR")

	// ── Assets and routers ──
	for i := range cfg.Assets {
		key := "AMMSEED_ASSET_" + envKey(cfg.Assets[i].Symbol) + "_ADDRESS"
		setStr(&cfg.Assets[i].Address, key)
	}
	setRouterAddress(cfg, 0, "AMMSEED_ROUTER_0")
	setRouterAddress(cfg, 1, "AMMSEED_ROUTER_1")

	// ── Liquidity ──
	setStr(&cfg.Liquidity.ApprovalPolicy, "AMMSEED_LIQUIDITY_APPROVAL_POLICY")
	setDuration(&errs, &cfg.Liquidity.DeadlineWindow, "AMMSEED_LIQUIDITY_DEADLINE_WINDOW")
	setStr(&cfg.Liquidity.Recipient, "AMMSEED_LIQUIDITY_RECIPIENT")
	setBool(&errs, &cfg.Liquidity.CheckBalances, "AMMSEED_LIQUIDITY_CHECK_BALANCES")
	setBool(&errs, &cfg.Liquidity.CheckDecimals, "AMMSEED_LIQUIDITY_CHECK_DECIMALS")
	setBool(&errs, &cfg.Liquidity.CheckSymbols, "AMMSEED_LIQUIDITY_CHECK_SYMBOLS")
	setBool(&errs, &cfg.Liquidity.Simulate, "AMMSEED_LIQUIDITY_SIMULATE")

	// ── Mocks / flash loan ──
	setStringSlice(&cfg.Mocks.Contracts, "AMMSEED_MOCKS_CONTRACTS")
	setStr(&cfg.FlashLoan.Artifact, "AMMSEED_FLASH_LOAN_ARTIFACT")
	setStr(&cfg.FlashLoan.LendingPoolProvider, "AMMSEED_FLASH_LOAN_LENDING_POOL_PROVIDER")
	setStringSlice(&cfg.FlashLoan.Routers, "AMMSEED_FLASH_LOAN_ROUTERS")
	setStr(&cfg.FlashLoan.BorrowedAsset, "AMMSEED_FLASH_LOAN_BORROWED_ASSET")
	setStr(&cfg.FlashLoan.ArbitragedAsset, "AMMSEED_FLASH_LOAN_ARBITRAGED_ASSET")
	setStr(&cfg.FlashLoan.Keeper, "AMMSEED_FLASH_LOAN_KEEPER")

	// ── Ledger ──
	setBool(&errs, &cfg.Ledger.Enabled, "AMMSEED_LEDGER_ENABLED")
	setStr(&cfg.Ledger.DSN, "AMMSEED_LEDGER_DSN")
	setStr(&cfg.Ledger.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Ledger.Host, "AMMSEED_LEDGER_HOST")
	setInt(&errs, &cfg.Ledger.Port, "AMMSEED_LEDGER_PORT")
	setStr(&cfg.Ledger.Database, "AMMSEED_LEDGER_DATABASE")
	setStr(&cfg.Ledger.User, "AMMSEED_LEDGER_USER")
	setStr(&cfg.Ledger.Password, "AMMSEED_LEDGER_PASSWORD")
	setStr(&cfg.Ledger.SSLMode, "AMMSEED_LEDGER_SSL_MODE")
	setInt(&errs, &cfg.Ledger.PoolMaxConns, "AMMSEED_LEDGER_POOL_MAX_CONNS")
	setInt(&errs, &cfg.Ledger.PoolMinConns, "AMMSEED_LEDGER_POOL_MIN_CONNS")
	setBool(&errs, &cfg.Ledger.RunMigrations, "AMMSEED_LEDGER_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&errs, &cfg.Redis.Enabled, "AMMSEED_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "AMMSEED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AMMSEED_REDIS_PASSWORD")
	setInt(&errs, &cfg.Redis.DB, "AMMSEED_REDIS_DB")
	setInt(&errs, &cfg.Redis.PoolSize, "AMMSEED_REDIS_POOL_SIZE")
	setInt(&errs, &cfg.Redis.MaxRetries, "AMMSEED_REDIS_MAX_RETRIES")
	setBool(&errs, &cfg.Redis.TLSEnabled, "AMMSEED_REDIS_TLS_ENABLED")
	setDuration(&errs, &cfg.Redis.LockTTL, "AMMSEED_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&errs, &cfg.S3.Enabled, "AMMSEED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "AMMSEED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AMMSEED_S3_REGION")
	setStr(&cfg.S3.Bucket, "AMMSEED_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "AMMSEED_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "AMMSEED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AMMSEED_S3_SECRET_KEY")
	setBool(&errs, &cfg.S3.UseSSL, "AMMSEED_S3_USE_SSL")
	setBool(&errs, &cfg.S3.ForcePathStyle, "AMMSEED_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "AMMSEED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "AMMSEED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "AMMSEED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "AMMSEED_NOTIFY_EVENTS")

	// ── Metrics ──
	setStr(&cfg.Metrics.PushgatewayURL, "AMMSEED_METRICS_PUSHGATEWAY_URL")
	setStr(&cfg.Metrics.Job, "AMMSEED_METRICS_JOB")

	// ── Top-level ──
	setStr(&cfg.Mode, "AMMSEED_MODE")
	setStr(&cfg.LogLevel, "AMMSEED_LOG_LEVEL")

	if len(errs) > 0 {
		return fmt.Errorf("%w: environment: %s", domain.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

// inheritFlashLoanRouters defaults the executor's routers to the first two
// liquidity routers when none were configured for it explicitly.
func inheritFlashLoanRouters(cfg *Config) {
	if len(cfg.FlashLoan.Routers) > 0 {
		return
	}
	for i, r := range cfg.Routers {
		if i == 2 {
			break
		}
		if r.Address != "" {
			cfg.FlashLoan.Routers = append(cfg.FlashLoan.Routers, r.Address)
		}
	}
}

// setRouterAddress overrides the address of the router at index i, creating
// placeholder routers named "router<i>" when the file declared fewer.
func setRouterAddress(cfg *Config, i int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	for len(cfg.Routers) <= i {
		cfg.Routers = append(cfg.Routers, RouterConfig{Name: "router" + strconv.Itoa(len(cfg.Routers))})
	}
	cfg.Routers[i].Address = v
}

func setIndex(dst *[]string, i int, v string) {
	for len(*dst) <= i {
		*dst = append(*dst, "")
	}
	(*dst)[i] = v
}

// envKey upper-cases a symbol and replaces anything outside [A-Z0-9] with '_'.
func envKey(symbol string) string {
	b := []byte(strings.ToUpper(symbol))
	for i, c := range b {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			b[i] = '_'
		}
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present, non-empty and parses.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envErrors collects malformed environment values.
type envErrors []string

func (e *envErrors) add(key, v string, err error) {
	*e = append(*e, fmt.Sprintf("%s=%q: %v", key, v, err))
}

func setInt(errs *envErrors, dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs.add(key, v, err)
			return
		}
		*dst = n
	}
}

func setInt64(errs *envErrors, dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs.add(key, v, err)
			return
		}
		*dst = n
	}
}

func setUint64(errs *envErrors, dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.add(key, v, err)
			return
		}
		*dst = n
	}
}

func setBool(errs *envErrors, dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.add(key, v, err)
			return
		}
		*dst = b
	}
}

func setDuration(errs *envErrors, dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs.add(key, v, err)
			return
		}
		dst.Duration = d
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
