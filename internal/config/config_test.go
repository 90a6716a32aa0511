package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

const (
	usdcAddr    = "0x13512979ade267ab5100878e2e0f485b568328a4"
	cc01Addr    = "0x00000000000000000000000000000000000000c1"
	router0Addr = "0x00000000000000000000000000000000000000a0"
	router1Addr = "0x00000000000000000000000000000000000000a1"
	testKey     = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func validLiquidityConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = testKey
	cfg.Assets = []AssetConfig{
		{Symbol: "USDC", Address: usdcAddr, Decimals: 6},
		{Symbol: "CC01", Address: cc01Addr, Decimals: 18},
	}
	cfg.Routers = []RouterConfig{{Name: "primary", Address: router0Addr}}
	cfg.Plan = []EntryConfig{{
		Label:   "USDC/CC01",
		Router:  "primary",
		TokenA:  "USDC",
		TokenB:  "CC01",
		AmountA: "40000000",
		AmountB: "20000000",
	}}
	return cfg
}

func TestValidateAcceptsLiquidityConfig(t *testing.T) {
	cfg := validLiquidityConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := validLiquidityConfig()
	cfg.Wallet.PrivateKey = ""
	cfg.Liquidity.ApprovalPolicy = "unlimited"
	cfg.Routers[0].Address = ""
	cfg.Plan[0].TokenB = "CC99"

	err := cfg.Validate()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Validate error = %v, want ErrConfiguration", err)
	}
	for _, want := range []string{
		"wallet: either private_key",
		"approval_policy \"unlimited\"",
		"routers[0] primary: address \"\"",
		"unknown token_b \"CC99\"",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateEntryDeadlineWindow(t *testing.T) {
	testCases := []struct {
		name    string
		window  time.Duration
		wantErr bool
	}{
		{name: "unset inherits the global window", window: 0},
		{name: "one second", window: time.Second},
		{name: "ten minutes", window: 10 * time.Minute},
		{name: "sub-second", window: 500 * time.Millisecond, wantErr: true},
		{name: "negative", window: -time.Minute, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validLiquidityConfig()
			cfg.Plan[0].DeadlineWindow.Duration = tc.window

			err := cfg.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrConfiguration) || !strings.Contains(err.Error(), "plan[0]: deadline_window") {
				t.Fatalf("Validate error = %v, want plan[0] deadline_window problem", err)
			}
		})
	}
}

func TestValidateFlashLoan(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*FlashLoanConfig)
		wantErr string
	}{
		{
			name:   "single router",
			mutate: func(*FlashLoanConfig) {},
		},
		{
			name: "two routers with keeper",
			mutate: func(fl *FlashLoanConfig) {
				fl.Routers = append(fl.Routers, router1Addr)
				fl.Keeper = "0x00000000000000000000000000000000000000ee"
			},
		},
		{
			name:    "missing provider",
			mutate:  func(fl *FlashLoanConfig) { fl.LendingPoolProvider = "" },
			wantErr: "lending_pool_provider",
		},
		{
			name: "three routers",
			mutate: func(fl *FlashLoanConfig) {
				fl.Routers = []string{router0Addr, router1Addr, router0Addr}
			},
			wantErr: "one or two addresses",
		},
		{
			name:    "zero borrowed asset",
			mutate:  func(fl *FlashLoanConfig) { fl.BorrowedAsset = "0x0000000000000000000000000000000000000000" },
			wantErr: "borrowed_asset",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Mode = "flashloan"
			cfg.Wallet.PrivateKey = testKey
			cfg.FlashLoan.LendingPoolProvider = "0x00000000000000000000000000000000000000b0"
			cfg.FlashLoan.Routers = []string{router0Addr}
			cfg.FlashLoan.BorrowedAsset = usdcAddr
			tc.mutate(&cfg.FlashLoan)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ammseed.toml")
	body := `
mode = "full"

[liquidity]
deadline_window = "30m"

[[assets]]
symbol = "USDC"
address = "` + usdcAddr + `"
decimals = 6

[[assets]]
symbol = "CC01"
address = ""
decimals = 18

[[routers]]
name = "primary"
address = "` + router0Addr + `"

[[plan]]
router = "primary"
token_a = "USDC"
token_b = "CC01"
amount_a = "40000000"
amount_b = "20000000"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LIQUIDITY_ROUTER_1", router1Addr)
	t.Setenv("LENDING_POOL_PROVIDER", "0x00000000000000000000000000000000000000b0")
	t.Setenv("BORROWED_ASSET", usdcAddr)
	t.Setenv("AMMSEED_ASSET_CC01_ADDRESS", cc01Addr)
	t.Setenv("KEEPER_ADDRESS", "0x00000000000000000000000000000000000000e1")
	t.Setenv("AMMSEED_FLASH_LOAN_KEEPER", "0x00000000000000000000000000000000000000e2")
	t.Setenv("AMMSEED_WALLET_PRIVATE_KEY", testKey)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Liquidity.DeadlineWindow.Duration != 30*time.Minute {
		t.Errorf("deadline_window = %v, want 30m", cfg.Liquidity.DeadlineWindow.Duration)
	}
	if cfg.Assets[1].Address != cc01Addr {
		t.Errorf("CC01 address = %q, want env override", cfg.Assets[1].Address)
	}
	if len(cfg.Routers) != 2 || cfg.Routers[1].Name != "router1" || cfg.Routers[1].Address != router1Addr {
		t.Errorf("routers = %+v, want placeholder router1 from LIQUIDITY_ROUTER_1", cfg.Routers)
	}
	if got := cfg.FlashLoan.Routers; len(got) != 2 || got[0] != router0Addr || got[1] != router1Addr {
		t.Errorf("flash loan routers = %v, want inherited liquidity routers", got)
	}
	if cfg.FlashLoan.Keeper != "0x00000000000000000000000000000000000000e2" {
		t.Errorf("keeper = %q, want AMMSEED_ override to win over legacy name", cfg.FlashLoan.Keeper)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("AMMSEED_WALLET_PRIVATE_KEY", testKey)
	t.Setenv("AMMSEED_ASSET_PERIVALON_ADDRESS", "0x00000000000000000000000000000000000000b9")
	t.Setenv("AMMSEED_ASSET_CC01_ADDRESS", cc01Addr)
	t.Setenv("AMMSEED_ASSET_CC02_ADDRESS", "0x00000000000000000000000000000000000000c2")
	t.Setenv("LIQUIDITY_ROUTER_0", router0Addr)
	t.Setenv("LIQUIDITY_ROUTER_1", router1Addr)

	cfg, err := Load(filepath.Join("..", "..", "ammseed.example.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	type entry struct{ router, a, b, amountA, amountB string }
	want := []entry{
		{"router0", "USDC", "CC01", "40000000", "20000000"},
		{"router0", "PERIVALON", "CC01", "5000000", "20000000"},
		{"router1", "USDC", "CC02", "40000000", "20000000"},
		{"router1", "PERIVALON", "CC02", "4000000", "10000000"},
	}
	if len(cfg.Plan) != len(want) {
		t.Fatalf("plan has %d entries, want %d", len(cfg.Plan), len(want))
	}
	for i, w := range want {
		e := cfg.Plan[i]
		if got := (entry{e.Router, e.TokenA, e.TokenB, e.AmountA, e.AmountB}); got != w {
			t.Errorf("plan[%d] = %+v, want %+v", i, got, w)
		}
	}
	for _, a := range cfg.Assets {
		if a.Symbol == "PERIVALON" && a.Decimals != 9 {
			t.Errorf("PERIVALON decimals = %d, want 9", a.Decimals)
		}
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "chain id",
			env:  map[string]string{"AMMSEED_CHAIN_ID": "abc"},
			want: []string{"AMMSEED_CHAIN_ID"},
		},
		{
			name: "every malformed value is reported",
			env: map[string]string{
				"AMMSEED_CHAIN_GAS_LIMIT":          "-1",
				"AMMSEED_LIQUIDITY_CHECK_BALANCES": "yes please",
				"AMMSEED_REDIS_LOCK_TTL":           "2 hours",
				"AMMSEED_LEDGER_PORT":              "5432a",
			},
			want: []string{"AMMSEED_CHAIN_GAS_LIMIT", "AMMSEED_LIQUIDITY_CHECK_BALANCES", "AMMSEED_REDIS_LOCK_TTL", "AMMSEED_LEDGER_PORT"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ammseed.toml")
			if err := os.WriteFile(path, []byte("mode = \"liquidity\"\n"), 0o600); err != nil {
				t.Fatal(err)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load(path)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("Load error = %v, want ErrConfiguration", err)
			}
			for _, key := range tc.want {
				if !strings.Contains(err.Error(), key) {
					t.Errorf("error %q does not name %s", err, key)
				}
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validLiquidityConfig()
	cfg.Ledger.Password = "hunter2"
	cfg.Notify.Events = []string{"run_failed"}

	out := RedactedConfig(&cfg)
	if out.Wallet.PrivateKey != redacted || out.Ledger.Password != redacted {
		t.Fatalf("secrets not redacted: %+v", out.Wallet)
	}
	if cfg.Wallet.PrivateKey != testKey {
		t.Fatal("original config mutated")
	}
	out.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] != "run_failed" {
		t.Fatal("redacted copy shares the events slice")
	}
}
