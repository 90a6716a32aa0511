package domain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewLiquidityPair(t *testing.T) {
	usdc := Asset{Symbol: "USDC", Address: common.HexToAddress("0x01"), Decimals: 6}
	cc01 := Asset{Symbol: "CC01", Address: common.HexToAddress("0x02"), Decimals: 18}

	amountA := big.NewInt(10)
	pair, err := NewLiquidityPair(usdc, cc01, amountA, big.NewInt(20))
	if err != nil {
		t.Fatalf("NewLiquidityPair: %v", err)
	}
	amountA.SetInt64(99)
	if pair.AmountA.Int64() != 10 {
		t.Fatalf("pair aliases caller amount: got %s", pair.AmountA)
	}
	if pair.String() != "USDC/CC01" {
		t.Fatalf("String() = %q", pair.String())
	}

	if _, err := NewLiquidityPair(usdc, usdc, big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("same-token pair error = %v, want ErrConfiguration", err)
	}
	if _, err := NewLiquidityPair(usdc, cc01, big.NewInt(0), big.NewInt(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount error = %v, want ErrInvalidAmount", err)
	}
}

func TestApprovalPolicyAmount(t *testing.T) {
	required := big.NewInt(42)

	if got := ApprovalExact.ApprovalAmount(required); got.Cmp(required) != 0 {
		t.Fatalf("exact policy approved %s, want 42", got)
	}
	if got := ApprovalMax.ApprovalAmount(required); got.Cmp(MaxUint256()) != 0 {
		t.Fatalf("max policy approved %s, want 2^256-1", got)
	}
	if ApprovalPolicy("infinite").Valid() {
		t.Fatal("unknown policy reported valid")
	}
}

func TestDepositPlanDistinctAssetsAndRouters(t *testing.T) {
	usdc := Asset{Symbol: "USDC", Address: common.HexToAddress("0x01"), Decimals: 6}
	cc01 := Asset{Symbol: "CC01", Address: common.HexToAddress("0x02"), Decimals: 18}
	cc02 := Asset{Symbol: "CC02", Address: common.HexToAddress("0x03"), Decimals: 18}
	r0 := RouterEndpoint{Name: "r0", Address: common.HexToAddress("0xa0")}
	r1 := RouterEndpoint{Name: "r1", Address: common.HexToAddress("0xa1")}

	plan := DepositPlan{Entries: []PlanEntry{
		{Pair: LiquidityPair{A: usdc, B: cc01}, Router: r0},
		{Pair: LiquidityPair{A: usdc, B: cc02}, Router: r1},
		{Pair: LiquidityPair{A: cc01, B: cc02}, Router: r0},
	}}

	assets := plan.Assets()
	if len(assets) != 3 || assets[0] != usdc || assets[1] != cc01 || assets[2] != cc02 {
		t.Fatalf("Assets() = %v", assets)
	}
	routers := plan.Routers()
	if len(routers) != 2 || routers[0] != r0 || routers[1] != r1 {
		t.Fatalf("Routers() = %v", routers)
	}
}
