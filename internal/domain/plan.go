package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LiquidityPair is a two-sided deposit with desired amounts in base units.
type LiquidityPair struct {
	A       Asset
	B       Asset
	AmountA *big.Int
	AmountB *big.Int
}

// NewLiquidityPair validates both sides and returns the pair.
func NewLiquidityPair(a, b Asset, amountA, amountB *big.Int) (LiquidityPair, error) {
	if a.Address == b.Address {
		return LiquidityPair{}, fmt.Errorf("%w: pair %s/%s uses the same token twice", ErrConfiguration, a, b)
	}
	if err := CheckAmount(amountA); err != nil {
		return LiquidityPair{}, fmt.Errorf("pair %s/%s side A: %w", a, b, err)
	}
	if err := CheckAmount(amountB); err != nil {
		return LiquidityPair{}, fmt.Errorf("pair %s/%s side B: %w", a, b, err)
	}
	return LiquidityPair{
		A:       a,
		B:       b,
		AmountA: new(big.Int).Set(amountA),
		AmountB: new(big.Int).Set(amountB),
	}, nil
}

// String renders the pair as "A/B".
func (p LiquidityPair) String() string {
	return p.A.String() + "/" + p.B.String()
}

// RouterEndpoint is a named AMM router.
type RouterEndpoint struct {
	Name    string
	Address common.Address
}

func (r RouterEndpoint) String() string {
	return r.Name + "(" + r.Address.Hex() + ")"
}

// PlanEntry is one deposit against one router.
type PlanEntry struct {
	Label          string
	Pair           LiquidityPair
	Router         RouterEndpoint
	DeadlineWindow time.Duration
}

// DepositPlan is consumed strictly in order.
type DepositPlan struct {
	Recipient common.Address
	Entries   []PlanEntry
}

// Len returns the number of entries.
func (p DepositPlan) Len() int {
	return len(p.Entries)
}

// ApprovalPolicy decides how much allowance an approval grants.
type ApprovalPolicy string

const (
	// ApprovalExact approves exactly the amount about to be spent.
	ApprovalExact ApprovalPolicy = "exact"
	// ApprovalMax approves 2^256-1 once so later runs skip approval entirely.
	ApprovalMax ApprovalPolicy = "max"
)

// Valid reports whether p is a known policy.
func (p ApprovalPolicy) Valid() bool {
	return p == ApprovalExact || p == ApprovalMax
}

// ApprovalAmount returns the amount to approve when required is needed.
func (p ApprovalPolicy) ApprovalAmount(required *big.Int) *big.Int {
	if p == ApprovalMax {
		return MaxUint256()
	}
	return new(big.Int).Set(required)
}

// Assets returns every distinct asset referenced by the plan, in first-use order.
func (p DepositPlan) Assets() []Asset {
	seen := make(map[common.Address]bool)
	var out []Asset
	for _, e := range p.Entries {
		for _, a := range []Asset{e.Pair.A, e.Pair.B} {
			if !seen[a.Address] {
				seen[a.Address] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// Routers returns every distinct router referenced by the plan, in first-use order.
func (p DepositPlan) Routers() []RouterEndpoint {
	seen := make(map[common.Address]bool)
	var out []RouterEndpoint
	for _, e := range p.Entries {
		if !seen[e.Router.Address] {
			seen[e.Router.Address] = true
			out = append(out, e.Router)
		}
	}
	return out
}
