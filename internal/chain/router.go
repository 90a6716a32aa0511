package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AddLiquidityArgs mirrors the router's addLiquidity parameters.
type AddLiquidityArgs struct {
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             common.Address
	Deadline       *big.Int
}

// AddLiquidityResult is the router's return tuple.
type AddLiquidityResult struct {
	AmountA   *big.Int
	AmountB   *big.Int
	Liquidity *big.Int
}

// Router is a typed handle on a deployed AMM router.
type Router struct {
	name     string
	address  common.Address
	contract *bind.BoundContract
	opts     OptsSource
}

// NewRouter binds the router at address.
func NewRouter(name string, address common.Address, backend bind.ContractBackend, opts OptsSource) (*Router, error) {
	parsed, err := RouterMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("chain: router abi: %w", err)
	}
	return &Router{
		name:     name,
		address:  address,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
		opts:     opts,
	}, nil
}

func (r *Router) Address() common.Address { return r.address }

// AddLiquidity submits addLiquidity. It does not wait for the receipt.
func (r *Router) AddLiquidity(ctx context.Context, args AddLiquidityArgs) (*types.Transaction, error) {
	opts, err := r.opts.Opts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := r.contract.Transact(opts, "addLiquidity", args.params()...)
	if err != nil {
		return nil, classifyCallErr(r.name+" addLiquidity", err)
	}
	return tx, nil
}

// Simulate runs addLiquidity through eth_call from the given sender and returns
// the amounts the router would take and the liquidity it would mint.
func (r *Router) Simulate(ctx context.Context, from common.Address, args AddLiquidityArgs) (AddLiquidityResult, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx, From: from}, &out, "addLiquidity", args.params()...)
	if err != nil {
		return AddLiquidityResult{}, classifyCallErr(r.name+" simulate addLiquidity", err)
	}
	if len(out) != 3 {
		return AddLiquidityResult{}, fmt.Errorf("chain: %s simulate addLiquidity: got %d outputs, want 3", r.name, len(out))
	}
	return AddLiquidityResult{
		AmountA:   out[0].(*big.Int),
		AmountB:   out[1].(*big.Int),
		Liquidity: out[2].(*big.Int),
	}, nil
}

func (a AddLiquidityArgs) params() []interface{} {
	return []interface{}{
		a.TokenA, a.TokenB,
		a.AmountADesired, a.AmountBDesired,
		a.AmountAMin, a.AmountBMin,
		a.To, a.Deadline,
	}
}
