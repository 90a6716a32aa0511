package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OptsSource hands out signing options for state-changing calls.
type OptsSource interface {
	Opts(ctx context.Context) (*bind.TransactOpts, error)
}

// ERC20 is a typed handle on a deployed ERC-20 token.
type ERC20 struct {
	address  common.Address
	symbol   string
	contract *bind.BoundContract
	opts     OptsSource
}

// NewERC20 binds the token at address. symbol is the configured label used in
// logs; the on-chain symbol is available through OnChainSymbol.
func NewERC20(address common.Address, symbol string, backend bind.ContractBackend, opts OptsSource) (*ERC20, error) {
	parsed, err := ERC20MetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("chain: erc20 abi: %w", err)
	}
	return &ERC20{
		address:  address,
		symbol:   symbol,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
		opts:     opts,
	}, nil
}

func (t *ERC20) Address() common.Address { return t.address }
func (t *ERC20) Symbol() string          { return t.symbol }

// Allowance returns allowance(owner, spender).
func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("chain: %s allowance: %w", t.symbol, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// BalanceOf returns balanceOf(owner).
func (t *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("chain: %s balanceOf: %w", t.symbol, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Decimals returns the token's on-chain precision.
func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("chain: %s decimals: %w", t.symbol, err)
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// OnChainSymbol returns the token's symbol() as reported by the contract.
func (t *ERC20) OnChainSymbol(ctx context.Context) (string, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", fmt.Errorf("chain: %s symbol: %w", t.symbol, err)
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Approve submits approve(spender, amount). It does not wait for the receipt.
func (t *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	opts, err := t.opts.Opts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := t.contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, classifyCallErr(t.symbol+" approve", err)
	}
	return tx, nil
}
