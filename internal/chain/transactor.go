package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// KeySigner produces signing options for a single account.
type KeySigner interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// GasPriceSuggester is the slice of ethclient used to price transactions.
type GasPriceSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasConfig controls how transactions are priced. A nil PriceWei means the
// node's suggestion plus BumpPct percent.
type GasConfig struct {
	PriceWei *big.Int
	BumpPct  int
	Limit    uint64
}

// ParseGasPrice parses "auto" (or empty) as nil and anything else as a
// decimal wei amount.
func ParseGasPrice(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("chain: invalid gas price %q", s)
	}
	return v, nil
}

// Transactor hands out fully priced signing options.
type Transactor struct {
	signer  KeySigner
	backend GasPriceSuggester
	gas     GasConfig
}

// NewTransactor creates a Transactor for signer.
func NewTransactor(signer KeySigner, backend GasPriceSuggester, gas GasConfig) *Transactor {
	return &Transactor{signer: signer, backend: backend, gas: gas}
}

// Opts returns signing options with gas price and limit applied.
func (t *Transactor) Opts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := t.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}

	if t.gas.PriceWei != nil {
		opts.GasPrice = new(big.Int).Set(t.gas.PriceWei)
	} else if t.backend != nil {
		suggested, err := t.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain: suggest gas price: %w", err)
		}
		opts.GasPrice = bumpPct(suggested, t.gas.BumpPct)
	}
	if t.gas.Limit > 0 {
		opts.GasLimit = t.gas.Limit
	}
	return opts, nil
}

// bumpPct returns v * (100 + pct) / 100.
func bumpPct(v *big.Int, pct int) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(int64(100+pct)))
	return out.Div(out, big.NewInt(100))
}
