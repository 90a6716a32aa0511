package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest precision whose smallest unit still fits a uint256.
const MaxDecimals = 77

// maxUint256 is 2^256 - 1, the widest amount an ERC-20 call can carry.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MaxUint256 returns a fresh copy of 2^256 - 1.
func MaxUint256() *big.Int {
	return new(big.Int).Set(maxUint256)
}

// Asset is a fungible token identified by its contract address.
type Asset struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// String returns the symbol, falling back to the address when no symbol is set.
func (a Asset) String() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.Address.Hex()
}

// ParseUnits converts a human-denominated quantity such as "40000000" or "1.25"
// into base units for the given precision. Digits beyond the precision are an
// error rather than being rounded away. The result must be a valid uint256.
func ParseUnits(human string, decimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d decimals exceeds %d", ErrInvalidAmount, decimals, MaxDecimals)
	}
	s := strings.ReplaceAll(strings.TrimSpace(human), "_", "")
	if s == "" {
		return nil, fmt.Errorf("%w: empty quantity", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, human, err)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, human, decimals)
	}

	amount := scaled.BigInt()
	if err := CheckAmount(amount); err != nil {
		return nil, fmt.Errorf("%q: %w", human, err)
	}
	return amount, nil
}

// FormatUnits renders a base-unit amount as a human quantity.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// CheckAmount enforces 0 < amount <= 2^256-1.
func CheckAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be strictly positive", ErrInvalidAmount)
	}
	if amount.Cmp(maxUint256) > 0 {
		return fmt.Errorf("%w: amount exceeds uint256", ErrInvalidAmount)
	}
	return nil
}
