// Package liquidity seeds AMM pools: it guarantees router allowances, submits
// two-sided deposits, and walks a deposit plan strictly in order.
package liquidity

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Token is the ERC-20 surface the guard and depositor use.
type Token interface {
	Address() common.Address
	Symbol() string
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
	OnChainSymbol(ctx context.Context) (string, error)
}

// Confirmer waits for submitted transactions.
type Confirmer interface {
	Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	ConfirmBefore(ctx context.Context, tx *types.Transaction, deadline time.Time) (*types.Receipt, error)
}

// ApprovalOutcome describes what EnsureAllowance did for one token.
type ApprovalOutcome struct {
	Token    domain.Asset
	Spender  common.Address
	Required *big.Int
	// Observed is the allowance read before any approval.
	Observed *big.Int
	Skipped  bool
	// Approved is the amount passed to approve; nil when skipped.
	Approved *big.Int
	TxHash   common.Hash
	Receipt  *types.Receipt
}

// Guard makes sure a spender may move at least a required amount.
type Guard struct {
	policy    domain.ApprovalPolicy
	confirmer Confirmer
	logger    *slog.Logger
}

// NewGuard creates a Guard approving according to policy.
func NewGuard(policy domain.ApprovalPolicy, confirmer Confirmer, logger *slog.Logger) *Guard {
	return &Guard{
		policy:    policy,
		confirmer: confirmer,
		logger:    logger.With(slog.String("component", "allowance_guard")),
	}
}

// EnsureAllowance reads allowance(owner, spender) and, if it is below
// required, submits exactly one approval and waits for it to be mined. After
// an approval the allowance is read again and must cover required.
func (g *Guard) EnsureAllowance(ctx context.Context, owner common.Address, asset domain.Asset, token Token, spender common.Address, required *big.Int) (ApprovalOutcome, error) {
	out := ApprovalOutcome{Token: asset, Spender: spender, Required: new(big.Int).Set(required)}

	current, err := token.Allowance(ctx, owner, spender)
	if err != nil {
		return out, fmt.Errorf("liquidity: read %s allowance: %w", asset.Symbol, err)
	}
	out.Observed = current

	if current.Cmp(required) >= 0 {
		out.Skipped = true
		g.logger.Info("allowance sufficient",
			slog.String("token", asset.Symbol),
			slog.String("spender", spender.Hex()),
			slog.String("allowance", current.String()),
			slog.String("required", required.String()),
		)
		return out, nil
	}

	amount := g.policy.ApprovalAmount(required)
	g.logger.Info("approving",
		slog.String("token", asset.Symbol),
		slog.String("spender", spender.Hex()),
		slog.String("amount", amount.String()),
		slog.String("policy", string(g.policy)),
	)
	tx, err := token.Approve(ctx, spender, amount)
	if err != nil {
		return out, fmt.Errorf("liquidity: approve %s: %w", asset.Symbol, err)
	}
	out.Approved = amount
	out.TxHash = tx.Hash()

	receipt, err := g.confirmer.Confirm(ctx, tx)
	out.Receipt = receipt
	if err != nil {
		return out, fmt.Errorf("liquidity: approve %s: %w", asset.Symbol, err)
	}

	after, err := token.Allowance(ctx, owner, spender)
	if err != nil {
		return out, fmt.Errorf("liquidity: re-read %s allowance: %w", asset.Symbol, err)
	}
	if after.Cmp(required) < 0 {
		return out, fmt.Errorf("liquidity: %s allowance %s after approval is below %s: %w", asset.Symbol, after, required, domain.ErrAllowanceNotVisible)
	}

	g.logger.Info("approved",
		slog.String("token", asset.Symbol),
		slog.String("tx", tx.Hash().Hex()),
	)
	return out, nil
}
