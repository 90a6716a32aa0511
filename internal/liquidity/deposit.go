package liquidity

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/domain"
)

// DefaultDeadlineWindow applies when an entry carries no window of its own.
const DefaultDeadlineWindow = time.Hour

// Router is the AMM router surface the depositor uses.
type Router interface {
	Address() common.Address
	AddLiquidity(ctx context.Context, args chain.AddLiquidityArgs) (*types.Transaction, error)
	Simulate(ctx context.Context, from common.Address, args chain.AddLiquidityArgs) (chain.AddLiquidityResult, error)
}

// Handles maps plan addresses to the contract handles built at startup.
type Handles struct {
	Tokens  map[common.Address]Token
	Routers map[common.Address]Router
}

func (h Handles) token(a domain.Asset) (Token, error) {
	t, ok := h.Tokens[a.Address]
	if !ok {
		return nil, fmt.Errorf("%w: no token handle for %s", domain.ErrConfiguration, a)
	}
	return t, nil
}

func (h Handles) router(r domain.RouterEndpoint) (Router, error) {
	rt, ok := h.Routers[r.Address]
	if !ok {
		return nil, fmt.Errorf("%w: no router handle for %s", domain.ErrConfiguration, r)
	}
	return rt, nil
}

// Preflight selects the read-only checks run before anything is signed.
type Preflight struct {
	CheckBalances bool
	CheckDecimals bool
	CheckSymbols  bool
	Simulate      bool
}

// DepositReceipt is everything one entry did on chain. On failure it holds
// whatever happened before the error.
type DepositReceipt struct {
	Label      string
	Pair       domain.LiquidityPair
	Router     domain.RouterEndpoint
	Approvals  []ApprovalOutcome
	Simulation *chain.AddLiquidityResult
	Args       chain.AddLiquidityArgs
	Deadline   time.Time
	TxHash     common.Hash
	Receipt    *types.Receipt
}

// Depositor performs one plan entry: allowances for both sides, then
// addLiquidity with minimums equal to the desired amounts.
type Depositor struct {
	owner     common.Address
	handles   Handles
	guard     *Guard
	confirmer Confirmer
	preflight Preflight
	now       func() time.Time
	logger    *slog.Logger
}

// NewDepositor creates a Depositor signing as owner.
func NewDepositor(owner common.Address, handles Handles, guard *Guard, confirmer Confirmer, preflight Preflight, logger *slog.Logger) *Depositor {
	return &Depositor{
		owner:     owner,
		handles:   handles,
		guard:     guard,
		confirmer: confirmer,
		preflight: preflight,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "depositor")),
	}
}

// SetClock replaces the clock used to compute deadlines.
func (d *Depositor) SetClock(now func() time.Time) {
	d.now = now
}

// Deposit runs entry and sends the resulting LP tokens to recipient.
func (d *Depositor) Deposit(ctx context.Context, entry domain.PlanEntry, recipient common.Address) (DepositReceipt, error) {
	pair := entry.Pair
	rec := DepositReceipt{Label: entry.Label, Pair: pair, Router: entry.Router}

	tokenA, err := d.handles.token(pair.A)
	if err != nil {
		return rec, err
	}
	tokenB, err := d.handles.token(pair.B)
	if err != nil {
		return rec, err
	}
	router, err := d.handles.router(entry.Router)
	if err != nil {
		return rec, err
	}

	if err := d.check(ctx, pair.A, tokenA, pair.AmountA); err != nil {
		return rec, err
	}
	if err := d.check(ctx, pair.B, tokenB, pair.AmountB); err != nil {
		return rec, err
	}

	for _, side := range []struct {
		asset  domain.Asset
		token  Token
		amount *big.Int
	}{
		{pair.A, tokenA, pair.AmountA},
		{pair.B, tokenB, pair.AmountB},
	} {
		outcome, err := d.guard.EnsureAllowance(ctx, d.owner, side.asset, side.token, entry.Router.Address, side.amount)
		rec.Approvals = append(rec.Approvals, outcome)
		if err != nil {
			return rec, err
		}
	}

	window := entry.DeadlineWindow
	if window <= 0 {
		window = DefaultDeadlineWindow
	}
	deadline := time.Unix(d.now().Unix()+windowSeconds(window), 0)
	rec.Deadline = deadline
	rec.Args = chain.AddLiquidityArgs{
		TokenA:         pair.A.Address,
		TokenB:         pair.B.Address,
		AmountADesired: new(big.Int).Set(pair.AmountA),
		AmountBDesired: new(big.Int).Set(pair.AmountB),
		AmountAMin:     new(big.Int).Set(pair.AmountA),
		AmountBMin:     new(big.Int).Set(pair.AmountB),
		To:             recipient,
		Deadline:       big.NewInt(deadline.Unix()),
	}

	if d.preflight.Simulate {
		sim, err := router.Simulate(ctx, d.owner, rec.Args)
		if err != nil {
			return rec, fmt.Errorf("liquidity: simulate %s on %s: %w", pair, entry.Router.Name, err)
		}
		rec.Simulation = &sim
		d.logger.Info("simulated deposit",
			slog.String("pair", pair.String()),
			slog.String("router", entry.Router.Name),
			slog.String("amount_a", sim.AmountA.String()),
			slog.String("amount_b", sim.AmountB.String()),
			slog.String("liquidity", sim.Liquidity.String()),
		)
	}

	d.logger.Info("adding liquidity",
		slog.String("pair", pair.String()),
		slog.String("router", entry.Router.String()),
		slog.String("amount_a", domain.FormatUnits(pair.AmountA, pair.A.Decimals)),
		slog.String("amount_b", domain.FormatUnits(pair.AmountB, pair.B.Decimals)),
		slog.Int64("deadline", deadline.Unix()),
	)
	tx, err := router.AddLiquidity(ctx, rec.Args)
	if err != nil {
		return rec, fmt.Errorf("liquidity: addLiquidity %s on %s: %w", pair, entry.Router.Name, err)
	}
	rec.TxHash = tx.Hash()

	receipt, err := d.confirmer.ConfirmBefore(ctx, tx, deadline)
	rec.Receipt = receipt
	if err != nil {
		return rec, fmt.Errorf("liquidity: addLiquidity %s on %s: %w", pair, entry.Router.Name, err)
	}

	d.logger.Info("liquidity added",
		slog.String("pair", pair.String()),
		slog.String("router", entry.Router.String()),
		slog.String("tx", tx.Hash().Hex()),
	)
	return rec, nil
}

// windowSeconds rounds window up to whole seconds, so a positive window never
// yields a deadline equal to the submission time.
func windowSeconds(window time.Duration) int64 {
	return int64((window + time.Second - 1) / time.Second)
}

// check runs the configured read-only preflight for one side of a pair.
func (d *Depositor) check(ctx context.Context, asset domain.Asset, token Token, amount *big.Int) error {
	if d.preflight.CheckDecimals {
		onChain, err := token.Decimals(ctx)
		if err != nil {
			return fmt.Errorf("liquidity: %s decimals: %w", asset.Symbol, err)
		}
		if onChain != asset.Decimals {
			return fmt.Errorf("liquidity: %s reports %d decimals, configured %d: %w", asset.Symbol, onChain, asset.Decimals, domain.ErrDecimalsMismatch)
		}
	}
	if d.preflight.CheckSymbols {
		onChain, err := token.OnChainSymbol(ctx)
		if err != nil {
			return fmt.Errorf("liquidity: %s symbol: %w", asset.Symbol, err)
		}
		if onChain != asset.Symbol {
			return fmt.Errorf("liquidity: %s is %q on chain: %w", asset.Symbol, onChain, domain.ErrSymbolMismatch)
		}
	}
	if d.preflight.CheckBalances {
		balance, err := token.BalanceOf(ctx, d.owner)
		if err != nil {
			return fmt.Errorf("liquidity: %s balance: %w", asset.Symbol, err)
		}
		if balance.Cmp(amount) < 0 {
			return fmt.Errorf("liquidity: %s balance %s below %s: %w",
				asset.Symbol, domain.FormatUnits(balance, asset.Decimals), domain.FormatUnits(amount, asset.Decimals), domain.ErrInsufficientBalance)
		}
	}
	return nil
}
