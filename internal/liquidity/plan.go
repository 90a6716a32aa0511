package liquidity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammseed/internal/config"
	"github.com/alanyoungcy/ammseed/internal/domain"
)

// BuildPlan turns validated configuration into an immutable deposit plan.
// Amounts are converted from human units with each asset's own decimals.
// The recipient defaults to signer.
func BuildPlan(cfg *config.Config, signer common.Address) (domain.DepositPlan, error) {
	assets := make(map[string]domain.Asset, len(cfg.Assets))
	for _, a := range cfg.Assets {
		if a.Decimals < 0 || a.Decimals > domain.MaxDecimals {
			return domain.DepositPlan{}, fmt.Errorf("%w: asset %s decimals %d", domain.ErrConfiguration, a.Symbol, a.Decimals)
		}
		assets[a.Symbol] = domain.Asset{
			Symbol:   a.Symbol,
			Address:  common.HexToAddress(a.Address),
			Decimals: uint8(a.Decimals),
		}
	}
	routers := make(map[string]domain.RouterEndpoint, len(cfg.Routers))
	for _, r := range cfg.Routers {
		routers[r.Name] = domain.RouterEndpoint{Name: r.Name, Address: common.HexToAddress(r.Address)}
	}

	plan := domain.DepositPlan{Recipient: signer}
	if cfg.Liquidity.Recipient != "" {
		plan.Recipient = common.HexToAddress(cfg.Liquidity.Recipient)
	}

	for i, e := range cfg.Plan {
		a, ok := assets[e.TokenA]
		if !ok {
			return domain.DepositPlan{}, fmt.Errorf("%w: plan[%d]: unknown token_a %q", domain.ErrConfiguration, i, e.TokenA)
		}
		b, ok := assets[e.TokenB]
		if !ok {
			return domain.DepositPlan{}, fmt.Errorf("%w: plan[%d]: unknown token_b %q", domain.ErrConfiguration, i, e.TokenB)
		}
		router, ok := routers[e.Router]
		if !ok {
			return domain.DepositPlan{}, fmt.Errorf("%w: plan[%d]: unknown router %q", domain.ErrConfiguration, i, e.Router)
		}

		amountA, err := domain.ParseUnits(e.AmountA, a.Decimals)
		if err != nil {
			return domain.DepositPlan{}, fmt.Errorf("plan[%d] amount_a: %w", i, err)
		}
		amountB, err := domain.ParseUnits(e.AmountB, b.Decimals)
		if err != nil {
			return domain.DepositPlan{}, fmt.Errorf("plan[%d] amount_b: %w", i, err)
		}
		pair, err := domain.NewLiquidityPair(a, b, amountA, amountB)
		if err != nil {
			return domain.DepositPlan{}, fmt.Errorf("plan[%d]: %w", i, err)
		}

		window := e.DeadlineWindow.Duration
		if window <= 0 {
			window = cfg.Liquidity.DeadlineWindow.Duration
		}
		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = pair.String() + "@" + router.Name
		}

		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Label:          label,
			Pair:           pair,
			Router:         router,
			DeadlineWindow: window,
		})
	}
	return plan, nil
}
