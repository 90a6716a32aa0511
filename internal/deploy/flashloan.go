package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/config"
	"github.com/alanyoungcy/ammseed/internal/domain"
)

// FlashLoanParams are the executor's constructor inputs. Zero addresses for
// ArbitragedAsset and Keeper mean "not configured".
type FlashLoanParams struct {
	Artifact            string
	LendingPoolProvider common.Address
	Routers             []common.Address
	BorrowedAsset       common.Address
	ArbitragedAsset     common.Address
	Keeper              common.Address
}

// FlashLoanParamsFromConfig converts the validated flash-loan section.
func FlashLoanParamsFromConfig(fl config.FlashLoanConfig) (FlashLoanParams, error) {
	p := FlashLoanParams{
		Artifact:            fl.Artifact,
		LendingPoolProvider: common.HexToAddress(fl.LendingPoolProvider),
		BorrowedAsset:       common.HexToAddress(fl.BorrowedAsset),
	}
	for _, r := range fl.Routers {
		p.Routers = append(p.Routers, common.HexToAddress(r))
	}
	if strings.TrimSpace(fl.ArbitragedAsset) != "" {
		p.ArbitragedAsset = common.HexToAddress(fl.ArbitragedAsset)
	}
	if strings.TrimSpace(fl.Keeper) != "" {
		p.Keeper = common.HexToAddress(fl.Keeper)
	}
	if len(p.Routers) == 0 || len(p.Routers) > 2 {
		return FlashLoanParams{}, fmt.Errorf("%w: flash loan needs one or two routers, got %d", domain.ErrConfiguration, len(p.Routers))
	}
	return p, nil
}

// slot is the role a constructor input plays.
type slot int

const (
	slotUnknown slot = iota
	slotProvider
	slotRouter
	slotBorrowed
	slotArbitraged
	slotKeeper
)

func (s slot) String() string {
	switch s {
	case slotProvider:
		return "lending pool provider"
	case slotRouter:
		return "router"
	case slotBorrowed:
		return "borrowed asset"
	case slotArbitraged:
		return "arbitraged asset"
	case slotKeeper:
		return "keeper"
	default:
		return "unknown"
	}
}

// slotOf classifies a constructor input by its name. A second plain "asset"
// or "token" input is the arbitraged asset.
func slotOf(name string, borrowedSeen bool) slot {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "provider"), strings.Contains(n, "lendingpool"):
		return slotProvider
	case strings.Contains(n, "router"):
		return slotRouter
	case strings.Contains(n, "keeper"):
		return slotKeeper
	case strings.Contains(n, "arbitrag"), strings.Contains(n, "target"):
		return slotArbitraged
	case strings.Contains(n, "borrow"):
		return slotBorrowed
	case strings.Contains(n, "asset"), strings.Contains(n, "token"):
		if borrowedSeen {
			return slotArbitraged
		}
		return slotBorrowed
	default:
		return slotUnknown
	}
}

// ConstructorArgs maps the parameters onto the constructor inputs by name.
// Every input must be an address with a recognisable role, every role the
// constructor declares must be configured, and every configured value must
// have a slot; anything else is a configuration error.
func (p FlashLoanParams) ConstructorArgs(inputs abi.Arguments) ([]interface{}, error) {
	args := make([]interface{}, 0, len(inputs))
	used := map[slot]int{}
	for i, in := range inputs {
		if in.Type.T != abi.AddressTy {
			return nil, fmt.Errorf("%w: constructor argument %d (%s) is %s, want address",
				domain.ErrConfiguration, i, in.Name, in.Type.String())
		}
		s := slotOf(in.Name, used[slotBorrowed] > 0)
		var v common.Address
		switch s {
		case slotProvider:
			v = p.LendingPoolProvider
		case slotRouter:
			k := used[slotRouter]
			if k >= len(p.Routers) {
				return nil, fmt.Errorf("%w: constructor argument %d (%s) wants router #%d, %d configured",
					domain.ErrConfiguration, i, in.Name, k+1, len(p.Routers))
			}
			v = p.Routers[k]
		case slotBorrowed:
			v = p.BorrowedAsset
		case slotArbitraged:
			v = p.ArbitragedAsset
		case slotKeeper:
			v = p.Keeper
		default:
			return nil, fmt.Errorf("%w: constructor argument %d %q has no recognised role",
				domain.ErrConfiguration, i, in.Name)
		}
		if s != slotRouter && used[s] > 0 {
			return nil, fmt.Errorf("%w: constructor declares more than one %s", domain.ErrConfiguration, s)
		}
		if v == (common.Address{}) {
			return nil, fmt.Errorf("%w: constructor argument %d (%s) needs a %s, none configured",
				domain.ErrConfiguration, i, in.Name, s)
		}
		used[s]++
		args = append(args, v)
	}

	if used[slotRouter] != len(p.Routers) {
		return nil, fmt.Errorf("%w: constructor takes %d routers, %d configured",
			domain.ErrConfiguration, used[slotRouter], len(p.Routers))
	}
	for _, c := range []struct {
		s   slot
		set bool
	}{
		{slotProvider, p.LendingPoolProvider != (common.Address{})},
		{slotBorrowed, p.BorrowedAsset != (common.Address{})},
		{slotArbitraged, p.ArbitragedAsset != (common.Address{})},
		{slotKeeper, p.Keeper != (common.Address{})},
	} {
		if c.set && used[c.s] == 0 {
			return nil, fmt.Errorf("%w: %s is configured but the constructor has no slot for it",
				domain.ErrConfiguration, c.s)
		}
	}
	return args, nil
}

// FlashLoan deploys the executor after mapping the parameters onto the
// artifact's constructor.
func (d *Deployer) FlashLoan(ctx context.Context, p FlashLoanParams) (chain.Deployment, error) {
	art, err := d.artifacts(p.Artifact)
	if err != nil {
		return chain.Deployment{}, fmt.Errorf("deploy: %s: %w", p.Artifact, err)
	}

	args, err := p.ConstructorArgs(art.ABI.Constructor.Inputs)
	if err != nil {
		return chain.Deployment{}, fmt.Errorf("deploy: %s: %w", art.Name, err)
	}
	d.logger.Info("deploying flash loan executor",
		slog.String("artifact", art.Name),
		slog.Int("routers", len(p.Routers)),
		slog.Bool("arbitraged_asset", p.ArbitragedAsset != (common.Address{})),
		slog.Bool("keeper", p.Keeper != (common.Address{})),
	)
	return d.deploy(ctx, art, args...)
}
