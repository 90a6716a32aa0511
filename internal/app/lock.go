package app

import (
	"strings"
	"time"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/config"
)

// lockTTL returns the signer lock lifetime: the configured TTL, raised to the
// longest the configured mode can take when every confirmation runs to its
// bound.
func lockTTL(cfg *config.Config) time.Duration {
	confirm := cfg.Chain.ConfirmTimeout.Duration

	var worst time.Duration
	switch strings.ToLower(cfg.Mode) {
	case "mocks":
		worst = time.Duration(len(cfg.Mocks.Contracts)) * confirm
	case "liquidity":
		worst = planWorstCase(cfg)
	case "flashloan":
		worst = confirm
	case "full":
		worst = planWorstCase(cfg) + confirm
	}
	worst += finishTimeout

	if ttl := cfg.Redis.LockTTL.Duration; ttl > worst {
		return ttl
	}
	return worst
}

// planWorstCase bounds one pass over the plan: two approvals per entry, each
// waited on for at most the confirm timeout, then the deposit bounded by its
// deadline.
func planWorstCase(cfg *config.Config) time.Duration {
	confirm := cfg.Chain.ConfirmTimeout.Duration
	var total time.Duration
	for _, e := range cfg.Plan {
		window := e.DeadlineWindow.Duration
		if window <= 0 {
			window = cfg.Liquidity.DeadlineWindow.Duration
		}
		total += 2*confirm + window + chain.DeadlineGrace
	}
	return total
}
