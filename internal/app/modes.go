package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/deploy"
	"github.com/alanyoungcy/ammseed/internal/domain"
	"github.com/alanyoungcy/ammseed/internal/liquidity"
	"github.com/alanyoungcy/ammseed/internal/notify"
)

// MocksMode deploys the configured mock token artifacts in order.
func (a *App) MocksMode(ctx context.Context, deps *Dependencies, j *runJournal) error {
	a.logger.InfoContext(ctx, "starting mocks mode",
		slog.Int("contracts", len(a.cfg.Mocks.Contracts)),
	)
	d := deploy.New(deps.Deployer, deploy.DirSource(a.cfg.Artifacts.Dir), a.deployJournal(deps, j), a.logger)
	if _, err := d.Mocks(ctx, a.cfg.Mocks.Contracts); err != nil {
		a.journalFailure(ctx, j, "mocks", err)
		return err
	}
	return nil
}

// LiquidityMode builds the deposit plan from configuration and runs it.
func (a *App) LiquidityMode(ctx context.Context, deps *Dependencies, j *runJournal) error {
	plan, err := liquidity.BuildPlan(a.cfg, deps.Signer.Address())
	if err != nil {
		a.journalFailure(ctx, j, "plan", err)
		return err
	}
	handles, err := deps.Handles(plan)
	if err != nil {
		a.journalFailure(ctx, j, "plan", err)
		return err
	}

	lc := a.cfg.Liquidity
	guard := liquidity.NewGuard(domain.ApprovalPolicy(lc.ApprovalPolicy), deps.Waiter, a.logger)
	depositor := liquidity.NewDepositor(deps.Signer.Address(), handles, guard, deps.Waiter, liquidity.Preflight{
		CheckBalances: lc.CheckBalances,
		CheckDecimals: lc.CheckDecimals,
		CheckSymbols:  lc.CheckSymbols,
		Simulate:      lc.Simulate,
	}, a.logger)

	a.logger.InfoContext(ctx, "starting liquidity mode",
		slog.Int("entries", plan.Len()),
		slog.String("policy", lc.ApprovalPolicy),
	)
	_, err = liquidity.NewOrchestrator(depositor, j, a.logger).Run(ctx, plan)
	return err
}

// FlashLoanMode deploys the flash-loan executor.
func (a *App) FlashLoanMode(ctx context.Context, deps *Dependencies, j *runJournal) error {
	params, err := deploy.FlashLoanParamsFromConfig(a.cfg.FlashLoan)
	if err != nil {
		a.journalFailure(ctx, j, "flashloan", err)
		return err
	}
	a.logger.InfoContext(ctx, "starting flashloan mode",
		slog.String("artifact", params.Artifact),
		slog.Int("routers", len(params.Routers)),
	)
	d := deploy.New(deps.Deployer, deploy.DirSource(a.cfg.Artifacts.Dir), a.deployJournal(deps, j), a.logger)
	if _, err := d.FlashLoan(ctx, params); err != nil {
		a.journalFailure(ctx, j, params.Artifact, err)
		return err
	}
	return nil
}

// FullMode seeds liquidity and then deploys the flash-loan executor against
// the freshly funded routers.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, j *runJournal) error {
	if err := a.LiquidityMode(ctx, deps, j); err != nil {
		return fmt.Errorf("full: %w", err)
	}
	if err := a.FlashLoanMode(ctx, deps, j); err != nil {
		return fmt.Errorf("full: %w", err)
	}
	return nil
}

// journalFailure records a failure that happened outside any plan entry. A
// ledger error is logged, never returned.
func (a *App) journalFailure(ctx context.Context, j *runJournal, label string, err error) {
	if jerr := j.Failure(ctx, -1, label, err); jerr != nil {
		a.logger.WarnContext(ctx, "journal write failed",
			slog.String("record", label),
			slog.Int("entry", -1),
			slog.String("error", jerr.Error()),
		)
	}
}

// deployJournal records deployments in the run journal and announces them.
func (a *App) deployJournal(deps *Dependencies, j *runJournal) deploy.Journal {
	return &announcingJournal{runJournal: j, notifier: deps.Notifier, logger: a.logger}
}

type announcingJournal struct {
	*runJournal
	notifier *notify.Notifier
	logger   *slog.Logger
}

func (n *announcingJournal) Deployed(ctx context.Context, d chain.Deployment) error {
	if err := n.runJournal.Deployed(ctx, d); err != nil {
		return err
	}
	if !n.notifier.Wants(notify.EventContractDeployed) {
		return nil
	}
	msg := fmt.Sprintf("%s deployed at %s (tx %s)", d.Name, d.Address.Hex(), d.TxHash.Hex())
	if err := n.notifier.Notify(ctx, notify.EventContractDeployed, "Contract deployed", msg); err != nil {
		n.logger.WarnContext(ctx, "deployment notification failed", slog.String("error", err.Error()))
	}
	return nil
}
