// Package app owns the lifecycle of one bootstrapper run: it wires the chain
// client and the optional sinks, holds the signer lock, dispatches the
// configured mode and records the outcome.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/ammseed/internal/cache/redis"
	"github.com/alanyoungcy/ammseed/internal/config"
	"github.com/alanyoungcy/ammseed/internal/domain"
	"github.com/alanyoungcy/ammseed/internal/notify"
)

// finishTimeout bounds the bookkeeping done after the mode returns.
const finishTimeout = 30 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, executes the configured mode once and records the
// run. The returned error is the mode's error; bookkeeping failures are only
// logged.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	signer := deps.Signer.Address().Hex()
	run := domain.Run{
		ID:        uuid.NewString(),
		Mode:      strings.ToLower(a.cfg.Mode),
		Signer:    signer,
		ChainID:   deps.Chain.ChainID().Int64(),
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	logger := a.logger.With(slog.String("run_id", run.ID))
	logger.InfoContext(ctx, "run started",
		slog.String("mode", run.Mode),
		slog.String("signer", signer),
		slog.Int64("chain_id", run.ChainID),
	)

	if deps.Locks != nil {
		ttl := lockTTL(a.cfg)
		unlock, err := deps.Locks.Acquire(ctx, redis.SignerKey(signer), run.ID, ttl)
		if err != nil {
			return fmt.Errorf("app: signer lock: %w", err)
		}
		logger.DebugContext(ctx, "signer lock held", slog.Duration("ttl", ttl))
		defer unlock()
	}

	j := newRunJournal(run.ID, deps.RunStore, deps.Metrics)
	if deps.RunStore != nil {
		a.checkPreviousRun(ctx, deps.RunStore, j, run, logger)
		if err := deps.RunStore.CreateRun(ctx, run); err != nil {
			logger.WarnContext(ctx, "ledger: create run failed", slog.String("error", err.Error()))
		}
	}

	runErr := a.dispatch(ctx, deps, j, run.Mode)
	a.finish(ctx, deps, j, run, runErr, logger)
	return runErr
}

// checkPreviousRun warns when the signer's last run on this chain did not
// complete and attaches what it managed to do to the report.
func (a *App) checkPreviousRun(ctx context.Context, store domain.RunStore, j *runJournal, run domain.Run, logger *slog.Logger) {
	prev, err := previousRun(ctx, store, run.Signer, run.ChainID)
	if err != nil {
		logger.WarnContext(ctx, "ledger: previous run lookup failed", slog.String("error", err.Error()))
		return
	}
	if prev == nil {
		return
	}
	j.report.setPrevious(prev)
	logger.WarnContext(ctx, "previous run did not complete; entries will be resubmitted",
		slog.String("previous_run_id", prev.RunID),
		slog.String("previous_mode", prev.Mode),
		slog.String("previous_status", prev.Status),
		slog.Any("deposited", prev.Deposited),
		slog.Any("deployed", prev.Deployed),
		slog.String("failed_at", prev.FailedAt),
	)
}

func (a *App) dispatch(ctx context.Context, deps *Dependencies, j *runJournal, mode string) error {
	switch mode {
	case "mocks":
		return a.MocksMode(ctx, deps, j)
	case "liquidity":
		return a.LiquidityMode(ctx, deps, j)
	case "flashloan":
		return a.FlashLoanMode(ctx, deps, j)
	case "full":
		return a.FullMode(ctx, deps, j)
	default:
		return fmt.Errorf("app: %w: unsupported mode %q", domain.ErrConfiguration, mode)
	}
}

// finish closes the ledger row, archives the report, notifies operators and
// pushes metrics. It runs detached from ctx so a cancelled run is still
// recorded.
func (a *App) finish(ctx context.Context, deps *Dependencies, j *runJournal, run domain.Run, runErr error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = domain.RunStatusCompleted
	event, title := notify.EventRunCompleted, "Run completed"
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
		event, title = notify.EventRunFailed, "Run failed"
	}
	elapsed := now.Sub(run.StartedAt)
	deps.Metrics.FinishRun(elapsed, runErr)

	if deps.RunStore != nil {
		if err := deps.RunStore.FinishRun(ctx, run.ID, run.Status, run.Error); err != nil {
			logger.WarnContext(ctx, "ledger: finish run failed", slog.String("error", err.Error()))
		}
	}

	reportKey := ""
	if deps.Reports != nil {
		key, err := uploadReport(ctx, deps.Reports, j.report.build(run, a.cfg))
		if err != nil {
			logger.WarnContext(ctx, "report upload failed", slog.String("error", err.Error()))
		} else {
			reportKey = key
		}
	}

	if deps.Notifier.Wants(event) {
		msg := runSummary(run, elapsed, reportKey)
		if err := deps.Notifier.Notify(ctx, event, title, msg); err != nil {
			logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
		}
	}

	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		if err := deps.Metrics.Push(ctx, url, a.cfg.Metrics.Job, run.Signer); err != nil {
			logger.WarnContext(ctx, "metrics push failed", slog.String("error", err.Error()))
		}
	}

	attrs := []any{
		slog.String("status", string(run.Status)),
		slog.Duration("elapsed", elapsed),
	}
	if runErr != nil {
		logger.ErrorContext(ctx, "run finished", append(attrs, slog.String("error", run.Error))...)
		return
	}
	logger.InfoContext(ctx, "run finished", attrs...)
}

func runSummary(run domain.Run, elapsed time.Duration, reportKey string) string {
	msg := fmt.Sprintf("run %s (%s) on chain %d by %s: %s after %s",
		run.ID, run.Mode, run.ChainID, run.Signer, run.Status, elapsed.Round(time.Second))
	if run.Error != "" {
		msg += "\nerror: " + run.Error
	}
	if reportKey != "" {
		msg += "\nreport: " + reportKey
	}
	return msg
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
