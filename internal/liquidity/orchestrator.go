package liquidity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// DepositStep is satisfied by *Depositor.
type DepositStep interface {
	Deposit(ctx context.Context, entry domain.PlanEntry, recipient common.Address) (DepositReceipt, error)
}

// RunSummary totals a plan run.
type RunSummary struct {
	Entries          int
	Completed        int
	Approvals        int
	ApprovalsSkipped int
	Deposits         []DepositReceipt
}

// Orchestrator walks a DepositPlan one entry at a time and halts at the
// first failure. Nothing is retried or rolled back.
type Orchestrator struct {
	depositor DepositStep
	journal   Journal
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil journal discards outcomes.
func NewOrchestrator(depositor DepositStep, journal Journal, logger *slog.Logger) *Orchestrator {
	if journal == nil {
		journal = nopJournal{}
	}
	return &Orchestrator{
		depositor: depositor,
		journal:   journal,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes plan. Entry n+1 starts only after entry n's deposit is
// confirmed. The returned error names the failing entry and wraps its cause.
func (o *Orchestrator) Run(ctx context.Context, plan domain.DepositPlan) (RunSummary, error) {
	summary := RunSummary{Entries: plan.Len()}
	o.logger.Info("plan started",
		slog.Int("entries", plan.Len()),
		slog.String("recipient", plan.Recipient.Hex()),
	)

	for i, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("liquidity: stopped before plan[%d] %q: %w", i, entry.Label, err)
		}

		rec, err := o.depositor.Deposit(ctx, entry, plan.Recipient)
		for _, a := range rec.Approvals {
			if a.Skipped {
				summary.ApprovalsSkipped++
			} else if a.Approved != nil {
				summary.Approvals++
			}
			o.record(o.journal.Approval(ctx, i, entry.Label, a), "approval", i)
		}
		if err != nil {
			o.record(o.journal.Failure(ctx, i, entry.Label, err), "failure", i)
			o.logger.Error("plan entry failed",
				slog.Int("entry", i),
				slog.String("label", entry.Label),
				slog.String("error", err.Error()),
			)
			return summary, fmt.Errorf("liquidity: plan[%d] %q: %w", i, entry.Label, err)
		}

		summary.Completed++
		summary.Deposits = append(summary.Deposits, rec)
		o.record(o.journal.Deposit(ctx, i, rec), "deposit", i)
	}

	o.logger.Info("plan completed",
		slog.Int("entries", summary.Completed),
		slog.Int("approvals", summary.Approvals),
		slog.Int("approvals_skipped", summary.ApprovalsSkipped),
	)
	return summary, nil
}

func (o *Orchestrator) record(err error, what string, entry int) {
	if err != nil {
		o.logger.Warn("journal write failed",
			slog.String("record", what),
			slog.Int("entry", entry),
			slog.String("error", err.Error()),
		)
	}
}
