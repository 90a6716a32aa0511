package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/chain"
	"github.com/alanyoungcy/ammseed/internal/domain"
	"github.com/alanyoungcy/ammseed/internal/liquidity"
	"github.com/alanyoungcy/ammseed/internal/metrics"
)

// runJournal turns plan and deployment outcomes into step records and fans
// them out to the ledger, the metrics and the in-memory report.
type runJournal struct {
	runID   string
	store   domain.RunStore
	metrics *metrics.Metrics
	report  *reportBuilder
	now     func() time.Time
}

func newRunJournal(runID string, store domain.RunStore, m *metrics.Metrics) *runJournal {
	return &runJournal{
		runID:   runID,
		store:   store,
		metrics: m,
		report:  &reportBuilder{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (j *runJournal) Approval(ctx context.Context, entry int, label string, o liquidity.ApprovalOutcome) error {
	step := domain.StepRecord{
		Entry:   entry,
		Label:   label,
		Token:   o.Token.Symbol,
		Spender: o.Spender.Hex(),
	}
	if o.Skipped {
		step.Kind = domain.StepApprovalSkipped
		step.Amount = o.Observed
		j.metrics.ApprovalsSkipped.WithLabelValues(o.Token.Symbol, o.Spender.Hex()).Inc()
		return j.append(ctx, step)
	}
	if o.Approved == nil {
		// The allowance read itself failed; Failure records the cause.
		return nil
	}
	step.Kind = domain.StepApproval
	step.Amount = o.Approved
	step.TxHash = o.TxHash.Hex()
	fillReceipt(&step, o.Receipt)
	if o.Receipt != nil && o.Receipt.Status == types.ReceiptStatusSuccessful {
		j.metrics.Approvals.WithLabelValues(o.Token.Symbol, o.Spender.Hex()).Inc()
	}
	return j.append(ctx, step)
}

func (j *runJournal) Deposit(ctx context.Context, entry int, r liquidity.DepositReceipt) error {
	step := domain.StepRecord{
		Entry:   entry,
		Label:   r.Label,
		Kind:    domain.StepDeposit,
		Token:   r.Pair.String(),
		Router:  r.Router.String(),
		Amount:  r.Pair.AmountA,
		AmountB: r.Pair.AmountB,
		TxHash:  r.TxHash.Hex(),
	}
	fillReceipt(&step, r.Receipt)
	j.metrics.Deposits.WithLabelValues(r.Router.Name).Inc()
	return j.append(ctx, step)
}

func (j *runJournal) Failure(ctx context.Context, entry int, label string, cause error) error {
	j.metrics.Failures.WithLabelValues(metrics.Cause(cause)).Inc()
	return j.append(ctx, domain.StepRecord{
		Entry: entry,
		Label: label,
		Kind:  domain.StepFailed,
		Error: cause.Error(),
	})
}

func (j *runJournal) Deployed(ctx context.Context, d chain.Deployment) error {
	step := domain.StepRecord{
		Entry:    -1,
		Label:    d.Name,
		Kind:     domain.StepDeployment,
		Contract: d.Address.Hex(),
		TxHash:   d.TxHash.Hex(),
	}
	fillReceipt(&step, d.Receipt)
	j.metrics.Deployments.WithLabelValues(d.Name).Inc()
	return j.append(ctx, step)
}

func (j *runJournal) append(ctx context.Context, step domain.StepRecord) error {
	step.RunID = j.runID
	step.At = j.now()
	j.report.add(step)
	if j.store == nil {
		return nil
	}
	if err := j.store.AppendStep(ctx, step); err != nil {
		return fmt.Errorf("app: ledger: %w", err)
	}
	return nil
}

func fillReceipt(step *domain.StepRecord, r *types.Receipt) {
	if r == nil {
		return
	}
	if r.BlockNumber != nil {
		step.BlockNumber = r.BlockNumber.Uint64()
	}
	step.GasUsed = r.GasUsed
	if r.Status != types.ReceiptStatusSuccessful && step.Error == "" {
		step.Error = "receipt status failed"
	}
}
