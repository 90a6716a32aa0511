package liquidity

import "context"

// Journal receives every outcome of a plan run. Implementations persist,
// count or report them; their errors are logged by the orchestrator and
// otherwise ignored.
type Journal interface {
	Approval(ctx context.Context, entry int, label string, outcome ApprovalOutcome) error
	Deposit(ctx context.Context, entry int, receipt DepositReceipt) error
	Failure(ctx context.Context, entry int, label string, cause error) error
}

type nopJournal struct{}

func (nopJournal) Approval(context.Context, int, string, ApprovalOutcome) error { return nil }
func (nopJournal) Deposit(context.Context, int, DepositReceipt) error           { return nil }
func (nopJournal) Failure(context.Context, int, string, error) error            { return nil }
