package domain

import "context"

// ListOpts filters ListRuns. Zero values match everything.
type ListOpts struct {
	Limit   int
	Signer  string
	ChainID int64
}

// RunStore persists runs and their step ledger.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	ListRuns(ctx context.Context, opts ListOpts) ([]Run, error)
	AppendStep(ctx context.Context, step StepRecord) error
	ListSteps(ctx context.Context, runID string) ([]StepRecord, error)
}
