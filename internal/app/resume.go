package app

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// PreviousRun describes the signer's last run when it did not complete. A
// rerun resubmits every entry, so deposits listed here will be made twice.
type PreviousRun struct {
	RunID     string   `json:"run_id"`
	Mode      string   `json:"mode"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	Deposited []string `json:"deposited,omitempty"`
	Deployed  []string `json:"deployed,omitempty"`
	FailedAt  string   `json:"failed_at,omitempty"`
}

// previousRun inspects the newest run of signer on chainID. It returns nil when
// there is none or it completed.
func previousRun(ctx context.Context, store domain.RunStore, signer string, chainID int64) (*PreviousRun, error) {
	runs, err := store.ListRuns(ctx, domain.ListOpts{Limit: 1, Signer: signer, ChainID: chainID})
	if err != nil {
		return nil, fmt.Errorf("app: previous run: %w", err)
	}
	if len(runs) == 0 || runs[0].Status == domain.RunStatusCompleted {
		return nil, nil
	}
	last := runs[0]

	steps, err := store.ListSteps(ctx, last.ID)
	if err != nil {
		return nil, fmt.Errorf("app: previous run %s steps: %w", last.ID, err)
	}
	prev := &PreviousRun{
		RunID:  last.ID,
		Mode:   last.Mode,
		Status: string(last.Status),
		Error:  last.Error,
	}
	for _, s := range steps {
		switch s.Kind {
		case domain.StepDeposit:
			if s.Error == "" {
				prev.Deposited = append(prev.Deposited, s.Label)
			}
		case domain.StepDeployment:
			if s.Error == "" {
				prev.Deployed = append(prev.Deployed, s.Label)
			}
		case domain.StepFailed:
			if prev.FailedAt == "" {
				prev.FailedAt = s.Label
			}
		}
	}
	return prev, nil
}
