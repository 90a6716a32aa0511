package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/alanyoungcy/ammseed/internal/config"
	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Report is the JSON document archived for each run.
type Report struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	Signer     string        `json:"signer"`
	ChainID    int64         `json:"chain_id"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Config     config.Config `json:"config"`
	Previous   *PreviousRun  `json:"previous_run,omitempty"`
	Steps      []ReportStep  `json:"steps"`
}

// ReportStep mirrors domain.StepRecord with amounts as decimal strings.
type ReportStep struct {
	Entry       int       `json:"entry"`
	Label       string    `json:"label,omitempty"`
	Kind        string    `json:"kind"`
	Token       string    `json:"token,omitempty"`
	Spender     string    `json:"spender,omitempty"`
	Router      string    `json:"router,omitempty"`
	Contract    string    `json:"contract,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	AmountB     string    `json:"amount_b,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	GasUsed     uint64    `json:"gas_used,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// reportBuilder accumulates steps in memory until the run finishes.
type reportBuilder struct {
	mu       sync.Mutex
	steps    []ReportStep
	previous *PreviousRun
}

func (b *reportBuilder) setPrevious(p *PreviousRun) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.previous = p
}

func (b *reportBuilder) add(s domain.StepRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, ReportStep{
		Entry:       s.Entry,
		Label:       s.Label,
		Kind:        string(s.Kind),
		Token:       s.Token,
		Spender:     s.Spender,
		Router:      s.Router,
		Contract:    s.Contract,
		Amount:      amountString(s.Amount),
		AmountB:     amountString(s.AmountB),
		TxHash:      s.TxHash,
		BlockNumber: s.BlockNumber,
		GasUsed:     s.GasUsed,
		Error:       s.Error,
		At:          s.At,
	})
}

func (b *reportBuilder) build(run domain.Run, cfg *config.Config) Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := Report{
		RunID:     run.ID,
		Mode:      run.Mode,
		Signer:    run.Signer,
		ChainID:   run.ChainID,
		Status:    string(run.Status),
		Error:     run.Error,
		StartedAt: run.StartedAt,
		Config:    config.RedactedConfig(cfg),
		Previous:  b.previous,
		Steps:     append([]ReportStep(nil), b.steps...),
	}
	if run.FinishedAt != nil {
		r.FinishedAt = *run.FinishedAt
	}
	return r
}

// reportKey places reports under <yyyy>/<mm>/<dd>/<run id>.json.
func reportKey(run domain.Run) string {
	return fmt.Sprintf("%s/%s.json", run.StartedAt.UTC().Format("2006/01/02"), run.ID)
}

func uploadReport(ctx context.Context, w domain.BlobWriter, r Report) (string, error) {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("app: marshal report: %w", err)
	}
	key := reportKey(domain.Run{ID: r.RunID, StartedAt: r.StartedAt})
	if err := w.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
