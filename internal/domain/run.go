package domain

import (
	"math/big"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the bootstrapper.
type Run struct {
	ID         string
	Mode       string
	Signer     string
	ChainID    int64
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StepKind classifies a StepRecord.
type StepKind string

const (
	StepApprovalSkipped StepKind = "approval_skipped"
	StepApproval        StepKind = "approval"
	StepDeposit         StepKind = "deposit"
	StepDeployment      StepKind = "deployment"
	StepFailed          StepKind = "failed"
)

// StepRecord captures a single on-chain action (or skipped action) of a run.
type StepRecord struct {
	RunID       string
	Entry       int
	Label       string
	Kind        StepKind
	Token       string
	Spender     string
	Router      string
	Contract    string
	Amount      *big.Int
	AmountB     *big.Int
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Error       string
	At          time.Time
}
