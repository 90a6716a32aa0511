package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// DeadlineGrace lets a receipt mined right at the deadline arrive after the
// wall clock has passed it; the block timestamp decides the outcome.
const DeadlineGrace = 30 * time.Second

// ReceiptBackend is what the Waiter needs from the node.
type ReceiptBackend interface {
	bind.DeployBackend
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// ConfirmObserver is told how long each successful confirmation took.
type ConfirmObserver func(elapsed time.Duration, receipt *types.Receipt)

// Waiter blocks until transactions are mined and classifies the outcome.
type Waiter struct {
	backend  ReceiptBackend
	timeout  time.Duration
	observer ConfirmObserver
	logger   *slog.Logger
}

// NewWaiter creates a Waiter that gives up on a transaction after timeout.
func NewWaiter(backend ReceiptBackend, timeout time.Duration, logger *slog.Logger) *Waiter {
	return &Waiter{
		backend: backend,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "waiter")),
	}
}

// SetObserver installs fn to be called after every successful confirmation.
func (w *Waiter) SetObserver(fn ConfirmObserver) {
	w.observer = fn
}

// Confirm waits up to the configured timeout for tx to be mined. A receipt
// with a failed status yields domain.ErrTransactionReverted.
func (w *Waiter) Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	receipt, err := w.wait(waitCtx, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("chain: tx %s in block %s: %w", tx.Hash().Hex(), receipt.BlockNumber, domain.ErrTransactionReverted)
	}
	w.observe(start, receipt)
	return receipt, nil
}

// ConfirmBefore waits for tx until deadline (plus a short grace period). Not
// being mined by then, or reverting in a block stamped after the deadline,
// yields domain.ErrDeadlineExceeded. Any other revert yields
// domain.ErrTransactionReverted.
func (w *Waiter) ConfirmBefore(ctx context.Context, tx *types.Transaction, deadline time.Time) (*types.Receipt, error) {
	waitCtx, cancel := context.WithDeadline(ctx, deadline.Add(DeadlineGrace))
	defer cancel()

	start := time.Now()
	receipt, err := w.wait(waitCtx, tx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("chain: tx %s not mined by %s: %w", tx.Hash().Hex(), deadline.UTC().Format(time.RFC3339), domain.ErrDeadlineExceeded)
		}
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		w.observe(start, receipt)
		return receipt, nil
	}

	header, err := w.backend.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return receipt, fmt.Errorf("chain: tx %s reverted, header %s: %w", tx.Hash().Hex(), receipt.BlockNumber, errors.Join(domain.ErrTransactionReverted, err))
	}
	if header.Time > uint64(deadline.Unix()) {
		return receipt, fmt.Errorf("chain: tx %s reverted in block %s at %d past deadline %d: %w",
			tx.Hash().Hex(), receipt.BlockNumber, header.Time, deadline.Unix(), domain.ErrDeadlineExceeded)
	}
	return receipt, fmt.Errorf("chain: tx %s in block %s: %w", tx.Hash().Hex(), receipt.BlockNumber, domain.ErrTransactionReverted)
}

func (w *Waiter) wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	w.logger.Debug("waiting for transaction", slog.String("tx", tx.Hash().Hex()))
	receipt, err := bind.WaitMined(ctx, w.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("chain: wait for tx %s: %w", tx.Hash().Hex(), err)
	}
	return receipt, nil
}

func (w *Waiter) observe(start time.Time, receipt *types.Receipt) {
	elapsed := time.Since(start)
	w.logger.Debug("transaction confirmed",
		slog.String("tx", receipt.TxHash.Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
		slog.Duration("elapsed", elapsed),
	)
	if w.observer != nil {
		w.observer(elapsed, receipt)
	}
}
